package telemetry

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NewTap creates a converter that calls fn with every sample before passing
// it on unchanged. fn runs on the tap goroutine and must not block for long.
func NewTap(fn func(Sample), bufSize int) func(in <-chan Sample) <-chan Sample {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for s := range in {
				if fn != nil {
					fn(s)
				}
				select {
				case out <- s:
				case <-time.After(time.Second):
					log.Warn().Int("percent", s.Percent).Msg("Tap output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}
