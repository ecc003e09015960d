package telemetry

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NewSmoother creates a converter that replaces each sample with the moving
// average of the last windowSize samples, reclassified. The most recent
// timestamp is kept. A window of 1 or less passes samples through.
func NewSmoother(windowSize int, bufSize int) func(in <-chan Sample) <-chan Sample {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan Sample) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			buffer := make([]int, 0, windowSize)
			for s := range in {
				buffer = append(buffer, s.Percent)
				if len(buffer) > windowSize {
					buffer = buffer[1:]
				}

				select {
				case out <- Classify(s.Timestamp, average(buffer)):
				case <-time.After(time.Second):
					log.Warn().Msg("Smoother output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}

// average returns the rounded mean of values.
func average(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	n := len(values)
	return (sum + n/2) / n
}
