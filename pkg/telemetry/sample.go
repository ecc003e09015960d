// Package telemetry turns raw board readings into classified samples.
package telemetry

import (
	"time"

	"github.com/itohio/plantguard/pkg/device"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is used when a converter is given no buffer size.
const DefaultBufferSize = 100

// Sample is a reading together with the state the board shows for it.
type Sample struct {
	Timestamp time.Time   `json:"timestamp"`
	Percent   int         `json:"percent"`
	Band      guard.Band  `json:"band"`
	Indicator guard.Color `json:"indicator"`
	ToneHz    uint32      `json:"tone_hz"`
}

// Alarm reports whether the buzzer sounds for this sample.
func (s Sample) Alarm() bool {
	return s.ToneHz != 0
}

// Classify builds a Sample from a percentage using the board's band table.
func Classify(ts time.Time, percent int) Sample {
	p := guard.Classify(percent)
	return Sample{
		Timestamp: ts,
		Percent:   percent,
		Band:      p.Band,
		Indicator: p.Color,
		ToneHz:    p.ToneHz,
	}
}

// Converter is a function type that converts a Reading channel to a Sample channel.
type Converter func(in <-chan device.Reading) <-chan Sample

// NewClassifier creates a converter that classifies every reading.
func NewClassifier(bufSize int) Converter {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return func(in <-chan device.Reading) <-chan Sample {
		out := make(chan Sample, bufSize)

		go func() {
			defer close(out)

			for r := range in {
				select {
				case out <- Classify(r.Timestamp, r.Percent):
				case <-time.After(time.Second):
					log.Warn().Int("percent", r.Percent).Msg("Classifier output channel full, dropping sample")
				}
			}
		}()

		return out
	}
}
