package monitor

import (
	"time"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
)

// Stats summarizes a window of samples.
type Stats struct {
	Count int     `json:"count"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	// Span is the time between the first and last sample.
	Span time.Duration `json:"span"`
	// Dwell is how long the light stayed in each band. Each interval between
	// two samples is credited to the band of the earlier one.
	Dwell map[guard.Band]time.Duration `json:"dwell"`
	// Transitions counts band changes between consecutive samples.
	Transitions int `json:"transitions"`
}

// DwellFraction returns the share of the span spent in band b.
func (s Stats) DwellFraction(b guard.Band) float64 {
	if s.Span <= 0 {
		return 0
	}
	return float64(s.Dwell[b]) / float64(s.Span)
}

func computeStats(samples []telemetry.Sample) Stats {
	st := Stats{Dwell: make(map[guard.Band]time.Duration)}
	if len(samples) == 0 {
		return st
	}

	st.Count = len(samples)
	st.Min, st.Max = samples[0].Percent, samples[0].Percent
	sum := 0
	for i, s := range samples {
		sum += s.Percent
		st.Min = min(st.Min, s.Percent)
		st.Max = max(st.Max, s.Percent)
		if i == 0 {
			continue
		}
		prev := samples[i-1]
		if dt := s.Timestamp.Sub(prev.Timestamp); dt > 0 {
			st.Dwell[prev.Band] += dt
		}
		if s.Band != prev.Band {
			st.Transitions++
		}
	}
	st.Mean = float64(sum) / float64(len(samples))
	st.Span = samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp)
	return st
}
