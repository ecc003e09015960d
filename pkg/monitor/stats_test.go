package monitor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats_Empty(t *testing.T) {
	st := computeStats(nil)
	assert.Equal(t, 0, st.Count)
	assert.NotNil(t, st.Dwell)
	assert.Equal(t, float64(0), st.DwellFraction(guard.BandIdeal))
}

func TestComputeStats(t *testing.T) {
	now := time.Now()
	samples := []telemetry.Sample{
		telemetry.Classify(now, 60),                    // ideal
		telemetry.Classify(now.Add(2*time.Second), 65), // ideal
		telemetry.Classify(now.Add(3*time.Second), 20), // low
		telemetry.Classify(now.Add(7*time.Second), 70), // ideal
	}

	st := computeStats(samples)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 20, st.Min)
	assert.Equal(t, 70, st.Max)
	assert.InDelta(t, 53.75, st.Mean, 1e-9)
	assert.Equal(t, 7*time.Second, st.Span)
	assert.Equal(t, 3*time.Second, st.Dwell[guard.BandIdeal])
	assert.Equal(t, 4*time.Second, st.Dwell[guard.BandLow])
	assert.Equal(t, 2, st.Transitions)
	assert.InDelta(t, 4.0/7.0, st.DwellFraction(guard.BandLow), 1e-9)
}

func TestStats_JSON(t *testing.T) {
	now := time.Now()
	st := computeStats([]telemetry.Sample{
		telemetry.Classify(now, 95),
		telemetry.Classify(now.Add(time.Second), 95),
	})

	data, err := json.Marshal(st)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	dwell, ok := decoded["dwell"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(time.Second), dwell["very-high"])
}
