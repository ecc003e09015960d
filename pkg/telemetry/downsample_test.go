package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownsample_NoDownsampling(t *testing.T) {
	now := time.Now()
	samples := []Sample{
		Classify(now, 10),
		Classify(now.Add(time.Second), 20),
		Classify(now.Add(2*time.Second), 30),
	}

	result := Downsample(nil, samples, 10)
	require.Len(t, result, 3)
	assert.Equal(t, samples, result)

	dst := make([]Sample, 0, 10)
	result = Downsample(dst, samples, 10)
	require.Len(t, result, 3)
	assert.Equal(t, samples, result)
	assert.Equal(t, cap(dst), cap(result), "dst reused")
}

func TestDownsample_WithDownsampling(t *testing.T) {
	now := time.Now()
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Classify(now.Add(time.Duration(i)*time.Second), i)
	}

	dst := make([]Sample, 0, 20)
	result := Downsample(dst, samples, 10)
	require.Len(t, result, 10)
	assert.Equal(t, samples[0], result[0])
	assert.GreaterOrEqual(t, result[len(result)-1].Percent, 80)

	for i := 1; i < len(result); i++ {
		assert.True(t, result[i].Timestamp.After(result[i-1].Timestamp))
	}
}

func TestDownsample_DestinationReuse(t *testing.T) {
	dst := make([]float64, 0, 4)
	first := Downsample(dst, []float64{1, 2}, 4)
	second := Downsample(first, []float64{3, 4, 5}, 4)

	assert.Equal(t, []float64{3, 4, 5}, second)
	assert.Equal(t, &dst[:1][0], &second[0], "same backing array")
}

func TestDownsample_SmallDestination(t *testing.T) {
	dst := make([]int, 0, 1)
	result := Downsample(dst, []int{1, 2, 3, 4, 5, 6}, 3)
	assert.Equal(t, []int{1, 3, 5}, result)
}
