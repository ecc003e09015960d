package telemetry

import (
	"testing"
	"time"

	"github.com/itohio/plantguard/pkg/device"
	"github.com/stretchr/testify/assert"
)

// TestClassifier_GracefulShutdown tests that the classifier closes its output
// channel when the input channel is closed.
func TestClassifier_GracefulShutdown(t *testing.T) {
	input := make(chan device.Reading, 10)
	output := NewClassifier(10)(input)

	received := make(chan int, 1)
	go func() {
		count := 0
		for range output {
			count++
		}
		received <- count
	}()

	for i := 0; i < 3; i++ {
		input <- device.Reading{Timestamp: time.Now(), Percent: 50}
	}
	close(input)

	select {
	case count := <-received:
		assert.Equal(t, 3, count)
	case <-time.After(5 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}
}

// TestSmoother_GracefulShutdown tests the same for the smoother.
func TestSmoother_GracefulShutdown(t *testing.T) {
	input := make(chan Sample)
	output := NewSmoother(4, 10)(input)

	close(input)

	select {
	case _, ok := <-output:
		assert.False(t, ok, "Output channel should be closed")
	case <-time.After(5 * time.Second):
		t.Fatal("Output channel did not close within timeout")
	}
}
