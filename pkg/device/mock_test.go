package device

import (
	"testing"
	"time"

	"github.com/itohio/plantguard/pkg/config"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steadyMock(percent float64) *Mock {
	return NewMock(&config.MockConfig{
		Period: 10 * time.Millisecond,
		Base:   percent,
	})
}

// nextReading waits for a reading or fails the test.
func nextReading(t *testing.T, m *Mock) Reading {
	t.Helper()
	select {
	case r, ok := <-m.Readings():
		require.True(t, ok, "readings channel closed")
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no reading within timeout")
	}
	return Reading{}
}

func TestNewMock_NilConfig(t *testing.T) {
	dev := NewMock(nil)
	assert.NotNil(t, dev.cfg)
	assert.Equal(t, config.Default().Mock, *dev.cfg)
	assert.False(t, dev.IsConnected())
}

func TestMock_ConnectTwice(t *testing.T) {
	dev := steadyMock(50)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	err := dev.Connect()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already connected")
}

func TestMock_CloseNotConnected(t *testing.T) {
	dev := steadyMock(50)
	assert.NoError(t, dev.Close())
}

func TestMock_SendNotConnected(t *testing.T) {
	dev := steadyMock(50)
	err := dev.Send(guard.CommandOpen)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestMock_Telemetry(t *testing.T) {
	dev := steadyMock(50)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	r := nextReading(t, dev)
	assert.Equal(t, 50, r.Percent)
	assert.False(t, r.Timestamp.IsZero())
	assert.Equal(t, guard.ColorYellow, dev.Lit())
}

func TestMock_AlarmBands(t *testing.T) {
	dev := steadyMock(95)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.Equal(t, 95, nextReading(t, dev).Percent)
	assert.Equal(t, guard.ColorRed, dev.Lit())
	assert.Equal(t, uint32(30), dev.ToneCompare())

	dev.SetLight(10)
	assert.Eventually(t, func() bool {
		return dev.ToneCompare() == 61 && dev.Lit() == guard.ColorRed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMock_ShadeCommands(t *testing.T) {
	dev := steadyMock(60)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	assert.Equal(t, guard.Closed, dev.Position())

	require.NoError(t, dev.Send(guard.CommandOpen))
	assert.Eventually(t, func() bool { return dev.Position() == guard.Open },
		5*time.Second, 10*time.Millisecond)

	require.NoError(t, dev.SendByte('x'))
	// Give the board a few cycles to consume the byte.
	for range 3 {
		nextReading(t, dev)
	}
	assert.Equal(t, guard.Open, dev.Position(), "unknown bytes are ignored")

	require.NoError(t, dev.Send(guard.CommandClose))
	assert.Eventually(t, func() bool { return dev.Position() == guard.Closed },
		5*time.Second, 10*time.Millisecond)
}

func TestMock_SensorStallSkipsTelemetry(t *testing.T) {
	dev := steadyMock(60)
	require.NoError(t, dev.Connect())
	defer dev.Close()

	nextReading(t, dev)
	dev.SetSensorStalled(true)

	// Drain anything sent before the stall took effect.
	time.Sleep(50 * time.Millisecond)
	for len(dev.Readings()) > 0 {
		<-dev.Readings()
	}

	select {
	case r := <-dev.Readings():
		t.Fatalf("unexpected reading %d while stalled", r.Percent)
	case <-time.After(100 * time.Millisecond):
	}

	assert.NotZero(t, dev.Timeouts(), "stalled conversions count as timeouts")

	dev.SetSensorStalled(false)
	assert.Equal(t, 60, nextReading(t, dev).Percent)
}
