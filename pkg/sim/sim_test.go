package sim

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPin(t *testing.T) {
	var p Pin
	assert.False(t, p.Level())

	p.Set(false)
	assert.Zero(t, p.Edges(), "no edge without a level change")

	p.Set(true)
	p.Set(true)
	p.Set(false)
	assert.False(t, p.Level())
	assert.Equal(t, uint32(2), p.Edges())
}

func TestServo(t *testing.T) {
	var s Servo
	s.SetMicroseconds(2200)
	assert.Equal(t, int16(2200), s.Microseconds())
}

func TestADC(t *testing.T) {
	adc := NewADC(Fixed(700))
	assert.False(t, adc.Ready(), "nothing pending before Start")

	adc.Start(3)
	require.True(t, adc.Ready())
	assert.Equal(t, uint8(3), adc.Channel())
	assert.Equal(t, uint16(700), adc.Result())
	assert.False(t, adc.Ready(), "Result clears the pending flag")

	adc.SetStalled(true)
	adc.Start(0)
	assert.False(t, adc.Ready())
	adc.SetStalled(false)
	assert.True(t, adc.Ready())

	adc.SetSource(Fixed(5))
	adc.Start(0)
	assert.Equal(t, uint16(5), adc.Result())
}

func TestPercentToRaw(t *testing.T) {
	tests := []struct {
		percent float32
		want    uint16
	}{
		{-10, 0},
		{0, 0},
		{50, 512},
		{100, 1023},
		{150, 1023},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentToRaw(tt.percent), "percent %v", tt.percent)
	}
}

func TestDaylight(t *testing.T) {
	d := NewDaylight(time.Minute, 50, 30, 0)
	start := d.Start

	assert.InDelta(t, 50, d.Percent(start), 0.01)
	assert.InDelta(t, 80, d.Percent(start.Add(15*time.Second)), 0.01)
	assert.InDelta(t, 20, d.Percent(start.Add(45*time.Second)), 0.01)

	// The swing is clamped to the sensor range.
	bright := NewDaylight(time.Minute, 90, 30, 0)
	assert.Equal(t, float32(100), bright.Percent(bright.Start.Add(15*time.Second)))

	noisy := NewDaylight(0, 50, 0, 5)
	for range 100 {
		p := noisy.Percent(time.Now())
		assert.GreaterOrEqual(t, p, float32(45))
		assert.LessOrEqual(t, p, float32(55))
	}
}

func TestTimer_Interval(t *testing.T) {
	timer := NewTimer(250000)

	timer.SetCompare(0xFF)
	assert.Equal(t, 1024*time.Microsecond, timer.Interval())
	assert.Equal(t, uint32(0xFF), timer.Compare())

	timer.SetCompare(30)
	assert.Equal(t, MinTickInterval, timer.Interval(), "clamped to the minimum")

	assert.Equal(t, MinTickInterval, NewTimer(0).Interval())
}

func TestTimer_Run(t *testing.T) {
	timer := NewTimer(250000)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		timer.Run(ctx, func() {})
	}()

	assert.Eventually(t, func() bool { return timer.Fired() >= 3 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestUART_Receive(t *testing.T) {
	u := NewUART(0)
	assert.Zero(t, u.Buffered())
	_, err := u.ReadByte()
	assert.ErrorIs(t, err, io.EOF)

	u.Inject([]byte("AF"))
	assert.Equal(t, 2, u.Buffered())
	b, err := u.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte('A'), b)
	assert.Equal(t, 1, u.Buffered())
}

func TestUART_Transmit(t *testing.T) {
	u := NewUART(2)
	assert.True(t, u.TxReady())

	require.NoError(t, u.WriteByte('4'))
	require.NoError(t, u.WriteByte('2'))
	assert.False(t, u.TxReady(), "queue full")
	assert.Error(t, u.WriteByte('\n'))

	buf := make([]byte, 8)
	n, err := u.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "42", string(buf[:n]))
	assert.True(t, u.TxReady())

	u.SetBlocked(true)
	assert.False(t, u.TxReady())
	u.SetBlocked(false)

	require.NoError(t, u.WriteByte('7'))
	assert.Equal(t, []byte("7"), u.Drain())
	assert.Empty(t, u.Drain())
}

func TestUART_Close(t *testing.T) {
	u := NewUART(4)

	done := make(chan error, 1)
	go func() {
		_, err := u.Read(make([]byte, 4))
		done <- err
	}()

	require.NoError(t, u.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(5 * time.Second):
		t.Fatal("Read did not unblock on Close")
	}

	assert.ErrorIs(t, u.WriteByte('x'), io.ErrClosedPipe)
	assert.NoError(t, u.Close())
}
