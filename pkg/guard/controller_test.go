package guard

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/plantguard/pkg/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	adc    *sim.ADC
	uart   *sim.UART
	buzzer *sim.Pin
	timer  *sim.Timer
	servo  *sim.Servo

	red, yellow, green *sim.Pin
	status, action     *sim.Pin

	slept []time.Duration
}

func newBoard(raw uint16) *board {
	return &board{
		adc:    sim.NewADC(sim.Fixed(raw)),
		uart:   sim.NewUART(0),
		buzzer: &sim.Pin{},
		timer:  sim.NewTimer(ToneTickRate),
		servo:  &sim.Servo{},
		red:    &sim.Pin{},
		yellow: &sim.Pin{},
		green:  &sim.Pin{},
		status: &sim.Pin{},
		action: &sim.Pin{},
	}
}

func (b *board) controller() *Controller {
	c := New(Hardware{
		ADC:         b.adc,
		Port:        b.uart,
		Buzzer:      b.buzzer,
		ToneTimer:   b.timer,
		Servo:       b.servo,
		Red:         b.red,
		Yellow:      b.yellow,
		Green:       b.green,
		Status:      b.status,
		Action:      b.action,
		PollTimeout: time.Millisecond,
		Sleep:       func(d time.Duration) { b.slept = append(b.slept, d) },
	})
	c.Init()
	return c
}

func (b *board) lit() Color {
	switch {
	case b.red.Level():
		return ColorRed
	case b.yellow.Level():
		return ColorYellow
	case b.green.Level():
		return ColorGreen
	}
	return ColorOff
}

func (b *board) litCount() int {
	n := 0
	for _, p := range []*sim.Pin{b.red, b.yellow, b.green} {
		if p.Level() {
			n++
		}
	}
	return n
}

func TestController_Init(t *testing.T) {
	b := newBoard(0)
	b.red.Set(true)
	b.status.Set(true)
	c := b.controller()

	assert.Equal(t, 0, b.litCount())
	assert.False(t, b.status.Level())
	assert.False(t, c.Tone().Sounding())
	assert.Equal(t, Closed, c.Shade().Position())
	assert.Equal(t, int16(1000), b.servo.Microseconds())
}

func TestController_ClassifyAndAct(t *testing.T) {
	b := newBoard(0)
	c := b.controller()

	tests := []struct {
		reading  int
		color    Color
		sounding bool
		compare  uint32
	}{
		{5, ColorRed, true, 61},
		{25, ColorRed, false, 0},
		{45, ColorYellow, false, 0},
		{65, ColorGreen, false, 0},
		{85, ColorYellow, false, 0},
		{99, ColorRed, true, 30},
		{15, ColorRed, true, 61},
		{60, ColorGreen, false, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.reading, c.ClassifyAndAct(tt.reading))
		assert.Equal(t, 1, b.litCount(), "reading %d", tt.reading)
		assert.Equal(t, tt.color, b.lit(), "reading %d", tt.reading)
		assert.Equal(t, tt.color, c.Indicators().Lit())
		assert.Equal(t, tt.sounding, c.Tone().Sounding(), "reading %d", tt.reading)
		assert.Equal(t, tt.compare, c.Tone().Compare(), "reading %d", tt.reading)
		if !tt.sounding {
			assert.False(t, b.buzzer.Level(), "silent buzzer held low")
		}
	}
}

func TestController_NoStaleState(t *testing.T) {
	b := newBoard(0)
	c := b.controller()

	c.ClassifyAndAct(100)
	for range 3 {
		c.Tone().Tick()
	}
	c.ClassifyAndAct(60)

	assert.Equal(t, ColorGreen, b.lit())
	assert.Equal(t, 1, b.litCount())
	assert.False(t, c.Tone().Sounding())
	assert.False(t, b.buzzer.Level())
}

func TestController_StepTelemetry(t *testing.T) {
	b := newBoard(512)
	c := b.controller()

	var seen []Cycle
	c.OnCycle = func(cyc Cycle) { seen = append(seen, cyc) }

	cyc := c.Step()
	require.NoError(t, cyc.Err)
	assert.Equal(t, uint16(512), cyc.Raw)
	assert.Equal(t, 50, cyc.Reading)
	assert.Equal(t, BandMedium, cyc.Policy.Band)
	assert.Equal(t, "50\n", string(b.uart.Drain()))
	assert.Len(t, seen, 1)

	b.adc.SetSource(sim.Fixed(1023))
	c.Step()
	b.adc.SetSource(sim.Fixed(0))
	c.Step()
	assert.Equal(t, "100\n0\n", string(b.uart.Drain()))
}

func TestController_Heartbeat(t *testing.T) {
	b := newBoard(700)
	c := b.controller()

	c.Step()
	assert.Equal(t, []time.Duration{BlinkOn, BlinkOff}, b.slept)
	assert.False(t, b.status.Level())
	assert.Equal(t, uint32(2), b.status.Edges())
}

func TestController_Commands(t *testing.T) {
	b := newBoard(700)
	c := b.controller()

	b.uart.Inject([]byte{'A'})
	cyc := c.Step()
	assert.True(t, cyc.HasCommand)
	assert.Equal(t, CommandOpen, cyc.Command)
	assert.Equal(t, Open, c.Shade().Position())
	assert.Equal(t, int16(2200), b.servo.Microseconds())
	assert.True(t, b.action.Level())

	b.uart.Inject([]byte{'x'})
	cyc = c.Step()
	assert.False(t, cyc.HasCommand)
	assert.True(t, cyc.HasIgnored)
	assert.Equal(t, byte('x'), cyc.Ignored)
	assert.NoError(t, cyc.Err, "unrecognized commands are not faults")
	assert.Equal(t, Open, c.Shade().Position())
	assert.True(t, b.action.Level())

	b.uart.Inject([]byte{'F'})
	c.Step()
	assert.Equal(t, Closed, c.Shade().Position())
	assert.Equal(t, int16(1000), b.servo.Microseconds())
	assert.False(t, b.action.Level())
}

func TestController_OneCommandPerCycle(t *testing.T) {
	b := newBoard(700)
	c := b.controller()

	b.uart.Inject([]byte("AF"))
	c.Step()
	assert.Equal(t, Open, c.Shade().Position())
	c.Step()
	assert.Equal(t, Closed, c.Shade().Position())
}

func TestController_SensorTimeoutSkipsCycle(t *testing.T) {
	b := newBoard(700)
	c := b.controller()

	c.Step()
	b.uart.Drain()
	require.Equal(t, ColorGreen, b.lit())

	b.adc.SetStalled(true)
	b.uart.Inject([]byte{'A'})
	cyc := c.Step()
	assert.ErrorIs(t, cyc.Err, ErrSensorTimeout)
	assert.Empty(t, b.uart.Drain(), "no telemetry without a reading")
	assert.True(t, cyc.HasCommand, "commands are still served")
	assert.Equal(t, Open, c.Shade().Position())

	b.adc.SetStalled(false)
	cyc = c.Step()
	assert.NoError(t, cyc.Err)
	assert.NotEmpty(t, b.uart.Drain())
}

func TestController_SerialTimeout(t *testing.T) {
	b := newBoard(100)
	c := b.controller()

	b.uart.SetBlocked(true)
	cyc := c.Step()
	assert.ErrorIs(t, cyc.Err, ErrSerialTimeout)
	assert.Equal(t, ColorRed, b.lit(), "classification still applied")
}

func TestController_Watchdog(t *testing.T) {
	b := newBoard(700)
	c := b.controller()

	var fired []error
	c.Watchdog = func(err error) { fired = append(fired, err) }

	b.adc.SetStalled(true)
	for range MaxConsecutiveFaults - 1 {
		c.Step()
	}
	assert.Empty(t, fired)

	b.adc.SetStalled(false)
	c.Step()
	b.adc.SetStalled(true)
	for range MaxConsecutiveFaults - 1 {
		c.Step()
	}
	assert.Empty(t, fired, "a good cycle resets the count")

	c.Step()
	require.Len(t, fired, 1)
	assert.ErrorIs(t, fired[0], ErrSensorTimeout)
}

func TestController_RunStopsOnCancel(t *testing.T) {
	b := newBoard(700)
	ctx, cancel := context.WithCancel(context.Background())

	steps := 0
	c := b.controller()
	c.OnCycle = func(Cycle) {
		steps++
		if steps == 3 {
			cancel()
		}
	}

	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, steps)

	// Each cycle sleeps the heartbeat plus the rest of the period.
	var total time.Duration
	for _, d := range b.slept {
		total += d
	}
	assert.Greater(t, total, 2*BlinkOn*3)
	assert.LessOrEqual(t, total, 3*(Period+BlinkOn+BlinkOff))
}
