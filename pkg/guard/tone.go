package guard

import "sync/atomic"

const (
	// ToneTickRate is the prescaled tone timer rate: 16 MHz / 64.
	ToneTickRate = 16000000 / 64
	// ToneMaxCompare is the largest compare value of an 8-bit timer.
	ToneMaxCompare = 0xFF

	// sounding is packed into the top bit of the state word, the compare
	// value into the low bits, so both are published by one store.
	sounding = 1 << 31
)

// Pin is a digital output.
type Pin interface {
	Set(high bool)
}

// Timer is a compare-match timer whose interrupt calls ToneGenerator.Tick.
type Timer interface {
	SetCompare(c uint32)
}

// CompareValue returns the compare value that makes a timer running at
// tickRate fire twice per period of a hz square wave: tickRate/(2*hz) - 1.
func CompareValue(tickRate, hz uint32) uint32 {
	if hz == 0 {
		return 0
	}
	q := tickRate / (2 * hz)
	if q == 0 {
		return 0
	}
	return q - 1
}

// ToneGenerator drives a buzzer with a square wave toggled from a timer
// interrupt.
//
// The main loop is the only writer of state and Tick, running in interrupt
// context, the only reader. Tick must stay constant time.
type ToneGenerator struct {
	pin        Pin
	timer      Timer
	tickRate   uint32
	maxCompare uint32
	critical   func(func())

	state atomic.Uint32
	hz    uint32

	// level is owned by Tick.
	level bool
}

// NewToneGenerator creates a silent generator.
func NewToneGenerator(pin Pin, timer Timer, tickRate, maxCompare uint32) *ToneGenerator {
	if tickRate == 0 {
		tickRate = ToneTickRate
	}
	if maxCompare == 0 {
		maxCompare = ToneMaxCompare
	}
	return &ToneGenerator{
		pin:        pin,
		timer:      timer,
		tickRate:   tickRate,
		maxCompare: maxCompare,
		critical:   func(f func()) { f() },
	}
}

// SetCritical installs a function that runs its argument with the timer
// interrupt masked. Targets whose compare register write is not atomic with
// respect to the interrupt must install one.
func (g *ToneGenerator) SetCritical(critical func(func())) {
	if critical == nil {
		critical = func(f func()) { f() }
	}
	g.critical = critical
}

// SetFrequency starts a square wave of hz, or silences the buzzer when hz is 0.
// Compare values above the timer's range are clamped, so very low
// frequencies play at the lowest frequency the timer can produce.
func (g *ToneGenerator) SetFrequency(hz uint32) {
	if hz == 0 {
		g.critical(func() {
			g.state.Store(0)
			g.pin.Set(false)
		})
		g.hz = 0
		return
	}

	c := CompareValue(g.tickRate, hz)
	if c > g.maxCompare {
		c = g.maxCompare
	}
	g.critical(func() {
		g.timer.SetCompare(c)
		g.state.Store(sounding | c)
	})
	g.hz = hz
}

// Tick is the timer compare-match handler.
func (g *ToneGenerator) Tick() {
	if g.state.Load()&sounding == 0 {
		g.level = false
		g.pin.Set(false)
		return
	}
	g.level = !g.level
	g.pin.Set(g.level)
}

// Sounding reports whether the oscillator is enabled.
func (g *ToneGenerator) Sounding() bool {
	return g.state.Load()&sounding != 0
}

// Compare returns the last published compare value.
func (g *ToneGenerator) Compare() uint32 {
	return g.state.Load() &^ sounding
}

// Frequency returns the last requested frequency; 0 when silent.
func (g *ToneGenerator) Frequency() uint32 {
	return g.hz
}
