package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/chewxy/math32"
)

// Source produces a raw 10-bit sample.
type Source func() uint16

// Fixed returns a source that always reads raw.
func Fixed(raw uint16) Source {
	return func() uint16 { return raw }
}

// ADC converts on Start and completes immediately unless stalled.
type ADC struct {
	mu      sync.Mutex
	source  Source
	channel uint8
	pending bool
	value   uint16
	stalled bool
}

func NewADC(source Source) *ADC {
	if source == nil {
		source = Fixed(0)
	}
	return &ADC{source: source}
}

// Start begins a conversion of channel.
func (a *ADC) Start(channel uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channel = channel
	a.pending = true
	a.value = a.source()
}

// Ready reports whether the conversion finished.
func (a *ADC) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending && !a.stalled
}

// Result returns the converted value and clears the pending flag.
func (a *ADC) Result() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = false
	return a.value
}

// Channel returns the last channel converted.
func (a *ADC) Channel() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channel
}

// SetSource replaces the signal source.
func (a *ADC) SetSource(source Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = source
}

// SetStalled makes conversions never complete.
func (a *ADC) SetStalled(stalled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stalled = stalled
}

// Daylight models a light sensor under a sinusoidal day with additive noise.
// Base, Amplitude and Noise are percentages of full scale.
type Daylight struct {
	Start     time.Time
	DayLength time.Duration
	Base      float32
	Amplitude float32
	Noise     float32

	now func() time.Time
	rnd *rand.Rand
	mu  sync.Mutex
}

// NewDaylight starts a day at the current time.
func NewDaylight(dayLength time.Duration, base, amplitude, noise float32) *Daylight {
	return &Daylight{
		Start:     time.Now(),
		DayLength: dayLength,
		Base:      base,
		Amplitude: amplitude,
		Noise:     noise,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Percent returns the light level at t.
func (d *Daylight) Percent(t time.Time) float32 {
	phase := float32(0)
	if d.DayLength > 0 {
		phase = float32(t.Sub(d.Start).Seconds() / d.DayLength.Seconds())
	}
	p := d.Base + d.Amplitude*math32.Sin(2*math32.Pi*phase)
	if d.Noise > 0 {
		d.mu.Lock()
		p += (d.rnd.Float32()*2 - 1) * d.Noise
		d.mu.Unlock()
	}
	return clamp(p, 0, 100)
}

// Source samples the model at the current time.
func (d *Daylight) Source() Source {
	return func() uint16 {
		return PercentToRaw(d.Percent(d.now()))
	}
}

// PercentToRaw converts a light percentage to a 10-bit reading.
func PercentToRaw(percent float32) uint16 {
	return uint16(math32.Floor(clamp(percent, 0, 100)*1023/100 + 0.5))
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
