// Package guard implements the plant guard control loop: light sampling,
// band classification, indicator and buzzer updates, telemetry and the
// two-command shade protocol. It depends only on small hardware interfaces
// so the same code runs on the board under TinyGo and against simulated
// hardware on the host.
package guard

import (
	"context"
	"strconv"
	"time"
)

const (
	// Period is the sample/report cadence.
	Period = 500 * time.Millisecond
	// BlinkOn and BlinkOff time the heartbeat LED.
	BlinkOn  = 8 * time.Millisecond
	BlinkOff = 8 * time.Millisecond
	// SensorChannel is the analog input wired to the light sensor.
	SensorChannel = 0
	// MaxConsecutiveFaults is how many faulted cycles in a row trigger the
	// watchdog hook.
	MaxConsecutiveFaults = 5
)

// Hardware wires the controller to its peripherals.
type Hardware struct {
	ADC       ADC
	Port      Port
	Buzzer    Pin
	ToneTimer Timer
	Servo     Servo

	Red, Yellow, Green Pin
	Status, Action     Pin

	// ToneTickRate and ToneMaxCompare describe the tone timer; zero selects
	// the 8-bit /64 timer at 16 MHz.
	ToneTickRate   uint32
	ToneMaxCompare uint32

	// PollTimeout bounds ADC and UART busy-waits; zero selects DefaultPollTimeout.
	PollTimeout time.Duration
	// Period overrides the loop cadence; zero selects Period.
	Period time.Duration
	// Sleep and Now default to time.Sleep and time.Now.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Cycle describes one pass of the control loop.
type Cycle struct {
	Raw     uint16
	Reading int
	Policy  Policy
	// Command is set when a recognized command was applied.
	Command    Command
	HasCommand bool
	// Ignored holds an unrecognized inbound byte.
	Ignored    byte
	HasIgnored bool
	// Err is the sensor or serial fault of this cycle, if any.
	Err error
}

// Controller owns every piece of device state except the tone state word,
// which it shares with the timer interrupt.
type Controller struct {
	sampler *Sampler
	link    *Link
	tone    *ToneGenerator
	shade   *Shade
	leds    *Indicators
	status  Pin

	period time.Duration
	sleep  func(time.Duration)
	now    func() time.Time

	faults    int
	maxFaults int

	// OnCycle, when set, is called at the end of every Step.
	OnCycle func(Cycle)
	// Watchdog, when set, is called after MaxConsecutiveFaults faulted cycles
	// in a row. A board would reset itself here.
	Watchdog func(err error)
}

// New builds a controller. Call Init before Step or Run.
func New(hw Hardware) *Controller {
	c := &Controller{
		sampler:   NewSampler(hw.ADC, hw.PollTimeout),
		link:      NewLink(hw.Port, hw.PollTimeout),
		tone:      NewToneGenerator(hw.Buzzer, hw.ToneTimer, hw.ToneTickRate, hw.ToneMaxCompare),
		shade:     NewShade(hw.Servo, hw.Action),
		leds:      NewIndicators(hw.Red, hw.Yellow, hw.Green),
		status:    hw.Status,
		period:    hw.Period,
		sleep:     hw.Sleep,
		now:       hw.Now,
		maxFaults: MaxConsecutiveFaults,
	}
	if c.period <= 0 {
		c.period = Period
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Tone exposes the generator so the board can route its timer interrupt to Tick.
func (c *Controller) Tone() *ToneGenerator { return c.tone }

// Shade exposes the shade driver.
func (c *Controller) Shade() *Shade { return c.shade }

// Indicators exposes the LED bank.
func (c *Controller) Indicators() *Indicators { return c.leds }

// Link exposes the serial link.
func (c *Controller) Link() *Link { return c.link }

// Init puts every output in its power-on state: LEDs off, buzzer silent,
// shade closed.
func (c *Controller) Init() {
	c.leds.Clear()
	c.status.Set(false)
	c.tone.SetFrequency(0)
	c.shade.Init()
}

// ClassifyAndAct resets the indicators and buzzer, then applies the policy of
// the band reading falls in. It returns reading unchanged.
func (c *Controller) ClassifyAndAct(reading int) int {
	c.act(reading)
	return reading
}

func (c *Controller) act(reading int) Policy {
	c.leds.Clear()
	c.tone.SetFrequency(0)

	p := Classify(reading)
	c.leds.Show(p.Color)
	if p.ToneHz != 0 {
		c.tone.SetFrequency(p.ToneHz)
	}
	return p
}

// HandleCommand applies a single inbound byte. Unknown bytes leave the shade
// untouched and return an error matching ErrUnrecognizedCommand.
func (c *Controller) HandleCommand(b byte) (Command, error) {
	cmd, err := ParseCommand(b)
	if err != nil {
		return 0, err
	}
	switch cmd {
	case CommandOpen:
		c.shade.Open()
	case CommandClose:
		c.shade.Close()
	}
	return cmd, nil
}

// Heartbeat blinks the status LED once.
func (c *Controller) Heartbeat() {
	c.status.Set(true)
	c.sleep(BlinkOn)
	c.status.Set(false)
	c.sleep(BlinkOff)
}

// Step runs one pass of the loop without the trailing sleep.
func (c *Controller) Step() Cycle {
	var cyc Cycle

	raw, err := c.sampler.Sample(SensorChannel)
	if err != nil {
		cyc.Err = err
	} else {
		cyc.Raw = raw
		cyc.Reading = Percent(raw)
		cyc.Policy = c.act(cyc.Reading)
		if err := c.link.TransmitText(strconv.Itoa(cyc.Reading) + "\n"); err != nil {
			cyc.Err = err
		}
	}

	if b, ok := c.link.TryReceive(); ok {
		cmd, err := c.HandleCommand(b)
		if err != nil {
			cyc.Ignored, cyc.HasIgnored = b, true
		} else {
			cyc.Command, cyc.HasCommand = cmd, true
		}
	}

	c.Heartbeat()
	c.account(cyc.Err)

	if c.OnCycle != nil {
		c.OnCycle(cyc)
	}
	return cyc
}

// account tracks consecutive faulted cycles and fires the watchdog hook.
func (c *Controller) account(err error) {
	if err == nil {
		c.faults = 0
		return
	}
	c.faults++
	if c.faults >= c.maxFaults {
		c.faults = 0
		if c.Watchdog != nil {
			c.Watchdog(err)
		}
	}
}

// Run steps the loop once per period until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := c.now()
		c.Step()
		if rest := c.period - c.now().Sub(start); rest > 0 {
			c.sleep(rest)
		}
	}
}
