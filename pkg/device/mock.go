package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/plantguard/pkg/config"
	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/sim"
	"github.com/rs/zerolog/log"
)

// Mock runs the board control loop against simulated peripherals. The host
// side reads the simulated UART exactly as Serial reads a real port.
type Mock struct {
	cfg *config.MockConfig

	readings  chan Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	connected bool
	timeouts  atomic.Uint64

	adc      *sim.ADC
	uart     *sim.UART
	timer    *sim.Timer
	servo    *sim.Servo
	buzzer   *sim.Pin
	leds     [3]*sim.Pin // red, yellow, green
	daylight *sim.Daylight
	ctrl     *guard.Controller
}

// NewMock creates a new mocked board.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Mock{
		cfg:      cfg,
		readings: make(chan Reading, DefaultBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		uart:     sim.NewUART(sim.DefaultTxDepth),
		timer:    sim.NewTimer(guard.ToneTickRate),
		servo:    &sim.Servo{},
		buzzer:   &sim.Pin{},
		leds:     [3]*sim.Pin{{}, {}, {}},
		daylight: sim.NewDaylight(cfg.DayLength, float32(cfg.Base), float32(cfg.Amplitude), float32(cfg.Noise)),
	}
	m.adc = sim.NewADC(m.daylight.Source())

	m.ctrl = guard.New(guard.Hardware{
		ADC:       m.adc,
		Port:      m.uart,
		Buzzer:    m.buzzer,
		ToneTimer: m.timer,
		Servo:     m.servo,
		Red:       m.leds[0],
		Yellow:    m.leds[1],
		Green:     m.leds[2],
		Status:    &sim.Pin{},
		Action:    &sim.Pin{},
		Period:    cfg.Period,
		Sleep:     m.sleep,
	})
	m.ctrl.OnCycle = m.logCycle
	m.ctrl.Watchdog = func(err error) {
		log.Error().Err(err).Msg("Simulated board watchdog fired")
	}

	return m
}

// Connect powers up the simulated board.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.ctx.Err() != nil {
		return ErrClosed
	}

	m.connected = true
	m.ctrl.Init()

	m.wg.Add(3)
	go func() {
		defer m.wg.Done()
		m.ctrl.Run(m.ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.timer.Run(m.ctx, m.ctrl.Tone().Tick)
	}()
	go func() {
		defer m.wg.Done()
		defer close(m.readings)
		readLines(m.ctx, m.uart, m.readings, time.Now)
	}()

	return nil
}

// Close stops the simulated board and waits for its goroutines. A closed
// Mock cannot be connected again.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.cancel()
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.uart.Close()
	m.connected = false
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// Readings returns the channel for reading telemetry.
func (m *Mock) Readings() <-chan Reading {
	return m.readings
}

// Send delivers a command byte to the simulated board.
func (m *Mock) Send(cmd guard.Command) error {
	return m.SendByte(byte(cmd))
}

// SendByte delivers an arbitrary byte, including ones the board ignores.
func (m *Mock) SendByte(b byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return fmt.Errorf("not connected")
	}
	m.uart.Inject([]byte{b})
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Position reports the shade position from the servo pulse width.
func (m *Mock) Position() guard.Position {
	if time.Duration(m.servo.Microseconds())*time.Microsecond == guard.OpenPulse {
		return guard.Open
	}
	return guard.Closed
}

// Lit returns the indicator colour currently shown by the board.
func (m *Mock) Lit() guard.Color {
	for i, c := range []guard.Color{guard.ColorRed, guard.ColorYellow, guard.ColorGreen} {
		if m.leds[i].Level() {
			return c
		}
	}
	return guard.ColorOff
}

// ToneCompare returns the compare value programmed into the tone timer.
func (m *Mock) ToneCompare() uint32 {
	return m.timer.Compare()
}

// SetLight pins the simulated light level, replacing the daylight model.
func (m *Mock) SetLight(percent float32) {
	m.adc.SetSource(sim.Fixed(sim.PercentToRaw(percent)))
}

// SetSensorStalled makes ADC conversions hang, as a disconnected sensor would.
func (m *Mock) SetSensorStalled(stalled bool) {
	m.adc.SetStalled(stalled)
}

// sleep waits for d or until the mock is closed.
func (m *Mock) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-m.ctx.Done():
	}
}

// Timeouts counts cycles lost to sensor or serial timeouts.
func (m *Mock) Timeouts() uint64 {
	return m.timeouts.Load()
}

func (m *Mock) logCycle(c guard.Cycle) {
	switch {
	case guard.IsTimeout(c.Err):
		m.timeouts.Add(1)
		log.Debug().Err(c.Err).Msg("Simulated cycle timed out")
	case c.Err != nil:
		log.Warn().Err(c.Err).Msg("Simulated cycle faulted")
	case c.HasCommand:
		log.Debug().Stringer("command", c.Command).Int("reading", c.Reading).Msg("Simulated board applied command")
	case c.HasIgnored:
		log.Debug().Uint8("byte", c.Ignored).Msg("Simulated board ignored byte")
	}
}
