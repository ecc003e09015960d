package guard

import "time"

// Position is the held position of the shade servo.
type Position uint8

const (
	Closed Position = iota
	Open
)

const (
	// ClosedPulse is the pulse width that holds the shade closed.
	ClosedPulse = 1000 * time.Microsecond
	// OpenPulse is the pulse width that holds the shade open.
	OpenPulse = 2200 * time.Microsecond
)

func (p Position) String() string {
	if p == Open {
		return "open"
	}
	return "closed"
}

// MarshalText renders the position by name.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Pulse returns the pulse width for the position.
func (p Position) Pulse() time.Duration {
	if p == Open {
		return OpenPulse
	}
	return ClosedPulse
}

// Servo holds a pulse width on a free-running PWM channel.
// tinygo.org/x/drivers/servo.Servo satisfies it.
type Servo interface {
	SetMicroseconds(microseconds int16)
}

// Shade moves a servo between its two positions and mirrors the position on
// the action LED.
type Shade struct {
	servo  Servo
	action Pin
	pos    Position
}

// NewShade wraps a servo and its action LED. Call Init before use.
func NewShade(servo Servo, action Pin) *Shade {
	return &Shade{servo: servo, action: action}
}

// Init drives the shade closed without touching the action LED.
func (s *Shade) Init() {
	s.write(Closed)
}

// Open moves the shade open and lights the action LED.
func (s *Shade) Open() {
	s.action.Set(true)
	s.write(Open)
}

// Close moves the shade closed and clears the action LED.
func (s *Shade) Close() {
	s.action.Set(false)
	s.write(Closed)
}

// Position returns the last commanded position.
func (s *Shade) Position() Position {
	return s.pos
}

func (s *Shade) write(p Position) {
	s.servo.SetMicroseconds(int16(p.Pulse() / time.Microsecond))
	s.pos = p
}
