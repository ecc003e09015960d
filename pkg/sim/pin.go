// Package sim provides in-memory stand-ins for the board peripherals so the
// control loop can run on a desktop.
package sim

import "sync/atomic"

// Pin is a digital output that records its level and edge count.
type Pin struct {
	level atomic.Bool
	edges atomic.Uint32
}

// Set drives the pin.
func (p *Pin) Set(high bool) {
	if p.level.Swap(high) != high {
		p.edges.Add(1)
	}
}

// Level returns the current level.
func (p *Pin) Level() bool { return p.level.Load() }

// Edges returns how many times the level changed.
func (p *Pin) Edges() uint32 { return p.edges.Load() }

// Servo records the pulse width it was last asked to hold.
type Servo struct {
	us atomic.Int32
}

// SetMicroseconds holds a pulse of the given width.
func (s *Servo) SetMicroseconds(microseconds int16) {
	s.us.Store(int32(microseconds))
}

// Microseconds returns the pulse width being held.
func (s *Servo) Microseconds() int16 {
	return int16(s.us.Load())
}
