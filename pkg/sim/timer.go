package sim

import (
	"context"
	"sync/atomic"
	"time"
)

// MinTickInterval keeps the simulated interrupt from spinning at audio rate.
const MinTickInterval = time.Millisecond

// Timer is a compare-match timer. Run calls the handler at the programmed
// rate, slowed to MinTickInterval at most.
type Timer struct {
	tickRate uint32
	compare  atomic.Uint32
	fired    atomic.Uint64
}

func NewTimer(tickRate uint32) *Timer {
	return &Timer{tickRate: tickRate}
}

// SetCompare programs the compare register.
func (t *Timer) SetCompare(c uint32) {
	t.compare.Store(c)
}

// Compare returns the programmed compare value.
func (t *Timer) Compare() uint32 { return t.compare.Load() }

// Fired returns how many times the handler ran.
func (t *Timer) Fired() uint64 { return t.fired.Load() }

// Interval returns the time between compare matches.
func (t *Timer) Interval() time.Duration {
	if t.tickRate == 0 {
		return MinTickInterval
	}
	d := time.Duration(uint64(t.Compare()+1) * uint64(time.Second) / uint64(t.tickRate))
	if d < MinTickInterval {
		d = MinTickInterval
	}
	return d
}

// Run fires handler until ctx is done.
func (t *Timer) Run(ctx context.Context, handler func()) {
	ticker := time.NewTicker(t.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			handler()
			t.fired.Add(1)
			ticker.Reset(t.Interval())
		}
	}
}
