package guard

import "time"

// DefaultPollTimeout bounds every hardware busy-wait. A 10-bit conversion
// with a /128 prescaler takes ~104 µs and a byte at 9600 baud ~1 ms.
const DefaultPollTimeout = 10 * time.Millisecond

// ADC is a single-conversion analog converter split into its steps so the
// caller owns the completion poll.
type ADC interface {
	Start(channel uint8)
	Ready() bool
	Result() uint16
}

// Sampler reads one analog channel with a bounded wait.
type Sampler struct {
	adc     ADC
	timeout time.Duration
}

func NewSampler(adc ADC, timeout time.Duration) *Sampler {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Sampler{adc: adc, timeout: timeout}
}

// Sample converts channel and returns a value in [0, RawMax].
func (s *Sampler) Sample(channel uint8) (uint16, error) {
	s.adc.Start(channel)
	if !poll(s.adc.Ready, s.timeout) {
		return 0, ErrSensorTimeout
	}
	v := s.adc.Result()
	if v > RawMax {
		v = RawMax
	}
	return v, nil
}

// poll spins until ready reports true or timeout elapses.
func poll(ready func() bool, timeout time.Duration) bool {
	if ready() {
		return true
	}
	deadline := time.Now().Add(timeout)
	for !ready() {
		if time.Now().After(deadline) {
			return false
		}
	}
	return true
}
