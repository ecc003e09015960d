package guard

import "time"

// BaudRate is the fixed serial line rate, 8 data bits, no parity, 1 stop bit.
const BaudRate = 9600

// Port is a byte-oriented UART.
type Port interface {
	// TxReady reports whether the transmit register can take a byte.
	TxReady() bool
	WriteByte(c byte) error
	// Buffered returns the number of received bytes pending.
	Buffered() int
	ReadByte() (byte, error)
}

// Link carries telemetry out and single-byte commands in.
type Link struct {
	port    Port
	timeout time.Duration
}

func NewLink(port Port, timeout time.Duration) *Link {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	return &Link{port: port, timeout: timeout}
}

// Transmit waits for the transmit register to free, then writes b.
func (l *Link) Transmit(b byte) error {
	if !poll(l.port.TxReady, l.timeout) {
		return ErrSerialTimeout
	}
	return l.port.WriteByte(b)
}

// TransmitText sends s byte by byte, unframed. It stops at the first error.
func (l *Link) TransmitText(s string) error {
	for i := 0; i < len(s); i++ {
		if err := l.Transmit(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Available reports whether an inbound byte is pending.
func (l *Link) Available() bool {
	return l.port.Buffered() > 0
}

// Receive returns the pending byte, or ErrNoData when nothing is buffered.
func (l *Link) Receive() (byte, error) {
	if !l.Available() {
		return 0, ErrNoData
	}
	return l.port.ReadByte()
}

// TryReceive checks for and consumes one inbound byte in a single step.
func (l *Link) TryReceive() (byte, bool) {
	b, err := l.Receive()
	if err != nil {
		return 0, false
	}
	return b, true
}
