package sim

import (
	"errors"
	"io"
	"sync"
)

// DefaultTxDepth is the number of outbound bytes the UART buffers before it
// reports the transmit register busy.
const DefaultTxDepth = 256

var errTxFull = errors.New("sim: transmit buffer full")

// UART connects the board side (TxReady/WriteByte/Buffered/ReadByte) to a
// host side that reads the board's output through io.Reader and injects
// bytes with Inject.
type UART struct {
	mu      sync.Mutex
	rx      []byte
	tx      chan byte
	done    chan struct{}
	once    sync.Once
	blocked bool
}

func NewUART(txDepth int) *UART {
	if txDepth <= 0 {
		txDepth = DefaultTxDepth
	}
	return &UART{
		tx:   make(chan byte, txDepth),
		done: make(chan struct{}),
	}
}

// TxReady reports whether the transmit queue has room.
func (u *UART) TxReady() bool {
	u.mu.Lock()
	blocked := u.blocked
	u.mu.Unlock()
	return !blocked && len(u.tx) < cap(u.tx)
}

// WriteByte queues c for the host side.
func (u *UART) WriteByte(c byte) error {
	select {
	case <-u.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case u.tx <- c:
		return nil
	default:
		return errTxFull
	}
}

// Buffered returns the number of injected bytes not yet read by the board.
func (u *UART) Buffered() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rx)
}

// ReadByte consumes one injected byte.
func (u *UART) ReadByte() (byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.rx) == 0 {
		return 0, io.EOF
	}
	b := u.rx[0]
	u.rx = u.rx[1:]
	return b, nil
}

// SetBlocked holds the transmit register busy.
func (u *UART) SetBlocked(blocked bool) {
	u.mu.Lock()
	u.blocked = blocked
	u.mu.Unlock()
}

// Inject delivers p to the board's receive side.
func (u *UART) Inject(p []byte) {
	u.mu.Lock()
	u.rx = append(u.rx, p...)
	u.mu.Unlock()
}

// Read blocks until the board has written at least one byte, then returns
// what is queued. It returns io.EOF after Close.
func (u *UART) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case b := <-u.tx:
		p[0] = b
	case <-u.done:
		return 0, io.EOF
	}
	n := 1
	for n < len(p) {
		select {
		case b := <-u.tx:
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

// Drain returns every byte the board has written so far without blocking.
func (u *UART) Drain() []byte {
	var out []byte
	for {
		select {
		case b := <-u.tx:
			out = append(out, b)
		default:
			return out
		}
	}
}

// Close unblocks readers and rejects further writes.
func (u *UART) Close() error {
	u.once.Do(func() { close(u.done) })
	return nil
}
