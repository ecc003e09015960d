package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Serial represents a connection to the board over a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	readings  chan Reading
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		readings: make(chan Reading, bufSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Port returns the port name.
func (d *Serial) Port() string {
	return d.port
}

// Connect opens the serial port (8N1) and starts reading telemetry.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}
	if d.ctx.Err() != nil {
		return ErrClosed
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	log.Info().Str("port", d.port).Int("baud", d.baudRate).Msg("Connected")

	go func() {
		defer close(d.done)
		defer close(d.readings)
		readLines(d.ctx, port, d.readings, time.Now)
	}()

	return nil
}

// Close closes the port and waits for the reader to stop. The readings
// channel is closed once the reader exits. A closed Serial cannot be
// connected again.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.cancel()
		d.mu.Unlock()
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			log.Warn().Err(err).Str("port", d.port).Msg("Error closing serial port")
		}
		d.conn = nil
	}
	d.connected = false
	d.mu.Unlock()

	<-d.done
	return nil
}

// Readings returns the channel for reading telemetry.
func (d *Serial) Readings() <-chan Reading {
	return d.readings
}

// Send writes a single command byte to the board.
func (d *Serial) Send(cmd guard.Command) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return fmt.Errorf("not connected")
	}

	if _, err := d.conn.Write([]byte{byte(cmd)}); err != nil {
		return fmt.Errorf("failed to send %s command: %w", cmd, err)
	}

	return nil
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}
