// Package device talks to the plant guard board over its serial link, or to
// a simulated board running the same control loop.
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaudRate is the line rate of the board firmware.
	DefaultBaudRate = guard.BaudRate
	// DefaultBufferSize is the default size for the readings channel buffer.
	DefaultBufferSize = 100
)

// Reading is one telemetry line received from the board.
type Reading struct {
	Timestamp time.Time
	Percent   int // Light level, 0-100
}

// Device defines the interface for plant guard boards (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Readings() <-chan Reading
	Send(cmd guard.Command) error
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
)

// ErrClosed is returned by Connect once the device has been closed. Open a
// new device to reconnect.
var ErrClosed = errors.New("device closed")

// readLines scans newline-terminated telemetry from r and forwards parsed
// readings to out until r is exhausted or ctx is done. Sends never block;
// readings are dropped when out is full.
func readLines(ctx context.Context, r io.Reader, out chan<- Reading, now func() time.Time) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("Panic in reader")
		}
	}()

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Error reading from serial port")
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		percent, err := parseLine(line)
		if err != nil {
			log.Debug().Err(err).Str("line", line).Msg("Failed to parse line")
			continue
		}

		select {
		case out <- Reading{Timestamp: now(), Percent: percent}:
		case <-ctx.Done():
			return
		default:
			log.Warn().Int("percent", percent).Msg("Readings channel full, dropping reading")
		}
	}
}

// parseLine parses one telemetry line: the light percentage in decimal.
// Example: 57
func parseLine(line string) (int, error) {
	v, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("invalid reading: %w", err)
	}
	if v < 0 || v > guard.PercentMax {
		return 0, fmt.Errorf("reading out of range: %d (max %d)", v, guard.PercentMax)
	}
	return v, nil
}
