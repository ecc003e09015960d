package guard

import (
	"errors"
	"strconv"
)

// Code is a comparable error identifier. It implements error so sentinel
// values can be matched with errors.Is.
type Code string

func (c Code) Error() string { return string(c) }

const (
	// ErrSensorTimeout is returned when an ADC conversion does not complete in time.
	ErrSensorTimeout Code = "sensor timeout"
	// ErrSerialTimeout is returned when the transmit register never frees.
	ErrSerialTimeout Code = "serial timeout"
	// ErrUnrecognizedCommand marks an inbound byte that is not a known command.
	ErrUnrecognizedCommand Code = "unrecognized command"
	// ErrNoData is returned by Receive when no inbound byte is pending.
	ErrNoData Code = "no data"
)

// CommandError carries the byte that failed to parse as a Command.
type CommandError struct {
	Byte byte
}

func (e *CommandError) Error() string {
	return string(ErrUnrecognizedCommand) + " 0x" + strconv.FormatUint(uint64(e.Byte), 16)
}

func (e *CommandError) Unwrap() error { return ErrUnrecognizedCommand }

// IsTimeout reports whether err is one of the recoverable hardware timeouts.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrSensorTimeout) || errors.Is(err, ErrSerialTimeout)
}
