package device

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Arduino USB identifiers.
const (
	ArduinoVID = "2341"
	UnoPID     = "0043"
	// FTDIPID is reported by FTDI-based boards and clones.
	FTDIPID = "6001"
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
	VID         string
	PID         string
	Arduino     bool
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		result = append(result, portFromDetails(d))
	}
	return result, nil
}

func portFromDetails(d *enumerator.PortDetails) Port {
	p := Port{
		Name:        d.Name,
		Description: d.Name,
	}
	if d.IsUSB {
		p.VID = d.VID
		p.PID = d.PID
		if d.Product != "" {
			p.Description = fmt.Sprintf("%s (%s)", d.Name, d.Product)
		}
	}
	p.Arduino = isArduino(p.VID, p.PID, d.Product)
	return p
}

// isArduino matches the official vendor id, the Uno and FTDI product ids, or a
// product string naming the board.
func isArduino(vid, pid, product string) bool {
	switch {
	case strings.EqualFold(vid, ArduinoVID):
		return true
	case strings.EqualFold(pid, UnoPID), strings.EqualFold(pid, FTDIPID):
		return true
	}
	return strings.Contains(strings.ToLower(product), "arduino")
}
