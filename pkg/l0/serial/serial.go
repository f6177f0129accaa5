// Package serial opens UART ports as byte streams for struct transfer links.
package serial

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaud is the baud rate used by the rover boards.
const DefaultBaud = 115200

// Config defines a UART port.
type Config struct {
	Port string `toml:"port"`
	Baud int    `toml:"baud"`
}

// Mode converts the config to serial port settings (8N1).
func (c Config) Mode() *serial.Mode {
	baud := c.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// Open opens the port.
func Open(c Config) (io.ReadWriteCloser, error) {
	if c.Port == "" {
		return nil, fmt.Errorf("serial port required")
	}
	port, err := serial.Open(c.Port, c.Mode())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Port, err)
	}
	return port, nil
}

// Ports lists serial ports available on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
