package channel

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialChannel is a Channel over a real serial device. The port is opened
// with a near-zero read timeout so a poll returns immediately when no bytes
// are pending and can never stall the control loop.
type SerialChannel struct {
	port serial.Port
	name string
}

func OpenSerial(name string, baud int) (*SerialChannel, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	if err := port.SetReadTimeout(time.Millisecond); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout %s: %w", name, err)
	}
	return &SerialChannel{port: port, name: name}, nil
}

func (c *SerialChannel) Read(p []byte) (int, error) {
	return c.port.Read(p)
}

func (c *SerialChannel) Name() string {
	return c.name
}

func (c *SerialChannel) Close() error {
	return c.port.Close()
}
