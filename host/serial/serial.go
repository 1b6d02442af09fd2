// Package serial opens the USB serial link to a Klipper MCU that bridges
// the amplifier's I2C bus.
package serial

import (
	"io"
	"time"
)

// Port is an open serial line.
type Port interface {
	io.ReadWriteCloser

	// Flush discards anything buffered in either direction.
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path, e.g. /dev/ttyACM0
	Device string

	// Baud rate. USB CDC ignores it, UART bridges need 250000.
	Baud int

	// ReadTimeout makes Read return io.EOF when the line is idle so the
	// reader can notice Close. Zero blocks.
	ReadTimeout time.Duration
}

// DefaultConfig returns the usual settings for a Klipper MCU on device.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100 * time.Millisecond,
	}
}
