// Package serial opens the UART link to a timekeeper MCU.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is a serial link to the MCU. Tests substitute in-memory pipes.
type Port interface {
	io.ReadWriteCloser

	// Flush discards any unread input.
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate; the esp8266 firmware runs its UART at 115200
	Baud int

	// Read timeout (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultBaud is the baud rate of the firmware UART.
const DefaultBaud = 115200

// DefaultConfig returns the configuration for device at DefaultBaud.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

var ErrNoDevice = errors.New("serial: no device configured")

// NativePort wraps the tarm/serial implementation
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush discards pending input and output.
func (p *NativePort) Flush() error {
	return p.port.Flush()
}

// Device returns the device path the port was opened on.
func (p *NativePort) Device() string {
	return p.cfg.Device
}
