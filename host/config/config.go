// Package config loads the clockctl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap/zapcore"

	"timekeeper/host/serial"
)

type SerialConfig struct {
	Device        string `yaml:"device"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMS int    `yaml:"read_timeout_ms"`
}

type MonitorConfig struct {
	Listen   string        `yaml:"listen"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Serial         SerialConfig  `yaml:"serial"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Monitor        MonitorConfig `yaml:"monitor"`
	LogLevel       string        `yaml:"log_level"`
}

var (
	ErrBaud     = errors.New("config: serial.baud must be positive")
	ErrTimeout  = errors.New("config: request_timeout must be positive")
	ErrInterval = errors.New("config: monitor.interval must be positive")
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Device:        "/dev/ttyUSB0",
			Baud:          serial.DefaultBaud,
			ReadTimeoutMS: 100,
		},
		RequestTimeout: time.Second,
		Monitor: MonitorConfig{
			Listen:   ":9110",
			Interval: 5 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads cfgfile over the defaults. Keys missing from the file keep
// their default values.
func Load(cfgfile string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(cfgfile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cfgfile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Serial.Baud <= 0:
		return ErrBaud
	case c.RequestTimeout <= 0:
		return ErrTimeout
	case c.Monitor.Interval <= 0:
		return ErrInterval
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	return nil
}

// SerialPort converts the serial section for serial.Open.
func (c *Config) SerialPort() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: time.Duration(c.Serial.ReadTimeoutMS) * time.Millisecond,
	}
}
