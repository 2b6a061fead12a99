package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timekeeper/clock"
	"timekeeper/host/mcu"
)

func TestResolveTarget(t *testing.T) {
	wall := time.UnixMicro(1_700_000_000_123_456)

	tests := []struct {
		name   string
		haveUS bool
		us     uint64
		haveMS bool
		ms     float64
		now    bool
		want   uint64
		err    bool
	}{
		{name: "micros", haveUS: true, us: 42, want: 42},
		{name: "zero micros", haveUS: true, us: 0, want: 0},
		{name: "millis rounds", haveMS: true, ms: 1.0004, want: 1000},
		{name: "millis fraction", haveMS: true, ms: 1500.25, want: 1_500_250},
		{name: "now", now: true, want: 1_700_000_000_123_456},
		{name: "none", err: true},
		{name: "two", haveUS: true, now: true, err: true},
		{name: "negative millis", haveMS: true, ms: -1, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTarget(tt.haveUS, tt.us, tt.haveMS, tt.ms, tt.now, wall)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1500250 us (1500.250 ms)", formatTime(1_500_250))

	out := formatStatus(mcu.Status{
		State:    clock.StateRunning,
		Cause:    clock.ResetExternal,
		Path:     clock.StateFresh,
		Lost:     clock.LostBadChecksum,
		Ratio:    clock.RatioOne,
		Persists: 2,
	})
	assert.Contains(t, out, "state:            running")
	assert.Contains(t, out, "boot path:        fresh")
	assert.Contains(t, out, "reset cause:      external")
	assert.Contains(t, out, "lost reason:      bad-checksum")
	assert.Contains(t, out, "1000 ns/tick (ratio 4096)")
	assert.Contains(t, out, "persists:         2")
}

func flagCommand(t *testing.T, flags *GlobalFlags, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVarP(&flags.ConfigFile, "config", "c", "", "")
	cmd.Flags().StringVarP(&flags.Device, "device", "d", "", "")
	cmd.Flags().IntVar(&flags.Baud, "baud", 0, "")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clockctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serial:\n  device: /dev/ttyS9\n  baud: 9600\nlog_level: warn\n"), 0o600))

	var flags GlobalFlags
	cmd := flagCommand(t, &flags, "--config", path, "--baud", "74880")
	c, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS9", c.Serial.Device)
	assert.Equal(t, 74880, c.Serial.Baud)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoadConfigDefaults(t *testing.T) {
	var flags GlobalFlags
	cmd := flagCommand(t, &flags, "-d", "/dev/ttyACM0")
	c, err := loadConfig(cmd, flags)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", c.Serial.Device)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfigRejectsBadLevel(t *testing.T) {
	var flags GlobalFlags
	cmd := flagCommand(t, &flags, "--log-level", "loud")
	_, err := loadConfig(cmd, flags)
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	_, err = newLogger("loud")
	require.Error(t, err)
}
