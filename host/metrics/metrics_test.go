package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timekeeper/clock"
	"timekeeper/host/mcu"
)

type fakeSource struct {
	time   uint64
	status mcu.Status
	err    error
}

func (f *fakeSource) GetTime(context.Context) (uint64, error) { return f.time, f.err }

func (f *fakeSource) Status(context.Context) (mcu.Status, error) { return f.status, f.err }

func newTestCollector(src Source, at time.Time) *Collector {
	c := NewCollector(src)
	c.now = func() time.Time { return at }
	return c
}

func TestCollectorDown(t *testing.T) {
	c := newTestCollector(&fakeSource{err: errors.New("no reply")}, time.Unix(0, 0))
	s := c.Poll(context.Background())
	assert.False(t, s.OK)

	err := testutil.CollectAndCompare(c, strings.NewReader(`
# HELP timekeeper_mcu_up 1 if the last poll of the MCU succeeded, otherwise 0
# TYPE timekeeper_mcu_up gauge
timekeeper_mcu_up 0
`), "timekeeper_mcu_up")
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(c))
}

func TestCollectorSample(t *testing.T) {
	src := &fakeSource{
		time: 1_700_000_002_500_000,
		status: mcu.Status{
			State:           clock.StateRunning,
			Cause:           clock.ResetWatchdog,
			Path:            clock.StateRestored,
			Ratio:           clock.RatioOne,
			Resyncs:         3,
			Persists:        5,
			PersistFailures: 1,
		},
	}
	c := newTestCollector(src, time.Unix(1_700_000_000, 0))
	s := c.Poll(context.Background())
	require.True(t, s.OK)
	assert.Equal(t, 2500*time.Millisecond, s.Offset())

	err := testutil.CollectAndCompare(c, strings.NewReader(`
# HELP timekeeper_mcu_boot_restored 1 if the MCU restored its clock at boot, 0 if it started fresh
# TYPE timekeeper_mcu_boot_restored gauge
timekeeper_mcu_boot_restored{cause="watchdog"} 1
# HELP timekeeper_mcu_calibration_ns_per_tick Calibrated length of one slow-counter tick
# TYPE timekeeper_mcu_calibration_ns_per_tick gauge
timekeeper_mcu_calibration_ns_per_tick 1000
# HELP timekeeper_mcu_offset_seconds MCU clock minus host wall clock
# TYPE timekeeper_mcu_offset_seconds gauge
timekeeper_mcu_offset_seconds 2.5
# HELP timekeeper_mcu_persist_failures_total Failed record writes since boot
# TYPE timekeeper_mcu_persist_failures_total counter
timekeeper_mcu_persist_failures_total 1
# HELP timekeeper_mcu_resyncs_total Resynchronizations since boot
# TYPE timekeeper_mcu_resyncs_total counter
timekeeper_mcu_resyncs_total 3
`),
		"timekeeper_mcu_boot_restored",
		"timekeeper_mcu_calibration_ns_per_tick",
		"timekeeper_mcu_offset_seconds",
		"timekeeper_mcu_persist_failures_total",
		"timekeeper_mcu_resyncs_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 8, testutil.CollectAndCount(c))
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector(&fakeSource{})))
}
