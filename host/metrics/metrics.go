// Package metrics exports the state of a monitored MCU clock to Prometheus.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"timekeeper/clock"
	"timekeeper/host/mcu"
)

// Source is the part of mcu.Client the collector polls.
type Source interface {
	GetTime(ctx context.Context) (uint64, error)
	Status(ctx context.Context) (mcu.Status, error)
}

// Sample is the result of one poll.
type Sample struct {
	OK     bool
	Err    error
	At     time.Time
	Time   uint64 // MCU microseconds
	Status mcu.Status
}

// Offset is the MCU clock minus the host wall clock at the time of the poll.
// It is only meaningful once the MCU was set to Unix microseconds.
func (s Sample) Offset() time.Duration {
	return time.Duration(int64(s.Time)-s.At.UnixMicro()) * time.Microsecond
}

// Collector polls a Source and serves the last sample.
type Collector struct {
	source Source
	now    func() time.Time

	mu   sync.Mutex
	last Sample

	up              *prometheus.Desc
	timeSeconds     *prometheus.Desc
	offsetSeconds   *prometheus.Desc
	restored        *prometheus.Desc
	ratioNanos      *prometheus.Desc
	resyncs         *prometheus.Desc
	persists        *prometheus.Desc
	persistFailures *prometheus.Desc
}

func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		now:    time.Now,
		up: prometheus.NewDesc(
			"timekeeper_mcu_up",
			"1 if the last poll of the MCU succeeded, otherwise 0",
			nil, nil,
		),
		timeSeconds: prometheus.NewDesc(
			"timekeeper_mcu_time_seconds",
			"MCU logical clock",
			nil, nil,
		),
		offsetSeconds: prometheus.NewDesc(
			"timekeeper_mcu_offset_seconds",
			"MCU clock minus host wall clock",
			nil, nil,
		),
		restored: prometheus.NewDesc(
			"timekeeper_mcu_boot_restored",
			"1 if the MCU restored its clock at boot, 0 if it started fresh",
			[]string{"cause"}, nil,
		),
		ratioNanos: prometheus.NewDesc(
			"timekeeper_mcu_calibration_ns_per_tick",
			"Calibrated length of one slow-counter tick",
			nil, nil,
		),
		resyncs: prometheus.NewDesc(
			"timekeeper_mcu_resyncs_total",
			"Resynchronizations since boot",
			nil, nil,
		),
		persists: prometheus.NewDesc(
			"timekeeper_mcu_persists_total",
			"Successful record writes since boot",
			nil, nil,
		),
		persistFailures: prometheus.NewDesc(
			"timekeeper_mcu_persist_failures_total",
			"Failed record writes since boot",
			nil, nil,
		),
	}
}

// Poll queries the source once and stores the result.
func (c *Collector) Poll(ctx context.Context) Sample {
	s := Sample{At: c.now()}
	s.Time, s.Err = c.source.GetTime(ctx)
	if s.Err == nil {
		s.Status, s.Err = c.source.Status(ctx)
	}
	s.OK = s.Err == nil

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
	return s
}

// Last returns the most recent sample.
func (c *Collector) Last() Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.timeSeconds
	ch <- c.offsetSeconds
	ch <- c.restored
	ch <- c.ratioNanos
	ch <- c.resyncs
	ch <- c.persists
	ch <- c.persistFailures
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.Last()
	if !s.OK {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.timeSeconds, prometheus.GaugeValue, float64(s.Time)/1e6)
	ch <- prometheus.MustNewConstMetric(c.offsetSeconds, prometheus.GaugeValue, s.Offset().Seconds())

	var restored float64
	if s.Status.Path == clock.StateRestored {
		restored = 1
	}
	ch <- prometheus.MustNewConstMetric(c.restored, prometheus.GaugeValue, restored, s.Status.Cause.String())
	ch <- prometheus.MustNewConstMetric(c.ratioNanos, prometheus.GaugeValue, float64(s.Status.Ratio.Nanoseconds()))
	ch <- prometheus.MustNewConstMetric(c.resyncs, prometheus.CounterValue, float64(s.Status.Resyncs))
	ch <- prometheus.MustNewConstMetric(c.persists, prometheus.CounterValue, float64(s.Status.Persists))
	ch <- prometheus.MustNewConstMetric(c.persistFailures, prometheus.CounterValue, float64(s.Status.PersistFailures))
}
