package clock

import (
	"errors"
	"testing"
)

// fakeCounter is a counter moved by the test. Each Read advances it by step.
type fakeCounter struct {
	now  Tick
	step Tick
}

func (f *fakeCounter) Read() Tick {
	v := f.now
	f.now += f.step
	return v
}

type fakeRegion struct {
	mem       [64]byte
	failWrite bool
	failRead  bool
	writes    int
}

var errRegion = errors.New("region unavailable")

func (r *fakeRegion) ReadAt(p []byte, off uint32) error {
	if r.failRead {
		return errRegion
	}
	copy(p, r.mem[off:])
	return nil
}

func (r *fakeRegion) WriteAt(p []byte, off uint32) error {
	if r.failWrite {
		return errRegion
	}
	r.writes++
	copy(r.mem[off:], p)
	return nil
}

type fixedRatio Ratio

func (f *fixedRatio) Ratio() Ratio {
	return Ratio(*f)
}

// manualAlarm captures the registered callback so tests can fire it.
type manualAlarm struct {
	period uint32
	fn     func()
	armed  int
}

func (a *manualAlarm) Every(period uint32, fn func()) {
	a.period = period
	a.fn = fn
	a.armed++
}

type rig struct {
	fast   *fakeCounter
	slow   *fakeCounter
	cause  ResetCause
	region *fakeRegion
	alarm  *manualAlarm
	ratio  fixedRatio
}

func newRig(cause ResetCause) *rig {
	return &rig{
		fast:   &fakeCounter{now: 1000},
		slow:   &fakeCounter{now: 50},
		cause:  cause,
		region: &fakeRegion{},
		alarm:  &manualAlarm{},
		ratio:  fixedRatio(RatioOne),
	}
}

func (r *rig) config() Config {
	return Config{
		Fast:        r.fast,
		Slow:        r.slow,
		Reset:       ResetFunc(func() ResetCause { return r.cause }),
		Calibration: &r.ratio,
		Region:      r.region,
		Alarm:       r.alarm,
	}
}

// seed writes a valid record into the rig's region.
func (r *rig) seed(ts Timestamp) {
	if err := NewStore(r.region, 0).Write(ts); err != nil {
		panic(err)
	}
}

func (r *rig) boot(t testing.TB) *Clock {
	t.Helper()
	c, err := New(r.config())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := c.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return c
}
