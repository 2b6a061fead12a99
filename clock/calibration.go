package clock

// Ratio is a fixed-point count of microseconds per slow-counter tick with
// RatioShift fractional bits.
type Ratio uint32

const (
	RatioShift       = 12
	RatioOne   Ratio = 1 << RatioShift // 1.0 µs per tick
)

// Valid reports whether r can be applied. Zero means the platform could not
// produce a calibration.
func (r Ratio) Valid() bool {
	return r != 0
}

// Scale converts a slow-counter tick delta into microseconds.
// The product always fits in 64 bits.
func (r Ratio) Scale(ticks Tick) uint64 {
	return (uint64(ticks) * uint64(r)) >> RatioShift
}

// Nanoseconds returns the ratio in nanoseconds per tick, truncated.
func (r Ratio) Nanoseconds() uint32 {
	return uint32((uint64(r) * 1000) >> RatioShift)
}

// Calibrator filters the platform ratio so that a degenerate value is never
// applied to the restore arithmetic.
type Calibrator struct {
	source CalibrationSource
	last   Ratio
}

// NewCalibrator returns a Calibrator reading source. nominal, if valid, is
// used whenever the source fails before any valid ratio has been seen.
func NewCalibrator(source CalibrationSource, nominal Ratio) *Calibrator {
	return &Calibrator{source: source, last: nominal}
}

// Ratio asks the source for a fresh ratio. If the source returns a
// degenerate value the last valid ratio is returned instead; ok is false
// when there is none.
func (c *Calibrator) Ratio() (r Ratio, fallback bool, ok bool) {
	r = c.source.Ratio()
	if r.Valid() {
		c.last = r
		return r, false, true
	}
	if c.last.Valid() {
		return c.last, true, true
	}
	return 0, false, false
}

// MeasuredRatio calibrates the slow counter against the fast 1 MHz counter
// by timing whole slow ticks over a window of roughly Window microseconds.
type MeasuredRatio struct {
	Fast   CounterSource
	Slow   CounterSource
	Window uint32 // microseconds, DefaultCalibrationWindow if zero
}

// DefaultCalibrationWindow is long enough to span many slow ticks on common
// RC oscillators (tens of kHz) while keeping boot delay small.
const DefaultCalibrationWindow = 10000

// Ratio implements CalibrationSource. It returns 0 if the slow counter does
// not advance within the window.
func (m MeasuredRatio) Ratio() Ratio {
	window := Tick(m.Window)
	if window == 0 {
		window = DefaultCalibrationWindow
	}

	s0, ok := m.nextEdge(m.Slow.Read(), m.Fast.Read(), window)
	if !ok {
		return 0
	}
	f0 := m.Fast.Read()
	for m.Fast.Read()-f0 < window {
	}
	s1, ok := m.nextEdge(m.Slow.Read(), f0, 2*window)
	if !ok {
		return 0
	}
	f1 := m.Fast.Read()

	ticks := uint64(s1 - s0)
	if ticks == 0 {
		return 0
	}
	return Ratio((uint64(f1-f0) << RatioShift) / ticks)
}

// nextEdge spins until the slow counter moves off from. It gives up once the
// fast counter is more than limit past since.
func (m MeasuredRatio) nextEdge(from, since, limit Tick) (Tick, bool) {
	for {
		if s := m.Slow.Read(); s != from {
			return s, true
		}
		if m.Fast.Read()-since > limit {
			return 0, false
		}
	}
}
