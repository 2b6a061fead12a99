package clock

// Tick is a raw value of a free-running 32-bit hardware counter.
// Each source wraps at 2^32 independently.
type Tick uint32

// CounterSource reads a free-running hardware counter.
// Read must be safe from interrupt context and never fails.
type CounterSource interface {
	Read() Tick
}

// CounterFunc adapts a plain function to CounterSource.
type CounterFunc func() Tick

// Read calls f.
func (f CounterFunc) Read() Tick {
	return f()
}

// ResetSource reports why the chip last (re)started.
type ResetSource interface {
	ResetCause() ResetCause
}

// ResetFunc adapts a plain function to ResetSource.
type ResetFunc func() ResetCause

// ResetCause calls f.
func (f ResetFunc) ResetCause() ResetCause {
	return f()
}

// CalibrationSource returns the current microseconds-per-slow-tick ratio.
type CalibrationSource interface {
	Ratio() Ratio
}

// Region is a small block of memory that survives recoverable resets.
// Offsets are in bytes from the start of the region.
type Region interface {
	ReadAt(p []byte, off uint32) error
	WriteAt(p []byte, off uint32) error
}

// Alarm invokes fn every period microseconds for the rest of the process
// lifetime.
type Alarm interface {
	Every(period uint32, fn func())
}
