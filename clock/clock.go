// Package clock keeps a monotonic 64-bit microsecond time on a chip whose
// only persistent timebase is a slow, uncalibrated counter that survives
// soft resets.
//
// Two Timestamps are maintained. The fast one tracks a 1 MHz counter that
// restarts on every reset and serves Now. The slow one tracks the surviving
// counter and is written to reset-surviving memory on every resync, so that
// after a recoverable reset the elapsed gap can be recovered by scaling the
// slow-counter delta with a freshly measured calibration ratio.
package clock

import "errors"

const (
	// DefaultResyncPeriod is 1/4096 of the 2^32 µs wrap of the fast counter.
	DefaultResyncPeriod uint32 = 1 << 20

	// MaxResyncPeriod keeps scheduler deadlines comparable across a wrap.
	MaxResyncPeriod uint32 = 1 << 30
)

var (
	ErrNoFastCounter      = errors.New("clock: fast counter not configured")
	ErrNoSlowCounter      = errors.New("clock: slow counter not configured")
	ErrNoResetSource      = errors.New("clock: reset source not configured")
	ErrNoCalibration      = errors.New("clock: calibration source not configured")
	ErrNoRegion           = errors.New("clock: persistent region not configured")
	ErrNoAlarm            = errors.New("clock: alarm not configured")
	ErrResyncPeriod       = errors.New("clock: resync period too long")
	ErrAlreadyInitialized = errors.New("clock: already initialized")
	ErrNotRunning         = errors.New("clock: not running")
)

// State is the position of a Clock in its boot sequence.
type State uint8

const (
	StateBoot State = iota
	StateFresh
	StateRestored
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateBoot:
		return "boot"
	case StateFresh:
		return "fresh"
	case StateRestored:
		return "restored"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Config wires a Clock to its platform collaborators.
type Config struct {
	Fast        CounterSource // 1 MHz, restarts on every reset
	Slow        CounterSource // survives recoverable resets
	Reset       ResetSource
	Calibration CalibrationSource
	Region      Region
	Alarm       Alarm

	// RecordOffset is the byte offset of the persisted record in Region.
	RecordOffset uint32

	// ResyncPeriod in microseconds; DefaultResyncPeriod if zero.
	ResyncPeriod uint32

	// NominalRatio is applied when the calibration source returns a
	// degenerate ratio. Zero disables the fallback and forces a fresh start.
	NominalRatio Ratio
}

// BootReport describes the decision taken by Init.
type BootReport struct {
	Cause ResetCause
	Path  State // StateFresh or StateRestored

	// Lost is the LostXxx reason when Path is StateFresh.
	Lost uint8

	Ratio               Ratio
	CalibrationFallback bool

	DeltaTicks  Tick   // slow ticks between the persisted mark and boot
	DeltaMicros uint64 // DeltaTicks scaled by Ratio
}

// Stats counts resync and persistence activity since Init.
type Stats struct {
	Resyncs         uint32
	Persists        uint32
	PersistFailures uint32
}

// Clock is the reconciled logical clock.
type Clock struct {
	cfg    Config
	fast   Timestamp
	slow   Timestamp
	store  *Store
	cal    *Calibrator
	resync *Resynchronizer

	state State
	boot  BootReport
	stats Stats
}

// New validates cfg and returns a Clock in StateBoot.
func New(cfg Config) (*Clock, error) {
	switch {
	case cfg.Fast == nil:
		return nil, ErrNoFastCounter
	case cfg.Slow == nil:
		return nil, ErrNoSlowCounter
	case cfg.Reset == nil:
		return nil, ErrNoResetSource
	case cfg.Calibration == nil:
		return nil, ErrNoCalibration
	case cfg.Region == nil:
		return nil, ErrNoRegion
	case cfg.Alarm == nil:
		return nil, ErrNoAlarm
	}
	if cfg.ResyncPeriod == 0 {
		cfg.ResyncPeriod = DefaultResyncPeriod
	}
	if cfg.ResyncPeriod > MaxResyncPeriod {
		return nil, ErrResyncPeriod
	}

	c := &Clock{
		cfg:   cfg,
		store: NewStore(cfg.Region, cfg.RecordOffset),
		cal:   NewCalibrator(cfg.Calibration, cfg.NominalRatio),
	}
	c.resync = newResynchronizer(c, cfg.ResyncPeriod)
	return c, nil
}

// Init decides whether the persisted state can be trusted, rebases both
// timestamps, persists the result and arms the resynchronizer.
// It must be called exactly once.
func (c *Clock) Init() error {
	if c.state != StateBoot {
		return ErrAlreadyInitialized
	}

	report := BootReport{Cause: c.cfg.Reset.ResetCause()}
	rec, valid := c.store.Read()
	switch {
	case !report.Cause.IsRecoverable():
		report.Lost = LostUnrecoverableReset
	case !valid:
		report.Lost = LostBadChecksum
	}

	if report.Lost == 0 {
		ratio, fallback, ok := c.cal.Ratio()
		if ok {
			report.Ratio = ratio
			report.CalibrationFallback = fallback
			if fallback {
				RecordEvent(EvtCalibrationFallback, rec.Time, uint32(ratio))
			}
		} else {
			report.Lost = LostNoCalibration
		}
	}

	if report.Lost == 0 {
		c.restore(rec, &report)
	} else {
		c.start(&report)
	}
	c.boot = report

	c.persist()
	c.resync.Arm()
	c.state = StateRunning
	return nil
}

// start begins counting from zero.
func (c *Clock) start(report *BootReport) {
	report.Path = StateFresh
	c.state = StateFresh

	c.slow.Rebase(0, c.cfg.Slow.Read())
	c.fast.Rebase(0, c.cfg.Fast.Read())

	RecordEvent(EvtStateLost, 0, uint32(report.Lost))
	RecordEvent(EvtBootFresh, 0, uint32(report.Cause))
	DebugPrintln("clock: fresh start, cause=" + report.Cause.String() +
		" lost=" + utoa(uint32(report.Lost)))
}

// restore continues from rec, adding the calibrated slow-counter gap.
// At most one slow-counter wrap can have happened since rec was written.
func (c *Clock) restore(rec Record, report *BootReport) {
	report.Path = StateRestored
	c.state = StateRestored

	state := disableInterrupts()
	liveSlow := c.cfg.Slow.Read()
	liveFast := c.cfg.Fast.Read()
	report.DeltaTicks = liveSlow - rec.Mark
	report.DeltaMicros = report.Ratio.Scale(report.DeltaTicks)
	c.slow.Rebase(rec.Time+report.DeltaMicros, liveSlow)
	c.fast.Rebase(c.slow.Time, liveFast)
	restoreInterrupts(state)

	RecordEvent(EvtBootRestored, c.slow.Time, uint32(report.DeltaTicks))
	DebugPrintln("clock: restored, cause=" + report.Cause.String() +
		" time=" + u64toa(c.slow.Time) +
		" delta=" + utoa(uint32(report.DeltaTicks)) +
		" cal=" + utoa(report.Ratio.Nanoseconds()) + "ns")
}

// Now returns the current logical time in microseconds. It reads the fast
// counter and does arithmetic only, so it is safe from interrupt context.
// Before Init the result is meaningless.
func (c *Clock) Now() uint64 {
	return c.fast.ElapsedSince(c.cfg.Fast.Read())
}

// SetTime rebases the clock to t microseconds and persists the result.
// It must not be called from interrupt context.
func (c *Clock) SetTime(t uint64) error {
	if c.state != StateRunning {
		return ErrNotRunning
	}

	state := disableInterrupts()
	c.fast.Rebase(t, c.cfg.Fast.Read())
	c.slow.Rebase(t, c.cfg.Slow.Read())
	c.persist()
	restoreInterrupts(state)

	RecordEvent(EvtSetTime, t, 0)
	return nil
}

// persist writes the slow timestamp. A failure leaves the in-memory state
// authoritative until the next successful write.
func (c *Clock) persist() {
	if err := c.store.Write(c.slow); err != nil {
		c.stats.PersistFailures++
		RecordEvent(EvtPersistFailed, c.slow.Time, c.stats.PersistFailures)
		return
	}
	c.stats.Persists++
}

// State returns the boot state.
func (c *Clock) State() State {
	return c.state
}

// Boot returns the decision taken by Init.
func (c *Clock) Boot() BootReport {
	return c.boot
}

// Stats returns resync and persistence counters.
func (c *Clock) Stats() Stats {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return c.stats
}

// Slow returns a copy of the slow-source timestamp.
func (c *Clock) Slow() Timestamp {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return c.slow
}

var defaultClock *Clock

// SetDefault installs c as the process-wide clock used by Now.
func SetDefault(c *Clock) {
	defaultClock = c
}

// Default returns the process-wide clock, or nil.
func Default() *Clock {
	return defaultClock
}

// Now returns the time of the process-wide clock, or 0 if none is set.
func Now() uint64 {
	if c := defaultClock; c != nil {
		return c.Now()
	}
	return 0
}
