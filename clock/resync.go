package clock

// Resynchronizer periodically folds the live counters into the slow-source
// timestamp and persists it, so neither counter can wrap twice unnoticed and
// a reset loses at most one period of bookkeeping.
type Resynchronizer struct {
	c      *Clock
	period uint32
	armed  bool
}

func newResynchronizer(c *Clock, period uint32) *Resynchronizer {
	return &Resynchronizer{c: c, period: period}
}

// Arm registers the resync with the alarm. Later calls are ignored.
func (r *Resynchronizer) Arm() {
	if r.armed {
		return
	}
	r.armed = true
	r.c.cfg.Alarm.Every(r.period, r.Fire)
}

// Period returns the resync period in microseconds.
func (r *Resynchronizer) Period() uint32 {
	return r.period
}

// Fire runs one resync. The slow counter is uncalibrated, so the slow
// timestamp takes its logical time from the fast one and only its mark from
// the slow counter. The whole sequence runs with interrupts masked so it
// cannot interleave with SetTime.
func (r *Resynchronizer) Fire() {
	c := r.c
	state := disableInterrupts()
	fastTick := c.cfg.Fast.Read()
	slowTick := c.cfg.Slow.Read()
	c.fast.Update(fastTick)
	c.slow.Rebase(c.fast.Time, slowTick)
	c.persist()
	c.stats.Resyncs++
	restoreInterrupts(state)
}
