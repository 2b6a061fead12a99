package clock

// Timestamp pairs a logical time in microseconds with the counter value
// observed when that time was last brought up to date.
//
// Update must run more often than the counter wraps (2^32 ticks, about
// 71.6 minutes for a 1 MHz counter). Any additional wrap between two
// updates is lost without notice.
type Timestamp struct {
	Time uint64 // microseconds since the caller's epoch
	Mark Tick   // counter value at the last update
}

// Update folds the ticks elapsed since Mark into Time. The subtraction wraps,
// so a single rollover between calls is handled.
func (ts *Timestamp) Update(now Tick) {
	state := disableInterrupts()
	ts.Time += uint64(now - ts.Mark)
	ts.Mark = now
	restoreInterrupts(state)
}

// Rebase replaces both fields at once.
func (ts *Timestamp) Rebase(time uint64, mark Tick) {
	state := disableInterrupts()
	ts.Time = time
	ts.Mark = mark
	restoreInterrupts(state)
}

// ElapsedSince returns the logical time at counter value now without
// modifying ts. Safe to call from interrupt context.
func (ts *Timestamp) ElapsedSince(now Tick) uint64 {
	return ts.Time + uint64(now-ts.Mark)
}
