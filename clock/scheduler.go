package clock

// Timer represents a scheduled event on the fast counter timeline
type Timer struct {
	WakeTime Tick
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler is a sorted timer list driven by a free-running counter.
// Dispatch is polled from the main loop. It implements Alarm.
type Scheduler struct {
	counter CounterSource
	list    *Timer
}

// NewScheduler returns a Scheduler reading deadlines against counter.
func NewScheduler(counter CounterSource) *Scheduler {
	return &Scheduler{counter: counter}
}

// before compares counter values across a wrap. Deadlines must be less than
// 2^31 ticks apart.
func before(a, b Tick) bool {
	return int32(a-b) < 0
}

// Add schedules t.
func (s *Scheduler) Add(t *Timer) {
	state := disableInterrupts()
	s.insert(t)
	restoreInterrupts(state)
}

// insert places t in WakeTime order. Equal deadlines keep insertion order.
func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || before(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer whose deadline has passed and returns how many
// handlers ran.
func (s *Scheduler) Dispatch() int {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	now := s.counter.Read()
	fired := 0
	for s.list != nil && !before(now, s.list.WakeTime) {
		t := s.list
		s.list = t.Next
		t.Next = nil

		fired++
		if t.Handler(t) == SF_RESCHEDULE {
			s.insert(t)
		}
	}
	return fired
}

// Pending returns the number of scheduled timers.
func (s *Scheduler) Pending() int {
	n := 0
	for t := s.list; t != nil; t = t.Next {
		n++
	}
	return n
}

// Every implements Alarm. Missed periods are skipped rather than replayed
// back to back.
func (s *Scheduler) Every(period uint32, fn func()) {
	t := &Timer{
		WakeTime: s.counter.Read() + Tick(period),
	}
	t.Handler = func(t *Timer) uint8 {
		fn()
		t.WakeTime += Tick(period)
		if now := s.counter.Read(); !before(now, t.WakeTime) {
			t.WakeTime = now + Tick(period)
		}
		return SF_RESCHEDULE
	}
	s.Add(t)
}
