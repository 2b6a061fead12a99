package clock

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event kinds recorded in the event ring
const (
	EvtBootFresh           = 1 // started from zero
	EvtBootRestored        = 2 // restored from the persisted record
	EvtStateLost           = 3 // persisted record unusable, value = reason
	EvtCalibrationFallback = 4 // platform ratio degenerate, value = ratio used
	EvtPersistFailed       = 5
	EvtSetTime             = 6
)

// Reasons carried by EvtStateLost
const (
	LostUnrecoverableReset = 1
	LostBadChecksum        = 2
	LostNoCalibration      = 3
)

// EventRingSize is the number of events kept for post-mortem analysis.
const EventRingSize = 16

// Event is one entry of the event ring.
type Event struct {
	Kind  uint8
	Time  uint64 // logical time when recorded
	Value uint32
}

var (
	// debugPrintln is set by platform code; no-op by default
	debugPrintln DebugWriter = func(s string) {}
	debugEnabled bool

	eventRing     [EventRingSize]Event
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes msg if debug output is enabled.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores an event in the ring. Never blocks; the oldest entry
// is overwritten when the ring is full.
func RecordEvent(kind uint8, time uint64, value uint32) {
	state := disableInterrupts()
	idx := eventRingHead
	eventRing[idx] = Event{Kind: kind, Time: time, Value: value}
	eventRingHead = (idx + 1) % EventRingSize
	restoreInterrupts(state)
}

// Events returns the recorded events, oldest first.
func Events() []Event {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(eventRingHead+i)%EventRingSize]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// ClearEvents empties the event ring.
func ClearEvents() {
	state := disableInterrupts()
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
	restoreInterrupts(state)
}

// DumpEvents writes the event ring through the debug writer regardless of
// the enabled flag. Call it from the main loop, not from an interrupt.
func DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[CLOCK] === event ring ===")
	for _, evt := range Events() {
		debugPrintln("[CLOCK] " + eventName(evt.Kind) +
			" t=" + u64toa(evt.Time) +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[CLOCK] === end ===")
}

func eventName(kind uint8) string {
	switch kind {
	case EvtBootFresh:
		return "BOOT_FRESH"
	case EvtBootRestored:
		return "BOOT_RESTORED"
	case EvtStateLost:
		return "STATE_LOST"
	case EvtCalibrationFallback:
		return "CAL_FALLBACK"
	case EvtPersistFailed:
		return "PERSIST_FAIL!"
	case EvtSetTime:
		return "SET_TIME"
	default:
		return "UNKNOWN"
	}
}
