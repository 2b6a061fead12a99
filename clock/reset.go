package clock

// ResetCause is the platform-reported reason for the most recent start.
type ResetCause uint8

const (
	ResetUnknown ResetCause = iota
	ResetPowerOn
	ResetExternal // reset pin
	ResetDeepSleepWake
	ResetWatchdog
	ResetException
	ResetSoftWatchdog
	ResetSoftRestart // explicit restart requested by software
)

// IsRecoverable reports whether the slow counter and the reset-surviving
// memory are still intact after a reset of this kind.
func (c ResetCause) IsRecoverable() bool {
	switch c {
	case ResetWatchdog, ResetException, ResetSoftWatchdog, ResetSoftRestart:
		return true
	case ResetPowerOn, ResetExternal, ResetDeepSleepWake:
		return false
	default:
		return false
	}
}

func (c ResetCause) String() string {
	switch c {
	case ResetPowerOn:
		return "power-on"
	case ResetExternal:
		return "external"
	case ResetDeepSleepWake:
		return "deep-sleep-wake"
	case ResetWatchdog:
		return "watchdog"
	case ResetException:
		return "exception"
	case ResetSoftWatchdog:
		return "soft-watchdog"
	case ResetSoftRestart:
		return "soft-restart"
	default:
		return "unknown"
	}
}
