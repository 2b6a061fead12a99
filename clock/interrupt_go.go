//go:build !tinygo

package clock

// irqState stands in for the saved interrupt mask when running under
// regular Go (tests, host tools). There are no interrupts to mask.
type irqState uintptr

func disableInterrupts() irqState {
	return 0
}

func restoreInterrupts(state irqState) {}
