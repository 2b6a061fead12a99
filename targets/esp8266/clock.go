//go:build esp8266

package main

import (
	"runtime/volatile"
	"unsafe"

	"timekeeper/clock"
	"timekeeper/store"
)

// ESP8266 counter and RTC memory map
const (
	wdevNow     = 0x3FF20C00 // free-running 1 MHz counter
	rtcCounter  = 0x6000071C // RTC slow counter, survives soft resets
	rtcMemBase  = 0x60001100 // RTC memory, 192 words
	rtcMemWords = 192

	// The SDK keeps rst_info in the first words of RTC memory and
	// reserves the first 64 words for itself.
	rtcUserWord  = 64
	rtcUserWords = rtcMemWords - rtcUserWord
)

// Reset reasons as stored by the SDK in rst_info.reason.
const (
	sdkReasonDefault   = 0 // power on
	sdkReasonWatchdog  = 1
	sdkReasonException = 2
	sdkReasonSoftWDT   = 3
	sdkReasonSoftRst   = 4
	sdkReasonDeepSleep = 5
	sdkReasonExtSys    = 6
)

var (
	fastReg = (*volatile.Register32)(unsafe.Pointer(uintptr(wdevNow)))
	slowReg = (*volatile.Register32)(unsafe.Pointer(uintptr(rtcCounter)))
)

func rtcWord(i int) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(rtcMemBase + 4*i)))
}

func readFast() clock.Tick {
	return clock.Tick(fastReg.Get())
}

func readSlow() clock.Tick {
	return clock.Tick(slowReg.Get())
}

// readResetCause maps rst_info.reason (RTC memory word 0). The TinyGo
// runtime does not fill that word; it relies on the SDK startup shim linked
// ahead of it. Without the shim the word holds whatever RTC memory held:
// out-of-range values map to ResetUnknown (FRESH), and an in-range garbage
// value still needs a record whose checksum matches before Init restores.
func readResetCause() clock.ResetCause {
	switch rtcWord(0).Get() {
	case sdkReasonDefault:
		return clock.ResetPowerOn
	case sdkReasonWatchdog:
		return clock.ResetWatchdog
	case sdkReasonException:
		return clock.ResetException
	case sdkReasonSoftWDT:
		return clock.ResetSoftWatchdog
	case sdkReasonSoftRst:
		return clock.ResetSoftRestart
	case sdkReasonDeepSleep:
		return clock.ResetDeepSleepWake
	case sdkReasonExtSys:
		return clock.ResetExternal
	default:
		return clock.ResetUnknown
	}
}

// rtcUserMemory is the part of RTC memory left to the application.
func rtcUserMemory() *store.WordRegion {
	return &store.WordRegion{
		Load:  func(i int) uint32 { return rtcWord(rtcUserWord + i).Get() },
		Store: func(i int, v uint32) { rtcWord(rtcUserWord + i).Set(v) },
		Words: rtcUserWords,
	}
}
