// Package store provides reset-surviving memory regions for the clock
// record: plain RAM for simulation, word-addressed RTC memory, and the
// battery-backed SRAM of a DS1307.
package store

import "errors"

// ErrOutOfRange is returned for accesses past the end of a region.
var ErrOutOfRange = errors.New("store: access out of range")

func checkRange(off uint32, n, size int) error {
	if n < 0 || int64(off)+int64(n) > int64(size) {
		return ErrOutOfRange
	}
	return nil
}
