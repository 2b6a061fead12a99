package clock

// FromMilliseconds converts ms to microseconds, rounding to the nearest
// microsecond. Negative values clamp to zero.
func FromMilliseconds(ms float64) uint64 {
	if ms <= 0 {
		return 0
	}
	return uint64(ms*1000.0 + 0.5)
}

// ToMilliseconds converts microseconds to milliseconds.
func ToMilliseconds(us uint64) float64 {
	return float64(us) / 1000.0
}
