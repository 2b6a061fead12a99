package clock

// utoa formats n in decimal without the fmt package.
func utoa(n uint32) string {
	return u64toa(uint64(n))
}

// u64toa formats n in decimal without the fmt package.
func u64toa(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
