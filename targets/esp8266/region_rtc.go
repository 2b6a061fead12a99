//go:build esp8266 && !ds1307

package main

import "timekeeper/clock"

const regionName = "rtc-memory"

func openRegion() (clock.Region, error) {
	return rtcUserMemory(), nil
}
