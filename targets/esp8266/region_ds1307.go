//go:build esp8266 && ds1307

package main

import (
	"machine"

	"tinygo.org/x/drivers/i2csoft"

	"timekeeper/clock"
	"timekeeper/store"
)

const regionName = "ds1307"

// The DS1307 sits on a bit-banged bus: D1 (GPIO5) = SCL, D2 (GPIO4) = SDA.
func openRegion() (clock.Region, error) {
	bus := i2csoft.New(machine.GPIO5, machine.GPIO4)
	if err := bus.Configure(i2csoft.I2CConfig{Frequency: 100_000}); err != nil {
		return nil, err
	}
	return store.NewDS1307Region(bus), nil
}
