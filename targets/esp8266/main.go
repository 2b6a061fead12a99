//go:build esp8266

package main

import (
	"machine"
	"time"

	"timekeeper/clock"
	"timekeeper/protocol"
)

// Nominal ESP8266 RTC rate, about 6.67 us per tick (~150 kHz), applied only
// when live calibration fails.
const nominalRatio = clock.Ratio(27307)

var uart = machine.Serial

// Link error counters, kept for inspection with a debugger.
var (
	linkErrors    uint32
	lastLinkError error
)

type uartWriter struct{}

func (uartWriter) Write(p []byte) (int, error) {
	return uart.Write(p)
}

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	clock.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte("\r\n"))
	})
	clock.SetDebugEnabled(true)

	fast := clock.CounterFunc(readFast)
	sched := clock.NewScheduler(fast)

	region, err := openRegion()
	if err != nil {
		clock.DebugPrintln("region " + regionName + " unavailable: " + err.Error())
		halt()
	}

	c, err := clock.New(clock.Config{
		Fast:  fast,
		Slow:  clock.CounterFunc(readSlow),
		Reset: clock.ResetFunc(readResetCause),
		Calibration: clock.MeasuredRatio{
			Fast: fast,
			Slow: clock.CounterFunc(readSlow),
		},
		Region:       region,
		Alarm:        sched,
		NominalRatio: nominalRatio,
	})
	if err == nil {
		err = c.Init()
	}
	if err != nil {
		clock.DebugPrintln("clock: " + err.Error())
		halt()
	}
	clock.SetDefault(c)
	clock.DumpEvents()

	// The link carries framed traffic from here on.
	clock.SetDebugEnabled(false)

	d := protocol.NewDispatcher()
	clock.RegisterCommands(d, c)
	session := protocol.NewSession(d, uartWriter{})

	buf := make([]byte, 0, protocol.MessageLengthMax)
	for {
		sched.Dispatch()

		buf = buf[:0]
		for uart.Buffered() > 0 && len(buf) < cap(buf) {
			b, err := uart.ReadByte()
			if err != nil {
				break
			}
			buf = append(buf, b)
		}
		if len(buf) > 0 {
			if err := session.Receive(buf); err != nil {
				linkErrors++
				lastLinkError = err
				clock.DebugPrintln("link: " + err.Error())
			}
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func halt() {
	for {
		time.Sleep(time.Second)
	}
}
