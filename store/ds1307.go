package store

import (
	"io"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds1307"
)

// DS1307Size is the size of the DS1307 battery-backed SRAM in bytes.
const DS1307Size = 56

// DS1307Region stores data in the SRAM of a DS1307 real-time clock.
// The SRAM outlives power loss as long as the backup cell holds, so the
// reset cause, not the record, decides whether its contents are used.
type DS1307Region struct {
	dev ds1307.Device
}

// NewDS1307Region returns a region on the DS1307 at its default address.
func NewDS1307Region(bus drivers.I2C) *DS1307Region {
	return &DS1307Region{dev: ds1307.New(bus)}
}

// ReadAt copies len(p) bytes of SRAM starting at off.
func (r *DS1307Region) ReadAt(p []byte, off uint32) error {
	if err := checkRange(off, len(p), DS1307Size); err != nil {
		return err
	}
	if _, err := r.dev.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	n, err := r.dev.Read(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// WriteAt stores p in SRAM starting at off.
func (r *DS1307Region) WriteAt(p []byte, off uint32) error {
	if err := checkRange(off, len(p), DS1307Size); err != nil {
		return err
	}
	if _, err := r.dev.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	n, err := r.dev.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
