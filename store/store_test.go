package store

import (
	"bytes"
	"testing"

	"timekeeper/clock"
)

// fakeDS1307 is an I2C bus with a DS1307-style register file: the first
// written byte sets the register pointer, which auto-increments.
type fakeDS1307 struct {
	regs [64]byte
	ptr  byte
}

func (f *fakeDS1307) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		f.ptr = w[0]
		for _, b := range w[1:] {
			f.regs[f.ptr%64] = b
			f.ptr++
		}
	}
	for i := range r {
		r[i] = f.regs[f.ptr%64]
		f.ptr++
	}
	return nil
}

func (f *fakeDS1307) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return f.Tx(uint16(addr), []byte{r}, buf)
}

func (f *fakeDS1307) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return f.Tx(uint16(addr), append([]byte{r}, buf...), nil)
}

type region interface {
	ReadAt(p []byte, off uint32) error
	WriteAt(p []byte, off uint32) error
}

func newWordRegion(words int) (*WordRegion, []uint32) {
	mem := make([]uint32, words)
	return &WordRegion{
		Load:  func(i int) uint32 { return mem[i] },
		Store: func(i int, v uint32) { mem[i] = v },
		Words: words,
	}, mem
}

func TestRegionsRoundTrip(t *testing.T) {
	words, _ := newWordRegion(16)
	regions := map[string]region{
		"memory": NewMemoryRegion(64),
		"words":  words,
		"ds1307": NewDS1307Region(&fakeDS1307{}),
	}

	for name, r := range regions {
		t.Run(name, func(t *testing.T) {
			for _, off := range []uint32{0, 1, 3, 7, 20} {
				data := []byte{0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0xF6, 0x07}
				if err := r.WriteAt(data, off); err != nil {
					t.Fatalf("WriteAt(%d): %v", off, err)
				}
				got := make([]byte, len(data))
				if err := r.ReadAt(got, off); err != nil {
					t.Fatalf("ReadAt(%d): %v", off, err)
				}
				if !bytes.Equal(got, data) {
					t.Errorf("offset %d: read % X, want % X", off, got, data)
				}
			}
		})
	}
}

func TestRegionsOutOfRange(t *testing.T) {
	words, _ := newWordRegion(4)
	testCases := []struct {
		name string
		r    region
		size uint32
	}{
		{"memory", NewMemoryRegion(16), 16},
		{"words", words, 16},
		{"ds1307", NewDS1307Region(&fakeDS1307{}), DS1307Size},
	}

	for _, tc := range testCases {
		buf := make([]byte, 4)
		if err := tc.r.WriteAt(buf, tc.size-3); err != ErrOutOfRange {
			t.Errorf("%s: write past end: %v", tc.name, err)
		}
		if err := tc.r.ReadAt(buf, tc.size); err != ErrOutOfRange {
			t.Errorf("%s: read past end: %v", tc.name, err)
		}
		if err := tc.r.WriteAt(buf, tc.size-4); err != nil {
			t.Errorf("%s: write at end: %v", tc.name, err)
		}
	}
}

func TestWordRegionPreservesNeighbours(t *testing.T) {
	r, mem := newWordRegion(3)
	mem[0] = 0x11111111
	mem[1] = 0x22222222
	mem[2] = 0x33333333

	if err := r.WriteAt([]byte{0xAA, 0xBB, 0xCC}, 3); err != nil {
		t.Fatal(err)
	}
	if mem[0] != 0xAA111111 || mem[1] != 0x2222CCBB || mem[2] != 0x33333333 {
		t.Errorf("words = %08X %08X %08X", mem[0], mem[1], mem[2])
	}
}

func TestMemoryRegionPowerCycle(t *testing.T) {
	r := NewMemoryRegion(32)
	store := clock.NewStore(r, 8)
	if err := store.Write(clock.Timestamp{Time: 123, Mark: 456}); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Read(); !ok {
		t.Fatal("record invalid before power cycle")
	}

	r.PowerCycle()
	if _, ok := store.Read(); ok {
		t.Error("record survived power cycle")
	}
}

func TestDS1307RegionHoldsClockRecord(t *testing.T) {
	store := clock.NewStore(NewDS1307Region(&fakeDS1307{}), 0)
	ts := clock.Timestamp{Time: 0x0102030405060708, Mark: 0xCAFEF00D}
	if err := store.Write(ts); err != nil {
		t.Fatal(err)
	}
	rec, ok := store.Read()
	if !ok || rec.Timestamp() != ts {
		t.Errorf("read %+v, %v", rec, ok)
	}
}
