package store

// WordRegion adapts memory that only supports aligned 32-bit accesses, such
// as RTC user memory, to byte-granular reads and writes. Words are little
// endian. Partial words are read, modified and written back.
type WordRegion struct {
	Load  func(index int) uint32
	Store func(index int, v uint32)
	Words int
}

// ReadAt copies len(p) bytes starting at byte offset off.
func (w *WordRegion) ReadAt(p []byte, off uint32) error {
	if err := checkRange(off, len(p), w.Words*4); err != nil {
		return err
	}
	for i := range p {
		pos := int(off) + i
		p[i] = byte(w.Load(pos/4) >> (8 * (pos % 4)))
	}
	return nil
}

// WriteAt stores p starting at byte offset off, touching each word once.
func (w *WordRegion) WriteAt(p []byte, off uint32) error {
	if err := checkRange(off, len(p), w.Words*4); err != nil {
		return err
	}
	for i := 0; i < len(p); {
		pos := int(off) + i
		index := pos / 4
		word := w.Load(index)
		for shift := 8 * (pos % 4); shift < 32 && i < len(p); shift += 8 {
			word = word&^(0xFF<<shift) | uint32(p[i])<<shift
			i++
		}
		w.Store(index, word)
	}
	return nil
}
