package clock

import "encoding/binary"

// RecordSize is the size in bytes of a persisted Record.
const RecordSize = 16

// checksumSentinel pins the record format. Changing it invalidates every
// record written by older firmware.
const checksumSentinel uint32 = 0xDEADBEEF

// Record is the reset-surviving copy of the slow-source Timestamp.
//
// Layout (little endian): Time at 0, Mark at 8, Checksum at 12.
type Record struct {
	Time     uint64
	Mark     Tick
	Checksum uint32
}

// NewRecord builds a sealed record for ts.
func NewRecord(ts Timestamp) Record {
	r := Record{Time: ts.Time, Mark: ts.Mark}
	r.Checksum = r.Sum()
	return r
}

// Sum computes the checksum over Time and Mark.
func (r Record) Sum() uint32 {
	return checksumSentinel ^ uint32(r.Mark) ^ uint32(r.Time) ^ uint32(r.Time>>32)
}

// Valid reports whether the stored checksum matches the contents.
func (r Record) Valid() bool {
	return r.Sum() == r.Checksum
}

// Timestamp returns the Time and Mark fields.
func (r Record) Timestamp() Timestamp {
	return Timestamp{Time: r.Time, Mark: r.Mark}
}

func (r Record) encode(buf *[RecordSize]byte) {
	binary.LittleEndian.PutUint64(buf[0:8], r.Time)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(r.Mark))
	binary.LittleEndian.PutUint32(buf[12:16], r.Checksum)
}

func decodeRecord(buf *[RecordSize]byte) Record {
	return Record{
		Time:     binary.LittleEndian.Uint64(buf[0:8]),
		Mark:     Tick(binary.LittleEndian.Uint32(buf[8:12])),
		Checksum: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// Store reads and writes a single Record at a fixed offset of a Region.
type Store struct {
	region Region
	offset uint32
}

// NewStore returns a Store for the record at offset within region.
func NewStore(region Region, offset uint32) *Store {
	return &Store{region: region, offset: offset}
}

// Write seals ts with a checksum and writes it as one block.
// There are no retries; the caller decides whether a failure matters.
func (s *Store) Write(ts Timestamp) error {
	var buf [RecordSize]byte
	NewRecord(ts).encode(&buf)
	return s.region.WriteAt(buf[:], s.offset)
}

// Read returns the stored record and whether it can be trusted.
// A failed region read is reported as an untrusted record.
func (s *Store) Read() (Record, bool) {
	var buf [RecordSize]byte
	if err := s.region.ReadAt(buf[:], s.offset); err != nil {
		return Record{}, false
	}
	r := decodeRecord(&buf)
	return r, r.Valid()
}
