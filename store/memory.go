package store

import "sync"

// MemoryRegion is a RAM-backed region. It survives whatever the process
// survives; PowerCycle simulates losing it.
type MemoryRegion struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryRegion returns a zeroed region of size bytes.
func NewMemoryRegion(size int) *MemoryRegion {
	return &MemoryRegion{data: make([]byte, size)}
}

// ReadAt copies len(p) bytes starting at off.
func (m *MemoryRegion) ReadAt(p []byte, off uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRange(off, len(p), len(m.data)); err != nil {
		return err
	}
	copy(p, m.data[off:])
	return nil
}

// WriteAt stores p starting at off.
func (m *MemoryRegion) WriteAt(p []byte, off uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := checkRange(off, len(p), len(m.data)); err != nil {
		return err
	}
	copy(m.data[off:], p)
	return nil
}

// PowerCycle clears the region.
func (m *MemoryRegion) PowerCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.data {
		m.data[i] = 0
	}
}

// Size returns the region size in bytes.
func (m *MemoryRegion) Size() int {
	return len(m.data)
}
