// internal/keystore/medium_memory.go
package keystore

import (
	"fmt"
	"sync"
)

// MemoryMedium emulates an erased EEPROM and counts writes per cell.
type MemoryMedium struct {
	mu     sync.RWMutex
	cells  []byte
	writes []int
}

// NewMemoryMedium returns a medium of size bytes, all erased (0xFF).
func NewMemoryMedium(size int) *MemoryMedium {
	cells := make([]byte, size)
	for i := range cells {
		cells[i] = ErasedByte
	}
	return &MemoryMedium{
		cells:  cells,
		writes: make([]int, size),
	}
}

func (m *MemoryMedium) Size() int { return len(m.cells) }

func (m *MemoryMedium) Load(addr int) (byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if addr < 0 || addr >= len(m.cells) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, addr)
	}
	return m.cells[addr], nil
}

func (m *MemoryMedium) Store(addr int, b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr < 0 || addr >= len(m.cells) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, addr)
	}
	m.cells[addr] = b
	m.writes[addr]++
	return nil
}

// Writes returns the number of physical writes to addr.
func (m *MemoryMedium) Writes(addr int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if addr < 0 || addr >= len(m.writes) {
		return 0
	}
	return m.writes[addr]
}

// TotalWrites returns the number of physical writes across all cells.
func (m *MemoryMedium) TotalWrites() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, w := range m.writes {
		n += w
	}
	return n
}
