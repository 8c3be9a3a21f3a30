// internal/keystore/medium_file.go
package keystore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileMedium is an EEPROM image on disk.
// A missing image is created erased (all 0xFF) at the requested size.
type FileMedium struct {
	mu   sync.Mutex
	f    *os.File
	size int
}

// OpenFileMedium opens or creates the image at path.
// An existing image must be exactly size bytes.
func OpenFileMedium(path string, size int) (*FileMedium, error) {
	if size <= 0 {
		return nil, errors.New("keystore: image size must be > 0")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch st.Size() {
	case 0:
		erased := make([]byte, size)
		for i := range erased {
			erased[i] = ErasedByte
		}
		if _, err := f.WriteAt(erased, 0); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: format image: %v", ErrUnavailable, err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: format image: %v", ErrUnavailable, err)
		}
	case int64(size):
	default:
		_ = f.Close()
		return nil, fmt.Errorf("keystore: image %s is %d bytes, want %d", path, st.Size(), size)
	}

	return &FileMedium{f: f, size: size}, nil
}

func (m *FileMedium) Size() int { return m.size }

func (m *FileMedium) Load(addr int) (byte, error) {
	if addr < 0 || addr >= m.size {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, addr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var b [1]byte
	if _, err := m.f.ReadAt(b[:], int64(addr)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: read %d: %v", ErrUnavailable, addr, err)
	}
	return b[0], nil
}

func (m *FileMedium) Store(addr int, b byte) error {
	if addr < 0 || addr >= m.size {
		return fmt.Errorf("%w: %d", ErrOutOfRange, addr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.f.WriteAt([]byte{b}, int64(addr)); err != nil {
		return fmt.Errorf("%w: write %d: %v", ErrUnavailable, addr, err)
	}
	return nil
}

func (m *FileMedium) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrUnavailable, err)
	}
	return nil
}

func (m *FileMedium) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.f.Close()
}
