// internal/keystore/store.go

// Package keystore holds exactly one fixed-length secret key in
// byte-addressable storage.
//
// Layout: N key bytes at a fixed base address. An erased first byte (0xFF)
// means the store was never provisioned; Open zero-fills the key region in
// that case. An all-zero key is the "unprovisioned" sentinel.
package keystore

import (
	"fmt"
	"sync"
)

// Store is the single-key store.
type Store struct {
	mu     sync.Mutex
	m      Medium
	base   int
	length int
}

// Open binds a store to [base, base+length) of m and performs first-boot
// initialization when the first key byte is erased.
func Open(m Medium, base, length int) (*Store, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil medium", ErrUnavailable)
	}
	if length <= 0 {
		return nil, fmt.Errorf("keystore: key length must be > 0")
	}
	if base < 0 || base+length > m.Size() {
		return nil, fmt.Errorf("%w: key region %d..%d exceeds medium size %d",
			ErrOutOfRange, base, base+length-1, m.Size())
	}

	s := &Store{m: m, base: base, length: length}

	first, err := m.Load(base)
	if err != nil {
		return nil, fmt.Errorf("keystore: first-boot check: %w", err)
	}
	if first == ErasedByte {
		if _, err := s.Update(make([]byte, length)); err != nil {
			return nil, fmt.Errorf("keystore: first-boot init: %w", err)
		}
	}

	return s, nil
}

// Len is the fixed key length.
func (s *Store) Len() int { return s.length }

// Read returns a copy of the stored key.
// A read failure is reported, never replaced by zeroed data.
func (s *Store) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := make([]byte, s.length)
	for i := 0; i < s.length; i++ {
		b, err := s.m.Load(s.base + i)
		if err != nil {
			return nil, fmt.Errorf("keystore: read byte %d: %w", i, err)
		}
		key[i] = b
	}
	return key, nil
}

// Update writes key using update-if-changed semantics: a cell whose stored
// value already equals the new byte is not written. Returns the number of
// physical byte writes. The write is durable when Update returns nil.
//
// On failure the cells already written are restored to their prior bytes,
// so the stored key is either the old one or the new one. When that restore
// fails too the error wraps ErrRollbackFailed and the stored key is unknown.
func (s *Store) Update(key []byte) (int, error) {
	if len(key) != s.length {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrKeyLength, len(key), s.length)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior := make(map[int]byte, len(key))
	written := 0
	for i, b := range key {
		addr := s.base + i
		cur, err := s.m.Load(addr)
		if err != nil {
			err = s.rollback(prior, &written, fmt.Errorf("keystore: update read %d: %w", i, err))
			return written, err
		}
		if cur == b {
			continue
		}
		prior[addr] = cur
		if err := s.m.Store(addr, b); err != nil {
			err = s.rollback(prior, &written, fmt.Errorf("keystore: update write %d: %w", i, err))
			return written, err
		}
		written++
	}

	if err := s.sync(written); err != nil {
		err = s.rollback(prior, &written, fmt.Errorf("keystore: update: %w", err))
		return written, err
	}

	return written, nil
}

// rollback writes the prior bytes back after a failed update and returns
// cause, wrapped with ErrRollbackFailed when any cell could not be restored.
// The cell that failed mid-write is restored as well, its content is unknown.
// Caller holds s.mu.
func (s *Store) rollback(prior map[int]byte, written *int, cause error) error {
	var failed error
	for addr, b := range prior {
		if err := s.m.Store(addr, b); err != nil {
			failed = err
			continue
		}
		*written++
	}
	if failed == nil {
		failed = s.sync(len(prior))
	}
	if failed != nil {
		return fmt.Errorf("%w: %w (restore: %v)", ErrRollbackFailed, cause, failed)
	}
	return cause
}

func (s *Store) sync(written int) error {
	if sy, ok := s.m.(Syncer); ok && written > 0 {
		return sy.Sync()
	}
	return nil
}

// Provisioned reports whether the stored key differs from the all-zero sentinel.
func (s *Store) Provisioned() (bool, error) {
	key, err := s.Read()
	if err != nil {
		return false, err
	}
	return !IsZero(key), nil
}

// IsZero reports whether key is the unprovisioned sentinel.
func IsZero(key []byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
