// internal/keystore/medium.go
package keystore

import "errors"

// ErasedByte is the value of a never-written EEPROM cell.
const ErasedByte byte = 0xFF

var (
	ErrUnavailable = errors.New("keystore: storage unavailable")
	ErrOutOfRange  = errors.New("keystore: address out of range")
	ErrKeyLength   = errors.New("keystore: key length mismatch")

	// ErrRollbackFailed marks an update that failed and could not be undone.
	ErrRollbackFailed = errors.New("keystore: rollback failed")
)

// Medium is byte-addressable, limited-endurance storage.
// Addresses are absolute, 0..Size()-1.
type Medium interface {
	Size() int
	Load(addr int) (byte, error)
	Store(addr int, b byte) error
}

// Syncer is implemented by media that buffer writes.
// Sync returns only after all stored bytes are durable.
type Syncer interface {
	Sync() error
}
