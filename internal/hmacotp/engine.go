// internal/hmacotp/engine.go

// Package hmacotp derives 6-digit time-based codes from a secret key using
// HMAC over a streaming hash primitive and RFC 4226 dynamic truncation.
//
// The engine keeps only the derived HMAC pads, never the key itself.
package hmacotp

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
)

// BlockSize is the hash block size the pads are built for.
const BlockSize = 64

// Digits is the number of decimal digits in a code.
const Digits = 6

const modulus = 1_000_000

// minDigestSize is the smallest digest that keeps offset+3 in range
// for a 4-bit offset (15 + 4).
const minDigestSize = 0x0F + 4

const (
	innerPadByte byte = 0x36
	outerPadByte byte = 0x5C
)

var (
	ErrKeyTooLong     = errors.New("hmacotp: key longer than hash block size")
	ErrDigestTooShort = errors.New("hmacotp: digest too short for dynamic truncation")
	ErrBlockSize      = errors.New("hmacotp: hash block size must be 64")
	ErrZeroTimestep   = errors.New("hmacotp: timestep must be > 0")
)

// Algorithm names the hash primitive.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
)

// HashFunc returns the constructor for the algorithm.
func (a Algorithm) HashFunc() (func() hash.Hash, error) {
	switch a {
	case SHA1:
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("hmacotp: unsupported algorithm %q", string(a))
	}
}

// Pads holds the inner and outer HMAC pads derived from one key.
type Pads struct {
	Inner [BlockSize]byte
	Outer [BlockSize]byte
}

// ComputePads zero-extends key to BlockSize and XORs it with 0x36 / 0x5C.
// Pure function of key.
func ComputePads(key []byte) (Pads, error) {
	if len(key) > BlockSize {
		return Pads{}, ErrKeyTooLong
	}

	var p Pads
	for i := 0; i < BlockSize; i++ {
		var k byte
		if i < len(key) {
			k = key[i]
		}
		p.Inner[i] = innerPadByte ^ k
		p.Outer[i] = outerPadByte ^ k
	}
	return p, nil
}

// Engine computes codes for the key it was last given.
// Not safe for concurrent use: one computation in flight per engine.
type Engine struct {
	h    hash.Hash
	pads Pads

	inner []byte
	outer []byte
}

// New builds an engine over the given hash constructor and key.
func New(newHash func() hash.Hash, key []byte) (*Engine, error) {
	h := newHash()
	if h.BlockSize() != BlockSize {
		return nil, ErrBlockSize
	}
	if h.Size() < minDigestSize {
		return nil, ErrDigestTooShort
	}

	e := &Engine{
		h:     h,
		inner: make([]byte, 0, h.Size()),
		outer: make([]byte, 0, h.Size()),
	}
	if err := e.SetKey(key); err != nil {
		return nil, err
	}
	return e, nil
}

// SetKey replaces the pads. Must be called on every key change.
func (e *Engine) SetKey(key []byte) error {
	p, err := ComputePads(key)
	if err != nil {
		return err
	}
	e.pads = p
	return nil
}

// Pads returns a copy of the current pads.
func (e *Engine) Pads() Pads { return e.pads }

// Counter is the OTP step window for elapsed seconds.
func Counter(elapsed, timestep uint64) (uint64, error) {
	if timestep == 0 {
		return 0, ErrZeroTimestep
	}
	return elapsed / timestep, nil
}

// Generate returns the code for the window containing elapsed.
func (e *Engine) Generate(elapsed, timestep uint64) (uint32, error) {
	counter, err := Counter(elapsed, timestep)
	if err != nil {
		return 0, err
	}
	return e.HOTP(counter), nil
}

// HOTP returns the code for an explicit counter value.
func (e *Engine) HOTP(counter uint64) uint32 {
	return Truncate(e.MAC(counter)) % modulus
}

// MAC returns HMAC(key, counter) as an 8-byte big-endian message.
// The returned slice is reused by the next call.
func (e *Engine) MAC(counter uint64) []byte {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	e.h.Reset()
	e.h.Write(e.pads.Inner[:])
	e.h.Write(msg[:])
	e.inner = e.h.Sum(e.inner[:0])

	e.h.Reset()
	e.h.Write(e.pads.Outer[:])
	e.h.Write(e.inner)
	e.outer = e.h.Sum(e.outer[:0])

	return e.outer
}

// Truncate applies RFC 4226 dynamic truncation and returns a 31-bit value.
// A digest that cannot hold offset+3 is a programming error and panics.
func Truncate(digest []byte) uint32 {
	if len(digest) < minDigestSize {
		panic(fmt.Sprintf("hmacotp: digest length %d below %d", len(digest), minDigestSize))
	}

	offset := int(digest[len(digest)-1] & 0x0F)
	return uint32(digest[offset]&0x7F)<<24 |
		uint32(digest[offset+1])<<16 |
		uint32(digest[offset+2])<<8 |
		uint32(digest[offset+3])
}

// Format zero-pads a code to Digits characters.
func Format(code uint32) string {
	return fmt.Sprintf("%0*d", Digits, code%modulus)
}
