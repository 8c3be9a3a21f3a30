// internal/keystore/store_test.go
package keystore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fake medium ----

type failingMedium struct {
	*MemoryMedium
	failLoad  bool
	failStore bool
}

func (f *failingMedium) Load(addr int) (byte, error) {
	if f.failLoad {
		return 0, errors.New("bus error")
	}
	return f.MemoryMedium.Load(addr)
}

func (f *failingMedium) Store(addr int, b byte) error {
	if f.failStore {
		return errors.New("bus error")
	}
	return f.MemoryMedium.Store(addr, b)
}

// flakyMedium accepts budget stores once armed and fails after that. With
// once set only the first store past the budget fails.
type flakyMedium struct {
	*MemoryMedium
	armed  bool
	budget int
	once   bool
	failed bool
}

func (f *flakyMedium) arm(budget int, once bool) {
	f.armed, f.budget, f.once, f.failed = true, budget, once, false
}

func (f *flakyMedium) Store(addr int, b byte) error {
	if f.armed {
		if f.budget == 0 && !(f.once && f.failed) {
			f.failed = true
			return errors.New("write fault")
		}
		if f.budget > 0 {
			f.budget--
		}
	}
	return f.MemoryMedium.Store(addr, b)
}

// ---- tests ----

func TestOpen_FirstBootZeroFills(t *testing.T) {
	m := NewMemoryMedium(64)

	s, err := Open(m, 4, 20)
	require.NoError(t, err)

	key, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 20), key)
	assert.Equal(t, 20, m.TotalWrites())

	// bytes outside the key region stay erased
	b, err := m.Load(3)
	require.NoError(t, err)
	assert.Equal(t, ErasedByte, b)
	b, err = m.Load(24)
	require.NoError(t, err)
	assert.Equal(t, ErasedByte, b)

	ok, err := s.Provisioned()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_ExistingKeyUntouched(t *testing.T) {
	m := NewMemoryMedium(32)
	for i, c := range []byte("12345678901234567890") {
		require.NoError(t, m.Store(i, c))
	}
	before := m.TotalWrites()

	s, err := Open(m, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, before, m.TotalWrites())

	key, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("12345678901234567890"), key)
}

func TestOpen_RegionOutOfRange(t *testing.T) {
	_, err := Open(NewMemoryMedium(16), 0, 20)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = Open(NewMemoryMedium(32), -1, 20)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestUpdate_RoundTrip(t *testing.T) {
	s, err := Open(NewMemoryMedium(32), 0, 20)
	require.NoError(t, err)

	key := []byte("ABCDEFGHIJKLMNOPQRST")
	n, err := s.Update(key)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, key, got)

	ok, err := s.Provisioned()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdate_OnlyChangedCellsWritten(t *testing.T) {
	m := NewMemoryMedium(32)
	s, err := Open(m, 0, 20)
	require.NoError(t, err)

	key := []byte("ABCDEFGHIJKLMNOPQRST")
	_, err = s.Update(key)
	require.NoError(t, err)
	before := m.TotalWrites()

	// identical key: no physical writes
	n, err := s.Update(key)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, before, m.TotalWrites())

	// one byte differs: exactly one write, at that cell
	changed := append([]byte(nil), key...)
	changed[7] = 'x'
	n, err = s.Update(changed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before+1, m.TotalWrites())
	assert.Equal(t, 3, m.Writes(7)) // zero-fill, first key, change
}

func TestUpdate_WrongLength(t *testing.T) {
	s, err := Open(NewMemoryMedium(32), 0, 20)
	require.NoError(t, err)

	_, err = s.Update([]byte("short"))
	assert.ErrorIs(t, err, ErrKeyLength)
}

func TestUpdate_FailedWriteRestoresOldKey(t *testing.T) {
	fm := &flakyMedium{MemoryMedium: NewMemoryMedium(32)}
	s, err := Open(fm, 0, 20)
	require.NoError(t, err)

	old := []byte("AAAAAAAAAAAAAAAAAAAA")
	_, err = s.Update(old)
	require.NoError(t, err)

	fm.arm(5, true)
	_, err = s.Update([]byte("BBBBBBBBBBBBBBBBBBBB"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRollbackFailed)

	got, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, old, got, "no partial key stays in the store")
}

func TestUpdate_RollbackFailureIsReported(t *testing.T) {
	fm := &flakyMedium{MemoryMedium: NewMemoryMedium(32)}
	s, err := Open(fm, 0, 20)
	require.NoError(t, err)

	_, err = s.Update([]byte("AAAAAAAAAAAAAAAAAAAA"))
	require.NoError(t, err)

	// every store after the fifth fails, including the restore
	fm.arm(5, false)
	_, err = s.Update([]byte("BBBBBBBBBBBBBBBBBBBB"))
	assert.ErrorIs(t, err, ErrRollbackFailed)
}

func TestRead_FailureIsDistinguishable(t *testing.T) {
	fm := &failingMedium{MemoryMedium: NewMemoryMedium(32)}
	s, err := Open(fm, 0, 20)
	require.NoError(t, err)

	fm.failLoad = true
	key, err := s.Read()
	assert.Error(t, err)
	assert.Nil(t, key)

	_, err = s.Provisioned()
	assert.Error(t, err)
}

func TestOpen_FailingMedium(t *testing.T) {
	fm := &failingMedium{MemoryMedium: NewMemoryMedium(32), failStore: true}
	_, err := Open(fm, 0, 20)
	assert.Error(t, err)
}

func TestFileMedium_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")

	m, err := OpenFileMedium(path, 64)
	require.NoError(t, err)
	s, err := Open(m, 8, 20)
	require.NoError(t, err)

	key := []byte("12345678901234567890")
	_, err = s.Update(key)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 64)
	assert.Equal(t, key, raw[8:28])
	assert.Equal(t, ErasedByte, raw[0])

	m2, err := OpenFileMedium(path, 64)
	require.NoError(t, err)
	defer m2.Close()
	s2, err := Open(m2, 8, 20)
	require.NoError(t, err)

	got, err := s2.Read()
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestFileMedium_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o600))

	_, err := OpenFileMedium(path, 64)
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(make([]byte, 20)))
	assert.False(t, IsZero([]byte{0, 0, 1}))
}
