// internal/hmacotp/engine_test.go
package hmacotp

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base32"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rfcKey = []byte("12345678901234567890")

func newSHA1(t *testing.T, key []byte) *Engine {
	t.Helper()
	e, err := New(sha1.New, key)
	require.NoError(t, err)
	return e
}

func TestGenerate_GoldenVectorTimeZero(t *testing.T) {
	e := newSHA1(t, rfcKey)

	code, err := e.Generate(0, 30)
	require.NoError(t, err)
	assert.Equal(t, uint32(755224), code)
	assert.Equal(t, "755224", Format(code))
}

func TestHOTP_RFC4226Vectors(t *testing.T) {
	want := []uint32{
		755224, 287082, 359152, 969429, 338314,
		254676, 287922, 162583, 399871, 520489,
	}

	e := newSHA1(t, rfcKey)
	for counter, w := range want {
		assert.Equal(t, w, e.HOTP(uint64(counter)), "counter=%d", counter)
	}
}

func TestMAC_MatchesStandardHMAC(t *testing.T) {
	e := newSHA1(t, rfcKey)

	for _, counter := range []uint64{0, 1, 57, 1 << 40} {
		var msg [8]byte
		for i := 0; i < 8; i++ {
			msg[7-i] = byte(counter >> (8 * i))
		}
		m := hmac.New(sha1.New, rfcKey)
		m.Write(msg[:])
		assert.Equal(t, m.Sum(nil), e.MAC(counter), "counter=%d", counter)
	}
}

func TestGenerate_MatchesOracle(t *testing.T) {
	keys := [][]byte{
		rfcKey,
		[]byte("short"),
		make([]byte, 20),
		[]byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"),
	}
	times := []uint64{0, 29, 30, 59, 1111111109, 1234567890, 2000000000}

	for _, key := range keys {
		e := newSHA1(t, key)
		secret := base32.StdEncoding.EncodeToString(key)

		for _, ts := range times {
			got, err := e.Generate(ts, 30)
			require.NoError(t, err)

			want, err := totp.GenerateCodeCustom(secret, time.Unix(int64(ts), 0).UTC(), totp.ValidateOpts{
				Period:    30,
				Digits:    otp.DigitsSix,
				Algorithm: otp.AlgorithmSHA1,
			})
			require.NoError(t, err)
			assert.Equal(t, want, Format(got), "key=%q t=%d", key, ts)
		}
	}
}

func TestHOTP_MatchesOracleSHA256(t *testing.T) {
	key := []byte("12345678901234567890123456789012")
	e, err := New(sha256.New, key)
	require.NoError(t, err)

	secret := base32.StdEncoding.EncodeToString(key)
	for counter := uint64(0); counter < 20; counter++ {
		want, err := hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA256,
		})
		require.NoError(t, err)
		assert.Equal(t, want, Format(e.HOTP(counter)), "counter=%d", counter)
	}
}

func TestGenerate_RFC6238SHA256(t *testing.T) {
	fn, err := SHA256.HashFunc()
	require.NoError(t, err)
	e, err := New(fn, []byte("12345678901234567890123456789012"))
	require.NoError(t, err)

	code, err := e.Generate(59, 30)
	require.NoError(t, err)
	assert.Equal(t, "119246", Format(code))

	code, err = e.Generate(1111111109, 30)
	require.NoError(t, err)
	assert.Equal(t, "084774", Format(code))
}

func TestGenerate_Deterministic(t *testing.T) {
	e1 := newSHA1(t, rfcKey)
	e2 := newSHA1(t, rfcKey)

	for _, ts := range []uint64{0, 1, 999, 1700000000} {
		a, err := e1.Generate(ts, 30)
		require.NoError(t, err)
		b, err := e1.Generate(ts, 30)
		require.NoError(t, err)
		c, err := e2.Generate(ts, 30)
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Equal(t, a, c)
	}
}

func TestGenerate_WindowStability(t *testing.T) {
	e := newSHA1(t, rfcKey)

	for _, step := range []uint64{1, 10, 30} {
		for base := uint64(0); base < 5*step; base += step {
			first, err := e.Generate(base, step)
			require.NoError(t, err)
			for off := uint64(1); off < step; off++ {
				got, err := e.Generate(base+off, step)
				require.NoError(t, err)
				require.Equal(t, first, got, "step=%d t=%d", step, base+off)
			}
		}
	}
}

func TestGenerate_ZeroTimestep(t *testing.T) {
	e := newSHA1(t, rfcKey)
	_, err := e.Generate(10, 0)
	assert.ErrorIs(t, err, ErrZeroTimestep)
}

func TestComputePads(t *testing.T) {
	p, err := ComputePads(rfcKey)
	require.NoError(t, err)

	for i := 0; i < BlockSize; i++ {
		var k byte
		if i < len(rfcKey) {
			k = rfcKey[i]
		}
		assert.Equal(t, 0x36^k, p.Inner[i], "inner[%d]", i)
		assert.Equal(t, 0x5C^k, p.Outer[i], "outer[%d]", i)
	}

	again, err := ComputePads(rfcKey)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestComputePads_BlockSizeKey(t *testing.T) {
	key := make([]byte, BlockSize)
	for i := range key {
		key[i] = byte(i)
	}
	p, err := ComputePads(key)
	require.NoError(t, err)
	assert.Equal(t, byte(0x36^63), p.Inner[63])

	_, err = ComputePads(make([]byte, BlockSize+1))
	assert.ErrorIs(t, err, ErrKeyTooLong)
}

func TestSetKey_RefreshesPads(t *testing.T) {
	e := newSHA1(t, make([]byte, 20))

	require.NoError(t, e.SetKey(rfcKey))
	after, err := e.Generate(0, 30)
	require.NoError(t, err)

	assert.Equal(t, uint32(755224), after)
	want, err := ComputePads(rfcKey)
	require.NoError(t, err)
	assert.Equal(t, want, e.Pads())
}

func TestSetKey_TooLongKeepsOldPads(t *testing.T) {
	e := newSHA1(t, rfcKey)
	old := e.Pads()

	assert.ErrorIs(t, e.SetKey(make([]byte, 65)), ErrKeyTooLong)
	assert.Equal(t, old, e.Pads())
}

func TestNew_RejectsShortDigest(t *testing.T) {
	// md5 has a 64-byte block but only a 16-byte digest.
	_, err := New(md5.New, rfcKey)
	assert.ErrorIs(t, err, ErrDigestTooShort)
}

func TestTruncate_PanicsOnShortDigest(t *testing.T) {
	assert.Panics(t, func() { Truncate(make([]byte, 16)) })
}

func TestTruncate_MasksTopBit(t *testing.T) {
	d := make([]byte, 20)
	d[19] = 0x00 // offset 0
	d[0], d[1], d[2], d[3] = 0xFF, 0xFF, 0xFF, 0xFF
	assert.Equal(t, uint32(0x7FFFFFFF), Truncate(d))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "000000", Format(0))
	assert.Equal(t, "000042", Format(42))
	assert.Equal(t, "999999", Format(999999))
}

func TestAlgorithm_HashFunc(t *testing.T) {
	_, err := SHA1.HashFunc()
	assert.NoError(t, err)
	_, err = Algorithm("md5").HashFunc()
	assert.Error(t, err)
}
