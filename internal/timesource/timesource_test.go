// internal/timesource/timesource_test.go
package timesource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/totp-token/internal/clock"
)

type stepCounter struct {
	overflows uint64
	ticks     uint32
	tps       uint32
	period    uint32
}

func (c *stepCounter) Read() (uint64, uint32) { return c.overflows, c.ticks }
func (c *stepCounter) TicksPerSecond() uint32 { return c.tps }
func (c *stepCounter) PeriodTicks() uint32    { return c.period }

func TestUptime_CountsFromBoot(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	u := NewUptime(clk)

	assert.Equal(t, uint64(0), u.Now())
	clk.Advance(999 * time.Millisecond)
	assert.Equal(t, uint64(0), u.Now())
	clk.Advance(time.Millisecond)
	assert.Equal(t, uint64(1), u.Now())
	clk.Advance(90 * time.Second)
	assert.Equal(t, uint64(91), u.Now())
}

func TestUptime_RestartsOnNewBoot(t *testing.T) {
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))
	u := NewUptime(clk)
	clk.Advance(100 * time.Second)
	require.Equal(t, uint64(100), u.Now())

	// a power cycle builds a new source
	assert.Equal(t, uint64(0), NewUptime(clk).Now())
	assert.True(t, StrategyUptime.ResetsOnPowerCycle())
	assert.False(t, StrategyRTC.ResetsOnPowerCycle())
}

func TestRTC_OverflowPlusFraction(t *testing.T) {
	c := &stepCounter{tps: 32768, period: 1 << 16}
	r, err := NewRTC(c)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), r.Now())

	// 3 overflows of 2 s each + 1.5 s of ticks
	c.overflows, c.ticks = 3, 32768+16384
	assert.Equal(t, uint64(7), r.Now())
}

func TestRTC_NonWholeSecondPeriodDoesNotDrift(t *testing.T) {
	// 1.5 s per overflow
	c := &stepCounter{tps: 2, period: 3}
	r, err := NewRTC(c)
	require.NoError(t, err)

	c.overflows = 3 // 4.5 s
	assert.Equal(t, uint64(4), r.Now())
	c.overflows, c.ticks = 3, 1 // 5.0 s
	assert.Equal(t, uint64(5), r.Now())
}

func TestRTC_NeverDecreases(t *testing.T) {
	c := &stepCounter{tps: 1, period: 10, overflows: 5}
	r, err := NewRTC(c)
	require.NoError(t, err)
	require.Equal(t, uint64(50), r.Now())

	c.overflows = 1
	assert.Equal(t, uint64(50), r.Now())
}

func TestNewRTC_RejectsZeroRates(t *testing.T) {
	_, err := NewRTC(&stepCounter{tps: 0, period: 1})
	assert.Error(t, err)
	_, err = NewRTC(nil)
	assert.Error(t, err)
}

func TestHostCounter_UnixEpochMatchesWallClock(t *testing.T) {
	now := time.Unix(1_111_111_109, 250_000_000)
	clk := clock.NewFake(now)

	b := Backup{Version: BackupVersion, TicksPerSecond: DefaultTicksPerSecond, PeriodTicks: DefaultPeriodTicks}
	r, err := NewRTC(NewHostCounter(clk, b))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_111_111_109), r.Now())

	// keeps advancing while "asleep"
	clk.Advance(8 * time.Second)
	assert.Equal(t, uint64(1_111_111_117), r.Now())
}

func TestBackup_FirstBootThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtc.cbor")
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))

	b, created, err := LoadOrInitBackup(path, clk, EpochFirstBoot, DefaultTicksPerSecond, DefaultPeriodTicks)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, clk.Now().UnixNano(), b.EpochUnixNano)

	clk.Advance(45 * time.Second)

	// "power cycle": reload keeps the epoch, the counter continues
	b2, created, err := LoadOrInitBackup(path, clk, EpochFirstBoot, DefaultTicksPerSecond, DefaultPeriodTicks)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, b, b2)

	r, err := NewRTC(NewHostCounter(clk, b2))
	require.NoError(t, err)
	assert.Equal(t, uint64(45), r.Now())
}

func TestBackup_UnixEpoch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtc.cbor")
	clk := clock.NewFake(time.Unix(1_700_000_000, 0))

	b, _, err := LoadOrInitBackup(path, clk, EpochUnix, DefaultTicksPerSecond, DefaultPeriodTicks)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.EpochUnixNano)
}

func TestBackup_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtc.cbor")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0x00}, 0o600))

	_, _, err := LoadOrInitBackup(path, clock.System{}, EpochUnix, 1, 1)
	assert.Error(t, err)
}

func TestBackup_UnknownEpoch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtc.cbor")
	_, _, err := LoadOrInitBackup(path, clock.System{}, Epoch("lunar"), 1, 1)
	assert.Error(t, err)
}

func TestNewBackup_RejectsZeroRates(t *testing.T) {
	_, err := NewBackup(clock.System{}, EpochUnix, 0, DefaultPeriodTicks)
	assert.Error(t, err)

	b, err := NewBackup(clock.NewFake(time.Unix(10, 0)), EpochFirstBoot, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(10, 0).UnixNano(), b.EpochUnixNano)
}
