// internal/timesource/rtc.go
package timesource

import (
	"errors"
	"sync"
	"time"

	"github.com/tamzrod/totp-token/internal/clock"
)

// DefaultTicksPerSecond is a 32.768 kHz watch crystal.
const DefaultTicksPerSecond = 32768

// DefaultPeriodTicks is one overflow of a 16-bit counter.
const DefaultPeriodTicks = 1 << 16

// Counter is the hardware real-time counter: a free-running tick counter
// of PeriodTicks() ticks that raises an overflow per wrap.
type Counter interface {
	Read() (overflows uint64, ticks uint32)
	TicksPerSecond() uint32
	PeriodTicks() uint32
}

// RTC reads a Counter as
// accumulated_overflow_seconds + fractional_ticks / ticks_per_second.
type RTC struct {
	mu   sync.Mutex
	c    Counter
	last uint64
}

func NewRTC(c Counter) (*RTC, error) {
	if c == nil {
		return nil, errors.New("timesource: nil counter")
	}
	if c.TicksPerSecond() == 0 || c.PeriodTicks() == 0 {
		return nil, errors.New("timesource: counter rates must be > 0")
	}
	return &RTC{c: c}, nil
}

func (r *RTC) Now() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	overflows, ticks := r.c.Read()
	tps := uint64(r.c.TicksPerSecond())
	period := uint64(r.c.PeriodTicks())

	// overflow seconds keep their fractional remainder so that periods which
	// are not whole seconds do not drift
	total := overflows*period + uint64(ticks)
	s := total / tps

	if s < r.last {
		return r.last
	}
	r.last = s
	return s
}

// HostCounter emulates a backed-up RTC on a host: the tick count is the
// time elapsed since the backup epoch. The epoch is persisted, so the
// counter keeps advancing across restarts.
type HostCounter struct {
	clk    clock.Clocker
	epoch  time.Time
	tps    uint32
	period uint32
}

// NewHostCounter builds a counter from a loaded backup domain.
func NewHostCounter(clk clock.Clocker, b Backup) *HostCounter {
	return &HostCounter{
		clk:    clk,
		epoch:  time.Unix(0, b.EpochUnixNano),
		tps:    b.TicksPerSecond,
		period: b.PeriodTicks,
	}
}

func (h *HostCounter) Read() (uint64, uint32) {
	d := h.clk.Now().Sub(h.epoch)
	if d < 0 {
		return 0, 0
	}

	// split into whole seconds and sub-second nanos to avoid overflowing
	// d*tps for large epochs
	secs := uint64(d / time.Second)
	nanos := uint64(d % time.Second)
	total := secs*uint64(h.tps) + nanos*uint64(h.tps)/uint64(time.Second)

	p := uint64(h.period)
	return total / p, uint32(total % p)
}

func (h *HostCounter) TicksPerSecond() uint32 { return h.tps }
func (h *HostCounter) PeriodTicks() uint32    { return h.period }
