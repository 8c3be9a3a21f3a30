// internal/timesource/uptime.go
package timesource

import (
	"sync"
	"time"

	"github.com/tamzrod/totp-token/internal/clock"
)

// Uptime counts seconds since construction.
type Uptime struct {
	mu   sync.Mutex
	clk  clock.Clocker
	boot time.Time
	last uint64
}

func NewUptime(clk clock.Clocker) *Uptime {
	return &Uptime{clk: clk, boot: clk.Now()}
}

func (u *Uptime) Now() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := secondsSince(u.clk.Now().Sub(u.boot))
	if s < u.last {
		return u.last
	}
	u.last = s
	return s
}
