// internal/clock/clock.go

// Package clock abstracts wall and monotonic time so the state machine,
// the provisioning deadline and the time sources can be driven by tests.
package clock

import (
	"sync"
	"time"
)

// Clocker is the only way the device reads time.
type Clocker interface {
	Now() time.Time
}

// System is the production clock backed by time.Now.
// time.Now carries a monotonic reading, so deadline comparisons made with
// Sub/After are immune to wall-clock steps.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fake is a manually advanced clock.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (f *Fake) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
