// internal/timesource/source.go

// Package timesource produces the elapsed-seconds counter the OTP engine is
// driven by. Two strategies exist:
//
//   - Uptime: seconds since this process (power cycle) started. Resets on
//     every boot, so codes only agree with a verifier that resynchronizes
//     per session.
//   - RTC: a backed-up real-time counter that keeps advancing while the
//     device sleeps and across restarts. This is the reference strategy.
package timesource

import "time"

// Source returns seconds since the source's epoch.
// Successive calls never decrease.
type Source interface {
	Now() uint64
}

// Strategy names a time source implementation.
type Strategy string

const (
	StrategyUptime Strategy = "uptime"
	StrategyRTC    Strategy = "rtc"
)

// ResetsOnPowerCycle reports whether codes restart from counter 0 at every boot.
func (s Strategy) ResetsOnPowerCycle() bool {
	return s == StrategyUptime
}

// secondsSince converts a non-negative duration to whole seconds.
func secondsSince(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}
