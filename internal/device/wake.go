// internal/device/wake.go
package device

import "go.uber.org/atomic"

// WakeFlag is the button latch.
//
// Interrupt is the only operation allowed from interrupt context (signal
// handler, stdin reader): it sets the flag and pokes the notify channel
// without blocking. Any number of edges before the next Consume collapse
// into one observation.
type WakeFlag struct {
	pending atomic.Bool
	edges   atomic.Uint64
	notify  chan struct{}
}

func NewWakeFlag() *WakeFlag {
	return &WakeFlag{notify: make(chan struct{}, 1)}
}

// Interrupt records one button edge.
func (w *WakeFlag) Interrupt() {
	w.edges.Inc()
	w.pending.Store(true)

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Consume clears the flag and reports whether it was set.
func (w *WakeFlag) Consume() bool {
	return w.pending.Swap(false)
}

// Pending reports the flag without clearing it.
func (w *WakeFlag) Pending() bool {
	return w.pending.Load()
}

// Edges is the number of raw edges seen since boot.
func (w *WakeFlag) Edges() uint64 {
	return w.edges.Load()
}

// Notify fires at least once after any Interrupt.
func (w *WakeFlag) Notify() <-chan struct{} {
	return w.notify
}
