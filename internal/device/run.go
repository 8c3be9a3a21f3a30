// internal/device/run.go
package device

import (
	"context"
	"time"
)

// Run boots the device and drives the state machine until ctx is done.
//
// The loop blocks with no timer while DORMANT: only a button edge, a
// received byte or cancellation wakes it. rx may be closed (serial line
// gone); the device then keeps serving the button.
func (d *Device) Run(ctx context.Context, rx <-chan byte) error {
	d.Boot()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		now := d.clk.Now()
		d.Step(now)

		var timerC <-chan time.Time
		if at, ok := d.NextWake(now); ok {
			timer.Reset(max(at.Sub(now), 0))
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			d.clear()
			d.log.Info("token stopped", "state", d.state.String())
			return nil

		case <-d.wake.Notify():

		case b, ok := <-rx:
			if !ok {
				d.log.Warn("serial receive channel closed")
				rx = nil
				continue
			}
			d.Receive(b)
			d.drain(rx)

		case <-timerC:
		}
	}
}

// drain moves already-arrived bytes into the queue without blocking.
func (d *Device) drain(rx <-chan byte) {
	for len(d.queue) < d.cfg.RXQueue {
		select {
		case b, ok := <-rx:
			if !ok {
				return
			}
			d.Receive(b)
		default:
			return
		}
	}
}
