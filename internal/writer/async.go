// internal/writer/async.go
package writer

import (
	"context"
	"log/slog"
	"time"

	"github.com/tamzrod/totp-token/internal/status"
)

// retryInterval is how often an undelivered snapshot is retried.
const retryInterval = time.Second

// Async decouples the state machine from the status endpoint.
// WriteStatus never blocks: only the latest snapshot is kept, and Run
// delivers it from its own goroutine.
type Async struct {
	w      StatusWriter
	latest chan status.Snapshot
}

func NewAsync(w StatusWriter) *Async {
	return &Async{
		w:      w,
		latest: make(chan status.Snapshot, 1),
	}
}

// WriteStatus replaces any undelivered snapshot with s.
// There is exactly one producer (the state machine goroutine).
func (a *Async) WriteStatus(s status.Snapshot) error {
	for {
		select {
		case a.latest <- s:
			return nil
		default:
		}
		select {
		case <-a.latest:
		default:
		}
	}
}

// Run delivers snapshots until ctx is done. A failed delivery is retried
// on a 1 Hz ticker unless a newer snapshot arrives first.
func (a *Async) Run(ctx context.Context) {
	t := time.NewTicker(retryInterval)
	defer t.Stop()

	var pending *status.Snapshot

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-a.latest:
			pending = &s

		case <-t.C:
			if pending == nil {
				continue
			}
		}

		if err := a.w.WriteStatus(*pending); err != nil {
			slog.Warn("status write failed", "error", err)
			continue
		}
		pending = nil
	}
}
