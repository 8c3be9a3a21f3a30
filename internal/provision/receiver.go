// internal/provision/receiver.go

// Package provision implements the key provisioning protocol.
//
// Wire framing (terminal -> secure element):
//
//	[0xAA][key_byte_0]...[key_byte_N-1]
//
// The secure element accepts a frame only when all N bytes arrive within
// the deadline after the sentinel. Partial frames are dropped, never
// committed. Acknowledgments are human-readable CRLF lines (see ack.go).
package provision

import (
	"errors"
	"time"
)

// Sentinel starts a provisioning frame.
const Sentinel byte = 0xAA

// DefaultTimeout is the frame collection window after the sentinel.
const DefaultTimeout = 2000 * time.Millisecond

var ErrTimeout = errors.New("provision: frame timeout")

// Phase is the receiver state.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseCollecting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseCollecting:
		return "COLLECTING"
	default:
		return "UNKNOWN"
	}
}

// Kind classifies a receiver outcome.
type Kind uint8

const (
	KindSaved Kind = iota + 1
	KindTimeout
	KindIgnored
	KindCommitFailed
)

func (k Kind) String() string {
	switch k {
	case KindSaved:
		return "SAVED"
	case KindTimeout:
		return "TIMEOUT"
	case KindIgnored:
		return "IGNORED"
	case KindCommitFailed:
		return "COMMIT_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is one receiver outcome. Key is set for KindSaved only.
type Event struct {
	Kind    Kind
	Key     []byte
	Byte    byte
	Written int
	Err     error
}

// CommitFunc durably stores a complete key and refreshes anything derived
// from it. It returns the number of physical byte writes.
// It must not return before the key is durable.
type CommitFunc func(key []byte) (int, error)

// Receiver is the secure-element side frame state machine.
// It never blocks: bytes are fed in as they arrive and the deadline is
// checked against the caller's clock on every Feed / Expire.
type Receiver struct {
	keyLen  int
	timeout time.Duration
	commit  CommitFunc

	phase    Phase
	buf      []byte
	deadline time.Time
}

// NewReceiver builds a receiver for keyLen-byte frames.
func NewReceiver(keyLen int, timeout time.Duration, commit CommitFunc) (*Receiver, error) {
	if keyLen <= 0 {
		return nil, errors.New("provision: key length must be > 0")
	}
	if timeout <= 0 {
		return nil, errors.New("provision: timeout must be > 0")
	}
	if commit == nil {
		return nil, errors.New("provision: commit func required")
	}
	return &Receiver{
		keyLen:  keyLen,
		timeout: timeout,
		commit:  commit,
		buf:     make([]byte, 0, keyLen),
	}, nil
}

func (r *Receiver) Phase() Phase { return r.phase }

// Deadline is the collection deadline; zero when idle.
func (r *Receiver) Deadline() time.Time {
	if r.phase != PhaseCollecting {
		return time.Time{}
	}
	return r.deadline
}

// Expire drops an in-flight frame whose deadline has passed.
// Returns true and a timeout event if a frame was dropped.
func (r *Receiver) Expire(now time.Time) (Event, bool) {
	if r.phase != PhaseCollecting || now.Before(r.deadline) {
		return Event{}, false
	}
	r.reset()
	return Event{Kind: KindTimeout, Err: ErrTimeout}, true
}

// Feed processes one received byte. A byte arriving after the deadline
// first expires the pending frame and is then handled as an idle byte,
// so up to two events are returned.
func (r *Receiver) Feed(b byte, now time.Time) []Event {
	var out []Event
	if ev, ok := r.Expire(now); ok {
		out = append(out, ev)
	}

	switch r.phase {
	case PhaseIdle:
		if b != Sentinel {
			return append(out, Event{Kind: KindIgnored, Byte: b})
		}
		r.phase = PhaseCollecting
		r.deadline = now.Add(r.timeout)
		r.buf = r.buf[:0]
		return out

	case PhaseCollecting:
		r.buf = append(r.buf, b)
		if len(r.buf) < r.keyLen {
			return out
		}

		// all-or-nothing: only a complete frame reaches the store
		key := make([]byte, r.keyLen)
		copy(key, r.buf)
		r.reset()

		written, err := r.commit(key)
		if err != nil {
			return append(out, Event{Kind: KindCommitFailed, Written: written, Err: err})
		}
		return append(out, Event{Kind: KindSaved, Key: key, Written: written})
	}

	return out
}

func (r *Receiver) reset() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.buf = r.buf[:0]
	r.phase = PhaseIdle
	r.deadline = time.Time{}
}
