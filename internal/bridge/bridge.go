// internal/bridge/bridge.go

// Package bridge relays raw bytes between the external terminal and the
// secure element. It has no framing logic: every byte is forwarded
// verbatim, one at a time, in both directions.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/tamzrod/totp-token/internal/serialport"
)

// Direction names a relay leg.
type Direction string

const (
	TerminalToElement Direction = "terminal->element"
	ElementToTerminal Direction = "element->terminal"
)

// Stats counts forwarded bytes per direction.
type Stats struct {
	ToElement  uint64
	ToTerminal uint64
}

// Relay forwards bytes both ways until ctx ends or either side stops.
// A side reaching EOF ends the relay. The other leg exits at its next
// byte or read timeout.
func Relay(ctx context.Context, terminal, element io.ReadWriter) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var toElement, toTerminal atomic.Uint64
	done := make(chan error, 2)

	go func() {
		done <- wrap(TerminalToElement, copyBytes(ctx, element, terminal, &toElement))
	}()
	go func() {
		done <- wrap(ElementToTerminal, copyBytes(ctx, terminal, element, &toTerminal))
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
	}

	return Stats{ToElement: toElement.Load(), ToTerminal: toTerminal.Load()}, err
}

func wrap(dir Direction, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("bridge: %s: %w", dir, err)
}

// copyBytes forwards src to dst one byte at a time.
func copyBytes(ctx context.Context, dst io.Writer, src io.Reader, n *atomic.Uint64) error {
	var b [1]byte

	for {
		if ctx.Err() != nil {
			return nil
		}

		k, err := src.Read(b[:])
		if k == 1 {
			if _, werr := dst.Write(b[:]); werr != nil {
				return werr
			}
			n.Inc()
		}

		switch {
		case err == nil:
		case serialport.IsTimeout(err):
		case errors.Is(err, io.EOF):
			slog.Debug("bridge side closed", "forwarded", n.Load())
			return nil
		default:
			return err
		}
	}
}
