// internal/provision/host.go
package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

var ErrCommitFailed = errors.New("provision: device could not store key")

// Frame builds the wire frame for key.
func Frame(key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, Sentinel)
	return append(out, key...)
}

// Send writes the frame for key to w and waits on rx for the device's
// acknowledgment. Non-acknowledgment lines (banners, ignored-byte echoes)
// are passed to onLine when it is non-nil and otherwise skipped.
//
// A saved acknowledgment whose echoed key differs from key is an error.
func Send(ctx context.Context, w io.Writer, rx <-chan byte, key []byte, onLine func(string)) error {
	if _, err := w.Write(Frame(key)); err != nil {
		return fmt.Errorf("provision: write frame: %w", err)
	}

	var line []byte
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("provision: waiting for acknowledgment: %w", ctx.Err())

		case b, ok := <-rx:
			if !ok {
				return fmt.Errorf("provision: channel closed: %w", io.ErrUnexpectedEOF)
			}
			line = append(line, b)

			// the saved echo may contain CR/LF bytes of the key itself,
			// so a saved line is complete only at its full length
			if bytes.HasPrefix(line, []byte(PrefixSaved)) {
				if len(line) < len(PrefixSaved)+len(key)+len(crlf) {
					continue
				}
			} else if b != '\n' {
				continue
			}

			ack, err := ParseAck(line)
			text := string(bytes.TrimRight(line, "\r\n"))
			line = line[:0]
			if err != nil {
				if onLine != nil {
					onLine(text)
				}
				continue
			}

			switch ack.Kind {
			case KindSaved:
				if !bytes.Equal(ack.Key, key) {
					return fmt.Errorf("provision: device echoed a different key")
				}
				return nil
			case KindTimeout:
				return ErrTimeout
			case KindCommitFailed:
				return ErrCommitFailed
			default:
				if onLine != nil {
					onLine(text)
				}
			}
		}
	}
}
