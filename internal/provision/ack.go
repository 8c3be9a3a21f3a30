// internal/provision/ack.go
package provision

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Acknowledgment line prefixes (device -> host).
const (
	PrefixSaved      = "Key saved: "
	PrefixIgnored    = "Ignored Hex: "
	PrefixCurrentKey = "Current key: "
	LineTimeout      = "Timeout"
	LineStoreError   = "Store error"
	LineAlive        = "Token alive"
)

const crlf = "\r\n"

var ErrMalformedAck = errors.New("provision: malformed acknowledgment")

// EncodeAck renders an event as its wire acknowledgment.
// The saved line echoes the raw key bytes verbatim.
func EncodeAck(ev Event) []byte {
	switch ev.Kind {
	case KindSaved:
		out := make([]byte, 0, len(PrefixSaved)+len(ev.Key)+len(crlf))
		out = append(out, PrefixSaved...)
		out = append(out, ev.Key...)
		return append(out, crlf...)
	case KindTimeout:
		return []byte(LineTimeout + crlf)
	case KindIgnored:
		return []byte(PrefixIgnored + strings.ToUpper(strconv.FormatUint(uint64(ev.Byte), 16)) + crlf)
	case KindCommitFailed:
		return []byte(LineStoreError + crlf)
	default:
		return nil
	}
}

// Ack is a parsed device line.
type Ack struct {
	Kind Kind
	Key  []byte // KindSaved: echoed raw key
	Byte byte   // KindIgnored
}

// ParseAck parses one line (with or without the trailing CRLF).
// Lines that are not acknowledgments (banners, diagnostics) return
// ErrMalformedAck.
func ParseAck(line []byte) (Ack, error) {
	s := strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r")

	switch {
	case strings.HasPrefix(s, PrefixSaved):
		return Ack{Kind: KindSaved, Key: []byte(s[len(PrefixSaved):])}, nil
	case s == LineTimeout:
		return Ack{Kind: KindTimeout}, nil
	case s == LineStoreError:
		return Ack{Kind: KindCommitFailed}, nil
	case strings.HasPrefix(s, PrefixIgnored):
		v, err := strconv.ParseUint(s[len(PrefixIgnored):], 16, 8)
		if err != nil {
			return Ack{}, fmt.Errorf("%w: %q", ErrMalformedAck, s)
		}
		return Ack{Kind: KindIgnored, Byte: byte(v)}, nil
	default:
		return Ack{}, fmt.Errorf("%w: %q", ErrMalformedAck, s)
	}
}
