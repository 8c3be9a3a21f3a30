// internal/serialport/pump.go
package serialport

import (
	"context"
	"errors"
	"io"
)

// Pump moves bytes from a blocking reader onto a channel, one byte per
// send, preserving order. Read timeouts are not errors.
type Pump struct {
	r   io.Reader
	buf []byte
}

// NewPump reads up to chunk bytes per read call.
func NewPump(r io.Reader, chunk int) *Pump {
	if chunk <= 0 {
		chunk = 64
	}
	return &Pump{r: r, buf: make([]byte, chunk)}
}

// Run reads until ctx ends or the reader fails. It closes out on return.
// One goroutine per port. No retries.
func (p *Pump) Run(ctx context.Context, out chan<- byte) error {
	defer close(out)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		n, err := p.r.Read(p.buf)
		for i := 0; i < n; i++ {
			select {
			case out <- p.buf[i]:
			case <-ctx.Done():
				return nil
			}
		}

		switch {
		case err == nil:
		case IsTimeout(err):
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}
