// internal/serialport/port.go

// Package serialport opens the byte channels the token talks over and turns
// blocking ports into byte streams for the cooperative main loop.
package serialport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goburrow/serial"
	"github.com/sethvargo/go-retry"
)

// Config is minimal transport config.
type Config struct {
	// Address is the device path. Empty means stdin/stdout.
	Address  string
	BaudRate int
	Timeout  time.Duration
}

// Port is a duplex byte channel.
type Port interface {
	io.ReadWriteCloser
}

// Open opens the port once. 8N1 framing is fixed.
func Open(cfg Config) (Port, error) {
	if cfg.Address == "" {
		return Stdio(), nil
	}
	if cfg.BaudRate <= 0 {
		return nil, errors.New("serialport: baud rate must be > 0")
	}

	return serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
}

// OpenWithRetry retries Open with capped exponential backoff until it
// succeeds, attempts are exhausted or ctx ends. USB serial adapters often
// appear a moment after the host process starts.
func OpenWithRetry(ctx context.Context, cfg Config, attempts uint64) (Port, error) {
	var p Port

	b := retry.NewExponential(100 * time.Millisecond)
	b = retry.WithCappedDuration(2*time.Second, b)
	b = retry.WithMaxRetries(attempts, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		p, err = Open(cfg)
		if err != nil {
			slog.Warn("serial open failed", "address", cfg.Address, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// IsTimeout reports whether err is a read timeout with no data, which the
// port returns instead of blocking forever.
func IsTimeout(err error) bool {
	return errors.Is(err, serial.ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded)
}

type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

// Stdio is the process's stdin/stdout as a port.
func Stdio() Port {
	return stdio{Reader: os.Stdin, Writer: os.Stdout}
}
