// internal/display/display.go

// Package display is the display surface contract: render up to a few short
// lines full-screen, or clear. Pixel rendering belongs to the panel driver.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Surface is the display panel.
type Surface interface {
	Show(lines ...string) error
	Clear() error
}

// MaxLines is the number of text rows the panel holds.
const MaxLines = 3

// RenderKey renders a key for humans: zero bytes as '-', non-printable
// bytes as '.', split into lines of width characters.
func RenderKey(key []byte, width int) []string {
	if width <= 0 {
		width = len(key)
	}

	r := make([]byte, len(key))
	for i, b := range key {
		switch {
		case b == 0x00:
			r[i] = '-'
		case b >= 32 && b < 127:
			r[i] = b
		default:
			r[i] = '.'
		}
	}

	var out []string
	for start := 0; start < len(r); start += width {
		end := start + width
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[start:end]))
	}
	return out
}

// Console draws the panel as text frames on a writer.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Show(lines ...string) error {
	if len(lines) > MaxLines {
		lines = lines[:MaxLines]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "[display] %s\n", strings.Join(lines, " | "))
	return err
}

func (c *Console) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintln(c.w, "[display] (blank)")
	return err
}

// Recorder keeps every frame; used by tests and the simulator.
type Recorder struct {
	mu     sync.Mutex
	frames [][]string
}

func (r *Recorder) Show(lines ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, append([]string(nil), lines...))
	return nil
}

func (r *Recorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames = append(r.frames, nil)
	return nil
}

// Frames returns all frames; a nil frame is a clear.
func (r *Recorder) Frames() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([][]string(nil), r.frames...)
}

// Current returns the last frame, nil if blank or never drawn.
func (r *Recorder) Current() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}
