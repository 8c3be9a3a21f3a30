// internal/device/wake_test.go
package device

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWakeFlag_EdgesCoalesce(t *testing.T) {
	w := NewWakeFlag()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Interrupt()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), w.Edges())
	assert.True(t, w.Consume())
	assert.False(t, w.Consume())
}

func TestWakeFlag_NotifyNeverBlocks(t *testing.T) {
	w := NewWakeFlag()

	w.Interrupt()
	w.Interrupt()

	select {
	case <-w.Notify():
	default:
		t.Fatal("expected a notification")
	}

	select {
	case <-w.Notify():
		t.Fatal("notifications must coalesce")
	default:
	}

	assert.True(t, w.Pending())
}
