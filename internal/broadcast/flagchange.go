// Package broadcast fans out data-source events to registered listeners
// without ever holding the coordinator's lock while a listener runs: each
// notification is handed to a bounded worker pool so one slow listener
// can't stall the writer that produced the event.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// FlagChangeEvent names one flag whose evaluation result may have changed.
type FlagChangeEvent struct {
	Key string
}

// FlagChangeListener receives one event per notified change.
type FlagChangeListener chan FlagChangeEvent

// FlagChangeBroadcaster dispatches flag-change events to any number of
// registered listeners, each on its own buffered channel so a listener that
// stops reading only drops its own notifications, not anyone else's.
type FlagChangeBroadcaster struct {
	mu        sync.Mutex
	listeners map[chan FlagChangeEvent]struct{}
	pool      *pool.Pool
	closed    int32
}

// NewFlagChangeBroadcaster builds a broadcaster whose dispatch pool never
// runs more than maxGoroutines notifications concurrently.
func NewFlagChangeBroadcaster(maxGoroutines int) *FlagChangeBroadcaster {
	p := pool.New()
	if maxGoroutines > 0 {
		p = p.WithMaxGoroutines(maxGoroutines)
	}
	return &FlagChangeBroadcaster{
		listeners: make(map[chan FlagChangeEvent]struct{}),
		pool:      p,
	}
}

// AddListener registers ch to receive future flag-change events. The
// caller owns ch and should stop reading only after calling RemoveListener.
func (b *FlagChangeBroadcaster) AddListener(ch chan FlagChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[ch] = struct{}{}
}

// RemoveListener unregisters ch. Safe to call more than once.
func (b *FlagChangeBroadcaster) RemoveListener(ch chan FlagChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, ch)
}

// Broadcast notifies every registered listener of the given keys, one
// dispatch goroutine per listener, never blocking the caller on a slow
// reader (a full channel just skips that listener for this round).
func (b *FlagChangeBroadcaster) Broadcast(keys []string) {
	if atomic.LoadInt32(&b.closed) != 0 || len(keys) == 0 {
		return
	}

	b.mu.Lock()
	targets := make([]chan FlagChangeEvent, 0, len(b.listeners))
	for ch := range b.listeners {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		ch := ch
		b.pool.Go(func() {
			for _, key := range keys {
				select {
				case ch <- FlagChangeEvent{Key: key}:
				default:
				}
			}
		})
	}
}

// Close stops accepting further broadcasts and waits for in-flight
// dispatches to finish. Safe to call more than once.
func (b *FlagChangeBroadcaster) Close() {
	if !atomic.CompareAndSwapInt32(&b.closed, 0, 1) {
		return
	}
	b.pool.Wait()
}
