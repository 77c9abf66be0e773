package datasourceupdates

import "sync"

// StatusListener receives a copy of Status each time it changes.
type StatusListener chan Status

// statusBroadcaster is a direct generalization of the teacher's
// subscribe/publish snapshot-notification pair: one mutex-guarded set of
// channels, non-blocking send so a stalled listener can't back up the
// coordinator.
type statusBroadcaster struct {
	mu   sync.Mutex
	subs map[StatusListener]struct{}
}

func newStatusBroadcaster() *statusBroadcaster {
	return &statusBroadcaster{subs: make(map[StatusListener]struct{})}
}

func (b *statusBroadcaster) Subscribe() (StatusListener, func()) {
	ch := make(StatusListener, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsub
}

func (b *statusBroadcaster) publish(status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- status:
		default:
		}
	}
}
