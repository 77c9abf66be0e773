package broadcast

import (
	"reflect"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ValueChangeEvent fires when a specific (flag, user) pair's evaluated
// value actually changed, as opposed to FlagChangeEvent which fires
// whenever a flag's definition changed regardless of whether that changes
// any particular user's result.
type ValueChangeEvent struct {
	FlagKey string
	UserKey string
}

// EvaluateFunc computes the current value for a (flagKey, userKey) pair.
// The broadcaster is generic over this so it never needs to import the
// evaluator or data store directly.
type EvaluateFunc func(flagKey, userKey string) any

type valueSubscription struct {
	flagKey string
	userKey string
	lastVal any
	ch      chan ValueChangeEvent
}

// ValueChangeBroadcaster watches a set of (flagKey, userKey) subscriptions
// and only notifies a listener when the value it last saw actually
// differs from the newly evaluated one — debouncing flag-definition
// changes that don't affect a given user's bucket or target membership.
type ValueChangeBroadcaster struct {
	mu            sync.Mutex
	subscriptions map[chan ValueChangeEvent][]*valueSubscription
	evaluate      EvaluateFunc
	pool          *pool.Pool
}

// NewValueChangeBroadcaster builds a broadcaster that calls evaluate to
// get the current value whenever it needs to check one of its watches.
func NewValueChangeBroadcaster(evaluate EvaluateFunc, maxGoroutines int) *ValueChangeBroadcaster {
	p := pool.New()
	if maxGoroutines > 0 {
		p = p.WithMaxGoroutines(maxGoroutines)
	}
	return &ValueChangeBroadcaster{
		subscriptions: make(map[chan ValueChangeEvent][]*valueSubscription),
		evaluate:      evaluate,
		pool:          p,
	}
}

// Watch registers ch to be notified when flagKey's value for userKey
// changes relative to its value at Watch time.
func (b *ValueChangeBroadcaster) Watch(ch chan ValueChangeEvent, flagKey, userKey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions[ch] = append(b.subscriptions[ch], &valueSubscription{
		flagKey: flagKey,
		userKey: userKey,
		lastVal: b.evaluate(flagKey, userKey),
		ch:      ch,
	})
}

// Unwatch removes every subscription registered against ch.
func (b *ValueChangeBroadcaster) Unwatch(ch chan ValueChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscriptions, ch)
}

// OnFlagsChanged re-evaluates every watch whose flagKey is in changedKeys
// and notifies listeners whose value actually moved.
func (b *ValueChangeBroadcaster) OnFlagsChanged(changedKeys []string) {
	changed := make(map[string]struct{}, len(changedKeys))
	for _, k := range changedKeys {
		changed[k] = struct{}{}
	}

	b.mu.Lock()
	var toCheck []*valueSubscription
	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			if _, ok := changed[sub.flagKey]; ok {
				toCheck = append(toCheck, sub)
			}
		}
	}
	b.mu.Unlock()

	for _, sub := range toCheck {
		sub := sub
		b.pool.Go(func() {
			newVal := b.evaluate(sub.flagKey, sub.userKey)
			b.mu.Lock()
			changed := !valuesEqual(sub.lastVal, newVal)
			sub.lastVal = newVal
			b.mu.Unlock()
			if changed {
				select {
				case sub.ch <- ValueChangeEvent{FlagKey: sub.flagKey, UserKey: sub.userKey}:
				default:
				}
			}
		})
	}
}

// Close waits for any in-flight evaluations to finish.
func (b *ValueChangeBroadcaster) Close() {
	b.pool.Wait()
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
