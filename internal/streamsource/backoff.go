package streamsource

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	// resetThreshold: a connection held open this long is considered
	// "sustained" and resets the backoff sequence back to the base delay.
	resetThreshold = 60 * time.Second
)

// decorrelatedJitterBackoff wraps backoff.ExponentialBackOff's bookkeeping
// but replaces its delay formula with AWS's decorrelated-jitter algorithm:
// next = min(cap, random_between(base, prev*3)). The first attempt of a
// sequence fires with zero delay: that is the initial connection after
// Start, or the first reconnect after Reset (which follows a sustained
// connection). A drop after a short-lived connection waits the jittered
// delay.
type decorrelatedJitterBackoff struct {
	inner     *backoff.ExponentialBackOff
	prevDelay time.Duration
	attempts  int
}

func newDecorrelatedJitterBackoff() *decorrelatedJitterBackoff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = reconnectBaseDelay
	b.MaxInterval = reconnectMaxDelay
	return &decorrelatedJitterBackoff{inner: b}
}

// Next returns the delay before the next reconnect attempt.
func (d *decorrelatedJitterBackoff) Next() time.Duration {
	d.attempts++
	if d.attempts == 1 {
		return 0
	}

	base := reconnectBaseDelay
	upper := d.prevDelay * 3
	if upper < base {
		upper = base
	}
	if upper > reconnectMaxDelay {
		upper = reconnectMaxDelay
	}

	delay := base + time.Duration(rand.Int63n(int64(upper-base+1)))
	if delay > reconnectMaxDelay {
		delay = reconnectMaxDelay
	}
	d.prevDelay = delay
	return delay
}

// Reset clears the backoff sequence, called after a connection has stayed
// up long enough to be considered healthy again.
func (d *decorrelatedJitterBackoff) Reset() {
	d.attempts = 0
	d.prevDelay = 0
	d.inner.Reset()
}
