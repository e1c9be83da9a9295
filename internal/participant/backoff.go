package participant

import (
	"math/rand"
	"time"
)

// backoff implements capped exponential backoff with jitter: base 1s,
// cap 30s, per the driver's resolution of "participant poll failure
// handling is unspecified". It is distinct from the fixed 1-second status
// poll cadence: this only governs retries after a transport-level failure
// talking to the coordinator, never a successful poll that simply reports
// a non-terminal status. Peer share fetches retry on the fixed 1-second
// cadence instead.
type backoff struct {
	base    time.Duration
	cap     time.Duration
	attempt int
}

func newBackoff() *backoff {
	return &backoff{base: time.Second, cap: 30 * time.Second}
}

func (b *backoff) next() time.Duration {
	d := b.base << uint(min(b.attempt, 10))
	if d > b.cap || d <= 0 {
		d = b.cap
	}
	b.attempt++
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}

func (b *backoff) reset() { b.attempt = 0 }
