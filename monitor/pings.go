package monitor

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// defaultPingTimeout is how long a ping may stay unanswered before it
// expires with a warning.
const defaultPingTimeout = 5 * time.Second

type pendingPing struct {
	serviceName string
	sentAt      time.Time
	timer       *time.Timer
}

// pingTracker correlates outbound pings with inbound results by pingId.
// Resolution and expiry race on the pending map; whichever removes the
// entry first wins and the loser is a no-op.
type pingTracker struct {
	mu      sync.Mutex
	pending map[string]*pendingPing
	timeout time.Duration
	now     func() time.Time
}

func newPingTracker(timeout time.Duration) *pingTracker {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return &pingTracker{
		pending: make(map[string]*pendingPing),
		timeout: timeout,
		now:     time.Now,
	}
}

// newPingID builds a correlation id unlikely to collide across rapid calls.
func newPingID() string {
	return fmt.Sprintf("%d-%04d", time.Now().UnixNano(), rand.Intn(10000))
}

// track records a pending ping and arms its expiry timer. onTimeout runs at
// most once, and never after resolve or remove has consumed the entry.
func (t *pingTracker) track(serviceName, pingID string, onTimeout func(serviceName string)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := &pendingPing{serviceName: serviceName, sentAt: t.now()}
	p.timer = time.AfterFunc(t.timeout, func() {
		t.expire(pingID, onTimeout)
	})
	t.pending[pingID] = p
}

func (t *pingTracker) expire(pingID string, onTimeout func(serviceName string)) {
	t.mu.Lock()
	p, ok := t.pending[pingID]
	if !ok {
		// Already resolved or removed; the late timer is a no-op.
		t.mu.Unlock()
		return
	}
	delete(t.pending, pingID)
	t.mu.Unlock()

	if onTimeout != nil {
		onTimeout(p.serviceName)
	}
}

// resolve consumes the pending entry for pingID and returns the measured
// round-trip latency in milliseconds. ok is false if the entry already
// expired or never existed.
func (t *pingTracker) resolve(pingID string) (serviceName string, latencyMS float64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, found := t.pending[pingID]
	if !found {
		return "", 0, false
	}
	delete(t.pending, pingID)
	p.timer.Stop()
	return p.serviceName, float64(t.now().Sub(p.sentAt)) / float64(time.Millisecond), true
}

// remove drops a pending entry without side effects, for cleanup after a
// failed invoke.
func (t *pingTracker) remove(pingID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pending[pingID]; ok {
		p.timer.Stop()
		delete(t.pending, pingID)
	}
}

// cancelAll stops every outstanding timer, for teardown.
func (t *pingTracker) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, p := range t.pending {
		p.timer.Stop()
		delete(t.pending, id)
	}
}

func (t *pingTracker) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

func (t *pingTracker) isPending(pingID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[pingID]
	return ok
}
