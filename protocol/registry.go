package protocol

import (
	"log"
	"sync"
	"time"
)

// DefaultPendingTTL bounds how long an unanswered request stays registered.
const DefaultPendingTTL = 10 * time.Minute

type pendingRequest struct {
	msg    *Message
	sentAt time.Time
}

// Registry tracks outbound messages awaiting a correlated answer. Entries
// are retired when the answer arrives, when the connection is torn down
// (Clear), or by the TTL sweep, so the map stays bounded across a long
// session.
type Registry struct {
	mu      sync.Mutex
	pending map[string]pendingRequest
	ttl     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRegistry creates a registry. A non-positive ttl falls back to
// DefaultPendingTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &Registry{
		pending: make(map[string]pendingRequest),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
}

// Register stores an outbound message keyed by its own ID. Every message
// handed to the connection goes through here first.
func (r *Registry) Register(m *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[m.ID] = pendingRequest{msg: m, sentAt: time.Now()}
}

// Resolve returns the registered message an answer correlates to.
func (r *Registry) Resolve(requestID string) (*Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[requestID]
	if !ok {
		return nil, false
	}
	return p.msg, true
}

// Forget removes an entry. Called on every resolved answer.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, id)
}

// Clear drops all pending entries and returns how many were abandoned.
// Closing the connection cancels every outstanding request implicitly.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.pending)
	r.pending = make(map[string]pendingRequest)
	return n
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Sweep retires entries older than the TTL and returns how many it removed.
func (r *Registry) Sweep() int {
	cutoff := time.Now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, p := range r.pending {
		if p.sentAt.Before(cutoff) {
			delete(r.pending, id)
			n++
		}
	}
	return n
}

// StartSweeper runs a periodic Sweep until Stop is called.
func (r *Registry) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					log.Printf("protocol: swept %d expired pending requests", n)
				}
			}
		}
	}()
}

// Stop halts the sweeper.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}
