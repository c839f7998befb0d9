package guardrail

import (
	"sync"
	"time"
)

// BlastRadius tracks the targets currently being remediated. Any entry in
// the set blocks every new remediation, regardless of target: the fleet
// allows exactly one autonomous action in flight.
//
// It is a soft mutex rather than a blocking lock because verification
// spans a real-world delay during which other detections must keep
// flowing. Entries older than staleAfter are force-cleared so an
// execution that never completed cannot deadlock the fleet forever.
type BlastRadius struct {
	mu         sync.Mutex
	active     map[string]time.Time
	staleAfter time.Duration
	now        func() time.Time
}

// NewBlastRadius creates an empty blast-radius set
func NewBlastRadius(staleAfter time.Duration) *BlastRadius {
	return &BlastRadius{
		active:     make(map[string]time.Time),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Acquire marks the target active if and only if nothing else is. The
// check and the insert happen under one lock, so two near-simultaneous
// incidents cannot both acquire.
func (b *BlastRadius) Acquire(targetID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneStale()
	if len(b.active) > 0 {
		return false
	}
	b.active[targetID] = b.now()
	return true
}

// Release removes the target from the active set. Safe to call for a
// target that was already force-cleared.
func (b *BlastRadius) Release(targetID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.active, targetID)
}

// Busy reports whether any remediation is currently active
func (b *BlastRadius) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneStale()
	return len(b.active) > 0
}

// ActiveCount returns the number of active remediations (0 or 1 in
// normal operation)
func (b *BlastRadius) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneStale()
	return len(b.active)
}

// pruneStale force-clears entries older than the staleness timeout.
// Callers must hold the mutex.
func (b *BlastRadius) pruneStale() {
	cutoff := b.now().Add(-b.staleAfter)
	for target, acquired := range b.active {
		if !acquired.After(cutoff) {
			delete(b.active, target)
		}
	}
}
