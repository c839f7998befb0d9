package guardrail

import (
	"sync"
	"time"

	"github.com/amazing2000zame-hub/Ousmane-Deme-sub005/pkg/storage"
)

// RateLimiter enforces a sliding-window cap on remediation attempts per
// incident key. Windows are wall-clock based; a clock adjustment shifts
// them, which is acceptable at this human timescale.
//
// State is process-local. Rehydrate rebuilds it from the audit log so a
// restart does not forget an exhausted (escalated) incident key.
type RateLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxAttempts int
	attempts    map[string][]time.Time
	escalated   map[string]time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing maxAttempts per window per key
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window:      window,
		maxAttempts: maxAttempts,
		attempts:    make(map[string][]time.Time),
		escalated:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether another attempt for the key fits in the window
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(key)
	return len(l.attempts[key]) < l.maxAttempts
}

// Record counts one executed attempt against the key. Called for every
// dispatch, success or failure; guardrail blocks are not recorded.
func (l *RateLimiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(key)
	l.attempts[key] = append(l.attempts[key], l.now())
}

// Attempts returns the number of attempts for the key inside the window
func (l *RateLimiter) Attempts(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(key)
	return len(l.attempts[key])
}

// MarkEscalated records that the key has escalated and reports whether
// this is the first escalation inside the current window. Callers use the
// return value to guarantee exactly one escalation notification per key
// per window.
func (l *RateLimiter) MarkEscalated(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if at, ok := l.escalated[key]; ok && l.now().Sub(at) < l.window {
		return false
	}
	l.escalated[key] = l.now()
	return true
}

// prune drops attempts and escalation marks older than the window.
// Callers must hold the mutex.
func (l *RateLimiter) prune(key string) {
	cutoff := l.now().Add(-l.window)

	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
	} else {
		l.attempts[key] = kept
	}

	if at, ok := l.escalated[key]; ok && !at.After(cutoff) {
		delete(l.escalated, key)
	}
}

// Rehydrate rebuilds the window state from the durable audit log after a
// restart. Only executed attempts inside the window count; escalation
// marks carry over so a previously escalated key does not re-notify.
func (l *RateLimiter) Rehydrate(store storage.Store) error {
	// The window covers at most a few hours of records; 1000 recent
	// records is comfortably more than one window of a single-remediation
	// fleet can produce.
	records, err := store.ListRecentAudit(1000)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for _, rec := range records {
		if !rec.Timestamp.After(cutoff) {
			continue
		}
		if rec.Executed() {
			l.attempts[rec.IncidentKey] = append(l.attempts[rec.IncidentKey], rec.Timestamp)
		}
		if rec.Escalated {
			if at, ok := l.escalated[rec.IncidentKey]; !ok || rec.Timestamp.After(at) {
				l.escalated[rec.IncidentKey] = rec.Timestamp
			}
		}
	}
	return nil
}
