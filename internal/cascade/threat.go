package cascade

import (
	"context"
	"sync"
	"time"
)

// ThreatRegistry maps claim hashes to detected threat kinds. Entries decay:
// a fingerprint older than the decay window no longer blocks. Checked before
// any expensive work in the cascade.
type ThreatRegistry struct {
	decay time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]threatEntry
}

type threatEntry struct {
	kind string
	at   time.Time
}

// NewThreatRegistry creates a registry with the given decay window.
func NewThreatRegistry(decay time.Duration) *ThreatRegistry {
	return &ThreatRegistry{
		decay:   decay,
		now:     time.Now,
		entries: make(map[string]threatEntry),
	}
}

// SetClock overrides the time source. Test hook.
func (t *ThreatRegistry) SetClock(now func() time.Time) { t.now = now }

// Record marks a claim hash as a known threat. Re-recording refreshes the
// decay clock.
func (t *ThreatRegistry) Record(hash, kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[hash] = threatEntry{kind: kind, at: t.now()}
}

// Active returns the threat kind for a hash if its fingerprint has not
// decayed. Decayed entries are removed on lookup.
func (t *ThreatRegistry) Active(hash string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[hash]
	if !ok {
		return "", false
	}
	if t.now().Sub(entry.at) > t.decay {
		delete(t.entries, hash)
		return "", false
	}
	return entry.kind, true
}

// Len reports the number of recorded fingerprints, decayed or not.
func (t *ThreatRegistry) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep drops decayed fingerprints.
func (t *ThreatRegistry) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.decay)
	for hash, entry := range t.entries {
		if entry.at.Before(cutoff) {
			delete(t.entries, hash)
		}
	}
}

// StartSweeper runs Sweep on the given interval until the context is done.
func (t *ThreatRegistry) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Sweep()
			}
		}
	}()
}
