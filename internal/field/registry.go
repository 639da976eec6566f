// Package field implements the anti-poisoning trust layer: a claim registry
// and a multi-factor confidence score that frequency alone can never
// dominate.
package field

import (
	"sync"
	"time"

	"github.com/soullab/fieldgate/internal/model"
)

// Occurrence is one sighting of a claim.
type Occurrence struct {
	Timestamp time.Time
	UserID    string
	Text      string // raw text as submitted, before normalization
}

// record is the per-unique-claim aggregate. Append-only for correctness;
// Prune exists purely for memory control.
type record struct {
	firstSeen   time.Time
	occurrences []Occurrence
	sources     map[string]struct{}
	flags       []model.Flag
}

// Snapshot is a read-only copy of a claim's aggregate, safe to use after
// the registry lock is released.
type Snapshot struct {
	FirstSeen   time.Time
	Frequency   int
	Sources     int
	Occurrences []Occurrence // copy, oldest first
	Flags       []model.Flag
}

// Registry is the in-memory claim store, keyed by normalized claim hash.
// It is owned by the field protection system; nothing else mutates it.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	recent  []Occurrence // global ring of recent sightings, for drift detection
	ringCap int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*record),
		ringCap: 64,
	}
}

// Observe records a sighting of a claim. Invariant: the source set always
// equals the distinct user IDs across occurrences.
func (r *Registry) Observe(hash, text, userID string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[hash]
	if !ok {
		rec = &record{
			firstSeen: ts,
			sources:   make(map[string]struct{}),
		}
		r.records[hash] = rec
	}
	rec.occurrences = append(rec.occurrences, Occurrence{Timestamp: ts, UserID: userID, Text: text})
	if userID != "" {
		rec.sources[userID] = struct{}{}
	}

	r.recent = append(r.recent, Occurrence{Timestamp: ts, UserID: userID, Text: text})
	if len(r.recent) > r.ringCap {
		r.recent = append([]Occurrence(nil), r.recent[len(r.recent)-r.ringCap:]...)
	}
}

// Snapshot returns a copy of a claim's aggregate.
func (r *Registry) Snapshot(hash string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[hash]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		FirstSeen:   rec.firstSeen,
		Frequency:   len(rec.occurrences),
		Sources:     len(rec.sources),
		Occurrences: append([]Occurrence(nil), rec.occurrences...),
		Flags:       append([]model.Flag(nil), rec.flags...),
	}, true
}

// AddFlag appends an anomaly marker to a claim's record.
func (r *Registry) AddFlag(hash string, flag model.Flag) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[hash]; ok {
		rec.flags = append(rec.flags, flag)
	}
}

// RecentTexts returns up to limit of the most recent sightings across all
// claims, oldest first.
func (r *Registry) RecentTexts(limit int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if len(r.recent) > limit {
		start = len(r.recent) - limit
	}
	out := make([]string, 0, len(r.recent)-start)
	for _, occ := range r.recent[start:] {
		out = append(out, occ.Text)
	}
	return out
}

// Len returns the number of distinct claims tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Prune drops claims whose last sighting is older than maxAge. Never called
// on the decision path.
func (r *Registry) Prune(maxAge time.Duration, now time.Time) int {
	cutoff := now.Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for hash, rec := range r.records {
		if len(rec.occurrences) == 0 {
			delete(r.records, hash)
			dropped++
			continue
		}
		if rec.occurrences[len(rec.occurrences)-1].Timestamp.Before(cutoff) {
			delete(r.records, hash)
			dropped++
		}
	}
	return dropped
}
