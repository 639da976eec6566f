package evidence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

// MemoryStore is an in-memory Source backed by a slice of items, ranked at
// retrieval time by lexical overlap with the query. Used for the field
// database, the vault/document store and the pattern-memory store; only the
// name and the evidence kind differ.
type MemoryStore struct {
	name string
	kind model.EvidenceKind

	mu    sync.RWMutex
	items []model.Evidence
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(name string, kind model.EvidenceKind) *MemoryStore {
	return &MemoryStore{name: name, kind: kind}
}

// NewFieldDB is the collective field database.
func NewFieldDB() *MemoryStore { return NewMemoryStore("field_db", model.EvidenceObserved) }

// NewVault is the document store.
func NewVault() *MemoryStore { return NewMemoryStore("vault", model.EvidenceDocument) }

// NewPatternStore is the pattern-memory store.
func NewPatternStore() *MemoryStore { return NewMemoryStore("pattern_store", model.EvidencePattern) }

// Name identifies the source.
func (s *MemoryStore) Name() string { return s.name }

// Add inserts evidence items. Missing kinds and timestamps are filled in.
func (s *MemoryStore) Add(items ...model.Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if item.Kind == "" {
			item.Kind = s.kind
		}
		if item.Source == "" {
			item.Source = s.name
		}
		if item.Timestamp.IsZero() {
			item.Timestamp = time.Now()
		}
		s.items = append(s.items, item)
	}
}

// Retrieve ranks stored items by lexical overlap with the query and returns
// the top K with a nonzero score.
func (s *MemoryStore) Retrieve(ctx context.Context, query string, opts Options) ([]model.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]model.Evidence, len(s.items))
	copy(candidates, s.items)
	s.mu.RUnlock()

	scored := candidates[:0]
	for _, item := range candidates {
		score := similarity.WordOverlap(query, item.Content)
		if score <= 0 {
			continue
		}
		item.Score = score
		scored = append(scored, item)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	topK := opts.TopK
	if topK <= 0 || topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}

// PersonalStore holds per-user memories, split between the user's own
// statements and third-party observations about them.
type PersonalStore struct {
	mu    sync.RWMutex
	items map[string][]model.Evidence // userID -> memories
}

// NewPersonalStore creates an empty personal memory store.
func NewPersonalStore() *PersonalStore {
	return &PersonalStore{items: make(map[string][]model.Evidence)}
}

// Name identifies the source.
func (s *PersonalStore) Name() string { return "personal_memory" }

// Remember stores a memory for a user. Kind must be EvidenceSelfReported or
// EvidenceObserved.
func (s *PersonalStore) Remember(userID string, item model.Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	if item.Source == "" {
		item.Source = s.Name()
	}
	item.UserID = userID
	s.items[userID] = append(s.items[userID], item)
}

// Retrieve returns the user's memories ranked by lexical overlap. Without a
// user ID there is nothing to return: memories never leak across users.
func (s *PersonalStore) Retrieve(ctx context.Context, query string, opts Options) ([]model.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.UserID == "" {
		return nil, nil
	}

	s.mu.RLock()
	candidates := make([]model.Evidence, len(s.items[opts.UserID]))
	copy(candidates, s.items[opts.UserID])
	s.mu.RUnlock()

	scored := candidates[:0]
	for _, item := range candidates {
		score := similarity.WordOverlap(query, item.Content)
		if score <= 0 {
			continue
		}
		item.Score = score
		scored = append(scored, item)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	topK := opts.TopK
	if topK <= 0 || topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK], nil
}
