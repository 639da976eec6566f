// Package evidence defines the knowledge-source contract the verifier
// retrieves from, plus in-memory implementations. Production deployments
// can plug durable stores in behind the same interface.
package evidence

import (
	"context"

	"github.com/soullab/fieldgate/internal/model"
)

// Options tunes a retrieval call.
type Options struct {
	TopK   int
	UserID string // scopes personal-memory retrieval
}

// Source is a knowledge source the verifier can query. Retrieve returns up
// to TopK items ranked by relevance; an empty slice means the source knows
// nothing about the topic.
type Source interface {
	// Name identifies the source in evidence provenance.
	Name() string

	// Retrieve returns relevance-ranked evidence for the query.
	Retrieve(ctx context.Context, query string, opts Options) ([]model.Evidence, error)
}
