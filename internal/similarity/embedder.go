package similarity

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/soullab/fieldgate/internal/model"
)

// Embedder turns text into a vector for semantic comparison. The exact
// embedding technology is deliberately pluggable; what the verifier relies
// on is only that similar texts map to similar vectors.
type Embedder interface {
	// Name returns the backend name.
	Name() string

	// Embed returns a vector for the text.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NewEmbedder builds the configured embedding backend.
func NewEmbedder(cfg model.SimilarityConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "local":
		return NewLocalEmbedder(cfg.Dimensions), nil
	case "openai":
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown similarity provider: %s", cfg.Provider)
	}
}

// LocalEmbedder is the default offline backend: a deterministic
// token-hashing vectorizer. It is weaker than a learned model but needs no
// credentials, is stable across runs, and keeps tests hermetic.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder creates a local embedder with the given dimensionality.
func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &LocalEmbedder{dims: dims}
}

// Name returns the backend name.
func (e *LocalEmbedder) Name() string { return "local" }

// Embed hashes each content token (and each adjacent token bigram, for a
// little word-order sensitivity) into a fixed-size vector, then normalizes.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dims)
	tokens := Tokenize(text)
	for i, tok := range tokens {
		vec[bucket(tok, e.dims)] += 1.0
		if i > 0 {
			vec[bucket(tokens[i-1]+"_"+tok, e.dims)] += 0.5
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func bucket(token string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32()) % dims
}

// Semantic computes the semantic similarity of two texts using the given
// embedder, absorbing embedding failures into a 0 score so that a degraded
// backend never fails a verification.
func Semantic(ctx context.Context, emb Embedder, a, b string) float64 {
	va, err := emb.Embed(ctx, a)
	if err != nil {
		return 0
	}
	vb, err := emb.Embed(ctx, b)
	if err != nil {
		return 0
	}
	return Cosine(va, vb)
}
