package verify

import (
	"context"

	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

// scoreAll assigns a support score to every retrieved item. Items the
// claim shares nothing with are kept at their retrieval score; support
// replaces it once computed.
func (v *Verifier) scoreAll(ctx context.Context, claim string, items []model.Evidence) []model.Evidence {
	scored := make([]model.Evidence, 0, len(items))
	for _, item := range items {
		item.Score = v.supportScore(ctx, claim, item.Content)
		scored = append(scored, item)
	}
	return scored
}

// supportScore is staged cheap-then-expensive: a lexical overlap past the
// gate settles the question without touching the embedder; only borderline
// semantic scores pay for the reranking pass.
func (v *Verifier) supportScore(ctx context.Context, claim, content string) float64 {
	overlap := similarity.WordOverlap(claim, content)
	if overlap >= v.cfg.LexicalGate {
		// Strong lexical support; map the overlap into the upper range so a
		// fully-overlapping statement approaches 1.0.
		return clamp01(0.55 + overlap*0.45)
	}

	sem := similarity.Semantic(ctx, v.embedder, claim, content)
	if sem >= v.cfg.BorderlineLow && sem <= v.cfg.BorderlineHigh {
		sem = v.reranker.Rerank(claim, content, sem)
	}
	return clamp01(sem)
}

// Reranker adjusts borderline semantic scores. Pluggable so a
// cross-encoder can replace the heuristic without touching the verifier.
type Reranker interface {
	// Rerank returns an adjusted score for the claim/content pair. The
	// adjustment must stay within the configured bound of the input score.
	Rerank(claim, content string, score float64) float64
}

// HeuristicReranker nudges borderline scores by comparing rare-token
// agreement: shared long tokens push up, contradicting negation pushes
// down. Bounded to ±Bound of the incoming score.
type HeuristicReranker struct {
	Bound float64 // relative adjustment cap, e.g. 0.10
}

// Rerank applies the heuristic.
func (r HeuristicReranker) Rerank(claim, content string, score float64) float64 {
	adj := 0.0

	shared := 0
	contentSet := make(map[string]struct{})
	for _, tok := range similarity.Tokenize(content) {
		contentSet[tok] = struct{}{}
	}
	for _, tok := range similarity.Tokenize(claim) {
		if len(tok) >= 7 {
			if _, ok := contentSet[tok]; ok {
				shared++
			}
		}
	}
	if shared > 0 {
		adj += 0.5
	}
	if similarity.ContainsNegation(claim) != similarity.ContainsNegation(content) {
		adj -= 1.0
	}

	bound := r.Bound
	if bound <= 0 {
		bound = 0.10
	}
	return clamp01(score * (1 + adj*bound))
}
