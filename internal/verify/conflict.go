package verify

import (
	"context"
	"time"

	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

// detectConflicts runs pairwise contradiction checks across evidence from
// different sources. Two-stage for performance: a cheap lexical pre-filter
// nominates candidate pairs, the detailed scoring pass runs only on those.
func (v *Verifier) detectConflicts(ctx context.Context, items []model.Evidence) []model.Conflict {
	var conflicts []model.Conflict
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.Source == b.Source {
				continue
			}
			if !conflictCandidate(a.Content, b.Content) {
				continue
			}

			c := v.scoreConflict(ctx, a, b)
			if c.Gap() > v.cfg.ConflictGap {
				conflicts = append(conflicts, c)
			}
		}
	}
	return conflicts
}

// conflictCandidate is the cheap gate: the two statements must be about the
// same thing and show a surface marker of disagreement.
func conflictCandidate(a, b string) bool {
	if similarity.Jaccard(a, b) < 0.25 {
		return false
	}
	return similarity.ContainsNegation(a) != similarity.ContainsNegation(b)
}

// scoreConflict is the expensive pass: contradiction versus entailment on
// semantic topical similarity, with negation asymmetry deciding which
// dominates.
func (v *Verifier) scoreConflict(ctx context.Context, a, b model.Evidence) model.Conflict {
	topic := similarity.Semantic(ctx, v.embedder, a.Content, b.Content)

	conflict := model.Conflict{A: a, B: b}
	if similarity.ContainsNegation(a.Content) != similarity.ContainsNegation(b.Content) {
		conflict.Contradiction = topic
		conflict.Entailment = topic * 0.3
	} else {
		conflict.Contradiction = topic * 0.2
		conflict.Entailment = topic
	}
	return conflict
}

// resolveConflicts maps conflicting evidence onto one of the resolution
// modes. Sacred and personal risk never silently pick a side.
func (v *Verifier) resolveConflicts(result model.VerificationResult, risk model.RiskCategory, band model.RiskBand) model.VerificationResult {
	switch {
	case risk == model.RiskSacred || risk == model.RiskPersonal:
		result.Mode = model.ModeNeedsReview
		result.Warning = "sources disagree; review required before asserting"
		if result.Confidence > band.Hypothesis {
			result.Confidence = band.Hypothesis
		}

	case sameUserConflicts(result.Conflicts):
		// The disagreement is internal to one user's history; resolve
		// against their own account.
		result.Mode = model.ModePersonalized
		result.Suggestion = "frame relative to the user's own account"

	case consensusHolds(result.Sources, result.Conflicts):
		result.Mode = model.ModeConsensus
		result.Suggestion = "present the majority position and note the outlier"

	case freshnessResolves(result.Conflicts):
		result.Mode = model.ModeConflictResolved
		result.Suggestion = "prefer the newer evidence and note the change"
		result.Confidence *= 0.9

	default:
		result.Mode = model.ModeNeedsReview
		result.Warning = "conflicting evidence could not be resolved automatically"
		if result.Confidence > band.Hypothesis {
			result.Confidence = band.Hypothesis
		}
	}
	return result
}

func sameUserConflicts(conflicts []model.Conflict) bool {
	for _, c := range conflicts {
		if c.A.UserID == "" || c.A.UserID != c.B.UserID {
			return false
		}
	}
	return len(conflicts) > 0
}

// consensusHolds reports whether at least two thirds of all evidence stands
// outside any conflict pair.
func consensusHolds(sources []model.Evidence, conflicts []model.Conflict) bool {
	if len(sources) < 3 {
		return false
	}
	contested := make(map[string]struct{})
	for _, c := range conflicts {
		contested[c.A.Content] = struct{}{}
		contested[c.B.Content] = struct{}{}
	}
	uncontested := 0
	for _, ev := range sources {
		if _, ok := contested[ev.Content]; !ok {
			uncontested++
		}
	}
	return float64(uncontested) >= float64(len(sources))*2.0/3.0
}

// freshnessResolves reports whether every conflict pair has a clearly newer
// side (at least double the age gap of the verifier's half-life).
func freshnessResolves(conflicts []model.Conflict) bool {
	for _, c := range conflicts {
		gap := c.A.Timestamp.Sub(c.B.Timestamp)
		if gap < 0 {
			gap = -gap
		}
		if gap < 30*24*time.Hour {
			return false
		}
	}
	return len(conflicts) > 0
}
