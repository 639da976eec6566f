package verify

import (
	"context"

	"github.com/soullab/fieldgate/internal/evidence"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

// personalTrack handles personal-risk claims against the user's own memory.
// The user's stated memory always outranks third-party observations about
// the same fact; when the two disagree both are surfaced explicitly rather
// than silently picking one.
//
// Returns handled=false when the personal store has nothing relevant, in
// which case the general evidence path takes over.
func (v *Verifier) personalTrack(ctx context.Context, claim string, vctx model.Context) (model.VerificationResult, bool) {
	sctx, cancel := context.WithTimeout(ctx, v.cfg.SourceTimeout)
	defer cancel()

	items, err := v.personal.Retrieve(sctx, claim, evidence.Options{TopK: v.cfg.TopK, UserID: vctx.UserID})
	if err != nil || len(items) == 0 {
		return model.VerificationResult{}, false
	}

	var self, observed []model.Evidence
	for _, item := range items {
		item.Score = v.supportScore(ctx, claim, item.Content)
		switch item.Kind {
		case model.EvidenceSelfReported:
			self = append(self, item)
		default:
			observed = append(observed, item)
		}
	}

	if len(self) == 0 {
		if len(observed) == 0 {
			return model.VerificationResult{}, false
		}
		// Observed-only memory: answer, but mark that it is not the user's
		// own account.
		return model.VerificationResult{
			Mode:       model.ModeNoMatch,
			Confidence: clamp01(observed[0].Score * 0.7),
			Sources:    observed,
			Warning:    "no self-reported memory matches; answer is based on observations",
		}, true
	}

	best := self[0]
	for _, item := range self[1:] {
		if item.Score > best.Score {
			best = item
		}
	}

	// Check the strongest self memory against observed statements.
	for _, obs := range observed {
		if !conflictCandidate(best.Content, obs.Content) && similarity.Jaccard(best.Content, obs.Content) < 0.5 {
			continue
		}
		c := v.scoreConflict(ctx, best, obs)
		if c.Gap() > v.cfg.ConflictGap {
			return model.VerificationResult{
				Mode:       model.ModeDualTruth,
				Confidence: clamp01(best.Score * 0.8),
				Sources:    append([]model.Evidence{best}, obs),
				Conflicts:  []model.Conflict{c},
				Warning:    "your memory and the recorded observation disagree; both are shown",
				Suggestion: "present both accounts and let the user decide",
			}, true
		}
	}

	conf := v.cfg.SelfMemoryConfidence
	if conf <= 0 {
		conf = 0.95
	}
	return model.VerificationResult{
		Mode:       model.ModeYourMemory,
		Confidence: conf,
		Sources:    self,
	}, true
}
