// Package govern applies the last transformation before a result leaves the
// cascade: confident claims pass through annotated, everything else degrades
// into a softer speech act matched to how far short the confidence fell.
package govern

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/soullab/fieldgate/internal/model"
)

// Governor maps a verification onto the response shape appropriate for its
// confidence and risk category. Stateless; safe for concurrent use.
type Governor struct {
	cfg model.VerifyConfig
	log zerolog.Logger
}

// Option configures a Governor.
type Option func(*Governor)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Governor) { g.log = log }
}

// New creates a governor using the same risk bands the verifier graded
// against.
func New(cfg model.VerifyConfig, opts ...Option) *Governor {
	g := &Governor{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Govern transforms the verified claim into its final governed form.
// Special modes (cold start, personal memory, ritual safety) short-circuit
// with their own response shapes; everything else runs the gap-based
// degradation ladder.
func (g *Governor) Govern(claim string, res model.VerificationResult, vctx model.Context) model.GovernedResult {
	risk := vctx.Risk()
	band := g.cfg.Band(risk)

	out := model.GovernedResult{
		Mode:       res.Mode,
		Confidence: res.Confidence,
		Warning:    res.Warning,
		Suggestion: res.Suggestion,
	}

	switch res.Mode {
	case model.ModeColdStart:
		return g.coldStart(claim, res, out)

	case model.ModeYourMemory:
		out.Text = fmt.Sprintf("From what you've told me: %s.", clause(claim))
		out.Transformations = []string{"memory_annotation"}
		return out

	case model.ModeDualTruth:
		out.Text = dualTruth(claim, res.Sources)
		out.Transformations = []string{"dual_truth"}
		return out

	case model.ModeNoMatch:
		out.Text = fmt.Sprintf("I don't have your own account of this. Based on what others have recorded, %s, but you would know better than I do.", clause(claim))
		out.Transformations = []string{"observed_only"}
		return out

	case model.ModeDated:
		out.Text = fmt.Sprintf("%s, though the evidence I have for this is not recent.", sentence(claim))
		out.Transformations = []string{"dated_caveat"}
		return out

	case model.ModeBlocked:
		out.Text = "This claim can't be processed right now."
		out.Transformations = []string{"blocked"}
		return out
	}

	// The sacred bar is a hard override: below it the original assertion is
	// never returned, no matter what the generic ladder would have chosen.
	if risk == model.RiskSacred && res.Confidence < band.Verified {
		out.Mode = model.ModeRitualSafe
		out.Text = reflectiveQuestion(claim)
		out.Transformations = []string{"ritual_safe"}
		return out
	}

	if res.Confidence >= band.Verified {
		out.Text = sentence(claim)
		out.Transformations = []string{"annotated"}
		return out
	}

	// Confidence may have been capped after grading (field trust ceilings);
	// re-grade the basic modes so mode and confidence never disagree.
	switch res.Mode {
	case model.ModeVerified, model.ModeLikely, model.ModeHypothesis, model.ModeExploratory:
		out.Mode = regrade(res.Confidence, band)
	}

	gap := band.Verified - res.Confidence
	switch {
	case gap > 0.3:
		out.Text = openQuestion(claim)
		out.Transformations = []string{"question"}
	case gap > 0.15:
		out.Text = collaborative(claim)
		out.Transformations = []string{"collaborative"}
	case risk == model.RiskCreative || risk == model.RiskExploratory:
		out.Text = invitation(claim)
		out.Transformations = []string{"exploratory_invitation"}
	default:
		out.Text = hedge(claim)
		out.Transformations = []string{"hedge"}
	}

	g.log.Debug().
		Str("mode", string(out.Mode)).
		Float64("gap", gap).
		Strs("transformations", out.Transformations).
		Msg("claim governed")

	return out
}

func (g *Governor) coldStart(claim string, res model.VerificationResult, out model.GovernedResult) model.GovernedResult {
	switch res.Strategy {
	case model.StrategyRequestSource, model.StrategyHumanReview:
		out.Text = fmt.Sprintf("I don't have enough grounding to assess whether %s. Do you have a source I could work from?", clause(claim))
		out.Transformations = []string{"source_request"}
	default:
		out.Text = fmt.Sprintf("This is new territory for me, so treat it as exploration: %s. What's your sense of it?", clause(claim))
		out.Transformations = []string{"exploration"}
	}
	return out
}

func regrade(confidence float64, band model.RiskBand) model.Mode {
	switch {
	case confidence >= band.Verified:
		return model.ModeVerified
	case confidence >= band.Likely:
		return model.ModeLikely
	case confidence >= band.Hypothesis:
		return model.ModeHypothesis
	default:
		return model.ModeExploratory
	}
}

// dualTruth lays both accounts side by side instead of picking one.
func dualTruth(claim string, sources []model.Evidence) string {
	var self, observed string
	for _, ev := range sources {
		switch ev.Kind {
		case model.EvidenceSelfReported:
			if self == "" {
				self = ev.Content
			}
		default:
			if observed == "" {
				observed = ev.Content
			}
		}
	}
	if self == "" || observed == "" {
		return fmt.Sprintf("Your memory and the record disagree about whether %s. Both versions are worth holding.", clause(claim))
	}
	return fmt.Sprintf("You remember it as: %s. The record shows: %s. Both are real; which feels truer to you?", clause(self), clause(observed))
}
