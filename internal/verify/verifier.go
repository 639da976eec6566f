// Package verify retrieves evidence from the configured knowledge sources
// and assigns a risk-appropriate confidence and mode to a claim.
package verify

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/soullab/fieldgate/internal/evidence"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

// Verifier gathers evidence concurrently and scores support for claims.
// Construct with New; safe for concurrent use.
type Verifier struct {
	cfg      model.VerifyConfig
	sources  []evidence.Source
	personal *evidence.PersonalStore // nil when personal memory is not wired
	embedder similarity.Embedder
	reranker Reranker
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithPersonalStore wires the personal memory dual-track source.
func WithPersonalStore(store *evidence.PersonalStore) Option {
	return func(v *Verifier) { v.personal = store }
}

// WithReranker overrides the default heuristic reranker.
func WithReranker(r Reranker) Option {
	return func(v *Verifier) { v.reranker = r }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(v *Verifier) { v.log = log }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New creates a verifier over the given evidence sources.
func New(cfg model.VerifyConfig, emb similarity.Embedder, sources []evidence.Source, opts ...Option) *Verifier {
	v := &Verifier{
		cfg:      cfg,
		sources:  sources,
		embedder: emb,
		reranker: HeuristicReranker{Bound: cfg.RerankBound},
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify gathers evidence for the claim and returns a graded result.
// Individual source failures are absorbed as empty evidence; Verify itself
// only fails on a cancelled context.
func (v *Verifier) Verify(ctx context.Context, claim string, vctx model.Context) (model.VerificationResult, error) {
	if err := ctx.Err(); err != nil {
		return model.VerificationResult{}, err
	}

	risk := vctx.Risk()
	band := v.cfg.Band(risk)

	// Personal memory dual-track runs before general retrieval: the user's
	// own stated memory outranks anything the field has observed.
	if risk == model.RiskPersonal && v.personal != nil {
		if res, handled := v.personalTrack(ctx, claim, vctx); handled {
			return res, nil
		}
	}

	items := v.retrieveAll(ctx, claim, vctx)
	scored := v.scoreAll(ctx, claim, items)

	// Cold start: not enough of the field covers this topic to assess it.
	// Coverage is measured against one top-K slate, not per source: a topic
	// one store knows well is covered even when the others are silent.
	if cold, res := v.coldStart(scored, v.cfg.TopK, risk); cold {
		return res, nil
	}

	conflicts := v.detectConflicts(ctx, scored)

	rawConf, decayedConf, newestAge := v.aggregate(scored)
	result := model.VerificationResult{
		Confidence: clamp01(decayedConf),
		Sources:    scored,
		Conflicts:  conflicts,
	}

	switch {
	case len(conflicts) > 0:
		result = v.resolveConflicts(result, risk, band)
	case risk == model.RiskSacred && result.Confidence < band.Verified:
		// The sacred bar is absolute: below it the system must ask, not assert.
		result.Mode = model.ModeRitualSafe
		result.Suggestion = "offer a reflective question instead of an assertion"
	case rawConf >= band.Verified && newestAge > v.cfg.FreshnessFloor:
		result.Mode = model.ModeDated
		result.Warning = "supporting evidence is older than the freshness floor"
	case result.Confidence >= band.Verified:
		result.Mode = model.ModeVerified
	case result.Confidence >= band.Likely:
		result.Mode = model.ModeLikely
	case result.Confidence >= band.Hypothesis:
		result.Mode = model.ModeHypothesis
	default:
		result.Mode = model.ModeExploratory
	}

	v.log.Debug().
		Str("mode", string(result.Mode)).
		Float64("confidence", result.Confidence).
		Int("evidence", len(scored)).
		Int("conflicts", len(conflicts)).
		Msg("claim verified")

	return result, nil
}

// retrieveAll fans out to every source concurrently, each call carrying its
// own timeout. A source that errors or times out contributes no evidence
// rather than failing the verification.
func (v *Verifier) retrieveAll(ctx context.Context, claim string, vctx model.Context) []model.Evidence {
	results := make([][]model.Evidence, len(v.sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range v.sources {
		i, src := i, src
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, v.cfg.SourceTimeout)
			defer cancel()

			items, err := src.Retrieve(sctx, claim, evidence.Options{TopK: v.cfg.TopK, UserID: vctx.UserID})
			if err != nil {
				v.log.Debug().Err(err).Str("source", src.Name()).Msg("evidence source failed; treating as empty")
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures are absorbed

	var all []model.Evidence
	for _, items := range results {
		all = append(all, items...)
	}
	return all
}

// coldStart short-circuits when coverage or mean support is too thin.
func (v *Verifier) coldStart(scored []model.Evidence, expected int, risk model.RiskCategory) (bool, model.VerificationResult) {
	coverage := 0.0
	if expected > 0 {
		coverage = float64(len(scored)) / float64(expected)
	}
	mean := 0.0
	for _, ev := range scored {
		mean += ev.Score
	}
	if len(scored) > 0 {
		mean /= float64(len(scored))
	}

	if coverage >= v.cfg.CoverageFloor && mean >= v.cfg.SparseFieldFloor {
		return false, model.VerificationResult{}
	}

	res := model.VerificationResult{
		Mode:       model.ModeColdStart,
		Confidence: clamp01(mean * 0.5),
		Sources:    scored,
	}
	switch risk {
	case model.RiskSacred, model.RiskPersonal, model.RiskAdvice:
		res.Strategy = model.StrategyRequestSource
		res.Suggestion = "ask the user for a source; escalate to human review if none is offered"
	default:
		res.Strategy = model.StrategyExplore
		res.Suggestion = "frame the response as exploration, not assessment"
	}
	return true, res
}

// aggregate blends evidence into raw and freshness-decayed confidence, and
// reports the age of the newest supporting item.
func (v *Verifier) aggregate(scored []model.Evidence) (raw, decayed float64, newestAge time.Duration) {
	if len(scored) == 0 {
		return 0, 0, 0
	}

	now := v.now()
	newest := scored[0].Timestamp
	var bestRaw, bestDecayed, sumDecayed float64
	for _, ev := range scored {
		if ev.Timestamp.After(newest) {
			newest = ev.Timestamp
		}
		if ev.Score > bestRaw {
			bestRaw = ev.Score
		}
		d := ev.Score * freshness(now.Sub(ev.Timestamp), v.cfg.FreshnessHalfLife)
		if d > bestDecayed {
			bestDecayed = d
		}
		sumDecayed += d
	}
	meanDecayed := sumDecayed / float64(len(scored))

	// Corroboration: the best item dominates, the rest of the field nudges.
	raw = bestRaw
	decayed = bestDecayed*0.7 + meanDecayed*0.3
	return raw, decayed, now.Sub(newest)
}

func freshness(age time.Duration, halfLife time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, age.Hours()/halfLife.Hours())
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
