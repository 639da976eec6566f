package field

import (
	"fmt"
	"math"
	"time"

	"github.com/soullab/fieldgate/internal/fingerprint"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

// Metadata is the per-submission context for field validation.
type Metadata struct {
	UserID     string
	Category   model.RiskCategory
	HighStakes bool
	Timestamp  time.Time
}

// Protection computes a multi-factor trust score per claim. It owns the
// claim registry; no other component mutates it.
type Protection struct {
	cfg      model.FieldConfig
	registry *Registry
	checker  ContradictionChecker
	now      func() time.Time
}

// New creates a field protection system with the default regex
// contradiction checker.
func New(cfg model.FieldConfig) *Protection {
	return NewWithChecker(cfg, NewRegexChecker())
}

// NewWithChecker creates a field protection system with a custom checker.
func NewWithChecker(cfg model.FieldConfig, checker ContradictionChecker) *Protection {
	return &Protection{
		cfg:      cfg,
		registry: NewRegistry(),
		checker:  checker,
		now:      time.Now,
	}
}

// Registry exposes the claim registry for read-only inspection.
func (p *Protection) Registry() *Registry { return p.registry }

// SetClock overrides the time source. Test hook.
func (p *Protection) SetClock(now func() time.Time) { p.now = now }

// ValidateClaim records a sighting of the claim and scores its
// trustworthiness. Factor weights sum to 1.0 for a clean claim;
// contradiction and poisoning findings both zero their factor and apply a
// multiplicative penalty on top.
func (p *Protection) ValidateClaim(text string, meta Metadata) model.FieldValidation {
	ts := meta.Timestamp
	if ts.IsZero() {
		ts = p.now()
	}
	hash := fingerprint.Hash(text)

	p.registry.Observe(hash, text, meta.UserID, ts)
	snap, _ := p.registry.Snapshot(hash)

	var (
		factors model.Factors
		flags   []model.Flag
		recs    []string
	)

	factors.Frequency = p.frequencyConfidence(snap.Frequency)
	factors.Diversity = diversityFactor(snap.Sources)
	factors.Temporal = p.temporalFactor(snap, ts)

	factors.Contradiction = 1.0
	contradiction, detail := p.checker.Check(text)
	if contradiction {
		factors.Contradiction = 0
		flag := model.Flag{Type: model.FlagContradiction, Timestamp: ts, Detail: detail}
		flags = append(flags, flag)
		p.registry.AddFlag(hash, flag)
		recs = append(recs, "claim contradicts trusted facts; verify before repeating")
	}

	factors.Poisoning = 1.0
	poisoned, why := p.detectPoisoning(snap, text, ts)
	if poisoned {
		factors.Poisoning = 0
		flag := model.Flag{Type: model.FlagPoisoning, Timestamp: ts, Detail: why}
		flags = append(flags, flag)
		p.registry.AddFlag(hash, flag)
		recs = append(recs, "claim shows a poisoning pattern; treat frequency as adversarial")
	}

	w := p.cfg.Weights
	confidence := factors.Frequency*w.Frequency +
		factors.Diversity*w.Diversity +
		factors.Temporal*w.Temporal +
		factors.Contradiction*w.Contradiction +
		factors.Poisoning*w.Poisoning

	if contradiction {
		confidence *= p.cfg.ContradictionPenalty
	}
	if poisoned {
		confidence *= p.cfg.PoisoningPenalty
	}

	// High-stakes categories demand a higher bar; falling short halves the
	// score again. Low-stakes multipliers (<1) never raise the bar.
	mult := 1.0
	if m, ok := p.cfg.Multipliers[meta.Category]; ok {
		mult = m
	} else if meta.HighStakes {
		mult = 1.5
	}
	if mult > 1.0 {
		required := math.Min(p.cfg.HighStakesBase*mult, 0.95)
		if confidence < required {
			confidence /= 2
			recs = append(recs, fmt.Sprintf("high-stakes category %q requires confidence >= %.2f", meta.Category, required))
		}
	}

	confidence = clamp01(confidence)

	return model.FieldValidation{
		Confidence:      confidence,
		Status:          statusFor(confidence),
		Factors:         factors,
		Flags:           flags,
		Recommendations: recs,
		Frequency:       snap.Frequency,
		UniqueSources:   snap.Sources,
		AgeHours:        ts.Sub(snap.FirstSeen).Hours(),
	}
}

// frequencyConfidence scales logarithmically and is hard-capped: no amount
// of repetition alone can push this factor past the configured maximum.
func (p *Protection) frequencyConfidence(frequency int) float64 {
	if frequency <= 0 {
		return 0
	}
	scaled := math.Log10(float64(frequency)+1) / math.Log10(p.cfg.FrequencyScale)
	return math.Min(scaled, p.cfg.MaxFrequencyConfidence)
}

// diversityFactor scores the count of unique backing users.
func diversityFactor(sources int) float64 {
	switch {
	case sources >= 5:
		return 1.0
	case sources >= 3:
		return 0.9
	case sources == 2:
		return 0.6
	case sources == 1:
		return 0.3
	default:
		return 0
	}
}

// temporalFactor decays with claim age; fresh floods are penalized to
// near-zero regardless of anything else.
func (p *Protection) temporalFactor(snap Snapshot, ts time.Time) float64 {
	recentCutoff := ts.Add(-p.cfg.SuspiciousWindow)
	recent := 0
	for _, occ := range snap.Occurrences {
		if occ.Timestamp.After(recentCutoff) {
			recent++
		}
	}
	if recent > p.cfg.SuspiciousThreshold {
		return 0.1
	}

	age := ts.Sub(snap.FirstSeen)
	if age < 0 {
		age = 0
	}
	return math.Pow(0.5, age.Hours()/p.cfg.HalfLife.Hours())
}

// detectPoisoning examines occurrence history for flooding with identical
// text and for semantic drift across recent sightings.
func (p *Protection) detectPoisoning(snap Snapshot, text string, ts time.Time) (bool, string) {
	// (a) Excessive repetition: a burst of sightings inside the suspicious
	// window that are nearly all textually identical.
	recentCutoff := ts.Add(-p.cfg.SuspiciousWindow)
	counts := make(map[string]int)
	total := 0
	for _, occ := range snap.Occurrences {
		if occ.Timestamp.After(recentCutoff) {
			counts[occ.Text]++
			total++
		}
	}
	if total >= 20 {
		dominant := 0
		for _, n := range counts {
			if n > dominant {
				dominant = n
			}
		}
		if float64(dominant)/float64(total) > p.cfg.RepetitionRatio {
			return true, fmt.Sprintf("repetition ratio %.2f over %d recent occurrences", float64(dominant)/float64(total), total)
		}
	}

	// (b) Semantic drift: a run of near-identical-but-diverging variants in
	// the global recent stream, with this submission extending the run.
	recent := append(p.registry.RecentTexts(8), text)
	run := 0
	for i := 1; i < len(recent); i++ {
		sim := similarity.Jaccard(recent[i-1], recent[i])
		if sim >= p.cfg.DriftLow && sim < p.cfg.DriftHigh {
			run++
			if run >= 3 {
				return true, "semantic drift across consecutive near-identical claims"
			}
		} else {
			run = 0
		}
	}

	return false, ""
}

func statusFor(confidence float64) model.ValidationStatus {
	switch {
	case confidence >= 0.8:
		return model.StatusVerified
	case confidence >= 0.6:
		return model.StatusLikely
	case confidence >= 0.4:
		return model.StatusUncertain
	case confidence >= 0.2:
		return model.StatusDoubtful
	default:
		return model.StatusRejected
	}
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
