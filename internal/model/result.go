package model

import "time"

// Mode is the final classification assigned to a verification. It drives
// the governor's response transformation and the cache TTL.
type Mode string

const (
	ModeVerified    Mode = "VERIFIED"    // high confidence, clean evidence
	ModeLikely      Mode = "LIKELY"      // good support, no full corroboration
	ModeHypothesis  Mode = "HYPOTHESIS"  // partial support dominates
	ModeExploratory Mode = "EXPLORATORY" // low confidence; the default safe fallback
	ModeDated       Mode = "DATED"       // confident but evidence is old

	ModeConflictResolved Mode = "CONFLICT_RESOLVED"
	ModeConsensus        Mode = "CONSENSUS"
	ModePersonalized     Mode = "PERSONALIZED"
	ModeNeedsReview      Mode = "NEEDS_REVIEW"

	ModeRitualSafe Mode = "RITUAL_SAFE" // sacred claim below the sacred bar
	ModeColdStart  Mode = "COLD_START"  // insufficient field coverage

	ModeDualTruth  Mode = "DUAL_TRUTH"  // self-reported and observed memory disagree
	ModeYourMemory Mode = "YOUR_MEMORY" // user's own memory, trusted near-maximum
	ModeNoMatch    Mode = "NO_MATCH"    // personal query with no memory at all

	ModeBlocked Mode = "BLOCKED" // rate limit or threat fingerprint rejection
)

// ColdStartStrategy names what the cascade does when field coverage is
// insufficient for the topic.
type ColdStartStrategy string

const (
	StrategyRequestSource ColdStartStrategy = "REQUEST_SOURCE" // high risk: ask the user for a source
	StrategyHumanReview   ColdStartStrategy = "HUMAN_REVIEW"   // escalation target behind REQUEST_SOURCE
	StrategyExplore       ColdStartStrategy = "EXPLORE"        // low risk: exploratory framing
)

// Conflict records a detected contradiction between two evidence items
// from different sources.
type Conflict struct {
	A             Evidence `json:"a"`
	B             Evidence `json:"b"`
	Contradiction float64  `json:"contradiction"` // contradiction score in [0,1]
	Entailment    float64  `json:"entailment"`    // entailment score in [0,1]
}

// Gap is the contradiction-minus-entailment margin; a conflict is only real
// when the gap exceeds the configured threshold.
func (c Conflict) Gap() float64 { return c.Contradiction - c.Entailment }

// VerificationResult is the verifier's output. Created fresh per call and
// never mutated after return. Confidence is always clamped to [0,1].
type VerificationResult struct {
	Mode       Mode              `json:"mode"`
	Confidence float64           `json:"confidence"`
	Sources    []Evidence        `json:"sources"`
	Conflicts  []Conflict        `json:"conflicts,omitempty"`
	Strategy   ColdStartStrategy `json:"strategy,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// GovernedResult is the governor's transformation of a verification before
// it leaves the cascade.
type GovernedResult struct {
	Text            string   `json:"text"`
	Mode            Mode     `json:"mode"`
	Confidence      float64  `json:"confidence"`
	Transformations []string `json:"transformations,omitempty"`
	Warning         string   `json:"warning,omitempty"`
	Suggestion      string   `json:"suggestion,omitempty"`
}

// Protection summarizes the field protection factors carried on the wire.
type Protection struct {
	Dampening float64      `json:"dampening"`
	Diversity float64      `json:"diversity"`
	Category  RiskCategory `json:"category"`
}

// ResultSource tells the caller whether a result came from cache or a live
// verification pass.
type ResultSource string

const (
	SourceCache ResultSource = "cache"
	SourceLive  ResultSource = "live"
)

// CascadeResult is the only artifact exposed to external callers.
type CascadeResult struct {
	Claim           string            `json:"claim"` // possibly transformed by the governor
	Verified        bool              `json:"verified"`
	Confidence      float64           `json:"confidence"`
	Mode            Mode              `json:"mode"`
	Sources         []Evidence        `json:"sources"`
	Conflicts       []Conflict        `json:"conflicts,omitempty"`
	Protection      Protection        `json:"protection"`
	Transformations []string          `json:"transformations,omitempty"`
	Strategy        ColdStartStrategy `json:"strategy,omitempty"`
	Warning         string            `json:"warning,omitempty"`
	Suggestion      string            `json:"suggestion,omitempty"`
	LatencyMS       int64             `json:"latency"`
	RequestID       string            `json:"request_id"`
	Source          ResultSource      `json:"source"`
}

// ValidationStatus is the field protection threshold ladder.
type ValidationStatus string

const (
	StatusVerified  ValidationStatus = "verified"  // >= 0.8
	StatusLikely    ValidationStatus = "likely"    // >= 0.6
	StatusUncertain ValidationStatus = "uncertain" // >= 0.4
	StatusDoubtful  ValidationStatus = "doubtful"  // >= 0.2
	StatusRejected  ValidationStatus = "rejected"
)

// FlagType marks anomalies recorded against a claim in the registry.
type FlagType string

const (
	FlagContradiction FlagType = "contradiction"
	FlagPoisoning     FlagType = "poisoning_attempt"
)

// Flag is a timestamped anomaly marker.
type Flag struct {
	Type      FlagType  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Factors is the five-factor breakdown behind a field validation score.
// Each factor is in [0,1]; a clean claim scores 1.0 on the contradiction
// and poisoning factors.
type Factors struct {
	Frequency     float64 `json:"frequency"`
	Diversity     float64 `json:"diversity"`
	Temporal      float64 `json:"temporal"`
	Contradiction float64 `json:"contradiction"`
	Poisoning     float64 `json:"poisoning"`
}

// FieldValidation is the field protection system's full assessment.
type FieldValidation struct {
	Confidence      float64          `json:"confidence"`
	Status          ValidationStatus `json:"status"`
	Factors         Factors          `json:"factors"`
	Flags           []Flag           `json:"flags,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Frequency       int              `json:"frequency"`
	UniqueSources   int              `json:"unique_sources"`
	AgeHours        float64          `json:"age_hours"`
}

// RateDecision is the rate limiter's verdict for one submission.
type RateDecision struct {
	Blocked     bool     `json:"blocked"`
	Reason      string   `json:"reason,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Coordinated bool     `json:"coordinated,omitempty"`
	Patterns    []string `json:"patterns,omitempty"` // suspicious but non-blocking
}
