package model

import "time"

// Config is the complete fieldgate configuration. Every threshold, TTL and
// half-life in the cascade is a field here rather than a hardcoded constant;
// what the design fixes is the relative ordering of the risk bands, not the
// exact numbers.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Field      FieldConfig      `yaml:"field"`
	Verify     VerifyConfig     `yaml:"verify"`
	Cascade    CascadeConfig    `yaml:"cascade"`
	Similarity SimilarityConfig `yaml:"similarity"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// LogConfig controls the zerolog root logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// RateLimitConfig tunes the submission velocity tracker. Non-positive
// limits disable the corresponding check.
type RateLimitConfig struct {
	Window           time.Duration `yaml:"window"`            // sliding window for counts
	UserLimit        int           `yaml:"user_limit"`        // same-hash submissions per user per window
	BurstWindow      time.Duration `yaml:"burst_window"`      // short window for any-claim bursts
	BurstLimit       int           `yaml:"burst_limit"`       // submissions of any kind per burst window
	Cooldown         time.Duration `yaml:"cooldown"`          // user block duration after a violation
	GlobalLimit      int           `yaml:"global_limit"`      // same-hash submissions across all users per window
	CoordinatedUsers int           `yaml:"coordinated_users"` // distinct users marking a global hit as coordinated
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// FieldWeights are the positive factor weights; they sum to 1.0 for a clean
// claim. Frequency is deliberately the smallest truth-bearing weight so that
// repetition alone can never dominate.
type FieldWeights struct {
	Frequency     float64 `yaml:"frequency"`
	Diversity     float64 `yaml:"diversity"`
	Temporal      float64 `yaml:"temporal"`
	Contradiction float64 `yaml:"contradiction"`
	Poisoning     float64 `yaml:"poisoning"`
}

// FieldConfig tunes the anti-poisoning trust scorer.
type FieldConfig struct {
	MaxFrequencyConfidence float64                  `yaml:"max_frequency_confidence"` // hard cap on the frequency factor
	FrequencyScale         float64                  `yaml:"frequency_scale"`          // log10 denominator base (occurrences at cap)
	HalfLife               time.Duration            `yaml:"half_life"`                // temporal stability half-life
	SuspiciousWindow       time.Duration            `yaml:"suspicious_window"`        // recent flood detection window
	SuspiciousThreshold    int                      `yaml:"suspicious_threshold"`     // occurrences within the window that mark a flood
	RepetitionRatio        float64                  `yaml:"repetition_ratio"`         // identical-text ratio marking poisoning
	DriftLow               float64                  `yaml:"drift_low"`                // semantic drift similarity band
	DriftHigh              float64                  `yaml:"drift_high"`
	ContradictionPenalty   float64                  `yaml:"contradiction_penalty"`
	PoisoningPenalty       float64                  `yaml:"poisoning_penalty"`
	Weights                FieldWeights             `yaml:"weights"`
	HighStakesBase         float64                  `yaml:"high_stakes_base"` // base required confidence before the multiplier
	Multipliers            map[RiskCategory]float64 `yaml:"multipliers"`
}

// RiskBand is the (verified, likely, hypothesis) cutoff triple for one
// risk category.
type RiskBand struct {
	Verified   float64 `yaml:"verified"`
	Likely     float64 `yaml:"likely"`
	Hypothesis float64 `yaml:"hypothesis"`
}

// VerifyConfig tunes the evidence verifier.
type VerifyConfig struct {
	TopK                 int                       `yaml:"top_k"`
	LexicalGate          float64                   `yaml:"lexical_gate"`   // word-overlap threshold that settles support cheaply
	BorderlineLow        float64                   `yaml:"borderline_low"` // semantic band that triggers reranking
	BorderlineHigh       float64                   `yaml:"borderline_high"`
	RerankBound          float64                   `yaml:"rerank_bound"` // max relative adjustment from the reranker
	FreshnessHalfLife    time.Duration             `yaml:"freshness_half_life"`
	FreshnessFloor       time.Duration             `yaml:"freshness_floor"` // older than this and a confident result is DATED
	ConflictGap          float64                   `yaml:"conflict_gap"`
	CoverageFloor        float64                   `yaml:"coverage_floor"`     // fraction of top-K slots that must be filled
	SparseFieldFloor     float64                   `yaml:"sparse_field_floor"` // minimum mean evidence score
	SourceTimeout        time.Duration             `yaml:"source_timeout"`
	SelfMemoryConfidence float64                   `yaml:"self_memory_confidence"` // confidence granted to the user's own memory
	RiskBands            map[RiskCategory]RiskBand `yaml:"risk_bands"`
}

// CascadeConfig tunes the orchestrator.
type CascadeConfig struct {
	Timeout       time.Duration          `yaml:"timeout"`
	ThreatDecay   time.Duration          `yaml:"threat_decay"`
	SweepInterval time.Duration          `yaml:"sweep_interval"`
	CacheTTL      map[Mode]time.Duration `yaml:"cache_ttl"`
}

// SimilarityConfig selects the embedding backend for semantic similarity.
// Provider "local" needs no credentials; "openai" reads the API key from
// the environment.
type SimilarityConfig struct {
	Provider   string `yaml:"provider"` // local or openai
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// HTTPConfig tunes the serve command.
type HTTPConfig struct {
	Addr           string        `yaml:"addr"`
	ThrottleRPS    float64       `yaml:"throttle_rps"`
	ThrottleBurst  int           `yaml:"throttle_burst"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Window:           60 * time.Second,
			UserLimit:        10,
			BurstWindow:      5 * time.Second,
			BurstLimit:       5,
			Cooldown:         5 * time.Minute,
			GlobalLimit:      100,
			CoordinatedUsers: 5,
			SweepInterval:    60 * time.Second,
		},
		Field: FieldConfig{
			MaxFrequencyConfidence: 0.7,
			FrequencyScale:         10000,
			HalfLife:               24 * time.Hour,
			SuspiciousWindow:       time.Hour,
			SuspiciousThreshold:    50,
			RepetitionRatio:        0.95,
			DriftLow:               0.8,
			DriftHigh:              0.95,
			ContradictionPenalty:   0.5,
			PoisoningPenalty:       0.1,
			Weights: FieldWeights{
				Frequency:     0.2,
				Diversity:     0.3,
				Temporal:      0.2,
				Contradiction: 0.15,
				Poisoning:     0.15,
			},
			HighStakesBase: 0.7,
			Multipliers: map[RiskCategory]float64{
				RiskSacred:        1.5,
				CategoryMedical:   1.5,
				CategoryFinancial: 1.5,
				RiskPersonal:      1.2,
				RiskAdvice:        1.0,
				CategoryGeneral:   1.0,
				RiskCreative:      0.8,
				RiskExploratory:   0.7,
			},
		},
		Verify: VerifyConfig{
			TopK:                 5,
			LexicalGate:          0.18,
			BorderlineLow:        0.70,
			BorderlineHigh:       0.82,
			RerankBound:          0.10,
			FreshnessHalfLife:    30 * 24 * time.Hour,
			FreshnessFloor:       180 * 24 * time.Hour,
			ConflictGap:          0.15,
			CoverageFloor:        0.6,
			SparseFieldFloor:     0.35,
			SourceTimeout:        200 * time.Millisecond,
			SelfMemoryConfidence: 0.95,
			RiskBands: map[RiskCategory]RiskBand{
				RiskSacred:      {Verified: 0.95, Likely: 0.90, Hypothesis: 0.85},
				RiskPersonal:    {Verified: 0.85, Likely: 0.75, Hypothesis: 0.65},
				RiskAdvice:      {Verified: 0.80, Likely: 0.65, Hypothesis: 0.50},
				RiskCreative:    {Verified: 0.60, Likely: 0.45, Hypothesis: 0.30},
				RiskExploratory: {Verified: 0.50, Likely: 0.35, Hypothesis: 0.25},
			},
		},
		Cascade: CascadeConfig{
			Timeout:       2 * time.Second,
			ThreatDecay:   time.Hour,
			SweepInterval: 5 * time.Minute,
			CacheTTL: map[Mode]time.Duration{
				ModeVerified:    15 * time.Minute,
				ModeLikely:      10 * time.Minute,
				ModeHypothesis:  5 * time.Minute,
				ModeExploratory: 3 * time.Minute,
				ModeBlocked:     time.Minute,
			},
		},
		Similarity: SimilarityConfig{
			Provider:   "local",
			Model:      "text-embedding-3-small",
			Dimensions: 256,
		},
		HTTP: HTTPConfig{
			Addr:           ":8477",
			ThrottleRPS:    10,
			ThrottleBurst:  20,
			RequestTimeout: 5 * time.Second,
		},
	}
}

// Band returns the risk band for a category, falling back to advice when
// the category has no explicit triple.
func (v VerifyConfig) Band(risk RiskCategory) RiskBand {
	if b, ok := v.RiskBands[risk]; ok {
		return b
	}
	return v.RiskBands[RiskAdvice]
}

// TTLFor returns the cache TTL for a mode. Modes without an explicit TTL
// (conflict outcomes, personal memory, cold start) use the exploratory TTL:
// they are the results most likely to change soon.
func (c CascadeConfig) TTLFor(mode Mode) time.Duration {
	if ttl, ok := c.CacheTTL[mode]; ok {
		return ttl
	}
	if ttl, ok := c.CacheTTL[ModeExploratory]; ok {
		return ttl
	}
	return 3 * time.Minute
}
