package model

import "time"

// RiskCategory classifies the domain of a claim and determines how strict
// confidence thresholds must be. Ordering of strictness:
// sacred > personal > advice > creative > exploratory.
type RiskCategory string

const (
	RiskSacred      RiskCategory = "sacred"
	RiskPersonal    RiskCategory = "personal"
	RiskAdvice      RiskCategory = "advice"
	RiskCreative    RiskCategory = "creative"
	RiskExploratory RiskCategory = "exploratory"

	// CategoryGeneral is the default submission category. It carries no
	// special handling and is assessed against the advice risk band.
	CategoryGeneral RiskCategory = "general"
	// CategoryMedical and CategoryFinancial are high-stakes categories for
	// field protection purposes; they verify against the personal risk band.
	CategoryMedical   RiskCategory = "medical"
	CategoryFinancial RiskCategory = "financial"
)

// Context carries the transient, per-request situation for a claim.
// It is never persisted; it only determines risk level and cache compatibility.
type Context struct {
	UserID     string       `json:"user_id,omitempty" validate:"max=128"`
	Category   RiskCategory `json:"category,omitempty"`
	SacredMode bool         `json:"sacred_mode,omitempty"`
	RequestID  string       `json:"request_id,omitempty" validate:"max=128"`
	Timestamp  time.Time    `json:"timestamp,omitempty"`
}

// Risk maps the submission category (plus the sacred-mode flag) onto the
// risk band used for thresholds. Unknown categories fall back to advice.
func (c Context) Risk() RiskCategory {
	if c.SacredMode || c.Category == RiskSacred {
		return RiskSacred
	}
	switch c.Category {
	case RiskPersonal, CategoryMedical, CategoryFinancial:
		return RiskPersonal
	case RiskCreative:
		return RiskCreative
	case RiskExploratory:
		return RiskExploratory
	default:
		return RiskAdvice
	}
}

// HighStakes reports whether the category demands the elevated field
// protection bar (sacred, medical, financial).
func (c Context) HighStakes() bool {
	if c.SacredMode {
		return true
	}
	switch c.Category {
	case RiskSacred, CategoryMedical, CategoryFinancial:
		return true
	}
	return false
}

// Personal reports whether cached results for this context must never be
// shared across users.
func (c Context) Personal() bool {
	return c.Risk() == RiskPersonal || c.Risk() == RiskSacred
}

// EvidenceKind classifies where a piece of evidence came from relative to
// the user asking.
type EvidenceKind string

const (
	EvidenceSelfReported EvidenceKind = "self_reported" // the user's own stated memory
	EvidenceObserved     EvidenceKind = "observed"      // third-party or system-observed
	EvidenceDocument     EvidenceKind = "document"      // vault / document store
	EvidencePattern      EvidenceKind = "pattern"       // pattern-memory store
)

// Evidence is a single retrieved item supporting or contradicting a claim.
type Evidence struct {
	Content   string       `json:"content"`
	Source    string       `json:"source"`
	Kind      EvidenceKind `json:"kind,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Score     float64      `json:"score,omitempty"` // support score in [0,1]
}
