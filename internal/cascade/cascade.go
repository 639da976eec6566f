// Package cascade sequences the full verification pipeline for one claim:
// cache lookup, threat fingerprint check, rate limiting, field protection,
// evidence verification, governance, cache store. The cascade never returns
// an error to its caller: any failure degrades to an exploratory result.
package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/soullab/fieldgate/internal/audit"
	"github.com/soullab/fieldgate/internal/field"
	"github.com/soullab/fieldgate/internal/fingerprint"
	"github.com/soullab/fieldgate/internal/metrics"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/ratelimit"
)

// Verifier gathers evidence and grades a claim.
type Verifier interface {
	Verify(ctx context.Context, claim string, vctx model.Context) (model.VerificationResult, error)
}

// Governor applies the final response transformation.
type Governor interface {
	Govern(claim string, res model.VerificationResult, vctx model.Context) model.GovernedResult
}

// Cascade is the orchestrator. Construct with New; safe for concurrent use.
type Cascade struct {
	cfg        model.CascadeConfig
	limiter    *ratelimit.Limiter
	protection *field.Protection
	verifier   Verifier
	governor   Governor
	cache      *Cache
	threats    *ThreatRegistry
	metrics    *metrics.Metrics
	audit      *audit.Logger
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a Cascade.
type Option func(*Cascade)

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cascade) { c.metrics = m }
}

// WithAudit attaches the audit event logger.
func WithAudit(a *audit.Logger) Option {
	return func(c *Cascade) { c.audit = a }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cascade) { c.log = log }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *Cascade) { c.now = now }
}

// New wires the cascade together.
func New(cfg model.CascadeConfig, limiter *ratelimit.Limiter, protection *field.Protection, verifier Verifier, governor Governor, opts ...Option) *Cascade {
	c := &Cascade{
		cfg:        cfg,
		limiter:    limiter,
		protection: protection,
		verifier:   verifier,
		governor:   governor,
		cache:      NewCache(time.Minute),
		threats:    NewThreatRegistry(cfg.ThreatDecay),
		metrics:    metrics.New(nil),
		audit:      audit.New(zerolog.Nop(), 1),
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threats exposes the threat registry, for the dashboard and for sweeping.
func (c *Cascade) Threats() *ThreatRegistry { return c.threats }

// StartSweepers runs background cleanup for the threat registry and the
// rate limiter until the context is done.
func (c *Cascade) StartSweepers(ctx context.Context) {
	c.threats.StartSweeper(ctx, c.cfg.SweepInterval)
	c.limiter.StartSweeper(ctx)
}

// ProcessClaim runs one claim through the full cascade. It never returns an
// error: failures and timeouts degrade to an exploratory zero-confidence
// result.
func (c *Cascade) ProcessClaim(ctx context.Context, claim string, vctx model.Context) (result model.CascadeResult) {
	start := c.now()
	requestID := vctx.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	hash := fingerprint.Hash(claim)

	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Str("claim_hash", hash).Msg("cascade panic recovered")
			c.metrics.ObserveError()
			c.audit.Emit(audit.Event{Type: audit.EventProcessingError, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Detail: fmt.Sprint(r)})
			result = c.fallback(claim, requestID, start)
		}
	}()

	c.audit.Emit(audit.Event{Type: audit.EventClaimReceived, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash})

	key := cacheKey(hash, vctx)
	if cached, found := c.cache.Get(key); found {
		c.metrics.ObserveCache(true)
		cached.Source = model.SourceCache
		cached.RequestID = requestID
		cached.LatencyMS = c.now().Sub(start).Milliseconds()
		c.metrics.ObserveClaim(cached.Mode, model.SourceCache, cached.Confidence, c.now().Sub(start))
		c.audit.Emit(audit.Event{Type: audit.EventCacheHit, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Mode: cached.Mode, Confidence: cached.Confidence})
		return cached
	}
	c.metrics.ObserveCache(false)

	// Known threats block before any expensive work.
	if kind, active := c.threats.Active(hash); active {
		c.metrics.ObserveBlocked("threat_fingerprint")
		c.audit.Emit(audit.Event{Type: audit.EventThreatDetected, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Detail: kind})
		blocked := c.blocked(claim, requestID, start, "this claim matches a recently detected "+kind)
		c.cache.Set(key, blocked, c.cfg.TTLFor(model.ModeBlocked))
		return blocked
	}

	decision := c.limiter.CheckRapidFire(vctx.UserID, claim, start)
	if decision.Coordinated {
		c.threats.Record(hash, "coordinated submission campaign")
		c.metrics.ObserveThreat()
	}
	if decision.Blocked {
		c.metrics.ObserveBlocked(decision.Reason)
		c.audit.Emit(audit.Event{Type: audit.EventRateLimited, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Detail: decision.Reason})
		// Rate decisions are per-user; never cached under a shared key.
		return c.blocked(claim, requestID, start, "submission rate exceeded; please slow down")
	}

	validation := c.protection.ValidateClaim(claim, field.Metadata{
		UserID:     vctx.UserID,
		Category:   vctx.Category,
		HighStakes: vctx.HighStakes(),
		Timestamp:  start,
	})
	for _, flag := range validation.Flags {
		if flag.Type == model.FlagPoisoning {
			c.threats.Record(hash, "poisoning attempt")
			c.metrics.ObservePoisoning()
			c.metrics.ObserveThreat()
			c.audit.Emit(audit.Event{Type: audit.EventPoisoningFlag, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Detail: flag.Detail})
		}
	}
	if validation.Status == model.StatusRejected {
		c.metrics.ObserveBlocked("field_rejected")
		c.audit.Emit(audit.Event{Type: audit.EventThreatDetected, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Detail: "field protection rejected the claim"})
		blocked := c.blocked(claim, requestID, start, "the field does not support this claim")
		c.cache.Set(key, blocked, c.cfg.TTLFor(model.ModeBlocked))
		return blocked
	}

	vres, err := c.verifyWithTimeout(ctx, claim, vctx)
	if err != nil {
		c.log.Warn().Err(err).Str("claim_hash", hash).Msg("verification degraded to exploratory")
		c.metrics.ObserveError()
		c.audit.Emit(audit.Event{Type: audit.EventProcessingError, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Detail: err.Error()})
		return c.fallback(claim, requestID, start)
	}

	// A flagged claim caps verification confidence at the field trust score.
	// Unflagged claims keep the verifier's grade even when the field is
	// sparse: thin data is not evidence against a claim.
	if len(validation.Flags) > 0 && vres.Confidence > validation.Confidence {
		vres.Confidence = validation.Confidence
		if vres.Warning == "" {
			vres.Warning = "confidence limited by field trust in this claim"
		}
	}

	governed := c.governor.Govern(claim, vres, vctx)

	result = model.CascadeResult{
		Claim:           governed.Text,
		Verified:        governed.Mode == model.ModeVerified,
		Confidence:      governed.Confidence,
		Mode:            governed.Mode,
		Sources:         vres.Sources,
		Conflicts:       vres.Conflicts,
		Transformations: governed.Transformations,
		Strategy:        vres.Strategy,
		Warning:         governed.Warning,
		Suggestion:      governed.Suggestion,
		Protection: model.Protection{
			Dampening: validation.Confidence,
			Diversity: validation.Factors.Diversity,
			Category:  vctx.Risk(),
		},
		LatencyMS: c.now().Sub(start).Milliseconds(),
		RequestID: requestID,
		Source:    model.SourceLive,
	}

	c.cache.Set(key, result, c.cfg.TTLFor(result.Mode))
	c.metrics.ObserveClaim(result.Mode, model.SourceLive, result.Confidence, c.now().Sub(start))
	c.audit.Emit(audit.Event{Type: audit.EventClaimProcessed, RequestID: requestID, UserID: vctx.UserID, ClaimHash: hash, Mode: result.Mode, Confidence: result.Confidence})
	c.log.Info().
		Str("request_id", requestID).
		Str("claim_hash", hash).
		Str("mode", string(result.Mode)).
		Float64("confidence", result.Confidence).
		Int64("latency_ms", result.LatencyMS).
		Msg("claim processed")

	return result
}

func (c *Cascade) verifyWithTimeout(ctx context.Context, claim string, vctx model.Context) (model.VerificationResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	return c.verifier.Verify(ctx, claim, vctx)
}

// fallback is the degraded result for any pipeline failure.
func (c *Cascade) fallback(claim, requestID string, start time.Time) model.CascadeResult {
	return model.CascadeResult{
		Claim:      claim,
		Mode:       model.ModeExploratory,
		Confidence: 0,
		Warning:    "verification unavailable; treat as unverified exploration",
		LatencyMS:  c.now().Sub(start).Milliseconds(),
		RequestID:  requestID,
		Source:     model.SourceLive,
	}
}

func (c *Cascade) blocked(claim, requestID string, start time.Time, warning string) model.CascadeResult {
	return model.CascadeResult{
		Claim:      claim,
		Mode:       model.ModeBlocked,
		Confidence: 0,
		Warning:    warning,
		LatencyMS:  c.now().Sub(start).Milliseconds(),
		RequestID:  requestID,
		Source:     model.SourceLive,
	}
}
