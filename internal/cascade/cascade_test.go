package cascade

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soullab/fieldgate/internal/field"
	"github.com/soullab/fieldgate/internal/fingerprint"
	"github.com/soullab/fieldgate/internal/govern"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/ratelimit"
)

type stubVerifier struct {
	res   model.VerificationResult
	err   error
	panic bool
	calls atomic.Int64
}

func (s *stubVerifier) Verify(ctx context.Context, claim string, vctx model.Context) (model.VerificationResult, error) {
	s.calls.Add(1)
	if s.panic {
		panic("verifier blew up")
	}
	return s.res, s.err
}

func testCascade(v Verifier) *Cascade {
	cfg := model.DefaultConfig()
	return New(cfg.Cascade,
		ratelimit.New(cfg.RateLimit),
		field.New(cfg.Field),
		v,
		govern.New(cfg.Verify))
}

func TestProcessClaim_CachesByModeTTL(t *testing.T) {
	v := &stubVerifier{res: model.VerificationResult{Mode: model.ModeVerified, Confidence: 0.9}}
	c := testCascade(v)
	vctx := model.Context{UserID: "user-1", Category: model.CategoryGeneral}

	first := c.ProcessClaim(context.Background(), "the harbor freezes in january", vctx)
	if first.Source != model.SourceLive {
		t.Fatalf("first pass must be live, got %s", first.Source)
	}
	if !first.Verified || first.Mode != model.ModeVerified {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second := c.ProcessClaim(context.Background(), "the harbor freezes in january", vctx)
	if second.Source != model.SourceCache {
		t.Errorf("second pass must hit the cache, got %s", second.Source)
	}
	if second.Confidence != first.Confidence || second.Mode != first.Mode {
		t.Errorf("cached result diverged: %+v vs %+v", second, first)
	}
	if got := v.calls.Load(); got != 1 {
		t.Errorf("verifier must run once, ran %d times", got)
	}
}

func TestProcessClaim_PersonalResultsNeverShared(t *testing.T) {
	v := &stubVerifier{res: model.VerificationResult{Mode: model.ModeYourMemory, Confidence: 0.95}}
	c := testCascade(v)
	claim := "my mentor taught in lisbon"

	c.ProcessClaim(context.Background(), claim, model.Context{UserID: "user-a", Category: model.RiskPersonal})
	other := c.ProcessClaim(context.Background(), claim, model.Context{UserID: "user-b", Category: model.RiskPersonal})

	if other.Source != model.SourceLive {
		t.Error("a personal result cached for one user must not be served to another")
	}
	if got := v.calls.Load(); got != 2 {
		t.Errorf("expected a live verification per user, got %d", got)
	}
}

func TestProcessClaim_ActiveThreatBlocksBeforeVerification(t *testing.T) {
	v := &stubVerifier{res: model.VerificationResult{Mode: model.ModeVerified, Confidence: 0.9}}
	c := testCascade(v)
	claim := "the dam gates open at noon"
	c.Threats().Record(fingerprint.Hash(claim), "poisoning attempt")

	res := c.ProcessClaim(context.Background(), claim, model.Context{UserID: "user-1"})

	if res.Mode != model.ModeBlocked {
		t.Errorf("expected BLOCKED, got %s", res.Mode)
	}
	if v.calls.Load() != 0 {
		t.Error("an active threat fingerprint must short-circuit before verification")
	}
}

func TestProcessClaim_BurstRateLimitBlocks(t *testing.T) {
	v := &stubVerifier{res: model.VerificationResult{Mode: model.ModeVerified, Confidence: 0.9}}
	c := testCascade(v)
	vctx := model.Context{UserID: "bursty"}

	var last model.CascadeResult
	for i := 0; i < 6; i++ {
		last = c.ProcessClaim(context.Background(), fmt.Sprintf("distinct claim number %d", i), vctx)
	}

	if last.Mode != model.ModeBlocked {
		t.Errorf("sixth rapid submission must be blocked, got %s", last.Mode)
	}
	if last.Warning == "" {
		t.Error("blocked result must explain itself")
	}
}

func TestProcessClaim_PoisoningRegistersThreat(t *testing.T) {
	v := &stubVerifier{res: model.VerificationResult{Mode: model.ModeVerified, Confidence: 0.9}}
	c := testCascade(v)

	claim := "the well water is perfectly safe"
	hash := fingerprint.Hash(claim)
	now := time.Now()
	for i := 0; i < 30; i++ {
		c.protection.Registry().Observe(hash, fingerprint.Normalize(claim), "flooder", now.Add(-time.Duration(i)*time.Minute))
	}

	res := c.ProcessClaim(context.Background(), claim, model.Context{UserID: "flooder"})

	if res.Mode != model.ModeBlocked {
		t.Errorf("a flooded claim must be blocked, got %s (%.3f)", res.Mode, res.Confidence)
	}
	if _, active := c.Threats().Active(hash); !active {
		t.Error("poisoning must leave a threat fingerprint behind")
	}
	if v.calls.Load() != 0 {
		t.Error("a rejected claim must not reach the verifier")
	}
}

func TestProcessClaim_VerifierFailureDegrades(t *testing.T) {
	v := &stubVerifier{err: errors.New("evidence backend unreachable")}
	c := testCascade(v)

	res := c.ProcessClaim(context.Background(), "the ferry runs on tuesdays", model.Context{UserID: "user-1"})

	if res.Mode != model.ModeExploratory || res.Confidence != 0 {
		t.Errorf("failures must degrade to exploratory zero confidence, got %s %.2f", res.Mode, res.Confidence)
	}
	if res.Warning == "" {
		t.Error("degraded result must carry a warning")
	}
}

func TestProcessClaim_PanicDegrades(t *testing.T) {
	v := &stubVerifier{panic: true}
	c := testCascade(v)

	res := c.ProcessClaim(context.Background(), "the ferry runs on wednesdays", model.Context{UserID: "user-1"})

	if res.Mode != model.ModeExploratory || res.Confidence != 0 {
		t.Errorf("panics must degrade, not propagate: got %s %.2f", res.Mode, res.Confidence)
	}
}

func TestProcessClaim_FieldTrustCapsConfidence(t *testing.T) {
	// The verifier is confident, but the claim contradicts basic arithmetic;
	// field protection's trust score becomes the ceiling.
	v := &stubVerifier{res: model.VerificationResult{Mode: model.ModeVerified, Confidence: 0.95}}
	c := testCascade(v)

	res := c.ProcessClaim(context.Background(), "2 + 2 = 5", model.Context{UserID: "user-1"})

	if res.Confidence >= 0.5 {
		t.Errorf("contradicted claim must be capped well below the verifier's grade, got %.3f", res.Confidence)
	}
	if res.Verified {
		t.Error("a capped claim must not report as verified")
	}
	if len(res.Transformations) == 0 {
		t.Error("a capped claim must be transformed on the way out")
	}
}

func TestThreatRegistry_Decay(t *testing.T) {
	reg := NewThreatRegistry(time.Hour)
	base := time.Now()
	now := base
	reg.SetClock(func() time.Time { return now })

	reg.Record("abcd", "poisoning attempt")
	if _, active := reg.Active("abcd"); !active {
		t.Fatal("fresh fingerprint must be active")
	}

	now = base.Add(61 * time.Minute)
	if _, active := reg.Active("abcd"); active {
		t.Error("decayed fingerprint must not block")
	}
	if reg.Len() != 0 {
		t.Error("decayed fingerprint must be removed on lookup")
	}

	reg.Record("ef01", "coordinated submission campaign")
	now = base.Add(3 * time.Hour)
	reg.Sweep()
	if reg.Len() != 0 {
		t.Error("sweep must drop decayed fingerprints")
	}
}
