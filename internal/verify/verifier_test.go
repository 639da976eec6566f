package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soullab/fieldgate/internal/evidence"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/similarity"
)

func testVerifier(sources []evidence.Source, opts ...Option) *Verifier {
	cfg := model.DefaultConfig().Verify
	return New(cfg, similarity.NewLocalEmbedder(256), sources, opts...)
}

func stockedFieldDB(now time.Time) *evidence.MemoryStore {
	db := evidence.NewFieldDB()
	for i := 0; i < 5; i++ {
		db.Add(model.Evidence{
			Content:   "the moon orbits the earth roughly every month",
			Timestamp: now.Add(-time.Duration(i+1) * time.Hour),
			UserID:    "observer",
		})
	}
	return db
}

func TestVerify_WellSupportedClaim(t *testing.T) {
	now := time.Now()
	v := testVerifier([]evidence.Source{stockedFieldDB(now)})

	res, err := v.Verify(context.Background(), "the moon orbits the earth", model.Context{Category: model.CategoryGeneral})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.Mode != model.ModeVerified {
		t.Errorf("expected VERIFIED, got %s (confidence %.3f)", res.Mode, res.Confidence)
	}
	if res.Confidence < 0.8 {
		t.Errorf("expected high confidence, got %.3f", res.Confidence)
	}
	if len(res.Sources) == 0 {
		t.Error("expected evidence provenance on the result")
	}
}

func TestVerify_ColdStartEscalation(t *testing.T) {
	// Empty stores: a completely novel claim in personal category must cold
	// start with a source request, never a confident assertion.
	v := testVerifier(
		[]evidence.Source{evidence.NewFieldDB(), evidence.NewVault()},
		WithPersonalStore(evidence.NewPersonalStore()),
	)

	res, err := v.Verify(context.Background(), "my grandmother invented the telescope", model.Context{
		UserID:   "user-1",
		Category: model.RiskPersonal,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.Mode != model.ModeColdStart {
		t.Errorf("expected COLD_START, got %s", res.Mode)
	}
	if res.Strategy != model.StrategyRequestSource {
		t.Errorf("expected REQUEST_SOURCE strategy, got %s", res.Strategy)
	}
	if res.Confidence > 0.3 {
		t.Errorf("cold start must not be confident, got %.3f", res.Confidence)
	}
}

func TestVerify_ColdStartLowRiskExplores(t *testing.T) {
	v := testVerifier([]evidence.Source{evidence.NewFieldDB()})

	res, err := v.Verify(context.Background(), "what if clouds had opinions", model.Context{Category: model.RiskCreative})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Mode != model.ModeColdStart || res.Strategy != model.StrategyExplore {
		t.Errorf("expected COLD_START/EXPLORE, got %s/%s", res.Mode, res.Strategy)
	}
}

func TestVerify_PersonalMemoryPrimacy(t *testing.T) {
	personal := evidence.NewPersonalStore()
	personal.Remember("user-7", model.Evidence{
		Content: "my birthday is january 1",
		Kind:    model.EvidenceSelfReported,
	})

	v := testVerifier([]evidence.Source{evidence.NewFieldDB()}, WithPersonalStore(personal))

	res, err := v.Verify(context.Background(), "when is my birthday", model.Context{
		UserID:   "user-7",
		Category: model.RiskPersonal,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.Mode != model.ModeYourMemory {
		t.Errorf("expected YOUR_MEMORY, got %s", res.Mode)
	}
	if res.Confidence < 0.95 {
		t.Errorf("self-reported memory must be trusted near-maximum, got %.3f", res.Confidence)
	}
}

func TestVerify_DualTruthWhenMemoriesDisagree(t *testing.T) {
	personal := evidence.NewPersonalStore()
	personal.Remember("user-8", model.Evidence{
		Content: "my first concert was in chicago",
		Kind:    model.EvidenceSelfReported,
	})
	personal.Remember("user-8", model.Evidence{
		Content: "the first concert was not in chicago according to the ticket stub",
		Kind:    model.EvidenceObserved,
	})

	v := testVerifier([]evidence.Source{evidence.NewFieldDB()}, WithPersonalStore(personal))

	res, err := v.Verify(context.Background(), "my first concert was in chicago", model.Context{
		UserID:   "user-8",
		Category: model.RiskPersonal,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.Mode != model.ModeDualTruth {
		t.Errorf("expected DUAL_TRUTH, got %s", res.Mode)
	}
	if len(res.Conflicts) == 0 {
		t.Error("expected the disagreement surfaced as a conflict")
	}
	if res.Warning == "" {
		t.Error("expected an explicit warning rather than a silent pick")
	}
}

func TestVerify_SacredBelowBarIsRitualSafe(t *testing.T) {
	now := time.Now()
	db := evidence.NewFieldDB()
	// Moderate support only: enough coverage to avoid cold start, nowhere
	// near the 0.95 sacred bar.
	for i := 0; i < 4; i++ {
		db.Add(model.Evidence{
			Content:   "some traditions hold the solstice ritual at dawn in silence",
			Timestamp: now.Add(-40 * 24 * time.Hour),
		})
	}

	v := testVerifier([]evidence.Source{db})

	res, err := v.Verify(context.Background(), "the solstice ritual held at dawn", model.Context{
		Category:   model.RiskSacred,
		SacredMode: true,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Mode != model.ModeRitualSafe {
		t.Errorf("expected RITUAL_SAFE below the sacred bar, got %s (%.3f)", res.Mode, res.Confidence)
	}
}

func TestVerify_ConflictNeedsReviewForPersonalRisk(t *testing.T) {
	now := time.Now()
	a := evidence.NewFieldDB()
	a.Add(model.Evidence{Content: "the clinic is open on sundays for walk-ins", Timestamp: now.Add(-time.Hour)})
	a.Add(model.Evidence{Content: "the clinic is open on sundays after noon", Timestamp: now.Add(-3 * time.Hour)})
	a.Add(model.Evidence{Content: "the clinic stays open on sundays during winter", Timestamp: now.Add(-4 * time.Hour)})
	b := evidence.NewVault()
	b.Add(model.Evidence{Content: "the clinic is not open on sundays for walk-ins", Timestamp: now.Add(-2 * time.Hour)})

	v := testVerifier([]evidence.Source{a, b})

	res, err := v.Verify(context.Background(), "the clinic is open on sundays", model.Context{
		Category: model.CategoryMedical,
	})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if res.Mode != model.ModeNeedsReview {
		t.Errorf("expected NEEDS_REVIEW for conflicting medical evidence, got %s", res.Mode)
	}
	if len(res.Conflicts) == 0 {
		t.Error("expected conflicts recorded")
	}
	if res.Confidence > 0.65 {
		t.Errorf("conflicted personal-risk confidence must be capped, got %.3f", res.Confidence)
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }
func (failingSource) Retrieve(context.Context, string, evidence.Options) ([]model.Evidence, error) {
	return nil, errors.New("backend down")
}

type slowSource struct{ delay time.Duration }

func (slowSource) Name() string { return "slow" }
func (s slowSource) Retrieve(ctx context.Context, _ string, _ evidence.Options) ([]model.Evidence, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
		return []model.Evidence{{Content: "too late"}}, nil
	}
}

func TestVerify_SourceFailuresAreAbsorbed(t *testing.T) {
	now := time.Now()
	v := testVerifier([]evidence.Source{
		stockedFieldDB(now),
		failingSource{},
		slowSource{delay: 2 * time.Second},
	})

	start := time.Now()
	res, err := v.Verify(context.Background(), "the moon orbits the earth", model.Context{})
	if err != nil {
		t.Fatalf("Verify must absorb source failures, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("slow source must be cut off by its timeout, took %v", elapsed)
	}
	if res.Mode != model.ModeVerified {
		t.Errorf("healthy evidence should still verify, got %s", res.Mode)
	}
}

func TestSupportScore_StagedScoring(t *testing.T) {
	v := testVerifier(nil)
	ctx := context.Background()

	// High lexical overlap settles cheaply and lands high.
	strong := v.supportScore(ctx, "the river floods in spring", "the river floods in early spring most years")
	if strong < 0.8 {
		t.Errorf("expected strong lexical support, got %.3f", strong)
	}

	// No overlap at all falls through to semantics and stays low.
	weak := v.supportScore(ctx, "the river floods in spring", "quarterly revenue grew ten percent")
	if weak > 0.3 {
		t.Errorf("expected weak support, got %.3f", weak)
	}

	if strong <= weak {
		t.Error("staged scoring lost its ordering")
	}
}

func TestHeuristicReranker_Bounded(t *testing.T) {
	r := HeuristicReranker{Bound: 0.10}
	in := 0.75

	up := r.Rerank("the wetlands migration corridor", "wetlands migration corridor protected since 1990", in)
	if up < in || up > in*1.1+1e-9 {
		t.Errorf("upward adjustment out of bounds: %.4f from %.4f", up, in)
	}

	down := r.Rerank("the bridge is safe", "the bridge is not safe", in)
	if down > in || down < in*0.9-1e-9 {
		t.Errorf("downward adjustment out of bounds: %.4f from %.4f", down, in)
	}
}
