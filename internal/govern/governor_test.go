package govern

import (
	"strings"
	"testing"

	"github.com/soullab/fieldgate/internal/model"
)

func testGovernor() *Governor {
	return New(model.DefaultConfig().Verify)
}

func TestGovern_ConfidentClaimPassesThrough(t *testing.T) {
	g := testGovernor()

	out := g.Govern("the library opens at nine",
		model.VerificationResult{Mode: model.ModeVerified, Confidence: 0.9},
		model.Context{Category: model.CategoryGeneral})

	if out.Text != "The library opens at nine." {
		t.Errorf("confident claim must pass through unmodified, got %q", out.Text)
	}
	if len(out.Transformations) != 1 || out.Transformations[0] != "annotated" {
		t.Errorf("expected annotation only, got %v", out.Transformations)
	}
	if out.Confidence != 0.9 {
		t.Errorf("confidence must carry through, got %.2f", out.Confidence)
	}
}

func TestGovern_DegradationLadder(t *testing.T) {
	g := testGovernor()
	ctx := model.Context{Category: model.CategoryGeneral} // advice band, verified 0.80

	tests := []struct {
		name       string
		confidence float64
		transform  string
		wantSuffix string
	}{
		{"large gap becomes a question", 0.40, "question", "?"},
		{"medium gap becomes collaborative", 0.60, "collaborative", "."},
		{"small gap becomes a hedge", 0.75, "hedge", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := g.Govern("the bridge reopens next month",
				model.VerificationResult{Mode: model.ModeHypothesis, Confidence: tt.confidence}, ctx)

			if out.Transformations[0] != tt.transform {
				t.Errorf("confidence %.2f: expected %s, got %v", tt.confidence, tt.transform, out.Transformations)
			}
			if !strings.HasSuffix(out.Text, tt.wantSuffix) {
				t.Errorf("expected text ending %q, got %q", tt.wantSuffix, out.Text)
			}
			if out.Text == "The bridge reopens next month." {
				t.Error("degraded claim must not read as a plain assertion")
			}
		})
	}
}

func TestGovern_SmallGapCreativeInvites(t *testing.T) {
	g := testGovernor()

	// Creative band verified 0.60; confidence 0.50 is a small gap.
	out := g.Govern("rivers dream in meanders",
		model.VerificationResult{Mode: model.ModeLikely, Confidence: 0.50},
		model.Context{Category: model.RiskCreative})

	if out.Transformations[0] != "exploratory_invitation" {
		t.Errorf("expected exploratory invitation for creative near-miss, got %v", out.Transformations)
	}
}

func TestGovern_SacredHardOverride(t *testing.T) {
	g := testGovernor()
	claim := "this ritual must be performed at midnight"

	// Well above every other band, still below the 0.95 sacred bar.
	out := g.Govern(claim,
		model.VerificationResult{Mode: model.ModeLikely, Confidence: 0.92},
		model.Context{SacredMode: true})

	if out.Mode != model.ModeRitualSafe {
		t.Errorf("expected RITUAL_SAFE, got %s", out.Mode)
	}
	if !strings.HasSuffix(out.Text, "?") {
		t.Errorf("sacred override must produce a question, got %q", out.Text)
	}
	if strings.EqualFold(out.Text, claim) || strings.EqualFold(out.Text, claim+".") {
		t.Error("sacred claim below the bar must never pass through as an assertion")
	}
}

func TestGovern_ColdStartShapes(t *testing.T) {
	g := testGovernor()

	asked := g.Govern("my ancestor built this house",
		model.VerificationResult{Mode: model.ModeColdStart, Strategy: model.StrategyRequestSource},
		model.Context{Category: model.RiskPersonal})
	if asked.Transformations[0] != "source_request" || !strings.Contains(asked.Text, "source") {
		t.Errorf("expected a source request, got %v %q", asked.Transformations, asked.Text)
	}

	explored := g.Govern("clouds might carry moods",
		model.VerificationResult{Mode: model.ModeColdStart, Strategy: model.StrategyExplore},
		model.Context{Category: model.RiskCreative})
	if explored.Transformations[0] != "exploration" {
		t.Errorf("expected exploration framing, got %v", explored.Transformations)
	}
}

func TestGovern_PersonalMemoryShapes(t *testing.T) {
	g := testGovernor()
	ctx := model.Context{UserID: "u", Category: model.RiskPersonal}

	yours := g.Govern("my first dog was named biscuit",
		model.VerificationResult{Mode: model.ModeYourMemory, Confidence: 0.95}, ctx)
	if !strings.HasPrefix(yours.Text, "From what you've told me") {
		t.Errorf("expected memory annotation, got %q", yours.Text)
	}
	if yours.Confidence != 0.95 {
		t.Errorf("memory confidence must carry through, got %.2f", yours.Confidence)
	}

	dual := g.Govern("I left in the spring",
		model.VerificationResult{
			Mode:       model.ModeDualTruth,
			Confidence: 0.7,
			Sources: []model.Evidence{
				{Content: "I left in the spring", Kind: model.EvidenceSelfReported},
				{Content: "the departure was logged in autumn", Kind: model.EvidenceObserved},
			},
		}, ctx)
	if !strings.Contains(dual.Text, "You remember") || !strings.Contains(dual.Text, "record shows") {
		t.Errorf("dual truth must surface both accounts, got %q", dual.Text)
	}
}

func TestResolvePerspectives(t *testing.T) {
	voices := []Perspective{
		{Voice: "sage", Text: "the pattern holds across seasons", Confidence: 0.9, Weight: 2},
		{Voice: "skeptic", Text: "the pattern is coincidence", Confidence: 0.4, Weight: 1},
	}

	conservative, transforms := ResolvePerspectives(voices, model.RiskSacred)
	if conservative.Voice != "skeptic" {
		t.Errorf("sacred risk must converge on the most conservative voice, got %s", conservative.Voice)
	}
	if len(transforms) == 0 || transforms[0] != "conservative_convergence" {
		t.Errorf("unexpected transforms %v", transforms)
	}

	dialectic, transforms := ResolvePerspectives(voices, model.RiskCreative)
	if dialectic.Voice != "dialectic" {
		t.Errorf("creative risk must present the tension, got %s", dialectic.Voice)
	}
	if !strings.Contains(dialectic.Text, "sage") || !strings.Contains(dialectic.Text, "skeptic") {
		t.Errorf("dialectic text must name both voices, got %q", dialectic.Text)
	}
	if transforms[0] != "dialectic" {
		t.Errorf("unexpected transforms %v", transforms)
	}

	blend, transforms := ResolvePerspectives(voices, model.RiskAdvice)
	if blend.Voice != "sage" {
		t.Errorf("blend must be led by the strongest voice, got %s", blend.Voice)
	}
	want := (2*0.9 + 1*0.4) / 3
	if diff := blend.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("blended confidence: got %.4f want %.4f", blend.Confidence, want)
	}
	if transforms[0] != "weighted_blend" {
		t.Errorf("unexpected transforms %v", transforms)
	}

	single, transforms := ResolvePerspectives(voices[:1], model.RiskAdvice)
	if single.Voice != "sage" || transforms != nil {
		t.Errorf("single perspective must pass through untouched, got %v %v", single, transforms)
	}
}
