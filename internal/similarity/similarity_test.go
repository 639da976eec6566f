package similarity

import (
	"context"
	"testing"
)

func TestWordOverlap(t *testing.T) {
	cases := []struct {
		claim     string
		candidate string
		min, max  float64
	}{
		{"the moon orbits the earth", "The Moon orbits the Earth every month", 0.9, 1.0},
		{"the moon orbits the earth", "coffee is grown in brazil", 0.0, 0.0},
		{"the moon orbits the earth", "the moon is visible tonight", 0.3, 0.5},
		{"", "anything", 0.0, 0.0},
	}

	for _, c := range cases {
		got := WordOverlap(c.claim, c.candidate)
		if got < c.min || got > c.max {
			t.Errorf("WordOverlap(%q, %q) = %.3f, want in [%.2f, %.2f]", c.claim, c.candidate, got, c.min, c.max)
		}
	}
}

func TestJaccard_NearIdenticalLandsInMidBand(t *testing.T) {
	a := "meditation improves focus and memory in adults"
	b := "meditation improves focus and memory in children"

	sim := Jaccard(a, b)
	if sim <= 0.5 || sim >= 0.95 {
		t.Errorf("Expected near-identical variants in a mid band, got %.3f", sim)
	}

	if got := Jaccard(a, a); got != 1.0 {
		t.Errorf("Expected identical texts to score 1.0, got %.3f", got)
	}
}

func TestLocalEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	emb := NewLocalEmbedder(256)
	ctx := context.Background()

	related := Semantic(ctx, emb, "the river flows to the sea", "the river flows into the sea at the delta")
	unrelated := Semantic(ctx, emb, "the river flows to the sea", "quarterly revenue grew by ten percent")

	if related <= unrelated {
		t.Errorf("Expected related texts to outscore unrelated: related=%.3f unrelated=%.3f", related, unrelated)
	}
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	emb := NewLocalEmbedder(128)
	a, err := emb.Embed(context.Background(), "stable across runs")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := emb.Embed(context.Background(), "stable across runs")

	if Cosine(a, b) != 1.0 {
		t.Error("Expected identical input to produce identical vectors")
	}
}

func TestContainsNegation(t *testing.T) {
	if !ContainsNegation("this is not the case") {
		t.Error("Expected negation to be detected")
	}
	if ContainsNegation("this is the case") {
		t.Error("Expected no negation")
	}
}
