package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soullab/fieldgate/internal/model"
)

type countingProcessor struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
}

func (p *countingProcessor) ProcessClaim(ctx context.Context, claim string, vctx model.Context) model.CascadeResult {
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)
	p.calls.Add(1)
	return model.CascadeResult{Claim: claim, Mode: model.ModeVerified}
}

func TestProcessClaims_OrderAndBound(t *testing.T) {
	p := &countingProcessor{}
	b := NewBatch(p, 2)

	claims := []string{"first claim", "second claim", "third claim", "fourth claim", "fifth claim"}
	results, err := b.ProcessClaims(context.Background(), claims, model.Context{UserID: "batch"})
	if err != nil {
		t.Fatalf("ProcessClaims: %v", err)
	}

	if len(results) != len(claims) {
		t.Fatalf("got %d results for %d claims", len(results), len(claims))
	}
	for i, res := range results {
		if res.Claim != claims[i] {
			t.Errorf("result %d out of order: got %q want %q", i, res.Claim, claims[i])
		}
	}
	if peak := p.peak.Load(); peak > 2 {
		t.Errorf("concurrency bound exceeded: peak %d", peak)
	}
}

func TestProcessClaims_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBatch(&countingProcessor{}, 2)
	if _, err := b.ProcessClaims(ctx, []string{"a claim"}, model.Context{}); err == nil {
		t.Error("expected an error from a cancelled context")
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	content := `# batch of claims
the tide turns at dusk

The tide turns at dusk.
the reservoir is low this year
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile: %v", err)
	}

	want := []string{"the tide turns at dusk", "the reservoir is low this year"}
	if len(claims) != len(want) {
		t.Fatalf("got %v", claims)
	}
	for i := range want {
		if claims[i] != want[i] {
			t.Errorf("claim %d: got %q want %q", i, claims[i], want[i])
		}
	}
}

func TestReadClaimsFromFile_Missing(t *testing.T) {
	if _, err := ReadClaimsFromFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
