// Package worker runs batches of claims through the cascade with bounded
// concurrency.
package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/soullab/fieldgate/internal/fingerprint"
	"github.com/soullab/fieldgate/internal/model"
)

// Processor is the cascade surface the batch runner needs.
type Processor interface {
	ProcessClaim(ctx context.Context, claim string, vctx model.Context) model.CascadeResult
}

// Batch fans claims out across a bounded number of goroutines. Results come
// back in input order regardless of completion order.
type Batch struct {
	processor   Processor
	concurrency int
}

// NewBatch creates a batch runner. Concurrency below 1 is treated as 1.
func NewBatch(p Processor, concurrency int) *Batch {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Batch{processor: p, concurrency: concurrency}
}

// ProcessClaims verifies every claim under the shared context. The cascade
// never fails a single claim, so the only error here is a cancelled context.
func (b *Batch) ProcessClaims(ctx context.Context, claims []string, vctx model.Context) ([]model.CascadeResult, error) {
	results := make([]model.CascadeResult, len(claims))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, claim := range claims {
		i, claim := i, claim
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = b.processor.ProcessClaim(gctx, claim, vctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ProcessFile reads claims from a file and verifies them.
func (b *Batch) ProcessFile(ctx context.Context, path string, vctx model.Context) ([]model.CascadeResult, error) {
	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return b.ProcessClaims(ctx, claims, vctx)
}

// ReadClaimsFromFile reads one claim per line, skipping blank lines and
// comments. Claims that normalize to the same fingerprint are deduplicated;
// the first spelling wins.
func ReadClaimsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hash := fingerprint.Hash(line)
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		claims = append(claims, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return claims, nil
}
