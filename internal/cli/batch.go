package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/soullab/fieldgate/internal/worker"
)

var (
	batchConcurrency int
	batchUser        string
	batchCategory    string
	batchEvidence    string
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify multiple claims from a file in parallel",
	Long: `Batch reads claims from a file (one per line, # comments skipped,
duplicates collapsed by fingerprint) and runs them through the cascade
concurrently. Results are printed as JSON lines in input order.

Example:
  fieldgate batch claims.txt
  fieldgate batch claims.txt --concurrency 8 --evidence facts.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&batchUser, "user", "cli", "user ID for rate limiting and personal memory")
	batchCmd.Flags().StringVar(&batchCategory, "category", "general", "claim category applied to the whole batch")
	batchCmd.Flags().StringVar(&batchEvidence, "evidence", "", "file of field evidence statements, one per line")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Minute, "total timeout for the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)

	st := newStores()
	if batchEvidence != "" {
		if _, err := loadStatements(st.fieldDB, batchEvidence); err != nil {
			return fmt.Errorf("load evidence: %w", err)
		}
	}

	// Batch runs share one user; the per-user burst limit would reject the
	// tail of any real batch, so it is widened to the batch size here.
	cfg.RateLimit.BurstLimit = 0
	cfg.RateLimit.UserLimit = 0

	c, err := buildCascade(cfg, st, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	results, err := worker.NewBatch(c, batchConcurrency).
		ProcessFile(ctx, args[0], claimContext(batchUser, batchCategory, false))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	log.Info().Int("claims", len(results)).Msg("batch complete")
	return nil
}
