package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	checkUser     string
	checkCategory string
	checkSacred   bool
	checkEvidence string
	checkVault    string
	checkTimeout  time.Duration
	checkJSON     bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Run a single claim through the verification cascade",
	Long: `Check verifies one claim against the loaded evidence and prints the
governed result: the final mode, confidence, transformed text and any
conflicts or warnings.

Example:
  fieldgate check "the moon orbits the earth" --evidence facts.txt
  fieldgate check "my birthday is in june" --user alice --category personal
  fieldgate check "the ritual begins at dawn" --sacred --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkUser, "user", "cli", "user ID for rate limiting and personal memory")
	checkCmd.Flags().StringVar(&checkCategory, "category", "general", "claim category (general, personal, medical, financial, sacred, creative, exploratory)")
	checkCmd.Flags().BoolVar(&checkSacred, "sacred", false, "treat the claim as sacred-category")
	checkCmd.Flags().StringVar(&checkEvidence, "evidence", "", "file of field evidence statements, one per line")
	checkCmd.Flags().StringVar(&checkVault, "vault", "", "file of vault/document statements, one per line")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 5*time.Second, "overall check timeout")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the full result as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)

	st := newStores()
	if checkEvidence != "" {
		n, err := loadStatements(st.fieldDB, checkEvidence)
		if err != nil {
			return fmt.Errorf("load evidence: %w", err)
		}
		log.Debug().Int("statements", n).Str("file", checkEvidence).Msg("field evidence loaded")
	}
	if checkVault != "" {
		n, err := loadStatements(st.vault, checkVault)
		if err != nil {
			return fmt.Errorf("load vault: %w", err)
		}
		log.Debug().Int("statements", n).Str("file", checkVault).Msg("vault loaded")
	}

	c, err := buildCascade(cfg, st, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	res := c.ProcessClaim(ctx, args[0], claimContext(checkUser, checkCategory, checkSacred))

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Mode:       %s\n", res.Mode)
	fmt.Printf("Confidence: %.3f\n", res.Confidence)
	fmt.Printf("Response:   %s\n", res.Claim)
	if res.Strategy != "" {
		fmt.Printf("Strategy:   %s\n", res.Strategy)
	}
	if res.Warning != "" {
		fmt.Printf("Warning:    %s\n", res.Warning)
	}
	if res.Suggestion != "" {
		fmt.Printf("Suggestion: %s\n", res.Suggestion)
	}
	if len(res.Conflicts) > 0 {
		fmt.Printf("Conflicts:  %d\n", len(res.Conflicts))
	}
	fmt.Printf("Latency:    %dms (%s)\n", res.LatencyMS, res.Source)
	return nil
}
