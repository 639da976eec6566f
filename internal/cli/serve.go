package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/soullab/fieldgate/internal/audit"
	"github.com/soullab/fieldgate/internal/cascade"
	"github.com/soullab/fieldgate/internal/httpapi"
	"github.com/soullab/fieldgate/internal/metrics"
)

var (
	serveAddr     string
	serveEvidence string
	serveVault    string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification cascade over HTTP",
	Long: `Serve exposes the cascade as a JSON API:

  POST /v1/claims/verify   verify one claim
  POST /v1/claims/batch    verify up to 100 claims
  GET  /v1/dashboard       aggregate protection metrics
  GET  /metrics            Prometheus metrics
  GET  /healthz            liveness probe

Example:
  fieldgate serve --addr :8477 --evidence facts.txt`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveEvidence, "evidence", "", "file of field evidence statements, one per line")
	serveCmd.Flags().StringVar(&serveVault, "vault", "", "file of vault/document statements, one per line")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}
	log := newLogger(cfg.Log)

	st := newStores()
	if serveEvidence != "" {
		n, err := loadStatements(st.fieldDB, serveEvidence)
		if err != nil {
			return fmt.Errorf("load evidence: %w", err)
		}
		log.Info().Int("statements", n).Msg("field evidence loaded")
	}
	if serveVault != "" {
		n, err := loadStatements(st.vault, serveVault)
		if err != nil {
			return fmt.Errorf("load vault: %w", err)
		}
		log.Info().Int("statements", n).Msg("vault loaded")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	auditor := audit.New(log.With().Str("component", "audit").Logger(), 256)
	defer auditor.Close()

	c, err := buildCascade(cfg, st, log,
		cascade.WithMetrics(m),
		cascade.WithAudit(auditor))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c.StartSweepers(ctx)

	srv := httpapi.NewServer(cfg.HTTP, c, m, registry,
		httpapi.WithThreatCounter(c.Threats()),
		httpapi.WithServerLogger(log))

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
