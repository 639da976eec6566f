package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/soullab/fieldgate/internal/cascade"
	"github.com/soullab/fieldgate/internal/evidence"
	"github.com/soullab/fieldgate/internal/field"
	"github.com/soullab/fieldgate/internal/govern"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/ratelimit"
	"github.com/soullab/fieldgate/internal/similarity"
	"github.com/soullab/fieldgate/internal/verify"
)

// loadConfig merges the config file (when present) over the defaults.
// Environment overrides for the common knobs come through viper.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if level := viper.GetString("log_level"); level != "" {
		cfg.Log.Level = level
	}
	if addr := viper.GetString("http_addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}
	if provider := viper.GetString("similarity_provider"); provider != "" {
		cfg.Similarity.Provider = provider
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg model.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return log.Level(level).With().Timestamp().Logger()
}

// stores bundles the evidence backends a cascade runs against.
type stores struct {
	fieldDB  *evidence.MemoryStore
	vault    *evidence.MemoryStore
	patterns *evidence.MemoryStore
	personal *evidence.PersonalStore
}

func newStores() *stores {
	return &stores{
		fieldDB:  evidence.NewFieldDB(),
		vault:    evidence.NewVault(),
		patterns: evidence.NewPatternStore(),
		personal: evidence.NewPersonalStore(),
	}
}

// loadStatements appends one evidence statement per line to the store.
// Blank lines and # comments are skipped.
func loadStatements(store *evidence.MemoryStore, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = file.Close() }()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		store.Add(model.Evidence{Content: line, Timestamp: time.Now()})
		count++
	}
	return count, scanner.Err()
}

// buildCascade wires the full pipeline from configuration.
func buildCascade(cfg *model.Config, st *stores, log zerolog.Logger, opts ...cascade.Option) (*cascade.Cascade, error) {
	embedder, err := similarity.NewEmbedder(cfg.Similarity)
	if err != nil {
		return nil, fmt.Errorf("similarity backend: %w", err)
	}

	verifier := verify.New(cfg.Verify, embedder,
		[]evidence.Source{st.fieldDB, st.vault, st.patterns},
		verify.WithPersonalStore(st.personal),
		verify.WithLogger(log))

	opts = append([]cascade.Option{cascade.WithLogger(log)}, opts...)
	return cascade.New(cfg.Cascade,
		ratelimit.New(cfg.RateLimit),
		field.New(cfg.Field),
		verifier,
		govern.New(cfg.Verify, govern.WithLogger(log)),
		opts...), nil
}

func claimContext(userID, category string, sacred bool) model.Context {
	return model.Context{
		UserID:     userID,
		Category:   model.RiskCategory(category),
		SacredMode: sacred,
		Timestamp:  time.Now(),
	}
}
