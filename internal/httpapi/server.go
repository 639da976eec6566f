// Package httpapi serves the verification cascade over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/soullab/fieldgate/internal/metrics"
	"github.com/soullab/fieldgate/internal/model"
	"github.com/soullab/fieldgate/internal/worker"
)

// Processor is the cascade surface the API needs.
type Processor interface {
	ProcessClaim(ctx context.Context, claim string, vctx model.Context) model.CascadeResult
}

// ThreatCounter reports how many threat fingerprints are recorded.
type ThreatCounter interface {
	Len() int
}

// Server is the HTTP front end. Construct with NewServer.
type Server struct {
	cfg      model.HTTPConfig
	proc     Processor
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	threats  ThreatCounter
	validate *validator.Validate
	log      zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithThreatCounter wires the threat registry into the dashboard.
func WithThreatCounter(t ThreatCounter) ServerOption {
	return func(s *Server) { s.threats = t }
}

// WithServerLogger attaches a logger.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// NewServer wires the API. The registry backs the /metrics endpoint and must
// be the one the metrics recorder registered into.
func NewServer(cfg model.HTTPConfig, proc Processor, m *metrics.Metrics, registry *prometheus.Registry, opts ...ServerOption) *Server {
	s := &Server{
		cfg:      cfg,
		proc:     proc,
		metrics:  m,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverJSON(s.log))
	r.Use(accessLog(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(throttle(s.cfg.ThrottleRPS, s.cfg.ThrottleBurst))
		r.Post("/v1/claims/verify", s.handleVerify)
		r.Post("/v1/claims/batch", s.handleBatch)
		r.Get("/v1/dashboard", s.handleDashboard)
	})
	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.RequestTimeout,
		WriteTimeout: s.cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type verifyRequest struct {
	Claim   string        `json:"claim" validate:"required,min=3,max=2000"`
	Context model.Context `json:"context"`
}

type batchRequest struct {
	Claims  []string      `json:"claims" validate:"required,min=1,max=100,dive,min=3,max=2000"`
	Context model.Context `json:"context"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.bind(w, r, &req) {
		return
	}
	res := s.proc.ProcessClaim(r.Context(), req.Claim, req.Context)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.bind(w, r, &req) {
		return
	}
	results, err := worker.NewBatch(s.proc, 4).ProcessClaims(r.Context(), req.Claims, req.Context)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "batch cancelled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snapshot := s.metrics.Snapshot()
	payload := map[string]any{"metrics": snapshot}
	if s.threats != nil {
		payload["active_threats"] = s.threats.Len()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// bind decodes and validates a JSON request body, writing the error response
// itself when the input is unusable.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) && len(verr) > 0 {
			writeError(w, http.StatusUnprocessableEntity, "invalid field: "+verr[0].Namespace())
			return false
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
