// Package metrics exposes cascade counters both as Prometheus collectors and
// as an aggregate dashboard snapshot. Consumption is passive: nothing in the
// decision path ever reads a metric.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soullab/fieldgate/internal/model"
)

// Metrics records cascade activity. Safe for concurrent use.
type Metrics struct {
	claims     *prometheus.CounterVec
	blocked    *prometheus.CounterVec
	cacheHits  prometheus.Counter
	cacheMiss  prometheus.Counter
	threats    prometheus.Counter
	poisonings prometheus.Counter
	errors     prometheus.Counter
	latency    prometheus.Histogram
	confidence prometheus.Histogram

	mu      sync.Mutex
	started time.Time
	tallies tallies
}

// tallies mirrors the counters in plain integers for the dashboard; the
// Prometheus registry is write-only from our side.
type tallies struct {
	claims       int64
	modes        map[model.Mode]int64
	blocked      map[string]int64
	cacheHits    int64
	cacheMisses  int64
	threats      int64
	poisonings   int64
	errors       int64
	latencySumMS int64
}

// New creates the collectors and registers them. Pass nil to skip
// registration (tests).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "claims_total",
			Help:      "Claims processed, labelled by final mode and result source.",
		}, []string{"mode", "source"}),
		blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "blocked_total",
			Help:      "Claims blocked before verification, labelled by reason.",
		}, []string{"reason"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "cache_hits_total",
			Help:      "Verification cache hits.",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "cache_misses_total",
			Help:      "Verification cache misses.",
		}),
		threats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "threat_fingerprints_total",
			Help:      "Threat fingerprints recorded.",
		}),
		poisonings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "poisoning_attempts_total",
			Help:      "Poisoning attempts flagged by field protection.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldgate",
			Name:      "processing_errors_total",
			Help:      "Pipeline failures degraded to the exploratory fallback.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldgate",
			Name:      "claim_latency_seconds",
			Help:      "End-to-end claim processing latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldgate",
			Name:      "claim_confidence",
			Help:      "Final confidence distribution.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		started: time.Now(),
		tallies: tallies{
			modes:   make(map[model.Mode]int64),
			blocked: make(map[string]int64),
		},
	}
	if reg != nil {
		reg.MustRegister(m.claims, m.blocked, m.cacheHits, m.cacheMiss,
			m.threats, m.poisonings, m.errors, m.latency, m.confidence)
	}
	return m
}

// ObserveClaim records one processed claim.
func (m *Metrics) ObserveClaim(mode model.Mode, source model.ResultSource, confidence float64, latency time.Duration) {
	m.claims.WithLabelValues(string(mode), string(source)).Inc()
	m.latency.Observe(latency.Seconds())
	m.confidence.Observe(confidence)

	m.mu.Lock()
	m.tallies.claims++
	m.tallies.modes[mode]++
	m.tallies.latencySumMS += latency.Milliseconds()
	m.mu.Unlock()
}

// ObserveBlocked records a claim rejected before verification.
func (m *Metrics) ObserveBlocked(reason string) {
	m.blocked.WithLabelValues(reason).Inc()
	m.mu.Lock()
	m.tallies.blocked[reason]++
	m.mu.Unlock()
}

// ObserveCache records a cache lookup outcome.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMiss.Inc()
	}
	m.mu.Lock()
	if hit {
		m.tallies.cacheHits++
	} else {
		m.tallies.cacheMisses++
	}
	m.mu.Unlock()
}

// ObserveThreat records a new threat fingerprint.
func (m *Metrics) ObserveThreat() {
	m.threats.Inc()
	m.mu.Lock()
	m.tallies.threats++
	m.mu.Unlock()
}

// ObservePoisoning records a poisoning attempt flag.
func (m *Metrics) ObservePoisoning() {
	m.poisonings.Inc()
	m.mu.Lock()
	m.tallies.poisonings++
	m.mu.Unlock()
}

// ObserveError records a pipeline failure that degraded to the fallback.
func (m *Metrics) ObserveError() {
	m.errors.Inc()
	m.mu.Lock()
	m.tallies.errors++
	m.mu.Unlock()
}

// Dashboard is the aggregate health view served over HTTP.
type Dashboard struct {
	UptimeSeconds     float64              `json:"uptime_seconds"`
	Claims            int64                `json:"claims"`
	Modes             map[model.Mode]int64 `json:"modes"`
	Blocked           map[string]int64     `json:"blocked"`
	CacheHits         int64                `json:"cache_hits"`
	CacheMisses       int64                `json:"cache_misses"`
	CacheHitRate      float64              `json:"cache_hit_rate"`
	ThreatsRecorded   int64                `json:"threats_recorded"`
	PoisoningAttempts int64                `json:"poisoning_attempts"`
	ProcessingErrors  int64                `json:"processing_errors"`
	AvgLatencyMS      float64              `json:"avg_latency_ms"`
}

// Snapshot returns the current dashboard view.
func (m *Metrics) Snapshot() Dashboard {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := Dashboard{
		UptimeSeconds:     time.Since(m.started).Seconds(),
		Claims:            m.tallies.claims,
		Modes:             make(map[model.Mode]int64, len(m.tallies.modes)),
		Blocked:           make(map[string]int64, len(m.tallies.blocked)),
		CacheHits:         m.tallies.cacheHits,
		CacheMisses:       m.tallies.cacheMisses,
		ThreatsRecorded:   m.tallies.threats,
		PoisoningAttempts: m.tallies.poisonings,
		ProcessingErrors:  m.tallies.errors,
	}
	for mode, n := range m.tallies.modes {
		d.Modes[mode] = n
	}
	for reason, n := range m.tallies.blocked {
		d.Blocked[reason] = n
	}
	if lookups := m.tallies.cacheHits + m.tallies.cacheMisses; lookups > 0 {
		d.CacheHitRate = float64(m.tallies.cacheHits) / float64(lookups)
	}
	if m.tallies.claims > 0 {
		d.AvgLatencyMS = float64(m.tallies.latencySumMS) / float64(m.tallies.claims)
	}
	return d
}
