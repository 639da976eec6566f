package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/soullab/fieldgate/internal/model"
)

func TestSnapshotAggregates(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveClaim(model.ModeVerified, model.SourceLive, 0.9, 40*time.Millisecond)
	m.ObserveClaim(model.ModeVerified, model.SourceCache, 0.9, 2*time.Millisecond)
	m.ObserveClaim(model.ModeExploratory, model.SourceLive, 0.1, 10*time.Millisecond)
	m.ObserveBlocked("user_rate_exceeded")
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveThreat()
	m.ObservePoisoning()
	m.ObserveError()

	d := m.Snapshot()

	if d.Claims != 3 {
		t.Errorf("claims: got %d want 3", d.Claims)
	}
	if d.Modes[model.ModeVerified] != 2 || d.Modes[model.ModeExploratory] != 1 {
		t.Errorf("modes: got %v", d.Modes)
	}
	if d.Blocked["user_rate_exceeded"] != 1 {
		t.Errorf("blocked: got %v", d.Blocked)
	}
	if got, want := d.CacheHitRate, 1.0/3.0; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("cache hit rate: got %.4f want %.4f", got, want)
	}
	if d.ThreatsRecorded != 1 || d.PoisoningAttempts != 1 || d.ProcessingErrors != 1 {
		t.Errorf("counters: %+v", d)
	}
	if d.AvgLatencyMS <= 0 {
		t.Errorf("avg latency must be positive, got %.2f", d.AvgLatencyMS)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := New(nil)
	m.ObserveClaim(model.ModeLikely, model.SourceLive, 0.7, time.Millisecond)

	d := m.Snapshot()
	d.Modes[model.ModeLikely] = 99

	if m.Snapshot().Modes[model.ModeLikely] != 1 {
		t.Error("mutating a snapshot must not affect the metrics")
	}
}
