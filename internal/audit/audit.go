// Package audit writes cascade lifecycle events to a structured log on a
// background goroutine. Emission is fire-and-forget: a full buffer drops the
// event rather than slowing the request path.
package audit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/soullab/fieldgate/internal/model"
)

// Event types emitted by the cascade.
const (
	EventClaimReceived   = "claim_received"
	EventCacheHit        = "cache_hit"
	EventThreatDetected  = "threat_detected"
	EventRateLimited     = "rate_limited"
	EventPoisoningFlag   = "poisoning_flagged"
	EventClaimProcessed  = "claim_processed"
	EventProcessingError = "processing_error"
)

// Event is one lifecycle record.
type Event struct {
	Type       string
	Timestamp  time.Time
	RequestID  string
	UserID     string
	ClaimHash  string
	Mode       model.Mode
	Confidence float64
	Detail     string
}

// Logger drains events onto a zerolog sink. Create with New, stop with Close.
type Logger struct {
	log     zerolog.Logger
	ch      chan Event
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// New starts the drain goroutine. Buffer must be positive; 256 is a
// reasonable default for a single-process deployment.
func New(log zerolog.Logger, buffer int) *Logger {
	if buffer <= 0 {
		buffer = 256
	}
	l := &Logger{
		log:  log,
		ch:   make(chan Event, buffer),
		done: make(chan struct{}),
	}
	go l.drain()
	return l
}

// Emit queues an event. Never blocks: when the buffer is full the event is
// counted as dropped and discarded.
func (l *Logger) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case l.ch <- ev:
	default:
		l.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (l *Logger) Dropped() int64 { return l.dropped.Load() }

// Close stops the drain goroutine after flushing queued events.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		close(l.ch)
		<-l.done
	})
}

func (l *Logger) drain() {
	defer close(l.done)
	for ev := range l.ch {
		e := l.log.Info().
			Str("event", ev.Type).
			Time("at", ev.Timestamp)
		if ev.RequestID != "" {
			e = e.Str("request_id", ev.RequestID)
		}
		if ev.UserID != "" {
			e = e.Str("user_id", ev.UserID)
		}
		if ev.ClaimHash != "" {
			e = e.Str("claim_hash", ev.ClaimHash)
		}
		if ev.Mode != "" {
			e = e.Str("mode", string(ev.Mode)).Float64("confidence", ev.Confidence)
		}
		if ev.Detail != "" {
			e = e.Str("detail", ev.Detail)
		}
		e.Msg("audit")
	}
}
