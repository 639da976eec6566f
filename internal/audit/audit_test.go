package audit

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/soullab/fieldgate/internal/model"
)

// syncBuffer makes a bytes.Buffer safe to share with the drain goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEmitWritesStructuredEvents(t *testing.T) {
	var buf syncBuffer
	l := New(zerolog.New(&buf), 8)

	l.Emit(Event{
		Type:       EventClaimProcessed,
		RequestID:  "req-1",
		UserID:     "user-1",
		ClaimHash:  "abcd1234abcd1234",
		Mode:       model.ModeVerified,
		Confidence: 0.91,
	})
	l.Close()

	out := buf.String()
	for _, want := range []string{EventClaimProcessed, "req-1", "user-1", "abcd1234abcd1234", "VERIFIED"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestEmitDropsInsteadOfBlocking(t *testing.T) {
	// A logger whose drain is already stopped can never free buffer space;
	// emits past the buffer size must drop, not hang.
	l := &Logger{
		log:  zerolog.Nop(),
		ch:   make(chan Event, 2),
		done: make(chan struct{}),
	}

	for i := 0; i < 5; i++ {
		l.Emit(Event{Type: EventClaimReceived})
	}

	if got := l.Dropped(); got != 3 {
		t.Errorf("dropped: got %d want 3", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	l := New(zerolog.Nop(), 4)
	l.Emit(Event{Type: EventCacheHit})
	l.Close()
	l.Close()
}
