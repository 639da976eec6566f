// Package ratelimit tracks per-user and global claim submission velocity
// and detects rapid-fire, coordinated and rotating attack patterns.
//
// All state mutation happens under one lock so two racing requests for the
// same user can never both pass a check that should have blocked the second.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/soullab/fieldgate/internal/fingerprint"
	"github.com/soullab/fieldgate/internal/model"
)

// Block reasons surfaced on RateDecision. Callers translate these into a
// user-facing invitation to rephrase; the detection internals stay here.
const (
	ReasonUserBlocked = "user_temporarily_blocked"
	ReasonUserRate    = "user_rate_exceeded"
	ReasonUserBurst   = "user_burst_exceeded"
	ReasonGlobalRate  = "global_rate_exceeded"
)

// Pattern flags reported on non-blocking suspicious activity.
const (
	PatternWarming      = "warming_attack"
	PatternCarousel     = "carousel_attack"
	PatternSynchronized = "synchronized_attack"
)

type submission struct {
	hash string
	ts   time.Time
}

type globalEntry struct {
	userID string
	ts     time.Time
}

// Limiter is the submission velocity tracker. Construct with New; zero
// value is not usable.
type Limiter struct {
	cfg model.RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	users   map[string][]submission  // per-user window, all claims
	global  map[string][]globalEntry // per-claim-hash window, all users
	blocked map[string]time.Time     // userID -> block expiry
}

// New creates a limiter with the given configuration.
func New(cfg model.RateLimitConfig) *Limiter {
	return &Limiter{
		cfg:     cfg,
		now:     time.Now,
		users:   make(map[string][]submission),
		global:  make(map[string][]globalEntry),
		blocked: make(map[string]time.Time),
	}
}

// SetClock overrides the time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) { l.now = now }

// CheckRapidFire records one submission attempt and decides whether it is
// allowed. A non-blocked check appends to the user and global windows; a
// blocked one leaves them untouched.
func (l *Limiter) CheckRapidFire(userID, claim string, ts time.Time) model.RateDecision {
	if ts.IsZero() {
		ts = l.now()
	}
	hash := fingerprint.Hash(claim)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Expired blocks are removed lazily on the next check.
	if expiry, ok := l.blocked[userID]; ok {
		if ts.Before(expiry) {
			return model.RateDecision{Blocked: true, Reason: ReasonUserBlocked, Severity: "high"}
		}
		delete(l.blocked, userID)
	}

	window := l.usersInWindow(userID, ts)

	sameHash := 0
	burst := 0
	burstCutoff := ts.Add(-l.cfg.BurstWindow)
	for _, s := range window {
		if s.hash == hash {
			sameHash++
		}
		if s.ts.After(burstCutoff) {
			burst++
		}
	}

	// A non-positive limit disables that check.
	if l.cfg.UserLimit > 0 && sameHash >= l.cfg.UserLimit {
		l.blocked[userID] = ts.Add(l.cfg.Cooldown)
		return model.RateDecision{Blocked: true, Reason: ReasonUserRate, Severity: "high"}
	}
	if l.cfg.BurstLimit > 0 && burst >= l.cfg.BurstLimit {
		l.blocked[userID] = ts.Add(l.cfg.Cooldown)
		return model.RateDecision{Blocked: true, Reason: ReasonUserBurst, Severity: "high"}
	}

	globalWindow, distinctUsers := l.globalInWindow(hash, ts)
	if l.cfg.GlobalLimit > 0 && len(globalWindow) >= l.cfg.GlobalLimit {
		return model.RateDecision{
			Blocked:     true,
			Reason:      ReasonGlobalRate,
			Severity:    "critical",
			Coordinated: distinctUsers > l.cfg.CoordinatedUsers,
		}
	}

	decision := model.RateDecision{
		Coordinated: distinctUsers > l.cfg.CoordinatedUsers,
	}
	decision.Patterns = l.detectPatterns(userID, window, globalWindow, hash, ts)

	l.users[userID] = append(window, submission{hash: hash, ts: ts})
	l.global[hash] = append(globalWindow, globalEntry{userID: userID, ts: ts})

	return decision
}

// usersInWindow returns the user's submissions still inside the sliding
// window, replacing the stored slice so expired entries do not accumulate
// between sweeps.
func (l *Limiter) usersInWindow(userID string, ts time.Time) []submission {
	cutoff := ts.Add(-l.cfg.Window)
	kept := l.users[userID][:0]
	for _, s := range l.users[userID] {
		if s.ts.After(cutoff) {
			kept = append(kept, s)
		}
	}
	l.users[userID] = kept
	return kept
}

func (l *Limiter) globalInWindow(hash string, ts time.Time) ([]globalEntry, int) {
	cutoff := ts.Add(-l.cfg.Window)
	kept := l.global[hash][:0]
	users := make(map[string]struct{})
	for _, e := range l.global[hash] {
		if e.ts.After(cutoff) {
			kept = append(kept, e)
			users[e.userID] = struct{}{}
		}
	}
	l.global[hash] = kept
	return kept, len(users)
}

// Sweep drops window entries older than twice the window and expired blocks.
// Safe to run concurrently with checks; it copies before filtering.
func (l *Limiter) Sweep() {
	now := l.now()
	cutoff := now.Add(-2 * l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for userID, window := range l.users {
		kept := make([]submission, 0, len(window))
		for _, s := range window {
			if s.ts.After(cutoff) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(l.users, userID)
		} else {
			l.users[userID] = kept
		}
	}

	for hash, window := range l.global {
		kept := make([]globalEntry, 0, len(window))
		for _, e := range window {
			if e.ts.After(cutoff) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(l.global, hash)
		} else {
			l.global[hash] = kept
		}
	}

	for userID, expiry := range l.blocked {
		if now.After(expiry) {
			delete(l.blocked, userID)
		}
	}
}

// StartSweeper runs Sweep on the configured interval until ctx is done.
func (l *Limiter) StartSweeper(ctx context.Context) {
	interval := l.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}
