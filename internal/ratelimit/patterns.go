package ratelimit

import "time"

// detectPatterns flags suspicious but non-blocking behavior. Caller holds
// the lock; windows passed in are already pruned to the sliding window.
func (l *Limiter) detectPatterns(userID string, userWindow []submission, globalWindow []globalEntry, hash string, ts time.Time) []string {
	var patterns []string
	if l.detectWarming(userWindow, ts) {
		patterns = append(patterns, PatternWarming)
	}
	if l.detectCarousel(userWindow, hash) {
		patterns = append(patterns, PatternCarousel)
	}
	if l.detectSynchronized(userID, globalWindow, ts) {
		patterns = append(patterns, PatternSynchronized)
	}
	return patterns
}

// detectWarming spots a user ramping up: inter-submission intervals
// monotonically shrinking across at least three samples, with the incoming
// submission as the latest sample.
func (l *Limiter) detectWarming(window []submission, ts time.Time) bool {
	if len(window) < 3 {
		return false
	}

	recent := window[len(window)-3:]
	intervals := []time.Duration{
		recent[1].ts.Sub(recent[0].ts),
		recent[2].ts.Sub(recent[1].ts),
		ts.Sub(recent[2].ts),
	}
	for i := 1; i < len(intervals); i++ {
		if intervals[i] >= intervals[i-1] {
			return false
		}
	}
	return true
}

// detectCarousel spots a user rotating through claims: more than five
// distinct hashes in their last 20 submissions with a repeating consecutive
// pair, which distinguishes deliberate cycling from organic variety.
func (l *Limiter) detectCarousel(window []submission, hash string) bool {
	hashes := make([]string, 0, 21)
	start := 0
	if len(window) > 19 {
		start = len(window) - 19
	}
	for _, s := range window[start:] {
		hashes = append(hashes, s.hash)
	}
	hashes = append(hashes, hash)

	distinct := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		distinct[h] = struct{}{}
	}
	if len(distinct) <= 5 {
		return false
	}

	// Repeating sub-sequence of length >= 2.
	for i := 0; i+1 < len(hashes); i++ {
		for j := i + 1; j+1 < len(hashes); j++ {
			if hashes[i] == hashes[j] && hashes[i+1] == hashes[j+1] {
				return true
			}
		}
	}
	return false
}

// detectSynchronized spots multiple users hitting the same claim in the
// same one-second bucket: at least five submissions from at least three
// distinct users, counting the incoming one.
func (l *Limiter) detectSynchronized(userID string, globalWindow []globalEntry, ts time.Time) bool {
	bucket := ts.Unix()
	count := 1 // the incoming submission
	users := map[string]struct{}{userID: {}}
	for _, e := range globalWindow {
		if e.ts.Unix() == bucket {
			count++
			users[e.userID] = struct{}{}
		}
	}
	return count >= 5 && len(users) >= 3
}
