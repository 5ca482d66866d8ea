package ghapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimit is a point-in-time copy of the quota reported by the API.
type RateLimit struct {
	Remaining int
	Limit     int
	Reset     time.Time
	Known     bool
}

// RateLimitState tracks the quota across the calls of one scanning session.
// It is owned by a single Client and updated after every response.
type RateLimitState struct {
	mu  sync.Mutex
	cur RateLimit
}

// NewRateLimitState returns an empty state. Nothing is throttled until the
// first response reports a quota.
func NewRateLimitState() *RateLimitState {
	return &RateLimitState{}
}

// Update records the quota headers of a response. Missing headers leave the
// previous values in place.
func (s *RateLimitState) Update(h http.Header) {
	rem, okRem := headerInt(h, "X-RateLimit-Remaining")
	lim, okLim := headerInt(h, "X-RateLimit-Limit")
	reset, okReset := headerInt(h, "X-RateLimit-Reset")
	if !okRem && !okLim && !okReset {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if okRem {
		s.cur.Remaining = rem
	}
	if okLim {
		s.cur.Limit = lim
	}
	if okReset && reset > 0 {
		s.cur.Reset = time.Unix(int64(reset), 0).UTC()
	}
	s.cur.Known = true
}

// Set replaces the state, mostly useful in tests and for cached sessions.
func (s *RateLimitState) Set(rl RateLimit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = rl
}

// Snapshot returns a copy of the current quota.
func (s *RateLimitState) Snapshot() RateLimit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// PreemptiveWait returns how long to sleep before the next call. It is
// non-zero only when the remaining quota is under lowWater of the limit
// and the reset instant is still ahead.
func (s *RateLimitState) PreemptiveWait(now time.Time, lowWater float64) time.Duration {
	rl := s.Snapshot()
	if !rl.Known || rl.Limit <= 0 || rl.Reset.IsZero() {
		return 0
	}
	if float64(rl.Remaining) >= lowWater*float64(rl.Limit) {
		return 0
	}
	if !rl.Reset.After(now) {
		return 0
	}
	return rl.Reset.Sub(now)
}

// parseRateHeaders extracts the values used for the rate-limit decision.
func parseRateHeaders(h http.Header) (remaining int, hasRemaining bool, reset time.Time, retryAfter int) {
	remaining, hasRemaining = headerInt(h, "X-RateLimit-Remaining")
	if sec, ok := headerInt(h, "X-RateLimit-Reset"); ok && sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}
	retryAfter, _ = headerInt(h, "Retry-After")
	return
}

// computeWait decides how long to wait based on headers. Zero means the
// headers gave no hint and the backoff schedule applies.
func computeWait(remaining int, hasRemaining bool, reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}
	if hasRemaining && remaining <= 0 && reset.After(now) {
		return reset.Sub(now)
	}
	return 0
}

func headerInt(h http.Header, key string) (int, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
