package ghapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitStateUpdate(t *testing.T) {
	s := NewRateLimitState()
	assert.False(t, s.Snapshot().Known)

	h := http.Header{}
	h.Set("X-RateLimit-Remaining", "42")
	h.Set("X-RateLimit-Limit", "5000")
	h.Set("X-RateLimit-Reset", "1709294400")
	s.Update(h)

	rl := s.Snapshot()
	assert.True(t, rl.Known)
	assert.Equal(t, 42, rl.Remaining)
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, time.Unix(1709294400, 0).UTC(), rl.Reset)

	s.Update(http.Header{})
	assert.Equal(t, 42, s.Snapshot().Remaining, "responses without quota headers keep the state")
}

func TestPreemptiveWaitThreshold(t *testing.T) {
	s := NewRateLimitState()
	reset := testNow.Add(time.Minute)

	s.Set(RateLimit{Remaining: 249, Limit: 5000, Reset: reset, Known: true})
	assert.Equal(t, time.Minute, s.PreemptiveWait(testNow, 0.05))

	s.Set(RateLimit{Remaining: 250, Limit: 5000, Reset: reset, Known: true})
	assert.Zero(t, s.PreemptiveWait(testNow, 0.05))

	s.Set(RateLimit{Remaining: 0, Limit: 0, Reset: reset, Known: true})
	assert.Zero(t, s.PreemptiveWait(testNow, 0.05), "unknown ceiling never throttles")
}

func TestComputeWait(t *testing.T) {
	reset := testNow.Add(30 * time.Second)
	assert.Equal(t, 5*time.Second, computeWait(0, true, reset, 5, testNow))
	assert.Equal(t, 30*time.Second, computeWait(0, true, reset, 0, testNow))
	assert.Zero(t, computeWait(10, true, reset, 0, testNow))
	assert.Zero(t, computeWait(0, false, time.Time{}, 0, testNow))
}

func TestNextLink(t *testing.T) {
	h := http.Header{}
	h.Add("Link", `<https://api.example.com/x?page=3>; rel="next", <https://api.example.com/x?page=9>; rel="last"`)
	assert.Equal(t, "https://api.example.com/x?page=3", nextLink(h))
	assert.Empty(t, nextLink(http.Header{}))
}
