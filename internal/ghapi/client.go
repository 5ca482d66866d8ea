// Package ghapi provides a rate-limit aware client for the GitHub REST v3 API.
package ghapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/huangsam/hourglass/internal/logger"
)

const (
	baseURLDefault      = "https://api.github.com"
	defaultTimeout      = 30 * time.Second
	defaultUA           = "hourglass"
	defaultMaxRetry     = 5
	defaultMaxTransient = 3
	defaultRetryBase    = time.Second
	defaultMaxWait      = time.Minute
	defaultLowWater     = 0.05
	defaultMaxSleep     = 15 * time.Minute
	defaultPerPage      = 100
)

// Options configures the Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Token     string
	Timeout   time.Duration

	// Retry budget for rate-limited responses and the smaller one for
	// transport errors and 5xx responses.
	MaxRetries          int
	MaxTransientRetries int

	// RetryBase doubles per attempt up to MaxWait.
	RetryBase time.Duration
	MaxWait   time.Duration

	// LowWater is the fraction of the quota under which calls wait for the
	// reset, for at most MaxSleep.
	LowWater float64
	MaxSleep time.Duration

	// DisableRateLimit skips the pre-emptive quota check.
	DisableRateLimit bool

	PerPage int
}

// Client is a GitHub REST client with quota tracking and bounded retries.
type Client struct {
	http  *http.Client
	opts  Options
	state *RateLimitState
	log   *logger.Logger
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewClient creates a new Client with sane defaults. A nil state gets a fresh one.
func NewClient(o Options, state *RateLimitState) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.MaxTransientRetries <= 0 {
		o.MaxTransientRetries = defaultMaxTransient
	}
	if o.MaxTransientRetries > o.MaxRetries {
		o.MaxTransientRetries = o.MaxRetries
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.MaxWait <= 0 {
		o.MaxWait = defaultMaxWait
	}
	if o.LowWater <= 0 {
		o.LowWater = defaultLowWater
	}
	if o.MaxSleep <= 0 {
		o.MaxSleep = defaultMaxSleep
	}
	if o.PerPage <= 0 || o.PerPage > 100 {
		o.PerPage = defaultPerPage
	}
	if state == nil {
		state = NewRateLimitState()
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		state: state,
		log:   logger.Named("ghapi"),
		now:   time.Now,
		sleep: sleepContext,
	}
}

// RateLimit returns the last quota reported by the API.
func (c *Client) RateLimit() RateLimit {
	return c.state.Snapshot()
}

// Call issues a GET for path (relative to the base URL, or absolute when
// following a pagination link) and returns a 2xx response. The caller
// closes the body.
func (c *Client) Call(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	target := c.resolve(path, params)
	schedule := c.newSchedule()
	rateAttempts, transientAttempts := 0, 0

	fail := func(kind ErrorKind, status int, err error) error {
		return &APIError{Kind: kind, Status: status, Path: path, Attempts: rateAttempts + transientAttempts + 1, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fail(Transient, 0, err)
		}
		if !c.opts.DisableRateLimit {
			if wait := c.state.PreemptiveWait(c.now(), c.opts.LowWater); wait > 0 {
				wait = min(wait, c.opts.MaxSleep)
				c.log.Warn().Dur("sleep", wait).Str("path", path).Msg("quota below low-water mark, waiting for reset")
				if err := c.sleep(ctx, wait); err != nil {
					return nil, fail(Transient, 0, err)
				}
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fail(Unexpected, 0, fmt.Errorf("new request: %w", err))
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if c.opts.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.Token)
		}

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)

		if err != nil {
			if ctx.Err() != nil || transientAttempts >= c.opts.MaxTransientRetries {
				return nil, fail(Transient, 0, err)
			}
			back := schedule.NextBackOff()
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", transientAttempts).Msg("transport error, retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, fail(Transient, 0, err)
			}
			transientAttempts++
			continue
		}

		c.state.Update(resp.Header)
		rem, hasRem, reset, retryAfter := parseRateHeaders(resp.Header)
		c.log.Debug().
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("latency", lat).
			Int("rate_remaining", rem).
			Time("rate_reset", reset).
			Msg("http response")

		status := resp.StatusCode
		switch {
		case status >= 200 && status < 300:
			return resp, nil

		case status == http.StatusTooManyRequests,
			status == http.StatusForbidden && (retryAfter > 0 || (hasRem && rem <= 0)):
			_ = drainAndClose(resp.Body)
			if rateAttempts >= c.opts.MaxRetries {
				return nil, fail(RateLimited, status, errors.New("retry budget exhausted"))
			}
			// Advance the schedule even when a header sets the wait.
			back := schedule.NextBackOff()
			wait := computeWait(rem, hasRem, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = back
			}
			wait = min(wait, c.opts.MaxSleep)
			c.log.Warn().Dur("sleep", wait).Int("attempt", rateAttempts).Str("path", path).Msg("rate limited, backing off")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, fail(RateLimited, status, err)
			}
			rateAttempts++

		case kindForStatus(status) == Transient:
			_ = drainAndClose(resp.Body)
			if transientAttempts >= c.opts.MaxTransientRetries {
				return nil, fail(Transient, status, errors.New("server error"))
			}
			back := schedule.NextBackOff()
			c.log.Warn().Int("status", status).Dur("retry_in", back).Int("attempt", transientAttempts).Msg("transient server error, retrying")
			if err := c.sleep(ctx, back); err != nil {
				return nil, fail(Transient, status, err)
			}
			transientAttempts++

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, fail(kindForStatus(status), status, fmt.Errorf("unexpected status body %s", strings.TrimSpace(string(body))))
		}
	}
}

// newSchedule returns a deterministic exponential schedule: base, 2*base,
// 4*base and so on, capped at MaxWait.
func (c *Client) newSchedule() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.opts.RetryBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         c.opts.MaxWait,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// resolve joins the base URL, path and query parameters.
func (c *Client) resolve(path string, params url.Values) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.opts.BaseURL + path
	}
	if len(params) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + params.Encode()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
