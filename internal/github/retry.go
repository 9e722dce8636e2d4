// internal/github/retry.go
package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
)

const (
	// Attempts per API call, including the first one.
	maxRetries = 3

	defaultMaxRateLimitWait = time.Minute
	secondaryRateLimitWait  = 5 * time.Second
)

// baseBackoff is the delay before the first retry of a server error; it doubles on each attempt.
var baseBackoff = 250 * time.Millisecond

// withRetry runs call until it succeeds, fails with a non-retryable error or
// runs out of attempts. Server errors are retried with exponential backoff and
// rate-limit errors wait for the advertised reset.
func withRetry[T any](ctx context.Context, c *Client, op string, call func() (T, *github.Response, error)) (T, *github.Response, error) {
	var (
		zero T
		resp *github.Response
		err  error
	)

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		var out T
		out, resp, err = call()
		if err == nil {
			return out, resp, nil
		}

		wait, retryable := c.retryDelay(err, attempt)
		if !retryable || attempt == c.maxRetries-1 {
			break
		}

		c.logger.Debug("Retrying GitHub call", "op", op, "attempt", attempt+1, "wait", wait.String(), "error", err)
		select {
		case <-ctx.Done():
			return zero, resp, ctx.Err()
		case <-time.After(wait):
		}
	}

	return zero, resp, fmt.Errorf("%s: %w", op, err)
}

// retryDelay reports how long to wait before retrying err, and whether err is
// worth retrying at all.
func (c *Client) retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time) + 100*time.Millisecond
		if wait < 0 {
			wait = 0
		}
		if wait > c.maxRateLimitWait {
			c.logger.Warn("Rate limit reset is too far away, giving up", "reset", rateErr.Rate.Reset.Time)
			return 0, false
		}
		return wait, true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := secondaryRateLimitWait
		if abuseErr.RetryAfter != nil {
			wait = *abuseErr.RetryAfter
		}
		if wait > c.maxRateLimitWait {
			return 0, false
		}
		return wait, true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= http.StatusInternalServerError {
		return addJitter(baseBackoff << attempt), true
	}

	return 0, false
}

// addJitter adds ±10% jitter to delay.
func addJitter(delay time.Duration) time.Duration {
	//nolint:gosec // math/rand is sufficient for jitter
	jitter := float64(delay) * 0.1 * (rand.Float64()*2 - 1)
	return delay + time.Duration(jitter)
}

// IsUnauthorized reports whether err is GitHub rejecting the token.
func IsUnauthorized(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusUnauthorized
}
