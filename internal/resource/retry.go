package resource

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/ternarybob/arbor"

	dcerrors "github.com/ternarybob/datacat/internal/errors"
)

// RetryPolicy implements the HTTP resource's bounded exponential-backoff
// retry behaviour: retry on the configured status codes and on transport
// errors only, up to MaxAttempts, with jittered exponential backoff.
type RetryPolicy struct {
	MaxAttempts          int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	BackoffMultiplier    float64
	RetryableStatusCodes []int
}

// NewRetryPolicy returns the default HTTP resource retry policy: 3
// attempts, 1s initial backoff doubling to a 30s ceiling, retrying on
// {408, 429, 500, 502, 503, 504}.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
	}
}

// WithMaxAttempts overrides MaxAttempts and returns the policy for
// chaining.
func (p *RetryPolicy) WithMaxAttempts(n int) *RetryPolicy {
	if n > 0 {
		p.MaxAttempts = n
	}
	return p
}

// isRetryableStatusCode reports whether statusCode is in the configured
// retryable set.
func (p *RetryPolicy) isRetryableStatusCode(statusCode int) bool {
	for _, code := range p.RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// ShouldRetry decides whether another attempt should be made given the
// previous attempt's outcome.
func (p *RetryPolicy) ShouldRetry(attempt, statusCode int, err error) bool {
	if attempt >= p.MaxAttempts-1 {
		return false
	}
	if statusCode > 0 {
		return p.isRetryableStatusCode(statusCode)
	}
	return isRetryableError(err)
}

// CalculateBackoff returns the exponential backoff duration for attempt,
// with +/-25% jitter, capped at MaxBackoff.
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff) * pow(p.BackoffMultiplier, float64(attempt))
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoff += jitter
	if backoff < 0 {
		backoff = float64(p.InitialBackoff)
	}

	return time.Duration(backoff)
}

// ExecuteWithRetry runs fn, which must return an HTTP status code (0 if
// the request never reached the server) and an error, retrying per
// policy. It blocks between attempts unless ctx is cancelled first.
func (p *RetryPolicy) ExecuteWithRetry(ctx context.Context, logger arbor.ILogger, fn func() (int, error)) (int, error) {
	var lastErr error
	var statusCode int

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		statusCode, lastErr = fn()

		if lastErr == nil && !p.isRetryableStatusCode(statusCode) {
			return statusCode, nil
		}

		if !p.ShouldRetry(attempt, statusCode, lastErr) {
			return statusCode, lastErr
		}

		backoff := p.CalculateBackoff(attempt)
		logger.Debug().
			Int("attempt", attempt+1).
			Int("status_code", statusCode).
			Err(lastErr).
			Dur("backoff", backoff).
			Msg("retrying fetch after backoff")

		select {
		case <-ctx.Done():
			return statusCode, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return statusCode, lastErr
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, dcerrors.ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func pow(base, exp float64) float64 {
	result := 1.0
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	return result
}
