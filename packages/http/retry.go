package http

import (
	"context"
	"slices"
	"time"
)

// DefaultRetryStatusCodes are retried when no explicit set is configured.
var DefaultRetryStatusCodes = []int{500, 503}

// AttemptFunc performs exactly one request/response cycle. attempt starts
// at 1.
type AttemptFunc func(ctx context.Context, attempt int) (*Response, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy re-runs an attempt while the received status is in
// StatusCodes. The delay between attempts is constant.
type RetryPolicy struct {
	// MaxRetries caps the total number of attempts. Zero or less disables
	// retrying.
	MaxRetries  int
	Delay       time.Duration
	StatusCodes []int
	Sleep       SleepFunc
	// OnRetry runs before each delay with the attempt that just finished.
	OnRetry func(attempt int, resp *Response)
}

// Execute calls fn until it returns a non-retryable status or the attempt
// budget is spent. Running out of attempts is not an error: the last
// response is returned as-is. Errors from fn are returned immediately.
func (p RetryPolicy) Execute(ctx context.Context, fn AttemptFunc) (*Response, error) {
	attempts := 1
	for {
		resp, err := fn(ctx, attempts)
		if err != nil {
			return nil, err
		}
		if p.MaxRetries <= 0 || !p.Retryable(resp.StatusCode) || attempts >= p.MaxRetries {
			return resp, nil
		}

		if p.OnRetry != nil {
			p.OnRetry(attempts, resp)
		}
		if err := p.sleep(ctx); err != nil {
			return nil, &TransportError{Err: err}
		}
		attempts++
	}
}

// Retryable reports whether status is in the retry set.
func (p RetryPolicy) Retryable(status int) bool {
	codes := p.StatusCodes
	if codes == nil {
		codes = DefaultRetryStatusCodes
	}
	return slices.Contains(codes, status)
}

func (p RetryPolicy) sleep(ctx context.Context) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, p.Delay)
	}
	return Sleep(ctx, p.Delay)
}

// Sleep blocks for d, returning early with ctx's error if it is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
