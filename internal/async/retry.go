package async

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy defines retry behavior for an async operation.
type Policy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
	Retryable       func(error) bool
}

// DefaultPolicy provides sensible defaults.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialDelay:    2 * time.Second,
	MaxDelay:        30 * time.Second,
	BackoffMultiple: 2.0,
	Retryable:       IsRetryable,
}

// normalized fills zero fields from DefaultPolicy and enforces
// MaxDelay >= InitialDelay.
func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultPolicy.InitialDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.BackoffMultiple <= 1 {
		p.BackoffMultiple = DefaultPolicy.BackoffMultiple
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

// Do executes fn with bounded retries and exponential backoff. A
// non-retryable error aborts immediately; otherwise the last error is
// returned after MaxAttempts total attempts. Panics inside fn are
// recovered and treated like any other failure.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	p := policy.normalized()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := attemptOnce(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err
		if !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt, p)):
		}
	}

	if p.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, lastErr)
}

func attemptOnce(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func backoffDelay(attempt int, p Policy) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiple, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}
