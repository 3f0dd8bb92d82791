// Package retry defines the retry policy applied to individual AI
// invocations before a conversation is marked failed.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/tigerroll/scorin/pkg/assess/support/util/exception"
)

// Policy decides whether an error is retryable and how long to back off
// between attempts.
type Policy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// BackoffInterval returns the waiting time before the given attempt
	// number (starting from 1).
	BackoffInterval(attempt int) time.Duration
	// MaxAttempts returns the maximum number of attempts, including the
	// first.
	MaxAttempts() int
}

// NewFixedPolicy creates a policy with a fixed backoff interval. Errors
// are retryable when flagged as temporary or when they match one of the
// configured exception type names.
func NewFixedPolicy(maxAttempts int, initialInterval time.Duration, retryableExceptions []string) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &fixedPolicy{
		maxAttempts:         maxAttempts,
		initialInterval:     initialInterval,
		retryableExceptions: retryableExceptions,
	}
}

type fixedPolicy struct {
	maxAttempts         int
	initialInterval     time.Duration
	retryableExceptions []string
}

func (p *fixedPolicy) MaxAttempts() int {
	return p.maxAttempts
}

func (p *fixedPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	// Never retry an invocation whose context was cancelled: the job is
	// being cancelled or the call deadline has passed.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if exception.IsTemporary(err) {
		return true
	}
	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

func (p *fixedPolicy) BackoffInterval(attempt int) time.Duration {
	return p.initialInterval
}

// Do runs fn under the policy, sleeping the backoff interval between
// attempts. It returns the last error when all attempts fail, and stops
// early if ctx is done while backing off.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts(); attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxAttempts() || !policy.ShouldRetry(lastErr) {
			return lastErr
		}

		timer := time.NewTimer(policy.BackoffInterval(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}
	return lastErr
}

var _ Policy = (*fixedPolicy)(nil)
