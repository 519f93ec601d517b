// Package retry wraps cenkalti/backoff with the attempt budget and error
// classification used for remote store calls.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"CompetitionScanner/internal/domain"
)

// Policy retries an operation with exponential backoff.
type Policy struct {
	// MaxAttempts counts the first call. Values below 1 mean a single attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	// Retryable decides whether an error is worth another attempt.
	// Nil means DefaultRetryable.
	Retryable func(error) bool

	// Timer replaces the real timer in tests.
	Timer  backoff.Timer
	Logger *slog.Logger
}

// New returns a policy with a doubling delay starting at base.
func New(maxAttempts int, base time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: base, Multiplier: 2}
}

// DefaultRetryable retries everything except auth failures, validation
// failures and store-side conflicts.
func DefaultRetryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrAuth),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict):
		return false
	default:
		return true
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the attempt
// budget runs out, or ctx is done. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if p.Logger != nil {
			p.Logger.Warn("retrying after failure", "attempt", attempt, "wait", wait, "error", err)
		}
	}

	return backoff.RetryNotifyWithTimer(operation, p.backOff(ctx), notify, p.Timer)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = time.Second
	}
	exp.Multiplier = p.Multiplier
	if exp.Multiplier < 1 {
		exp.Multiplier = 2
	}
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}
