// internal/credentials/retry.go
package credentials

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// RetryPolicy repeats a login attempt with fresh credentials while the site
// keeps rejecting them. Rate limiting by the site aborts immediately.
type RetryPolicy struct {
	MaxAttempts int
	// Limiter spaces out attempts. Nil means no spacing.
	Limiter *rate.Limiter
	// Refresh supplies the credentials for the next attempt.
	Refresh func(previous pypi.Credentials, cause error) (pypi.Credentials, error)
	Logger  *zap.Logger
}

// NewLimiter allows one attempt right away and one more every interval.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Do runs attempt until it succeeds and returns the credentials that worked.
func (p RetryPolicy) Do(ctx context.Context, creds pypi.Credentials, attempt func(context.Context, pypi.Credentials) error) (pypi.Credentials, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	attempts := 0
	for i := 1; i <= maxAttempts; i++ {
		attempts = i
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return pypi.Credentials{}, fmt.Errorf("waiting before login attempt %d: %w", i, err)
			}
		}

		err := attempt(ctx, creds)
		if err == nil {
			return creds, nil
		}
		if !pypi.IsRetryableLogin(err) {
			return pypi.Credentials{}, err
		}
		lastErr = err
		logger.Warn("Login failed.", zap.Int("attempt", i), zap.Int("max_attempts", maxAttempts), zap.Error(err))

		if i == maxAttempts || p.Refresh == nil {
			break
		}
		if creds, err = p.Refresh(creds, err); err != nil {
			return pypi.Credentials{}, fmt.Errorf("getting new credentials: %w", err)
		}
	}

	logger.Error("Giving up.", zap.Error(lastErr))
	return pypi.Credentials{}, fmt.Errorf("giving up after %d login attempts: %w", attempts, lastErr)
}
