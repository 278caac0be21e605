package broker

import (
	"context"
	"fmt"
	"time"

	"copytrader/config"
)

// RetryPolicy bounds and paces retries for outbound broker calls.
// Delay doubles (or grows by Multiplier) after each failed attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// PolicyFromConfig builds a RetryPolicy from configuration, filling defaults.
func PolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2.0
	}
	return p
}

// Do runs op up to MaxAttempts times, sleeping between attempts.
// Every error from op counts as retryable; callers must validate
// inputs before entering the loop. The last error is returned after
// exhaustion, wrapped with the attempt count.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	var lastErr error

	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
	}

	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, lastErr)
}

// StatusError is returned when the broker answers with a non-2xx status.
// It survives retry exhaustion so callers see the last status and body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("broker returned %d: %s", e.Status, e.Body)
}
