package pipeline

import (
	"context"
	"math"
	"time"

	"idvet/internal/screening"
)

// withRetry runs fn up to cfg.MaxAttempts times, backing off exponentially
// between attempts. Only failures classified as retryable earn another
// attempt; invalid responses and auth failures surface immediately.
func (o *Orchestrator) withRetry(ctx context.Context, service string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !screening.IsRetryable(err) || attempt == o.cfg.MaxAttempts {
			return err
		}

		o.metrics.IncRetry(service)
		o.log.Warn("pipeline.retry",
			"service", service,
			"attempt", attempt,
			"max_attempts", o.cfg.MaxAttempts,
			"error", err,
		)

		backoff := time.Duration(float64(o.cfg.BackoffBase) * math.Pow(o.cfg.BackoffFactor, float64(attempt-1)))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
	}
	return err
}
