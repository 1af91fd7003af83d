// Package resilience provides retry with exponential backoff for the
// side-effecting stages of an analysis (artifact upload and record save).
package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy configures Retry. Zero fields fall back to DefaultPolicy values.
type Policy struct {
	MaxAttempts     int           `mapstructure:"max_attempts"     validate:"gte=0"`
	InitialInterval time.Duration `mapstructure:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval"     validate:"gte=0"`
}

// DefaultPolicy is used for every zero field of a Policy.
var DefaultPolicy = Policy{
	MaxAttempts:     3,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultPolicy.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = DefaultPolicy.MaxInterval
	}
	return p
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Retry runs op until it succeeds, returns a Permanent error, exhausts the
// policy's attempts or ctx is done. The last error is returned unchanged.
func Retry[T any](ctx context.Context, log *slog.Logger, name string, p Policy, op func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	attempt := 0
	return backoff.Retry(ctx,
		func() (T, error) {
			attempt++
			return op(ctx)
		},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxAttempts)), //nolint:gosec // validated non-negative
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WarnContext(ctx, "Operation failed, retrying",
				"operation", name, "attempt", attempt, "max_attempts", p.MaxAttempts, "next_in", next, "error", err)
		}),
	)
}
