// Package retry wraps cenkalti/backoff for store and cache calls on the hot path.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxRetries      uint64        `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Default: 3 повтора, 200ms -> 2s.
func Default() Policy {
	return Policy{MaxRetries: 3, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second}
}

// None - одна попытка, без повторов. Удобно в тестах.
func None() Policy { return Policy{} }

// Do runs op until it succeeds, returns a backoff.Permanent error, the retries
// are exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op func() error) error {
	return DoNotify(ctx, p, op, nil)
}

// DoNotify is Do with a hook called before every retry.
func DoNotify(ctx context.Context, p Policy, op func() error, notify func(err error, next time.Duration)) error {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx), notify)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return backoff.Permanent(err) }
