package objects

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"front50store/internal/storage"
)

// RetryPolicy bounds retries of idempotent backend calls. Writes are never retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) run(ctx context.Context, op func() error) error {
	if p.MaxAttempts <= 1 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// retryable reports whether another attempt could succeed. Rejections the
// backend classifies as client errors (403, bad keys, validation) are final.
func retryable(err error) bool {
	var decodeErr *DeserializationError
	switch {
	case storage.IsPermanent(err),
		errors.Is(err, ErrTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &decodeErr):
		return false
	}
	return true
}
