package service

import (
	"context"
	"time"

	"github.com/ayo6706/wallet-reserve/internal/domain"
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 25 * time.Millisecond
)

// retryConflicts runs fn, retrying only on concurrency conflicts with linear
// backoff. Every other error, and a cancelled context, returns immediately.
func retryConflicts(ctx context.Context, maxRetries int, backoff time.Duration, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !domain.IsRetryable(err) || attempt >= maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff * time.Duration(attempt+1)):
		}
	}
}
