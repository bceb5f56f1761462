// Package robot implements the deterministic search routine and the
// retrying click/fill primitives it is built from.
package robot

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
)

// RetryPolicy runs an operation up to Attempts times, sleeping Delay between tries.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is one retry after a short fixed pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 2, Delay: 800 * time.Millisecond}
}

// Do calls op until it succeeds, attempts run out or ctx is done. Driver
// faults are never retried.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err != nil && browser.IsFault(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// BestEffort runs an optional step and discards its failure.
func BestEffort(ctx context.Context, log logger.Logger, name string, op func() error) {
	if err := op(); err != nil {
		log.Debug(ctx, "optional step skipped", map[string]interface{}{
			"step":  name,
			"error": err.Error(),
		})
	}
}
