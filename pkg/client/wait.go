package client

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// WaitForStatus calls fn every interval until validate accepts its result or
// timeout passes. A nil validate accepts the first result. Errors from fn end
// the wait immediately. On timeout the last result is returned alongside
// ErrWaitTimeout.
func WaitForStatus[T any](ctx context.Context, fn func(context.Context) (T, error), validate func(T) bool, interval, timeout time.Duration) (T, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result T
	operation := func() error {
		r, err := fn(waitCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		result = r
		if validate != nil && !validate(r) {
			return ErrStatusPending
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(interval), waitCtx)
	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		log.Debug().Err(err).Dur("next", next).Msg("Status not reached, polling again")
	})
	if err == nil {
		return result, nil
	}

	if waitCtx.Err() != nil && ctx.Err() == nil {
		return result, fmt.Errorf("%w after %s", ErrWaitTimeout, timeout)
	}
	return result, err
}
