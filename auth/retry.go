package auth

import (
	"context"
	"errors"

	"github.com/avast/retry-go/v4"
	"github.com/jrsteele09/go-vtiger/crmmodel"
	"github.com/rs/zerolog"
)

// permanentError stops a retry loop.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Retry runs fn until it succeeds, returns an error wrapped by permanent, the
// context ends, or policy.MaxAttempts attempts have been made.
// exhausted is true only when the attempt budget ran out.
func Retry(ctx context.Context, policy RetryPolicy, logger zerolog.Logger, op crmmodel.OperationType, fn func(attempt int) error) (attempts int, exhausted bool, err error) {
	policy = policy.normalized()

	var stopped error
	err = retry.Do(
		func() error {
			attempts++
			err := fn(attempts)
			if err == nil {
				return nil
			}
			var p *permanentError
			if errors.As(err, &p) {
				stopped = p.err
				return retry.Unrecoverable(p.err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(policy.MaxAttempts)),
		retry.Delay(policy.Delay),
		retry.MaxDelay(policy.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn().
				Err(err).
				Str("operation", op.String()).
				Uint("attempt", n+1).
				Int("max_attempts", policy.MaxAttempts).
				Msg("attempt failed")
		}),
	)

	switch {
	case stopped != nil:
		return attempts, false, stopped
	case err == nil:
		return attempts, false, nil
	case ctx.Err() != nil:
		return attempts, false, ctx.Err()
	default:
		return attempts, true, err
	}
}
