package evidence

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumenpath/investigator/internal/apperrors"
)

// jitterLimiter supplies the retry backoff window. Reusing x/time/rate's
// reservation timing keeps the jitter calculation consistent with the
// planner egress guard's rate limiting rather than a second hand-rolled
// scheme.
var jitterLimiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

// retryOnce runs fn, and on a transient error (apperrors.IsRetryable) waits
// a jittered backoff and runs it exactly once more. A fatal error returns
// immediately with no retry. Used only for the search and recognize calls;
// the scene filter and planner are not retried here.
func retryOnce(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if !apperrors.IsRetryable(err) {
		return err
	}

	delay := jitterLimiter.ReserveN(time.Now(), 1).Delay() + time.Duration(rand.Intn(50))*time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}
