package source

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/aws/smithy-go"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 3

const (
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 5 * time.Second
)

// throttleCodes are AWS API error codes returned when a caller is rate limited.
var throttleCodes = map[string]bool{
	"Throttling":               true,
	"ThrottlingException":      true,
	"ThrottledException":       true,
	"RequestLimitExceeded":     true,
	"RequestThrottled":         true,
	"TooManyRequestsException": true,
	"SlowDown":                 true,
}

// isRetryable reports whether err is throttling or a transient server fault,
// either from an HTTP source or from the AWS SDK.
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= http.StatusInternalServerError
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return throttleCodes[ae.ErrorCode()] || ae.ErrorFault() == smithy.FaultServer
	}
	return false
}

// backoff yields exponentially growing delays, capped at maxRetryDelay, each
// stretched by up to half a step of jitter.
type backoff struct {
	delay time.Duration
}

func (b *backoff) next() time.Duration {
	d := b.delay + time.Duration(rand.Int63n(int64(b.delay)))/2
	b.delay = min(2*b.delay, maxRetryDelay)
	return d
}

// retry calls fn until it succeeds, fails with a non-retryable error, or has
// been retried maxRetries times.
func retry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	b := backoff{delay: baseRetryDelay}
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil || attempt >= maxRetries || !isRetryable(err) {
			return result, err
		}

		timer := time.NewTimer(b.next())
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
