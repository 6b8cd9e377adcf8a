package fetch

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"
)

// IsRetryable reports whether a download error is worth retrying: transport
// failures, 429 and 5xx responses. Invalid sources never are.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrInvalidSource) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	if netErr.StatusCode == 0 {
		return true
	}
	return netErr.StatusCode == http.StatusTooManyRequests || netErr.StatusCode >= 500
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	attempt = min(max(attempt, 0), 5)
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
