package reliability

import (
	"strings"
	"time"
)

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsQuotaFailure reports whether a model error message indicates quota or
// rate-limit exhaustion. These failures warrant a canned-response fallback
// rather than a retry storm.
func IsQuotaFailure(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{"quota", "rate limit", "429", "resource_exhausted", "resource exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsTransientModelFailure classifies model errors worth one more attempt.
func IsTransientModelFailure(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{"unavailable", "deadline", "timeout", "500", "502", "503", "504", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ExponentialBackoff computes a deterministic capped backoff duration.
func ExponentialBackoff(attempt int, base, cap time.Duration) time.Duration {
	if attempt <= 0 {
		return base
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	return d
}
