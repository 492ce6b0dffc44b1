package middleware

import (
	"net/http"
	"time"
)

const timeoutBody = `{"error":"request timeout"}`

// Timeout cancels the request context after d and answers 503 with a JSON
// body if the handler has not finished. A non-positive d disables it.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}
