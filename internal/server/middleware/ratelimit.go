package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Uses a sliding window algorithm.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// RateLimitByFormField limits requests keyed on a submitted form value
// (for example the username on a login form), so guessing against one
// account is throttled regardless of source address. Requests without the
// field share a single bucket.
func RateLimitByFormField(field string, requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return strings.ToLower(strings.TrimSpace(r.PostFormValue(field))), nil
		}),
	)
}
