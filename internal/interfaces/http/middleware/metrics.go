package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/grantsync/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts and latency per route pattern.  The chi
// pattern is used instead of the raw path so query-free URLs like
// /api/v1/grants keep one series each.
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := prometheus.NewTimer(nil)
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			prometheus.RecordHTTPRequest(m, r.Method, path, wrapped.statusCode, timer.ObserveDuration())
		})
	}
}
