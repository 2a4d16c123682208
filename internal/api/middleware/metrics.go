package middleware

import (
	"net/http"
	"time"

	"github.com/freshkeep/hub/internal/observability"
)

// unmatchedRoute labels requests that matched no mux pattern (404/405), bounding cardinality.
const unmatchedRoute = "unmatched"

// Metrics returns middleware that records HTTP request count and duration via APIMetrics.
// It must wrap the ServeMux directly: the route label is the pattern the mux stores on the
// request (e.g. "POST /v1/recipes/suggest"), never the raw path. When metrics is nil,
// recording is skipped.
func Metrics(metrics observability.APIMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = unmatchedRoute
			}

			metrics.RecordRequest(r.Context(), r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
