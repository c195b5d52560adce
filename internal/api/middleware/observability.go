package middleware

import (
	"net/http"
	"time"

	"github.com/zatekoja/patientcare/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// ObservabilityMiddleware adds OpenTelemetry tracing and metrics to HTTP requests.
// Spans and metrics are keyed by the matched ServeMux pattern, falling back
// to the raw path for unmatched requests.
func ObservabilityMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), "HTTP "+r.Method)
			defer span.End()

			req := r.WithContext(ctx)
			rw := newStatusRecorder(w)
			start := time.Now()

			next.ServeHTTP(rw, req)

			// ServeMux fills Pattern on the request it was handed
			route := req.Pattern
			if route == "" {
				route = r.URL.Path
			}

			span.SetName(route)
			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.status_code", rw.statusCode),
			)
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
