package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/ordercore/pkg/logger"
)

// RequestLogger stores a logger carrying correlation_id, trace_id and span_id
// in the request context for logger.FromContext. Mount it after
// RequestLogging and Tracing; Auth later adds client_id.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
