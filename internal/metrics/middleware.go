package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP handlers with request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // Default to 200 if WriteHeader not called
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)
		method := r.Method
		status := strconv.Itoa(wrapped.statusCode)

		HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// normalizePath normalizes URL paths for metric labels to avoid cardinality explosion
func normalizePath(path string) string {
	switch {
	case path == "/":
		return "/"
	case path == "/api/health":
		return "/api/health"
	case path == "/metrics":
		return "/metrics"
	case path == "/api/readings":
		return "/api/readings"
	case path == "/api/credits":
		return "/api/credits"
	case path == "/api/credits/history":
		return "/api/credits/history"
	case path == "/api/credits/summary":
		return "/api/credits/summary"
	case path == "/api/payments/webhook":
		return "/api/payments/webhook"
	case path == "/api/signup-hook":
		return "/api/signup-hook"
	case strings.HasPrefix(path, "/auth/"):
		return "/auth/*"
	default:
		return "/other"
	}
}
