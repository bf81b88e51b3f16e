package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fjmerc/arcana/internal/metrics"
	"github.com/fjmerc/arcana/internal/ratelimit"
)

// Admitter is the admission check the rate limit middleware runs. Both the
// in-process limiter and the Redis-backed limiter satisfy it.
type Admitter interface {
	Admit(ctx context.Context, identifier string, cfg ratelimit.Config) (ratelimit.Result, error)
}

// memoryAdmitter adapts the in-process limiter to the Admitter interface.
type memoryAdmitter struct {
	limiter *ratelimit.Limiter
}

func (a memoryAdmitter) Admit(_ context.Context, identifier string, cfg ratelimit.Config) (ratelimit.Result, error) {
	return a.limiter.Admit(identifier, cfg), nil
}

// MemoryAdmitter wraps an in-process limiter for use with RateLimitMiddleware.
func MemoryAdmitter(l *ratelimit.Limiter) Admitter {
	return memoryAdmitter{limiter: l}
}

// policyForPath maps a request path to the named policy applied to it.
func policyForPath(path string, policies map[string]ratelimit.Config) ratelimit.Config {
	var name string
	switch {
	case path == "/api/readings":
		name = "reading"
	case strings.HasPrefix(path, "/auth/"):
		name = "auth"
	case path == "/api/payments/webhook":
		name = "payment"
	case path == "/api/health":
		name = "health"
	case strings.HasPrefix(path, "/api/"):
		name = "api"
	default:
		name = "default"
	}

	if cfg, ok := policies[name]; ok {
		return cfg
	}
	return ratelimit.Default
}

// RateLimitMiddleware enforces the named policies per identifier. Responses
// carry X-RateLimit headers; limited requests get a 429 with a Retry-After.
// Admission errors fail open: the backing store being down should not take
// the whole service with it.
func RateLimitMiddleware(admitter Admitter, policies map[string]ratelimit.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg := policyForPath(r.URL.Path, policies)
			identifier := RateLimitIdentifier(r)

			result, err := admitter.Admit(r.Context(), identifier, cfg)
			if err != nil {
				slog.Error("rate limit check failed, allowing request",
					"error", err,
					"policy", cfg.Name,
					"path", r.URL.Path,
				)
				metrics.ErrorsTotal.WithLabelValues("rate_limit_check").Inc()
				next.ServeHTTP(w, r)
				return
			}

			for key, value := range result.Headers() {
				w.Header().Set(key, value)
			}

			if result.Limited {
				slog.Warn("rate limit exceeded",
					"identifier", identifier,
					"policy", cfg.Name,
					"limit", result.Limit,
					"count", result.Current,
					"path", r.URL.Path,
				)
				metrics.RateLimitChecksTotal.WithLabelValues(cfg.Name, "limited").Inc()

				retryAfter := int(result.ResetIn.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later.","code":"RATE_LIMIT_EXCEEDED"}`))
				return
			}

			metrics.RateLimitChecksTotal.WithLabelValues(cfg.Name, "allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}
