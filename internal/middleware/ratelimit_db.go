package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjmerc/arcana/internal/metrics"
	"github.com/fjmerc/arcana/internal/ratelimit"
	"github.com/fjmerc/arcana/internal/repository"
)

// DBRateLimiter enforces policies through database-backed storage so limits
// hold across multiple application instances.
type DBRateLimiter struct {
	repo     repository.RateLimitRepository
	cleanup  *time.Ticker
	stopChan chan struct{}
}

// NewDBRateLimiter creates a database-backed rate limiter and starts its
// cleanup worker.
func NewDBRateLimiter(repo repository.RateLimitRepository, cleanupInterval time.Duration) *DBRateLimiter {
	rl := &DBRateLimiter{
		repo:     repo,
		cleanup:  time.NewTicker(cleanupInterval),
		stopChan: make(chan struct{}),
	}

	go rl.cleanupWorker()

	return rl
}

// cleanupWorker periodically removes expired rate limit entries.
func (rl *DBRateLimiter) cleanupWorker() {
	for {
		select {
		case <-rl.cleanup.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			count, err := rl.repo.CleanupExpired(ctx)
			if err != nil {
				slog.Error("failed to cleanup expired rate limits", "error", err)
			} else if count > 0 {
				slog.Debug("cleaned up expired rate limit entries", "count", count)
			}
			cancel()
		case <-rl.stopChan:
			rl.cleanup.Stop()
			return
		}
	}
}

// Stop stops the cleanup worker.
func (rl *DBRateLimiter) Stop() {
	close(rl.stopChan)
}

// securityCriticalPolicies fail closed on storage errors: slipping an
// unchecked burst past the auth endpoints is worse than turning them away.
var securityCriticalPolicies = map[string]bool{
	"auth": true,
}

// DBRateLimitMiddleware enforces a single named policy through the database.
// Used on endpoints whose limits must hold across instances, like the auth
// callback.
func DBRateLimitMiddleware(rl *DBRateLimiter, cfg ratelimit.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identifier := RateLimitIdentifier(r)

			// Atomic increment-before-request: concurrent requests cannot
			// all pass the check before any counter moves.
			allowed, count, err := rl.repo.IncrementAndCheck(ctx, identifier, cfg.Name, cfg.MaxRequests, cfg.Window)
			if err != nil {
				slog.Error("failed to check rate limit", "error", err, "policy", cfg.Name)
				metrics.ErrorsTotal.WithLabelValues("rate_limit_check").Inc()

				if securityCriticalPolicies[cfg.Name] {
					slog.Warn("failing closed for security-critical policy",
						"policy", cfg.Name,
						"path", r.URL.Path,
					)
					http.Error(w, "Service temporarily unavailable. Please try again later.", http.StatusServiceUnavailable)
					return
				}

				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				slog.Warn("rate limit exceeded",
					"identifier", identifier,
					"policy", cfg.Name,
					"attempts", count,
					"path", r.URL.Path,
				)
				metrics.RateLimitChecksTotal.WithLabelValues(cfg.Name, "limited").Inc()

				retryAfter := int(cfg.Window.Seconds())
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
