package middleware

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/fjmerc/arcana/internal/ratelimit"
)

// fakeRateLimitRepo is an in-memory RateLimitRepository for middleware tests.
type fakeRateLimitRepo struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{counts: make(map[string]int)}
}

func (f *fakeRateLimitRepo) IncrementAndCheck(ctx context.Context, identifier, limitType string, limit int, windowDuration time.Duration) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	key := identifier + "|" + limitType
	f.counts[key]++
	count := f.counts[key]
	return count <= limit, count, nil
}

func (f *fakeRateLimitRepo) ResetEntry(ctx context.Context, identifier, limitType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, identifier+"|"+limitType)
	return nil
}

func (f *fakeRateLimitRepo) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func newDBRateLimitedHandler(t *testing.T, repo *fakeRateLimitRepo, cfg ratelimit.Config) http.Handler {
	t.Helper()
	rl := NewDBRateLimiter(repo, time.Hour)
	t.Cleanup(rl.Stop)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return DBRateLimitMiddleware(rl, cfg)(next)
}

func TestDBRateLimitMiddleware_AllowsAndLimits(t *testing.T) {
	repo := newFakeRateLimitRepo()
	cfg := ratelimit.Config{Name: "payment", Window: time.Minute, MaxRequests: 2}
	handler := newDBRateLimitedHandler(t, repo, cfg)

	for i := 0; i < 2; i++ {
		rec := doRequest(handler, "/api/payments/webhook", "10.0.0.1")
		if rec.Code != http.StatusOK {
			t.Fatalf("Request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := doRequest(handler, "/api/payments/webhook", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
}

func TestDBRateLimitMiddleware_RetryAfterMatchesWindow(t *testing.T) {
	repo := newFakeRateLimitRepo()
	cfg := ratelimit.Config{Name: "auth", Window: 15 * time.Minute, MaxRequests: 1}
	handler := newDBRateLimitedHandler(t, repo, cfg)

	doRequest(handler, "/auth/callback", "10.0.0.1")
	rec := doRequest(handler, "/auth/callback", "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "900" {
		t.Errorf("Retry-After = %q, want %q (the policy window in seconds)", got, "900")
	}
}

func TestDBRateLimitMiddleware_IdentifierIsolation(t *testing.T) {
	repo := newFakeRateLimitRepo()
	cfg := ratelimit.Config{Name: "payment", Window: time.Minute, MaxRequests: 1}
	handler := newDBRateLimitedHandler(t, repo, cfg)

	doRequest(handler, "/api/payments/webhook", "10.0.0.1")
	doRequest(handler, "/api/payments/webhook", "10.0.0.1")

	rec := doRequest(handler, "/api/payments/webhook", "10.0.0.2")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected other identifier unaffected, got %d", rec.Code)
	}
}

func TestDBRateLimitMiddleware_AuthFailsClosed(t *testing.T) {
	repo := newFakeRateLimitRepo()
	repo.err = errors.New("database locked")
	cfg := ratelimit.Config{Name: "auth", Window: 15 * time.Minute, MaxRequests: 10}
	handler := newDBRateLimitedHandler(t, repo, cfg)

	rec := doRequest(handler, "/auth/callback", "10.0.0.1")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 fail-closed for auth policy, got %d", rec.Code)
	}
}

func TestDBRateLimitMiddleware_OthersFailOpen(t *testing.T) {
	repo := newFakeRateLimitRepo()
	repo.err = errors.New("database locked")
	cfg := ratelimit.Config{Name: "payment", Window: time.Minute, MaxRequests: 5}
	handler := newDBRateLimitedHandler(t, repo, cfg)

	rec := doRequest(handler, "/api/payments/webhook", "10.0.0.1")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected fail-open 200 for non-critical policy, got %d", rec.Code)
	}
}
