package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	wrapped := Middleware(handler)

	initial := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/credits", "200"))

	req := httptest.NewRequest("GET", "/api/credits", nil)
	rec := httptest.NewRecorder()

	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/credits", "200"))
	if count <= initial {
		t.Errorf("Expected count to increase from %f, got %f", initial, count)
	}
}

func TestMiddleware_StatusCapture(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})

	wrapped := Middleware(handler)

	initial := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/readings", "402"))

	req := httptest.NewRequest("POST", "/api/readings", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	count := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/readings", "402"))
	if count != initial+1 {
		t.Errorf("Expected count %f, got %f", initial+1, count)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/api/readings", "/api/readings"},
		{"/api/credits", "/api/credits"},
		{"/api/credits/history", "/api/credits/history"},
		{"/api/credits/summary", "/api/credits/summary"},
		{"/api/payments/webhook", "/api/payments/webhook"},
		{"/api/signup-hook", "/api/signup-hook"},
		{"/api/health", "/api/health"},
		{"/metrics", "/metrics"},
		{"/auth/callback", "/auth/*"},
		{"/some/random/path", "/other"},
		{"/api/credits/../../etc", "/other"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
