package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjmerc/arcana/internal/middleware"
	"github.com/fjmerc/arcana/internal/utils"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

func TestAuthCallbackHandler_SafeRedirect(t *testing.T) {
	tests := []struct {
		name string
		next string
		want string
	}{
		{"internal path", "/profile", "/profile"},
		{"nested path", "/readings/history", "/readings/history"},
		{"empty", "", "/"},
		{"protocol relative", "//evil.com", "/"},
		{"absolute url", "https://evil.com", "/"},
		{"backslash", "/\\evil.com", "/"},
		{"encoded double slash", "/%2f%2fevil.com", "/"},
		{"dot segment", "/..", "/"},
		{"credentials marker", "/user@evil.com", "/"},
	}

	handler := AuthCallbackHandler(testSessionSecret, false)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/auth/callback?next="+tt.next, nil)
			rec := httptest.NewRecorder()
			handler(rec, r)

			if rec.Code != http.StatusFound {
				t.Fatalf("Expected 302, got %d", rec.Code)
			}
			if got := rec.Header().Get("Location"); got != tt.want {
				t.Errorf("Location = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthCallbackHandler_IssuesGuestSession(t *testing.T) {
	handler := AuthCallbackHandler(testSessionSecret, false)

	r := httptest.NewRequest("GET", "/auth/callback", nil)
	rec := httptest.NewRecorder()
	handler(rec, r)

	cookies := rec.Result().Cookies()
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == middleware.SessionCookieName {
			session = c
		}
	}
	if session == nil {
		t.Fatal("Expected session cookie to be set")
	}
	if !session.HttpOnly {
		t.Error("Session cookie must be HttpOnly")
	}
	if session.SameSite != http.SameSiteLaxMode {
		t.Error("Session cookie must be SameSite=Lax")
	}

	payload, ok := utils.VerifyToken(session.Value, testSessionSecret)
	if !ok {
		t.Fatal("Session cookie token failed verification")
	}
	if len(payload) < 3 || payload[:2] != "g:" {
		t.Errorf("Expected guest payload, got %q", payload)
	}
}

func TestAuthCallbackHandler_KeepsExistingSession(t *testing.T) {
	handler := AuthCallbackHandler(testSessionSecret, false)

	r := httptest.NewRequest("GET", "/auth/callback?next=/profile", nil)
	r = r.WithContext(middleware.ContextWithSession(r.Context(), middleware.Session{UserID: 42}))
	rec := httptest.NewRecorder()
	handler(rec, r)

	if len(rec.Result().Cookies()) != 0 {
		t.Error("Expected no new cookie for an existing session")
	}
	if got := rec.Header().Get("Location"); got != "/profile" {
		t.Errorf("Location = %q, want /profile", got)
	}
}

func TestAuthCallbackHandler_SecureCookieFlag(t *testing.T) {
	handler := AuthCallbackHandler(testSessionSecret, true)

	r := httptest.NewRequest("GET", "/auth/callback", nil)
	rec := httptest.NewRecorder()
	handler(rec, r)

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected session cookie")
	}
	if !cookies[0].Secure {
		t.Error("Expected Secure cookie when secureCookies is enabled")
	}
}
