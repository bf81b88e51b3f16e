package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjmerc/arcana/internal/audit"
	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/models"
)

func TestSignupHookHandler_GrantsWelcomeCredits(t *testing.T) {
	svc, _ := newTestService(t)

	handler := SignupHookHandler(svc)
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/api/signup-hook", strings.NewReader(`{"user_id":42}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var tx models.CreditTransaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if tx.Delta != 3 || tx.Type != models.TransactionWelcome {
		t.Errorf("Unexpected welcome transaction: %+v", tx)
	}

	balance, err := svc.Balance(context.Background(), 42)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Credits != 3 {
		t.Errorf("Expected balance 3, got %d", balance.Credits)
	}
}

func TestSignupHookHandler_NoContentWhenDisabled(t *testing.T) {
	_, db := newTestService(t)

	repos, err := sqliteRepos(db)
	if err != nil {
		t.Fatalf("failed to build repositories: %v", err)
	}
	svc := credits.NewService(repos.Credits, audit.NopSink{}, 0)

	handler := SignupHookHandler(svc)
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("POST", "/api/signup-hook", strings.NewReader(`{"user_id":42}`)))

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204 when welcome credits disabled, got %d", rec.Code)
	}
}

func TestSignupHookHandler_RejectsInvalidEvents(t *testing.T) {
	svc, _ := newTestService(t)
	handler := SignupHookHandler(svc)

	for _, body := range []string{`{not json`, `{"user_id":0}`, `{"user_id":-3}`, `{}`} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest("POST", "/api/signup-hook", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestSignupHookHandler_MethodNotAllowed(t *testing.T) {
	svc, _ := newTestService(t)

	handler := SignupHookHandler(svc)
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/api/signup-hook", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
