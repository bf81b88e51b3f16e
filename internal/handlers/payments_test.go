package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testWebhookSecret = "webhook-secret-webhook-secret-xx"

func signedWebhookRequest(body string) *http.Request {
	r := httptest.NewRequest("POST", "/api/payments/webhook", strings.NewReader(body))
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	r.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	return r
}

func TestPaymentWebhookHandler_RecordsPurchase(t *testing.T) {
	svc, _ := newTestService(t)

	handler := PaymentWebhookHandler(svc, testWebhookSecret)
	rec := httptest.NewRecorder()
	handler(rec, signedWebhookRequest(`{"user_id":7,"package_id":"pack_10","credits":10}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	balance, err := svc.Balance(context.Background(), 7)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Credits != 10 {
		t.Errorf("Expected balance 10 after purchase, got %d", balance.Credits)
	}
}

func TestPaymentWebhookHandler_RejectsMissingSignature(t *testing.T) {
	svc, _ := newTestService(t)

	handler := PaymentWebhookHandler(svc, testWebhookSecret)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/payments/webhook", strings.NewReader(`{"user_id":7,"package_id":"pack_10","credits":10}`))
	handler(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without signature, got %d", rec.Code)
	}

	balance, err := svc.Balance(context.Background(), 7)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Credits != 0 {
		t.Errorf("Expected no credit without valid signature, got %d", balance.Credits)
	}
}

func TestPaymentWebhookHandler_RejectsBadSignature(t *testing.T) {
	svc, _ := newTestService(t)

	handler := PaymentWebhookHandler(svc, testWebhookSecret)
	rec := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/payments/webhook", strings.NewReader(`{"user_id":7,"package_id":"pack_10","credits":10}`))
	r.Header.Set("X-Webhook-Signature", strings.Repeat("ab", 32))
	handler(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad signature, got %d", rec.Code)
	}
}

func TestPaymentWebhookHandler_RejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing user", `{"package_id":"pack_10","credits":10}`},
		{"missing package", `{"user_id":7,"credits":10}`},
		{"zero credits", `{"user_id":7,"package_id":"pack_10","credits":0}`},
		{"negative credits", `{"user_id":7,"package_id":"pack_10","credits":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			handler := PaymentWebhookHandler(svc, testWebhookSecret)
			rec := httptest.NewRecorder()
			handler(rec, signedWebhookRequest(tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestPaymentWebhookHandler_MethodNotAllowed(t *testing.T) {
	svc, _ := newTestService(t)

	handler := PaymentWebhookHandler(svc, testWebhookSecret)
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/api/payments/webhook", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
