package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/models"
	"github.com/fjmerc/arcana/internal/repository"
)

const maxWebhookBodyBytes = 64 * 1024

// PaymentWebhookHandler handles POST /api/payments/webhook: the provider's
// "purchase completed" event. The request body is authenticated with an
// HMAC-SHA256 signature over the raw payload in X-Webhook-Signature.
func PaymentWebhookHandler(svc *credits.Service, webhookSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			sendError(w, "Invalid request body", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		if !verifyWebhookSignature(body, r.Header.Get("X-Webhook-Signature"), webhookSecret) {
			slog.Warn("payment webhook signature verification failed")
			sendError(w, "Invalid signature", "INVALID_SIGNATURE", http.StatusUnauthorized)
			return
		}

		var event models.PurchaseCompletedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			sendError(w, "Invalid request body", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}
		if event.UserID <= 0 || event.PackageID == "" {
			sendError(w, "Invalid purchase event", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		tx, err := svc.RecordPurchase(r.Context(), event)
		if err != nil {
			if errors.Is(err, repository.ErrInvalidInput) {
				sendError(w, "Invalid purchase event", "INVALID_REQUEST", http.StatusBadRequest)
				return
			}
			slog.Error("failed to record purchase", "error", err, "user_id", event.UserID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		slog.Info("purchase recorded",
			"user_id", event.UserID,
			"package_id", event.PackageID,
			"credits", event.Credits,
			"transaction_id", tx.ID,
		)

		sendJSON(w, http.StatusOK, tx)
	}
}

func verifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
