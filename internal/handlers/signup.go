package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/models"
)

// SignupHookHandler handles POST /api/signup-hook: the identity layer's
// "account created" event, consumed by granting welcome credits.
func SignupHookHandler(svc *credits.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		var event models.SignupEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			sendError(w, "Invalid request body", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}
		if event.UserID <= 0 {
			sendError(w, "Invalid signup event", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		tx, err := svc.GrantWelcome(r.Context(), event.UserID)
		if err != nil {
			slog.Error("failed to grant welcome credits", "error", err, "user_id", event.UserID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		if tx == nil {
			// Welcome grants disabled
			w.WriteHeader(http.StatusNoContent)
			return
		}

		slog.Info("welcome credits granted", "user_id", event.UserID, "credits", tx.Delta)
		sendJSON(w, http.StatusCreated, tx)
	}
}
