package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/metrics"
	"github.com/fjmerc/arcana/internal/middleware"
	"github.com/fjmerc/arcana/internal/repository"
	"github.com/fjmerc/arcana/internal/tarot"
)

// ReadingRequest is the body of POST /api/readings.
type ReadingRequest struct {
	Spread   string `json:"spread"`
	Question string `json:"question,omitempty"`
}

// ReadingResponse is the drawn spread plus the ledger effect of paying for it.
type ReadingResponse struct {
	ReadingID    string            `json:"reading_id"`
	Spread       string            `json:"spread"`
	Question     string            `json:"question,omitempty"`
	Cards        []tarot.DrawnCard `json:"cards"`
	CreditsSpent int64             `json:"credits_spent"`
}

const maxQuestionLength = 500

// ReadingHandler handles POST /api/readings: debit the reading cost, then
// draw the spread. An insufficient balance is a 402 with its own error code.
func ReadingHandler(svc *credits.Service, readingCost int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		session, ok := middleware.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		var req ReadingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, "Invalid request body", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}
		if req.Spread == "" {
			req.Spread = tarot.SpreadSingle
		}
		if len(req.Question) > maxQuestionLength {
			sendError(w, "Question too long", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		size, err := tarot.SpreadSize(req.Spread)
		if err != nil {
			sendError(w, "Unknown spread", "INVALID_SPREAD", http.StatusBadRequest)
			return
		}

		tx, err := svc.SpendForReading(r.Context(), session.UserID, readingCost, "Tarot reading ("+req.Spread+")")
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientCredits) {
				metrics.ReadingsTotal.WithLabelValues("insufficient_credits").Inc()
				sendError(w, "Insufficient credits", "INSUFFICIENT_CREDITS", http.StatusPaymentRequired)
				return
			}
			slog.Error("failed to debit reading", "error", err, "user_id", session.UserID)
			metrics.ReadingsTotal.WithLabelValues("failure").Inc()
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		cards, err := tarot.Draw(size)
		if err != nil {
			// The debit landed but the reading did not. Give the credits back.
			slog.Error("failed to draw cards, refunding", "error", err, "user_id", session.UserID)
			if _, refundErr := svc.Refund(r.Context(), session.UserID, readingCost, "Reading failed to generate"); refundErr != nil {
				slog.Error("failed to refund aborted reading", "error", refundErr, "user_id", session.UserID)
			}
			metrics.ReadingsTotal.WithLabelValues("failure").Inc()
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		metrics.ReadingsTotal.WithLabelValues("success").Inc()

		sendJSON(w, http.StatusCreated, ReadingResponse{
			ReadingID:    uuid.NewString(),
			Spread:       req.Spread,
			Question:     req.Question,
			Cards:        cards,
			CreditsSpent: readingCost,
		})

		slog.Info("reading completed",
			"user_id", session.UserID,
			"spread", req.Spread,
			"cards", len(cards),
			"transaction_id", tx.ID,
		)
	}
}
