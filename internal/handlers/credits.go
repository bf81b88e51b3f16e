package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/fjmerc/arcana/internal/credits"
	"github.com/fjmerc/arcana/internal/middleware"
	"github.com/fjmerc/arcana/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// BalanceHandler handles GET /api/credits.
func BalanceHandler(svc *credits.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		session, ok := middleware.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		balance, err := svc.Balance(r.Context(), session.UserID)
		if err != nil {
			slog.Error("failed to get balance", "error", err, "user_id", session.UserID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusOK, balance)
	}
}

// HistoryHandler handles GET /api/credits/history with limit/offset paging.
func HistoryHandler(svc *credits.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		session, ok := middleware.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		limit := parseQueryInt(r, "limit", defaultHistoryLimit)
		if limit < 1 {
			limit = defaultHistoryLimit
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
		offset := parseQueryInt(r, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		history, err := svc.History(r.Context(), session.UserID, limit, offset)
		if err != nil {
			slog.Error("failed to get history", "error", err, "user_id", session.UserID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusOK, models.CreditHistoryResponse{
			Transactions: history,
			Limit:        limit,
			Offset:       offset,
		})
	}
}

// SummaryHandler handles GET /api/credits/summary.
func SummaryHandler(svc *credits.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		session, ok := middleware.SessionFromContext(r.Context())
		if !ok || !session.Authenticated() {
			sendError(w, "Unauthorized", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		summary, err := svc.Summary(r.Context(), session.UserID)
		if err != nil {
			slog.Error("failed to get summary", "error", err, "user_id", session.UserID)
			sendError(w, "Internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
			return
		}

		sendJSON(w, http.StatusOK, summary)
	}
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
