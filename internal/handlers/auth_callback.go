package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/fjmerc/arcana/internal/middleware"
	"github.com/fjmerc/arcana/internal/utils"
)

const sessionCookieMaxAge = 30 * 24 * 60 * 60 // 30 days

// AuthCallbackHandler handles GET /auth/callback. The `next` parameter is
// sanitized before redirecting; anything not provably an internal path
// becomes "/". Requests arriving without a session get a signed guest
// session cookie.
func AuthCallbackHandler(sessionSecret string, secureCookies bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			sendError(w, "Method not allowed", "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed)
			return
		}

		target := utils.SafeRedirectPath(r.URL.Query().Get("next"))

		if _, ok := middleware.SessionFromContext(r.Context()); !ok {
			guestID := uuid.NewString()
			token := utils.SignToken(middleware.EncodeGuestPayload(guestID), sessionSecret)

			http.SetCookie(w, &http.Cookie{
				Name:     middleware.SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				Secure:   secureCookies,
				SameSite: http.SameSiteLaxMode,
			})

			slog.Info("guest session issued", "token", utils.MaskToken(token))
		}

		http.Redirect(w, r, target, http.StatusFound)
	}
}
