package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fjmerc/arcana/internal/utils"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "arcana_session"

// Session is the authenticated principal attached to the request context.
// Either UserID is set (a registered user) or GuestID is (an anonymous
// session issued by the auth callback).
type Session struct {
	UserID  int64
	GuestID string
}

// Authenticated reports whether the session belongs to a registered user.
func (s Session) Authenticated() bool {
	return s.UserID != 0
}

// Identifier returns the stable rate-limit identifier for this session.
func (s Session) Identifier() string {
	if s.Authenticated() {
		return utils.HashIdentifier("user:" + strconv.FormatInt(s.UserID, 10))
	}
	return utils.HashIdentifier("guest:" + s.GuestID)
}

// EncodeSessionPayload builds the token payload for a user session.
func EncodeSessionPayload(userID int64) string {
	return "u:" + strconv.FormatInt(userID, 10)
}

// EncodeGuestPayload builds the token payload for a guest session.
func EncodeGuestPayload(guestID string) string {
	return "g:" + guestID
}

// decodeSessionPayload parses a verified token payload into a Session.
func decodeSessionPayload(payload string) (Session, error) {
	switch {
	case strings.HasPrefix(payload, "u:"):
		id, err := strconv.ParseInt(payload[2:], 10, 64)
		if err != nil || id <= 0 {
			return Session{}, fmt.Errorf("malformed user session payload")
		}
		return Session{UserID: id}, nil
	case strings.HasPrefix(payload, "g:"):
		guestID := payload[2:]
		if guestID == "" {
			return Session{}, fmt.Errorf("malformed guest session payload")
		}
		return Session{GuestID: guestID}, nil
	default:
		return Session{}, fmt.Errorf("unknown session payload kind")
	}
}

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext returns the session attached by the auth middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// ContextWithSession attaches a session to the context. Exported for handler
// tests.
func ContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// sessionFromRequest verifies the session cookie and decodes its payload.
func sessionFromRequest(r *http.Request, secret string) (Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Session{}, false
	}

	payload, ok := utils.VerifyToken(cookie.Value, secret)
	if !ok {
		return Session{}, false
	}

	session, err := decodeSessionPayload(payload)
	if err != nil {
		return Session{}, false
	}

	return session, true
}

// UserAuth requires a valid signed session cookie belonging to a registered
// user and attaches the session to the request context.
func UserAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := sessionFromRequest(r, secret)
			if !ok {
				slog.Warn("user authentication failed - missing or invalid session cookie",
					"path", r.URL.Path,
					"ip", getClientIP(r),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !session.Authenticated() {
				slog.Warn("user authentication failed - guest session on user endpoint",
					"path", r.URL.Path,
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

// OptionalUserAuth attaches a session to the context when a valid cookie is
// present and continues without one otherwise.
func OptionalUserAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session, ok := sessionFromRequest(r, secret); ok {
				r = r.WithContext(ContextWithSession(r.Context(), session))
			}
			next.ServeHTTP(w, r)
		})
	}
}
