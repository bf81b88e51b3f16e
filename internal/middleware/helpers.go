package middleware

import (
	"net/http"
	"strings"

	"github.com/fjmerc/arcana/internal/utils"
)

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the chain
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr (strip port)
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}

	return r.RemoteAddr
}

// RateLimitIdentifier returns the identifier buckets are keyed on: the
// session identifier when one is present, otherwise the hashed client IP.
// Raw addresses never reach the limiter or its storage.
func RateLimitIdentifier(r *http.Request) string {
	if session, ok := SessionFromContext(r.Context()); ok {
		return session.Identifier()
	}
	return utils.HashIdentifier(getClientIP(r))
}
