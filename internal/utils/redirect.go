package utils

import (
	"net/url"
	"strings"
)

// DefaultRedirectPath is returned whenever a caller-supplied redirect target
// fails validation. Ambiguous input always degrades to this safe default.
const DefaultRedirectPath = "/"

// SafeRedirectPath validates an untrusted "where to go next" string from an
// authentication callback and returns either the original string or "/".
//
// This prevents open-redirect attacks: protocol-relative URLs (//evil.com),
// backslash tricks (/\evil.com), embedded schemes, percent-encoded variants
// of the above, credentials-in-URL patterns, and dot-segment tricks are all
// rejected. Checks run against both the raw and decoded forms to catch
// double-encoding evasion.
func SafeRedirectPath(path string) string {
	if path == "" {
		return DefaultRedirectPath
	}

	decoded, err := url.QueryUnescape(path)
	if err != nil {
		// Malformed escape sequence
		return DefaultRedirectPath
	}

	// Must be a relative path with exactly one leading slash
	if !strings.HasPrefix(decoded, "/") {
		return DefaultRedirectPath
	}

	for _, s := range []string{path, decoded} {
		if isUnsafeRedirect(s) {
			return DefaultRedirectPath
		}
	}

	// Block /.., /., /.evil.com and similar first-segment tricks
	segment := decoded[1:]
	if idx := strings.IndexByte(segment, '/'); idx >= 0 {
		segment = segment[:idx]
	}
	if segment == "" || strings.HasPrefix(segment, ".") {
		return DefaultRedirectPath
	}

	// Return the original string, not the decoded one, so that encoding the
	// caller intended is preserved for anything that passed all checks.
	return path
}

// isUnsafeRedirect reports whether s contains a pattern that could escape the
// origin when substituted into a redirect response.
func isUnsafeRedirect(s string) bool {
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "//"):
		// Protocol-relative URL
		return true
	case strings.HasPrefix(s, "/\\"):
		// Browsers normalize /\ to //
		return true
	case strings.Contains(s, "://"):
		return true
	case strings.Contains(lower, "%2f%2f"):
		// Percent-encoded double slash
		return true
	case strings.Contains(lower, "%5c"):
		// Percent-encoded backslash
		return true
	case strings.Contains(s, "\x00"), strings.Contains(lower, "%00"):
		return true
	case strings.Contains(s, "@"):
		// user@host credential pattern
		return true
	}
	return false
}
