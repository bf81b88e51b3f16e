package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signed tokens have the form "payload.signature" where the signature is the
// hex-encoded HMAC-SHA256 of the payload under a server-held secret. They are
// verified statelessly: no server-side session lookup is needed to check
// authenticity.

// signatureHexLength is the length of a hex-encoded HMAC-SHA256 digest.
const signatureHexLength = sha256.Size * 2

// SignToken appends an HMAC-SHA256 signature to payload.
func SignToken(payload, secret string) string {
	return payload + "." + computeSignature(payload, secret)
}

// VerifyToken checks a token's signature and returns the payload.
// The comparison is constant-time to avoid timing side-channels.
// Returns ok=false on any mismatch or malformed structure.
func VerifyToken(token, secret string) (payload string, ok bool) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return "", false
	}

	payload = token[:idx]
	sig, err := hex.DecodeString(token[idx+1:])
	if err != nil {
		return "", false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return "", false
	}

	return payload, true
}

// HasValidTokenFormat cheaply rejects structurally malformed tokens before
// any cryptographic verification is attempted.
func HasValidTokenFormat(token string) bool {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return false
	}

	sig := token[idx+1:]
	if len(sig) != signatureHexLength {
		return false
	}
	for _, ch := range sig {
		isHex := (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f')
		if !isHex {
			return false
		}
	}
	return true
}

func computeSignature(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// MaskToken masks a token for safe logging/display.
// Shows first 3 and last 3 characters, masks the middle.
// Example: "abc123xyz789" -> "abc***789"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}

	// For very short tokens (6 chars or less), mask completely
	if len(token) <= 6 {
		return "***"
	}

	return token[:3] + "***" + token[len(token)-3:]
}
