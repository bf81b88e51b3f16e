package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashedIdentifierLength is the number of hex characters kept from the digest.
// Short enough to keep bucket keys compact, long enough that birthday
// collisions are negligible at realistic identifier cardinality.
const hashedIdentifierLength = 16

// HashIdentifier reduces a raw client identifier (typically an IP address) to
// a short, non-reversible token used as a rate-limit bucket key. This avoids
// storing raw network addresses in memory or logs.
// Deterministic: the same input always produces the same output.
func HashIdentifier(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:hashedIdentifierLength]
}
