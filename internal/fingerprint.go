package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintAgent reduces a raw User-Agent header to a stable sha256 hex
// digest. The digest is embedded in signed claims instead of the raw header
// so tokens stay small and never leak client details.
func FingerprintAgent(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}
