// Package webhook accepts billing events, verifies their signature, and
// applies credit deltas idempotently.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a hex HMAC-SHA256 signature of body against secret
// using a constant-time comparison, matching RevenueCat's
// X-RevenueCat-Signature scheme.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
