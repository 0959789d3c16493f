package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"event":{"type":"RENEWAL"}}`)
	secret := "whsec_test"
	assert.True(t, VerifySignature(secret, body, sign(secret, body)))
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{"event":{"type":"RENEWAL"}}`)
	assert.False(t, VerifySignature("whsec_test", body, sign("whsec_other", body)))
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	secret := "whsec_test"
	sig := sign(secret, []byte(`{"event":{"type":"RENEWAL"}}`))
	assert.False(t, VerifySignature(secret, []byte(`{"event":{"type":"CANCELLATION"}}`), sig))
}

func TestVerifySignatureEmpty(t *testing.T) {
	assert.False(t, VerifySignature("whsec_test", []byte("body"), ""))
}
