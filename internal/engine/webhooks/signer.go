package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the HMAC-SHA256 signature of payload as lowercase hex.
// The payload must be the exact bytes that go on the wire; signing a
// re-serialized copy risks a mismatch if key order or whitespace differs.
//
// Receivers verify with HMAC-SHA256(secret, request_body_bytes) compared in
// constant time against the X-Webhook-Signature header.
func Sign(secret string, payload []byte) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}
