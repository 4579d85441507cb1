package webhooks

import (
	"testing"
)

func TestSign(t *testing.T) {
	secret := "secret"
	payload := []byte("payload")

	// Calculated using: echo -n "payload" | openssl dgst -sha256 -hmac "secret"
	expected := "b82fcb791acec57859b989b430a826488ce2e479fdf92326bd0a2e8375a42ba4"

	got, err := Sign(secret, payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if got != expected {
		t.Errorf("Sign() = %v, want %v", got, expected)
	}
	if len(got) != 64 {
		t.Errorf("Sign() length = %d, want 64", len(got))
	}
}

func TestSignDeterministic(t *testing.T) {
	payload := []byte(`{"event":"task.created","data":{"id":"t1"}}`)

	first, err := Sign("s3cr3t", payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	second, err := Sign("s3cr3t", payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if first != second {
		t.Errorf("Sign() not deterministic: %v != %v", first, second)
	}
}

func TestSignChangesWithPayload(t *testing.T) {
	original, _ := Sign("s3cr3t", []byte(`{"id":"t1"}`))
	mutated, _ := Sign("s3cr3t", []byte(`{"id":"t2"}`))

	if original == mutated {
		t.Error("signatures of different payloads should differ")
	}
}

func TestSignEmptySecret(t *testing.T) {
	if _, err := Sign("", []byte("payload")); err != ErrEmptySecret {
		t.Errorf("Sign() error = %v, want ErrEmptySecret", err)
	}
}
