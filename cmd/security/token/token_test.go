package token

import (
	"errors"
	"testing"
)

func TestFingerprintHex_SHA256Fallback(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	got := FingerprintHex("refresh-token-abc")
	want := HashSHA256Hex("refresh-token-abc")
	if got != want {
		t.Fatalf("expected SHA-256 fallback, got %q want %q", got, want)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(got))
	}
}

func TestFingerprintHex_HMACMode(t *testing.T) {
	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")

	got := FingerprintHex("refresh-token-abc")
	want := HashHMACSHA256Hex("refresh-token-abc", []byte("0123456789abcdef0123456789abcdef"))
	if got != want {
		t.Fatalf("HMAC mismatch")
	}
	if got == HashSHA256Hex("refresh-token-abc") {
		t.Fatalf("HMAC mode must not equal plain SHA-256")
	}
}

func TestHMACEnabled(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if HMACEnabled() {
		t.Fatal("HMAC mode must be off without a key")
	}

	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")
	if !HMACEnabled() {
		t.Fatal("HMAC mode must be on when the key is set")
	}
}

func TestHMACKeyFromEnv_Policy(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}
}

func TestFingerprintEqual(t *testing.T) {
	a := HashSHA256Hex("a")
	b := HashSHA256Hex("b")

	if !FingerprintEqual(a, a) {
		t.Fatalf("expected equal fingerprints to match")
	}
	if FingerprintEqual(a, b) {
		t.Fatalf("expected different fingerprints to differ")
	}
	if FingerprintEqual("", "") {
		t.Fatalf("empty fingerprints must never match")
	}
}
