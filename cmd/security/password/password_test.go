package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// Min cost keeps the test fast; correctness is cost-independent.
	cfg.Cost = bcrypt.MinCost
	return cfg
}

func TestHashAndVerify_Roundtrip(t *testing.T) {
	cfg := testConfig()

	enc, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$2") {
		t.Fatalf("unexpected hash format: %q", enc)
	}

	ok, err := cfg.Verify(enc, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}

	ok, err = cfg.Verify(enc, "wrong password")
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	cfg := testConfig()

	if _, err := cfg.Verify("not-a-bcrypt-hash", "whatever"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}

func TestPolicy_LengthBounds(t *testing.T) {
	cfg := testConfig()

	if _, err := cfg.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	long := strings.Repeat("x", 73)
	if _, err := cfg.Hash(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestFromEnv_CostOverride(t *testing.T) {
	t.Setenv("PULSE_PASSWORD_HASH_COST", "5")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Cost != 5 {
		t.Fatalf("expected cost 5, got %d", cfg.Cost)
	}
}

func TestFromEnv_RejectsInvalid(t *testing.T) {
	t.Setenv("PULSE_PASSWORD_HASH_COST", "99")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for out-of-range cost")
	}

	t.Setenv("PULSE_PASSWORD_HASH_COST", "10")
	t.Setenv("PULSE_PASSWORD_MIN_LEN", "50")
	t.Setenv("PULSE_PASSWORD_MAX_LEN", "20")

	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for min > max")
	}
}
