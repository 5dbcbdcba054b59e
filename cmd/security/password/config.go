package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxInput is the hard bcrypt input boundary; longer inputs are
// silently truncated by the algorithm, so the policy must reject them first.
const bcryptMaxInput = 72

// Policy controls password validation boundaries.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt cost factor (work factor doubles per increment).
	Cost int

	Policy Policy
}

// DefaultConfig returns a baseline suitable for interactive logins.
// Values can be overridden via env.
func DefaultConfig() Config {
	return Config{
		Cost: bcrypt.DefaultCost,
		Policy: Policy{
			MinLength: 6,
			MaxLength: bcryptMaxInput,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - PULSE_PASSWORD_HASH_COST
// - PULSE_PASSWORD_MIN_LEN
// - PULSE_PASSWORD_MAX_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("PULSE_PASSWORD_HASH_COST"); ok {
		n, err := atoiBounded(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("PULSE_PASSWORD_HASH_COST: %w", err)
		}
		cfg.Cost = n
	}

	if v, ok := os.LookupEnv("PULSE_PASSWORD_MIN_LEN"); ok {
		n, err := atoiBounded(v, 1, bcryptMaxInput)
		if err != nil {
			return Config{}, fmt.Errorf("PULSE_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("PULSE_PASSWORD_MAX_LEN"); ok {
		n, err := atoiBounded(v, 1, bcryptMaxInput)
		if err != nil {
			return Config{}, fmt.Errorf("PULSE_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf("password policy: min length %d exceeds max length %d",
			cfg.Policy.MinLength, cfg.Policy.MaxLength)
	}

	return cfg, nil
}

// Validate checks a plaintext password against the policy.
func (c Config) Validate(password string) error {
	if len(password) < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if len(password) > c.Policy.MaxLength || len(password) > bcryptMaxInput {
		return ErrPasswordTooLong
	}
	return nil
}

func atoiBounded(v string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("out of range [%d..%d]: %d", min, max, n)
	}
	return n, nil
}
