package session

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Environment keys.
const (
	EnvAccessSecret  = "PULSE_JWT_ACCESS_SECRET"
	EnvRefreshSecret = "PULSE_JWT_REFRESH_SECRET"
	EnvAccessTTL     = "PULSE_AUTH_ACCESS_TTL"
	EnvRefreshTTL    = "PULSE_AUTH_REFRESH_TTL"
	EnvIssuer        = "PULSE_AUTH_ISSUER"
	EnvClockSkew     = "PULSE_AUTH_CLOCK_SKEW"
)

const minSecretBytes = 32

// Config carries token signing material and lifetimes.
//
// Access and refresh tokens are signed with two distinct secrets so that a
// leaked access secret cannot be used to mint refresh tokens.
type Config struct {
	Issuer string

	AccessSecret  []byte
	RefreshSecret []byte

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// ClockSkew is the leeway applied to exp/nbf checks.
	ClockSkew time.Duration
}

// DefaultConfig returns the defaults used when the environment does not
// override them. Secrets have no default; they must be provided.
func DefaultConfig() Config {
	return Config{
		Issuer:          "pulse",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ClockSkew:       30 * time.Second,
	}
}

// FromEnv builds a Config from the environment on top of DefaultConfig.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.AccessSecret = []byte(strings.TrimSpace(os.Getenv(EnvAccessSecret)))
	cfg.RefreshSecret = []byte(strings.TrimSpace(os.Getenv(EnvRefreshSecret)))

	if v := strings.TrimSpace(os.Getenv(EnvIssuer)); v != "" {
		cfg.Issuer = v
	}

	var err error
	if cfg.AccessTokenTTL, err = envDuration(EnvAccessTTL, cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = envDuration(EnvRefreshTTL, cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.ClockSkew, err = envDuration(EnvClockSkew, cfg.ClockSkew); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks signing material and lifetimes.
func (c Config) Validate() error {
	if len(c.AccessSecret) < minSecretBytes {
		return fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, EnvAccessSecret, minSecretBytes)
	}
	if len(c.RefreshSecret) < minSecretBytes {
		return fmt.Errorf("%w: %s must be at least %d bytes", ErrConfig, EnvRefreshSecret, minSecretBytes)
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrConfig)
	}
	if c.Issuer == "" {
		return fmt.Errorf("%w: issuer must not be empty", ErrConfig)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrConfig)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("%w: refresh lifetime must exceed access lifetime", ErrConfig)
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("%w: clock skew must not be negative", ErrConfig)
	}
	return nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrConfig, key, err)
	}
	return d, nil
}
