package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and cookie transport.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults. The refresh cookie defaults to SameSite=Strict and is
// marked Secure whenever PULSE_ENV is "production".
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:        envBool("PULSE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:      envInt64("PULSE_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		RefreshCookieName: envString("PULSE_AUTH_REFRESH_COOKIE", "refreshToken"),
		CookiePath:        envString("PULSE_AUTH_COOKIE_PATH", "/"),
		CookieDomain:      envString("PULSE_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:      strings.EqualFold(envString("PULSE_ENV", "development"), "production"),
		CookieSameSite:    http.SameSiteStrictMode,
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
