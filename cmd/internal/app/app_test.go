package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"PULSE_HTTP_ADDR", "PULSE_LOG_LEVEL", "PULSE_DATABASE_URL",
		"PULSE_DB_MIGRATE", "PULSE_READINESS_REQUIRE_DB", "PULSE_REQUIRE_TOKEN_HMAC",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel=%q", cfg.LogLevel)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL=%q", cfg.DatabaseURL)
	}
	if !cfg.MigrateOnStart {
		t.Fatal("MigrateOnStart should default to true")
	}
	if cfg.ReadinessRequireDB || cfg.RequireTokenHMAC {
		t.Fatal("policy flags should default to false")
	}
}

func TestReadyzWithoutDB(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		requireDB  bool
		wantStatus int
	}{
		{name: "memory mode ready", requireDB: false, wantStatus: http.StatusOK},
		{name: "db required but absent", requireDB: true, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			registerHTTP(mux, discardLogger(), Config{ReadinessRequireDB: tc.requireDB}, nil, false, nil, nil, nil)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rr.Code != tc.wantStatus {
				t.Fatalf("status=%d want=%d", rr.Code, tc.wantStatus)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), Config{}, nil, false, nil, nil, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.String() != "ok\n" {
		t.Fatalf("body=%q", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), Config{}, nil, false, NewMetrics(), nil, nil)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("expected exposition output")
	}
}

func TestValidateSecurityConfig(t *testing.T) {
	t.Run("policy off", func(t *testing.T) {
		if err := ValidateSecurityConfig(Config{RequireTokenHMAC: false}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("policy on without key", func(t *testing.T) {
		t.Setenv("PULSE_TOKEN_HMAC_KEY", "")
		if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil {
			t.Fatal("expected error when HMAC key is missing")
		}
	})

	t.Run("policy on with short key", func(t *testing.T) {
		t.Setenv("PULSE_TOKEN_HMAC_KEY", "too-short")
		if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil {
			t.Fatal("expected error when HMAC key is too short")
		}
	})

	t.Run("policy on with valid key", func(t *testing.T) {
		t.Setenv("PULSE_TOKEN_HMAC_KEY", "0123456789abcdef0123456789abcdef")
		if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
