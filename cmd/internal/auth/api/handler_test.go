package authapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pulse/cmd/identity"
	"pulse/cmd/internal/auth/session"
)

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()
	t.Setenv("PULSE_PASSWORD_HASH_COST", "4")

	users := identity.NewMemoryStore()
	if _, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "correct horse",
		Now:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	cfg := session.DefaultConfig()
	cfg.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.RefreshSecret = []byte(strings.Repeat("r", 32))
	tm, err := session.NewTokenManager(cfg)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	svc, err := session.NewService(session.NewMemoryStore(), tm, users)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h, err := NewHandler(nil, LoadConfigFromEnv(), svc)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return h, mux
}

func doLogin(t *testing.T, mux *http.ServeMux, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	body := strings.NewReader(`{"username":"` + username + `","password":"` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			return c
		}
	}
	t.Fatal("no refresh cookie in response")
	return nil
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestLogin(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := doLogin(t, mux, "ada", "correct horse")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[loginResponse](t, rec)
	if resp.AccessToken == "" {
		t.Error("empty access token")
	}
	if resp.User.Username != "ada" {
		t.Errorf("user = %q, want ada", resp.User.Username)
	}

	c := refreshCookie(t, rec)
	if !c.HttpOnly {
		t.Error("refresh cookie is not httpOnly")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Errorf("SameSite = %v, want Strict", c.SameSite)
	}
	if c.MaxAge <= 0 {
		t.Errorf("MaxAge = %d, want positive", c.MaxAge)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, mux := newTestHandler(t)

	for _, tt := range []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "nobody", "correct horse"},
		{"wrong password", "ada", "wrong"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := doLogin(t, mux, tt.username, tt.password)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			resp := decodeBody[errorResponse](t, rec)
			if resp.Message != "invalid credentials" {
				t.Errorf("message = %q", resp.Message)
			}
		})
	}
}

func TestLoginRejectsBadRequests(t *testing.T) {
	_, mux := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}

	rec = doLogin(t, mux, "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty credentials: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET: status = %d, want 405", rec.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	_, mux := newTestHandler(t)

	login := doLogin(t, mux, "ada", "correct horse")
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d", login.Code)
	}
	first := refreshCookie(t, login)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(first)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[refreshResponse](t, rec)
	if resp.NewAccessToken == "" {
		t.Error("empty new access token")
	}
	second := refreshCookie(t, rec)
	if second.Value == first.Value {
		t.Error("refresh cookie was not rotated")
	}

	// The spent cookie must not refresh again.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(first)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reuse status = %d, want 401", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec).Reason; got != string(session.ReasonInvalidToken) {
		t.Errorf("reuse reason = %q, want INVALID_TOKEN", got)
	}

	// The rotated cookie still works.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(second)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("rotated cookie status = %d", rec.Code)
	}
}

func TestRefreshWithoutCookie(t *testing.T) {
	_, mux := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec).Reason; got != string(session.ReasonNoToken) {
		t.Errorf("reason = %q, want NO_TOKEN", got)
	}
}

func TestRefreshWithGarbageCookie(t *testing.T) {
	_, mux := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec).Reason; got != string(session.ReasonInvalidToken) {
		t.Errorf("reason = %q, want INVALID_TOKEN", got)
	}
}

func TestLogout(t *testing.T) {
	_, mux := newTestHandler(t)

	login := doLogin(t, mux, "ada", "correct horse")
	cookie := refreshCookie(t, login)
	access := decodeBody[loginResponse](t, login).AccessToken

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	cleared := refreshCookie(t, rec)
	if cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Errorf("cookie not cleared: MaxAge=%d Value=%q", cleared.MaxAge, cleared.Value)
	}

	// The session is gone.
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status = %d, want 401", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec).Reason; got != string(session.ReasonNoSession) {
		t.Errorf("reason = %q, want NO_SESSION", got)
	}
}

func TestLogoutWithoutCookie(t *testing.T) {
	_, mux := newTestHandler(t)

	login := doLogin(t, mux, "ada", "correct horse")
	access := decodeBody[loginResponse](t, login).AccessToken

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestLogoutWithGarbageCookie(t *testing.T) {
	_, mux := newTestHandler(t)

	login := doLogin(t, mux, "ada", "correct horse")
	access := decodeBody[loginResponse](t, login).AccessToken

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "garbage"})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogoutWithoutBearer(t *testing.T) {
	_, mux := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}
