package authapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pulse/cmd/internal/auth/session"
)

func protectedEcho(t *testing.T, h *Handler) http.Handler {
	t.Helper()
	return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r.Context())
		if !ok {
			t.Error("no user id in context")
		}
		_, _ = w.Write([]byte(id))
	}))
}

func TestRequireAuth(t *testing.T) {
	h, mux := newTestHandler(t)
	protected := protectedEcho(t, h)

	login := doLogin(t, mux, "ada", "correct horse")
	if login.Code != http.StatusOK {
		t.Fatalf("login status = %d", login.Code)
	}
	access := decodeBody[loginResponse](t, login).AccessToken

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() == 0 {
		t.Error("empty user id echoed")
	}
}

func TestRequireAuthWithoutToken(t *testing.T) {
	h, _ := newTestHandler(t)
	protected := protectedEcho(t, h)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec).Reason; got != string(session.ReasonNoToken) {
		t.Errorf("reason = %q, want NO_TOKEN", got)
	}
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	h, _ := newTestHandler(t)
	protected := protectedEcho(t, h)

	for _, header := range []string{
		"Bearer garbage",
		"Basic dXNlcjpwYXNz",
		"Bearer ",
	} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		switch header {
		case "Bearer garbage":
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%q: status = %d, want 401", header, rec.Code)
			}
		default:
			// Unparseable schemes count as absent tokens.
			if rec.Code != http.StatusForbidden {
				t.Errorf("%q: status = %d, want 403", header, rec.Code)
			}
		}
	}
}
