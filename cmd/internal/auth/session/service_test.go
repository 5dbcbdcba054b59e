package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulse/cmd/identity"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *testClock, identity.User) {
	t.Helper()
	t.Setenv("PULSE_PASSWORD_HASH_COST", "4")

	users := identity.NewMemoryStore()
	user, err := users.CreateUser(context.Background(), identity.CreateUserInput{
		Username: "ada",
		Email:    "ada@example.com",
		Password: "correct horse",
		Now:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	tm, err := NewTokenManager(testConfig())
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	clock := &testClock{t: time.Now().UTC()}
	svc, err := NewService(NewMemoryStore(), tm, users, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, clock, user
}

func TestServiceLogin(t *testing.T) {
	svc, _, user := newTestService(t)
	ctx := context.Background()

	got, issued, err := svc.Login(ctx, "ada", "correct horse", "127.0.0.1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("user id = %q, want %q", got.ID, user.ID)
	}
	if issued.AccessToken == "" || issued.RefreshToken == "" || issued.SessionID == "" {
		t.Fatalf("incomplete issue: %+v", issued)
	}

	userID, err := svc.ValidateAccess(issued.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if userID != user.ID {
		t.Errorf("ValidateAccess user id = %q, want %q", userID, user.ID)
	}
}

func TestServiceLoginCollapsesCredentialFailures(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "nobody", "whatever", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "ada", "wrong", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("bad password: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestServiceLoginReplacesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, first, err := svc.Login(ctx, "ada", "correct horse", "")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	_, second, err := svc.Login(ctx, "ada", "correct horse", "")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("session id not replaced: %q", first.SessionID)
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Errorf("refresh with pre-replacement token: err = %v, want ErrNoSession", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Errorf("refresh with live token: %v", err)
	}
}

func TestServiceRefreshRotates(t *testing.T) {
	svc, clock, user := newTestService(t)
	ctx := context.Background()

	_, issued, err := svc.Login(ctx, "ada", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	clock.Advance(time.Minute)
	rotated, err := svc.Refresh(ctx, issued.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.SessionID != issued.SessionID {
		t.Errorf("rotation changed session id: %q -> %q", issued.SessionID, rotated.SessionID)
	}
	if rotated.RefreshToken == issued.RefreshToken {
		t.Error("rotation returned the same refresh token")
	}
	if uid, err := svc.ValidateAccess(rotated.AccessToken); err != nil || uid != user.ID {
		t.Errorf("new access token: uid=%q err=%v", uid, err)
	}

	// The pre-rotation token is spent.
	if _, err := svc.Refresh(ctx, issued.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reuse of rotated token: err = %v, want ErrInvalidToken", err)
	}
	// The new token still works.
	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Errorf("refresh with rotated token: %v", err)
	}
}

func TestServiceRefreshExpired(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	_, issued, err := svc.Login(ctx, "ada", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	clock.Advance(svc.Tokens().RefreshTokenTTL() + time.Hour)
	if _, err := svc.Refresh(ctx, issued.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Refresh after expiry: err = %v, want ErrTokenExpired", err)
	}
}

func TestServiceLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, issued, err := svc.Login(ctx, "ada", "correct horse", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, issued.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, issued.RefreshToken); !errors.Is(err, ErrNoSession) {
		t.Errorf("refresh after logout: err = %v, want ErrNoSession", err)
	}

	// Logging out an already cleared session is fine.
	if err := svc.Logout(ctx, issued.RefreshToken); err != nil {
		t.Errorf("repeat Logout: %v", err)
	}

	if err := svc.Logout(ctx, "not-a-token"); !errors.Is(err, ErrInvalidSessionID) {
		t.Errorf("Logout(garbage): err = %v, want ErrInvalidSessionID", err)
	}
}

func TestServiceDeleteExpired(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "ada", "correct horse", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if n, err := svc.DeleteExpired(ctx); err != nil || n != 0 {
		t.Fatalf("DeleteExpired before expiry: n=%d err=%v", n, err)
	}

	clock.Advance(svc.Tokens().RefreshTokenTTL() + time.Hour)
	if n, err := svc.DeleteExpired(ctx); err != nil || n != 1 {
		t.Fatalf("DeleteExpired after expiry: n=%d err=%v", n, err)
	}
}

func TestMemoryStoreRotateGuard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	sid, err := store.Create(ctx, now, "user-1", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AttachRefreshToken(ctx, now, sid, "hash-a", now.Add(time.Hour)); err != nil {
		t.Fatalf("AttachRefreshToken: %v", err)
	}

	if err := store.Rotate(ctx, now, sid, "hash-a", "hash-b", now.Add(time.Hour)); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	// Losing a rotation race means the stored hash moved on.
	if err := store.Rotate(ctx, now, sid, "hash-a", "hash-c", now.Add(time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Rotate with stale hash: err = %v, want ErrInvalidToken", err)
	}
	if err := store.Rotate(ctx, now, "missing", "hash-b", "hash-c", now.Add(time.Hour)); !errors.Is(err, ErrNoSession) {
		t.Errorf("Rotate on missing session: err = %v, want ErrNoSession", err)
	}
}
