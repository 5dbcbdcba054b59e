package identity

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	// Min bcrypt cost keeps the suite fast.
	t.Setenv("PULSE_PASSWORD_HASH_COST", "4")
	return NewMemoryStore()
}

func createTestUser(t *testing.T, s *MemoryStore, username string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), CreateUserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password-123",
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "alice")
	if !IsValidID(u.ID) {
		t.Fatalf("expected ULID user id, got %q", u.ID)
	}
	if u.PostsCount != 0 {
		t.Fatalf("expected zero posts_count, got %d", u.PostsCount)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestMemoryStore_UsernameConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "alice")

	_, err := s.CreateUser(ctx, CreateUserInput{
		Username: "ALICE", // normalization makes this a duplicate
		Email:    "other@example.com",
		Password: "password-123",
	})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryStore_AuthLookupAndVerify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestUser(t, s, "bob")

	ua, err := s.GetUserAuthByUsername(ctx, "  BOB ")
	if err != nil {
		t.Fatalf("GetUserAuthByUsername: %v", err)
	}

	ok, err := VerifyPassword("password-123", ua.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, ok=%v err=%v", ok, err)
	}
	ok, _ = VerifyPassword("wrong", ua.PasswordHash)
	if ok {
		t.Fatalf("expected wrong password to fail")
	}

	if _, err := s.GetUserAuthByUsername(ctx, "nobody"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_UpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "carol")

	bio := "hello there"
	private := true
	updated, err := s.UpdateUser(ctx, u.ID, UpdateUserInput{
		Bio:       &bio,
		IsPrivate: &private,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Bio == nil || *updated.Bio != bio {
		t.Fatalf("expected bio update, got %+v", updated.Bio)
	}
	if !updated.IsPrivate {
		t.Fatalf("expected privacy flag set")
	}

	if _, err := s.UpdateUser(ctx, "01ZZZZZZZZZZZZZZZZZZZZZZZZ", UpdateUserInput{Bio: &bio}); !IsNotFound(err) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestMemoryStore_AdjustPostCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := createTestUser(t, s, "dave")

	if err := s.AdjustPostCount(ctx, u.ID, 1, now); err != nil {
		t.Fatalf("AdjustPostCount: %v", err)
	}
	got, _ := s.GetUserByID(ctx, u.ID)
	if got.PostsCount != 1 {
		t.Fatalf("expected posts_count 1, got %d", got.PostsCount)
	}

	// Clamp at zero.
	if err := s.AdjustPostCount(ctx, u.ID, -5, now); err != nil {
		t.Fatalf("AdjustPostCount down: %v", err)
	}
	got, _ = s.GetUserByID(ctx, u.ID)
	if got.PostsCount != 0 {
		t.Fatalf("expected posts_count clamped to 0, got %d", got.PostsCount)
	}
}

func TestMemoryStore_DeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, s, "erin")

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUserByID(ctx, u.ID); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); !IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	if NormalizeUsername("  MiXeD ") != "mixed" {
		t.Fatalf("username normalization broken")
	}
	if NormalizeEmail(" A@B.COM ") != "a@b.com" {
		t.Fatalf("email normalization broken")
	}
}
