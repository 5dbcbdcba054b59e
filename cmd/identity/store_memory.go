package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a dev/test fallback used when no database is configured.
// It honors the same uniqueness and error contracts as PostgresStore.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*memUser // id -> record
}

type memUser struct {
	user         User
	passwordHash string
}

// NewMemoryStore constructs an in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*memUser)}
}

// CreateUser creates a new user with a hashed password.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username and email are required"}
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if NormalizeUsername(rec.user.Username) == NormalizeUsername(username) {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
		if NormalizeEmail(rec.user.Email) == NormalizeEmail(email) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
	}

	u := User{
		ID:        id,
		Username:  username,
		Email:     email,
		IsPrivate: in.IsPrivate,
		Bio:       copyNullable(in.Bio),
		AvatarURL: copyNullable(in.AvatarURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[id] = &memUser{user: u, passwordHash: pwHash}

	return u, nil
}

// GetUserByID loads a user by ID.
func (s *MemoryStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	}
	return rec.user, nil
}

// GetUserAuthByUsername loads a user and its password hash by normalized username.
func (s *MemoryStore) GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	norm := NormalizeUsername(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if NormalizeUsername(rec.user.Username) == norm {
			return UserAuth{User: rec.user, PasswordHash: rec.passwordHash}, nil
		}
	}
	return UserAuth{}, NotFoundError{Op: "identity.GetUserAuthByUsername", Resource: "user"}
}

// ListUsers returns users, optionally filtered by exact (normalized) username.
func (s *MemoryStore) ListUsers(ctx context.Context, in ListUsersInput) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []User
	for _, rec := range s.users {
		if in.Username != nil &&
			NormalizeUsername(rec.user.Username) != NormalizeUsername(*in.Username) {
			continue
		}
		out = append(out, rec.user)
	}
	sortUsersByID(out)
	return pageUsers(out, in.Limit, in.Offset), nil
}

// UpdateUser applies a partial update and returns the updated user.
func (s *MemoryStore) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var pwHash string
	if in.Password != nil {
		var err error
		pwHash, err = HashPassword(*in.Password)
		if err != nil {
			return User{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username must not be blank"}
		}
		for id, other := range s.users {
			if id != userID && NormalizeUsername(other.user.Username) == NormalizeUsername(username) {
				return User{}, ConflictError{Op: op, Field: "username"}
			}
		}
		rec.user.Username = username
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email must not be blank"}
		}
		for id, other := range s.users {
			if id != userID && NormalizeEmail(other.user.Email) == NormalizeEmail(email) {
				return User{}, ConflictError{Op: op, Field: "email"}
			}
		}
		rec.user.Email = email
	}
	if in.Password != nil {
		rec.passwordHash = pwHash
	}
	if in.IsPrivate != nil {
		rec.user.IsPrivate = *in.IsPrivate
	}
	if in.Bio != nil {
		rec.user.Bio = copyNullable(in.Bio)
	}
	if in.AvatarURL != nil {
		rec.user.AvatarURL = copyNullable(in.AvatarURL)
	}
	rec.user.UpdatedAt = now

	return rec.user, nil
}

// DeleteUser removes a user record.
func (s *MemoryStore) DeleteUser(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
	}
	delete(s.users, userID)
	return nil
}

// AdjustPostCount shifts posts_count by delta, clamped at zero.
func (s *MemoryStore) AdjustPostCount(ctx context.Context, userID string, delta int, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return NotFoundError{Op: "identity.AdjustPostCount", Resource: "user"}
	}
	rec.user.PostsCount += delta
	if rec.user.PostsCount < 0 {
		rec.user.PostsCount = 0
	}
	rec.user.UpdatedAt = now
	return nil
}

// UserExists reports whether a user record exists.
func (s *MemoryStore) UserExists(ctx context.Context, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.users[userID]
	return ok, nil
}

func copyNullable(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func sortUsersByID(users []User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}

func pageUsers(users []User, limit, offset int) []User {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(users) {
		return nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end]
}
