package identity

import (
	"context"
	"time"
)

// User is Pulse's canonical security principal and profile record.
type User struct {
	ID       string
	Username string
	Email    string

	IsPrivate  bool
	PostsCount int
	Bio        *string
	AvatarURL  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth pairs a user with its stored password hash for credential checks.
// The hash never leaves the auth path.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a signup request.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	IsPrivate bool
	Bio       *string
	AvatarURL *string
	Now       time.Time
}

// UpdateUserInput describes a partial profile update.
// Nil fields are left untouched; Password, when set, is re-hashed.
type UpdateUserInput struct {
	Username  *string
	Email     *string
	Password  *string
	IsPrivate *bool
	Bio       *string
	AvatarURL *string
	Now       time.Time
}

// ListUsersInput filters and pages a user listing.
type ListUsersInput struct {
	Username *string
	Limit    int
	Offset   int
}

// Store is the user persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)

	// GetUserAuthByUsername loads a user together with its password hash for
	// login. Lookup is by normalized username.
	GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error)

	ListUsers(ctx context.Context, in ListUsersInput) ([]User, error)
	UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (User, error)
	DeleteUser(ctx context.Context, userID string) error

	// AdjustPostCount shifts the denormalized posts_count by delta.
	// Implementations must never let the count go negative.
	AdjustPostCount(ctx context.Context, userID string, delta int, now time.Time) error

	// UserExists is a cheap referential check used by the feed service.
	UserExists(ctx context.Context, userID string) (bool, error)
}
