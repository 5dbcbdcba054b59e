package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Unique violations are mapped to ConflictError with a stable logical field name.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "pulse").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "pulse",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, email, is_private, posts_count, bio, avatar_url, created_at, updated_at`

// CreateUser creates a new user with a hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
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

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := s.table("users")

	var u User
	err = s.pool.QueryRow(ctx, `
		INSERT INTO `+users+` (
			id, username, username_norm, email, email_norm, password_hash,
			is_private, bio, avatar_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+userColumns,
		userID, username, NormalizeUsername(username), email, NormalizeEmail(email),
		pwHash, in.IsPrivate, trimNullable(in.Bio), trimNullable(in.AvatarURL), now,
	).Scan(
		&u.ID, &u.Username, &u.Email, &u.IsPrivate, &u.PostsCount,
		&u.Bio, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return u, nil
}

// GetUserByID loads a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	const op = "identity.GetUserByID"

	users := s.table("users")

	var u User
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM `+users+`
		WHERE id = $1
	`, userID).Scan(
		&u.ID, &u.Username, &u.Email, &u.IsPrivate, &u.PostsCount,
		&u.Bio, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserAuthByUsername loads a user and its password hash by normalized username.
func (s *PostgresStore) GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error) {
	const op = "identity.GetUserAuthByUsername"

	users := s.table("users")

	var ua UserAuth
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash
		FROM `+users+`
		WHERE username_norm = $1
	`, NormalizeUsername(username)).Scan(
		&ua.User.ID, &ua.User.Username, &ua.User.Email, &ua.User.IsPrivate, &ua.User.PostsCount,
		&ua.User.Bio, &ua.User.AvatarURL, &ua.User.CreatedAt, &ua.User.UpdatedAt,
		&ua.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return UserAuth{}, err
	}
	return ua, nil
}

// ListUsers returns users, optionally filtered by exact (normalized) username.
func (s *PostgresStore) ListUsers(ctx context.Context, in ListUsersInput) ([]User, error) {
	users := s.table("users")

	limit := in.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + userColumns + ` FROM ` + users
	args := []any{}
	if in.Username != nil {
		query += ` WHERE username_norm = $1 ORDER BY id LIMIT $2 OFFSET $3`
		args = append(args, NormalizeUsername(*in.Username), limit, offset)
	} else {
		query += ` ORDER BY id LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Email, &u.IsPrivate, &u.PostsCount,
			&u.Bio, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUser applies a partial update and returns the updated user.
func (s *PostgresStore) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	set := []string{"updated_at = $1"}
	args := []any{now}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "username must not be blank"}
		}
		set = append(set, "username = "+arg(username))
		set = append(set, "username_norm = "+arg(NormalizeUsername(username)))
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email must not be blank"}
		}
		set = append(set, "email = "+arg(email))
		set = append(set, "email_norm = "+arg(NormalizeEmail(email)))
	}
	if in.Password != nil {
		pwHash, err := HashPassword(*in.Password)
		if err != nil {
			return User{}, err
		}
		set = append(set, "password_hash = "+arg(pwHash))
	}
	if in.IsPrivate != nil {
		set = append(set, "is_private = "+arg(*in.IsPrivate))
	}
	if in.Bio != nil {
		set = append(set, "bio = "+arg(trimNullable(in.Bio)))
	}
	if in.AvatarURL != nil {
		set = append(set, "avatar_url = "+arg(trimNullable(in.AvatarURL)))
	}

	users := s.table("users")

	var u User
	err := s.pool.QueryRow(ctx, `
		UPDATE `+users+`
		SET `+strings.Join(set, ", ")+`
		WHERE id = `+arg(userID)+`
		RETURNING `+userColumns,
		args...,
	).Scan(
		&u.ID, &u.Username, &u.Email, &u.IsPrivate, &u.PostsCount,
		&u.Bio, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// DeleteUser removes a user row. Owned posts/comments are not cascaded by the
// application; the schema defines the referential behavior.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	const op = "identity.DeleteUser"

	users := s.table("users")

	tag, err := s.pool.Exec(ctx, `DELETE FROM `+users+` WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// AdjustPostCount shifts posts_count by delta, clamped at zero.
func (s *PostgresStore) AdjustPostCount(ctx context.Context, userID string, delta int, now time.Time) error {
	const op = "identity.AdjustPostCount"

	users := s.table("users")

	tag, err := s.pool.Exec(ctx, `
		UPDATE `+users+`
		SET posts_count = GREATEST(posts_count + $2, 0),
		    updated_at = $3
		WHERE id = $1
	`, userID, delta, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// UserExists reports whether a user row exists.
func (s *PostgresStore) UserExists(ctx context.Context, userID string) (bool, error) {
	users := s.table("users")

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+users+` WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) table(name string) string {
	return fmt.Sprintf("%q.%q", s.schema, name)
}

// uniqueViolationField maps a Postgres unique violation to a logical field name.
func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username", true
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	default:
		return "unique", true
	}
}

func trimNullable(s *string) any {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return v
}
