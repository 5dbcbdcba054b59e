package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pulse/cmd/identity"
)

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore) error

// WithSchema overrides the default "pulse" schema.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema name %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore wraps pool as a session Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, schema: "pulse"}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PostgresStore) table() string {
	return fmt.Sprintf("%q.%q", s.schema, "sessions")
}

const sessionColumns = "id, user_id, refresh_token_hash, ip, created_at, updated_at, expires_at"

func (s *PostgresStore) Create(ctx context.Context, now time.Time, userID, ip string) (string, error) {
	id, err := identity.NewULID(now)
	if err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	// Provisional expiry until a refresh token is attached.
	exp := now.Add(time.Hour)

	q := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, refresh_token_hash, ip, created_at, updated_at, expires_at)
		VALUES ($1, $2, '', $3, $4, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			refresh_token_hash = '',
			ip = EXCLUDED.ip,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at
		RETURNING id`, s.table())

	var out string
	if err := s.pool.QueryRow(ctx, q, id, userID, ip, now, exp).Scan(&out); err != nil {
		return "", fmt.Errorf("session: create: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AttachRefreshToken(ctx context.Context, now time.Time, sessionID, tokenHash string, expiresAt time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET refresh_token_hash = $2, updated_at = $3, expires_at = $4 WHERE id = $1`, s.table())
	tag, err := s.pool.Exec(ctx, q, sessionID, tokenHash, now, expiresAt)
	if err != nil {
		return fmt.Errorf("session: attach refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSession
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, sessionColumns, s.table())
	return s.scanOne(s.pool.QueryRow(ctx, q, sessionID))
}

func (s *PostgresStore) GetByUser(ctx context.Context, userID string) (Row, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1`, sessionColumns, s.table())
	return s.scanOne(s.pool.QueryRow(ctx, q, userID))
}

func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, sessionID, oldHash, newHash string, newExpiresAt time.Time) error {
	// The old-hash guard makes rotation atomic: a reused token, or the loser
	// of a concurrent rotation, matches zero rows.
	q := fmt.Sprintf(`
		UPDATE %s SET refresh_token_hash = $3, updated_at = $4, expires_at = $5
		WHERE id = $1 AND refresh_token_hash = $2`, s.table())
	tag, err := s.pool.Exec(ctx, q, sessionID, oldHash, newHash, now, newExpiresAt)
	if err != nil {
		return fmt.Errorf("session: rotate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetByID(ctx, sessionID); errors.Is(err, ErrNoSession) {
			return ErrNoSession
		}
		return ErrInvalidToken
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table())
	tag, err := s.pool.Exec(ctx, q, sessionID)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSession
	}
	return nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, s.table())
	tag, err := s.pool.Exec(ctx, q, userID)
	if err != nil {
		return false, fmt.Errorf("session: delete by user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, s.table())
	tag, err := s.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, fmt.Errorf("session: delete expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) scanOne(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.UserID, &r.RefreshTokenHash, &r.IP, &r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNoSession
	}
	if err != nil {
		return Row{}, fmt.Errorf("session: scan: %w", err)
	}
	return r, nil
}
