package feed

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
			return fmt.Errorf("feed: invalid schema name %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore wraps pool as a feed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, schema: "pulse"}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *PostgresStore) table(name string) string {
	return fmt.Sprintf("%q.%q", s.schema, name)
}

const (
	postColumns    = "id, sender_id, title, content, created_at, updated_at"
	commentColumns = "id, post_id, sender_id, content, created_at, updated_at"

	defaultListLimit = 50
	maxListLimit     = 200
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// CreatePost inserts the post and bumps the sender's posts_count in one
// transaction, so a failed increment never leaves an orphaned post.
func (s *PostgresStore) CreatePost(ctx context.Context, in CreatePostInput) (Post, error) {
	const op = "feed.CreatePost"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Post{}, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := identity.NewULID(in.Now)
	if err != nil {
		return Post{}, fmt.Errorf("%s: %w", op, err)
	}
	q := fmt.Sprintf(`
		INSERT INTO %s (id, sender_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING %s`, s.table("posts"), postColumns)

	p, err := scanPost(tx.QueryRow(ctx, q, id, in.SenderID, in.Title, in.Content, in.Now))
	if err != nil {
		if isForeignKeyViolation(err) {
			return Post{}, NotFoundError{Op: op, Resource: "user"}
		}
		return Post{}, fmt.Errorf("%s: %w", op, err)
	}

	bump := fmt.Sprintf(`UPDATE %s SET posts_count = posts_count + 1, updated_at = $2 WHERE id = $1`, s.table("users"))
	tag, err := tx.Exec(ctx, bump, in.SenderID, in.Now)
	if err != nil {
		return Post{}, fmt.Errorf("%s: bump count: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return Post{}, NotFoundError{Op: op, Resource: "user"}
	}

	if err := tx.Commit(ctx); err != nil {
		return Post{}, fmt.Errorf("%s: commit: %w", op, err)
	}
	return p, nil
}

func (s *PostgresStore) GetPost(ctx context.Context, postID string) (Post, error) {
	const op = "feed.GetPost"

	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, postColumns, s.table("posts"))
	p, err := scanPost(s.pool.QueryRow(ctx, q, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, NotFoundError{Op: op, Resource: "post"}
	}
	if err != nil {
		return Post{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, in ListPostsInput) ([]Post, error) {
	const op = "feed.ListPosts"

	var (
		where []string
		args  []any
	)
	if in.SenderID != nil {
		args = append(args, *in.SenderID)
		where = append(where, fmt.Sprintf("sender_id = $%d", len(args)))
	}
	q := fmt.Sprintf(`SELECT %s FROM %s`, postColumns, s.table("posts"))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(in.Limit))
	q += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))
	args = append(args, max(in.Offset, 0))
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	posts := make([]Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

func (s *PostgresStore) UpdatePost(ctx context.Context, postID string, in UpdatePostInput) (Post, error) {
	const op = "feed.UpdatePost"

	sets := []string{}
	args := []any{postID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if in.Title != nil {
		sets = append(sets, "title = "+arg(*in.Title))
	}
	if in.Content != nil {
		sets = append(sets, "content = "+arg(*in.Content))
	}
	if len(sets) == 0 {
		return s.GetPost(ctx, postID)
	}
	sets = append(sets, "updated_at = "+arg(in.Now))

	q := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 RETURNING %s`,
		s.table("posts"), strings.Join(sets, ", "), postColumns)
	p, err := scanPost(s.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, NotFoundError{Op: op, Resource: "post"}
	}
	if err != nil {
		return Post{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// DeletePost removes the post (comments cascade) and decrements the owner's
// posts_count in the same transaction.
func (s *PostgresStore) DeletePost(ctx context.Context, postID string) error {
	const op = "feed.DeletePost"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING sender_id`, s.table("posts"))
	var senderID string
	err = tx.QueryRow(ctx, q, postID).Scan(&senderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFoundError{Op: op, Resource: "post"}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	drop := fmt.Sprintf(`UPDATE %s SET posts_count = GREATEST(posts_count - 1, 0), updated_at = now() WHERE id = $1`, s.table("users"))
	if _, err := tx.Exec(ctx, drop, senderID); err != nil {
		return fmt.Errorf("%s: drop count: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllPostsBySender(ctx context.Context, senderID string, now time.Time) (int64, error) {
	const op = "feed.DeleteAllPostsBySender"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := fmt.Sprintf(`DELETE FROM %s WHERE sender_id = $1`, s.table("posts"))
	tag, err := tx.Exec(ctx, q, senderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	reset := fmt.Sprintf(`UPDATE %s SET posts_count = 0, updated_at = $2 WHERE id = $1`, s.table("users"))
	if _, err := tx.Exec(ctx, reset, senderID, now); err != nil {
		return 0, fmt.Errorf("%s: reset count: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) CreateComment(ctx context.Context, in CreateCommentInput) (Comment, error) {
	const op = "feed.CreateComment"

	id, err := identity.NewULID(in.Now)
	if err != nil {
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	q := fmt.Sprintf(`
		INSERT INTO %s (id, post_id, sender_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING %s`, s.table("comments"), commentColumns)

	c, err := scanComment(s.pool.QueryRow(ctx, q, id, in.PostID, in.SenderID, in.Content, in.Now))
	if err != nil {
		if isForeignKeyViolation(err) {
			return Comment{}, NotFoundError{Op: op, Resource: "post or user"}
		}
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	const op = "feed.GetComment"

	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, commentColumns, s.table("comments"))
	c, err := scanComment(s.pool.QueryRow(ctx, q, commentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, NotFoundError{Op: op, Resource: "comment"}
	}
	if err != nil {
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *PostgresStore) ListComments(ctx context.Context, in ListCommentsInput) ([]Comment, error) {
	const op = "feed.ListComments"

	var (
		where []string
		args  []any
	)
	if in.PostID != nil {
		args = append(args, *in.PostID)
		where = append(where, fmt.Sprintf("post_id = $%d", len(args)))
	}
	q := fmt.Sprintf(`SELECT %s FROM %s`, commentColumns, s.table("comments"))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(in.Limit))
	q += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d", len(args))
	args = append(args, max(in.Offset, 0))
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	comments := make([]Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return comments, nil
}

func (s *PostgresStore) UpdateComment(ctx context.Context, commentID string, in UpdateCommentInput) (Comment, error) {
	const op = "feed.UpdateComment"

	if in.Content == nil {
		return s.GetComment(ctx, commentID)
	}

	q := fmt.Sprintf(`UPDATE %s SET content = $2, updated_at = $3 WHERE id = $1 RETURNING %s`,
		s.table("comments"), commentColumns)
	c, err := scanComment(s.pool.QueryRow(ctx, q, commentID, *in.Content, in.Now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, NotFoundError{Op: op, Resource: "comment"}
	}
	if err != nil {
		return Comment{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) error {
	const op = "feed.DeleteComment"

	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table("comments"))
	tag, err := s.pool.Exec(ctx, q, commentID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "comment"}
	}
	return nil
}

func (s *PostgresStore) DeleteAllCommentsBySender(ctx context.Context, senderID string) (int64, error) {
	const op = "feed.DeleteAllCommentsBySender"

	q := fmt.Sprintf(`DELETE FROM %s WHERE sender_id = $1`, s.table("comments"))
	tag, err := s.pool.Exec(ctx, q, senderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.SenderID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.SenderID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
