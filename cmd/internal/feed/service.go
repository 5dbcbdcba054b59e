package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

const (
	maxTitleLen   = 200
	maxContentLen = 5000
)

// Service enforces input and ownership rules on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the service clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a Service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("feed: nil store")
	}
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreatePost publishes a post owned by senderID.
func (s *Service) CreatePost(ctx context.Context, senderID, title, content string) (Post, error) {
	const op = "feed.CreatePost"

	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return Post{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "title and content are required"}
	}
	if len(title) > maxTitleLen || len(content) > maxContentLen {
		return Post{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "title or content too long"}
	}

	p, err := s.store.CreatePost(ctx, CreatePostInput{
		SenderID: senderID,
		Title:    title,
		Content:  content,
		Now:      s.now().UTC(),
	})
	if err != nil {
		return Post{}, err
	}

	s.logger.InfoContext(ctx, "feed.post.create", "post_id", p.ID, "sender_id", senderID)
	return p, nil
}

func (s *Service) GetPost(ctx context.Context, postID string) (Post, error) {
	return s.store.GetPost(ctx, postID)
}

func (s *Service) ListPosts(ctx context.Context, in ListPostsInput) ([]Post, error) {
	return s.store.ListPosts(ctx, in)
}

// UpdatePost edits a post. Only the owning sender may edit.
func (s *Service) UpdatePost(ctx context.Context, callerID, postID string, title, content *string) (Post, error) {
	const op = "feed.UpdatePost"

	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return Post{}, err
	}
	if p.SenderID != callerID {
		return Post{}, OpError{Op: op, Kind: ErrForbidden, Msg: "not the post owner"}
	}

	title = trimmed(title)
	content = trimmed(content)
	if title != nil && (len(*title) == 0 || len(*title) > maxTitleLen) {
		return Post{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid title"}
	}
	if content != nil && (len(*content) == 0 || len(*content) > maxContentLen) {
		return Post{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid content"}
	}

	return s.store.UpdatePost(ctx, postID, UpdatePostInput{
		Title:   title,
		Content: content,
		Now:     s.now().UTC(),
	})
}

// DeletePost removes a post. Only the owning sender may delete.
func (s *Service) DeletePost(ctx context.Context, callerID, postID string) error {
	const op = "feed.DeletePost"

	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if p.SenderID != callerID {
		return OpError{Op: op, Kind: ErrForbidden, Msg: "not the post owner"}
	}

	if err := s.store.DeletePost(ctx, postID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "feed.post.delete", "post_id", postID, "sender_id", callerID)
	return nil
}

// DeleteAllPosts removes every post owned by callerID.
func (s *Service) DeleteAllPosts(ctx context.Context, callerID string) (int64, error) {
	n, err := s.store.DeleteAllPostsBySender(ctx, callerID, s.now().UTC())
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "feed.post.delete_all", "sender_id", callerID, "count", n)
	return n, nil
}

// CreateComment attaches a comment by senderID to postID.
func (s *Service) CreateComment(ctx context.Context, senderID, postID, content string) (Comment, error) {
	const op = "feed.CreateComment"

	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "content is required"}
	}
	if len(content) > maxContentLen {
		return Comment{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "content too long"}
	}

	c, err := s.store.CreateComment(ctx, CreateCommentInput{
		PostID:   postID,
		SenderID: senderID,
		Content:  content,
		Now:      s.now().UTC(),
	})
	if err != nil {
		return Comment{}, err
	}

	s.logger.InfoContext(ctx, "feed.comment.create", "comment_id", c.ID, "post_id", postID, "sender_id", senderID)
	return c, nil
}

func (s *Service) GetComment(ctx context.Context, commentID string) (Comment, error) {
	return s.store.GetComment(ctx, commentID)
}

func (s *Service) ListComments(ctx context.Context, in ListCommentsInput) ([]Comment, error) {
	return s.store.ListComments(ctx, in)
}

// UpdateComment edits a comment. Only its author may edit.
func (s *Service) UpdateComment(ctx context.Context, callerID, commentID string, content *string) (Comment, error) {
	const op = "feed.UpdateComment"

	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	if c.SenderID != callerID {
		return Comment{}, OpError{Op: op, Kind: ErrForbidden, Msg: "not the comment author"}
	}

	content = trimmed(content)
	if content != nil && (len(*content) == 0 || len(*content) > maxContentLen) {
		return Comment{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid content"}
	}

	return s.store.UpdateComment(ctx, commentID, UpdateCommentInput{
		Content: content,
		Now:     s.now().UTC(),
	})
}

// DeleteComment removes a comment. Only its author may delete.
func (s *Service) DeleteComment(ctx context.Context, callerID, commentID string) error {
	const op = "feed.DeleteComment"

	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if c.SenderID != callerID {
		return OpError{Op: op, Kind: ErrForbidden, Msg: "not the comment author"}
	}
	return s.store.DeleteComment(ctx, commentID)
}

// DeleteAllComments removes every comment written by callerID.
func (s *Service) DeleteAllComments(ctx context.Context, callerID string) (int64, error) {
	return s.store.DeleteAllCommentsBySender(ctx, callerID)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
