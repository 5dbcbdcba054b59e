package feed

import (
	"context"
	"time"
)

// Post is an entry in a user's feed.
type Post struct {
	ID       string
	SenderID string
	Title    string
	Content  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment is a reply attached to a post.
type Comment struct {
	ID       string
	PostID   string
	SenderID string
	Content  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePostInput describes a new post.
type CreatePostInput struct {
	SenderID string
	Title    string
	Content  string
	Now      time.Time
}

// UpdatePostInput is a partial post edit. Nil fields are left untouched.
type UpdatePostInput struct {
	Title   *string
	Content *string
	Now     time.Time
}

// ListPostsInput filters and pages a post listing.
type ListPostsInput struct {
	SenderID *string
	Limit    int
	Offset   int
}

// CreateCommentInput describes a new comment.
type CreateCommentInput struct {
	PostID   string
	SenderID string
	Content  string
	Now      time.Time
}

// UpdateCommentInput is a partial comment edit.
type UpdateCommentInput struct {
	Content *string
	Now     time.Time
}

// ListCommentsInput filters and pages a comment listing.
type ListCommentsInput struct {
	PostID *string
	Limit  int
	Offset int
}

// Store is the post/comment persistence boundary.
//
// CreatePost and DeletePost also move the owning user's denormalized
// posts_count; implementations keep row and counter consistent with each
// other (one transaction on Postgres).
type Store interface {
	CreatePost(ctx context.Context, in CreatePostInput) (Post, error)
	GetPost(ctx context.Context, postID string) (Post, error)
	ListPosts(ctx context.Context, in ListPostsInput) ([]Post, error)
	UpdatePost(ctx context.Context, postID string, in UpdatePostInput) (Post, error)
	DeletePost(ctx context.Context, postID string) error

	// DeleteAllPostsBySender removes every post owned by senderID together
	// with their comments, and resets the user's posts_count.
	DeleteAllPostsBySender(ctx context.Context, senderID string, now time.Time) (int64, error)

	CreateComment(ctx context.Context, in CreateCommentInput) (Comment, error)
	GetComment(ctx context.Context, commentID string) (Comment, error)
	ListComments(ctx context.Context, in ListCommentsInput) ([]Comment, error)
	UpdateComment(ctx context.Context, commentID string, in UpdateCommentInput) (Comment, error)
	DeleteComment(ctx context.Context, commentID string) error

	// DeleteAllCommentsBySender removes every comment written by senderID.
	DeleteAllCommentsBySender(ctx context.Context, senderID string) (int64, error)
}
