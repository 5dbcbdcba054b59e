package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"pulse/cmd/identity"
)

// MemoryStore is an in-memory Store for dev mode and tests. It keeps the
// same contracts as PostgresStore, including posts_count maintenance through
// the user store.
type MemoryStore struct {
	mu       sync.Mutex
	posts    map[string]Post
	comments map[string]Comment
	users    identity.Store
}

// NewMemoryStore returns an empty MemoryStore backed by users for the
// denormalized post counts and referential checks.
func NewMemoryStore(users identity.Store) *MemoryStore {
	return &MemoryStore{
		posts:    make(map[string]Post),
		comments: make(map[string]Comment),
		users:    users,
	}
}

func (s *MemoryStore) CreatePost(ctx context.Context, in CreatePostInput) (Post, error) {
	const op = "feed.CreatePost"

	ok, err := s.users.UserExists(ctx, in.SenderID)
	if err != nil {
		return Post{}, err
	}
	if !ok {
		return Post{}, NotFoundError{Op: op, Resource: "user"}
	}

	id, err := identity.NewULID(in.Now)
	if err != nil {
		return Post{}, err
	}

	s.mu.Lock()
	p := Post{
		ID:        id,
		SenderID:  in.SenderID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
	s.posts[p.ID] = p
	s.mu.Unlock()

	if err := s.users.AdjustPostCount(ctx, in.SenderID, 1, in.Now); err != nil {
		return Post{}, err
	}
	return p, nil
}

func (s *MemoryStore) GetPost(_ context.Context, postID string) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return Post{}, NotFoundError{Op: "feed.GetPost", Resource: "post"}
	}
	return p, nil
}

func (s *MemoryStore) ListPosts(_ context.Context, in ListPostsInput) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		if in.SenderID != nil && p.SenderID != *in.SenderID {
			continue
		}
		out = append(out, p)
	}
	// Newest first, matching the Postgres ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pagePosts(out, clampLimit(in.Limit), max(in.Offset, 0)), nil
}

func (s *MemoryStore) UpdatePost(_ context.Context, postID string, in UpdatePostInput) (Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return Post{}, NotFoundError{Op: "feed.UpdatePost", Resource: "post"}
	}
	changed := false
	if in.Title != nil {
		p.Title = *in.Title
		changed = true
	}
	if in.Content != nil {
		p.Content = *in.Content
		changed = true
	}
	if changed {
		p.UpdatedAt = in.Now
		s.posts[postID] = p
	}
	return p, nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	p, ok := s.posts[postID]
	if !ok {
		s.mu.Unlock()
		return NotFoundError{Op: "feed.DeletePost", Resource: "post"}
	}
	delete(s.posts, postID)
	for id, c := range s.comments {
		if c.PostID == postID {
			delete(s.comments, id)
		}
	}
	s.mu.Unlock()

	return s.users.AdjustPostCount(ctx, p.SenderID, -1, time.Now().UTC())
}

func (s *MemoryStore) DeleteAllPostsBySender(ctx context.Context, senderID string, now time.Time) (int64, error) {
	s.mu.Lock()
	var n int64
	for id, p := range s.posts {
		if p.SenderID != senderID {
			continue
		}
		delete(s.posts, id)
		for cid, c := range s.comments {
			if c.PostID == id {
				delete(s.comments, cid)
			}
		}
		n++
	}
	s.mu.Unlock()

	if n > 0 {
		if err := s.users.AdjustPostCount(ctx, senderID, int(-n), now); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateComment(ctx context.Context, in CreateCommentInput) (Comment, error) {
	const op = "feed.CreateComment"

	ok, err := s.users.UserExists(ctx, in.SenderID)
	if err != nil {
		return Comment{}, err
	}
	if !ok {
		return Comment{}, NotFoundError{Op: op, Resource: "user"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[in.PostID]; !ok {
		return Comment{}, NotFoundError{Op: op, Resource: "post"}
	}

	id, err := identity.NewULID(in.Now)
	if err != nil {
		return Comment{}, err
	}
	c := Comment{
		ID:        id,
		PostID:    in.PostID,
		SenderID:  in.SenderID,
		Content:   in.Content,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}
	s.comments[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetComment(_ context.Context, commentID string) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, NotFoundError{Op: "feed.GetComment", Resource: "comment"}
	}
	return c, nil
}

func (s *MemoryStore) ListComments(_ context.Context, in ListCommentsInput) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Comment, 0, len(s.comments))
	for _, c := range s.comments {
		if in.PostID != nil && c.PostID != *in.PostID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pageComments(out, clampLimit(in.Limit), max(in.Offset, 0)), nil
}

func (s *MemoryStore) UpdateComment(_ context.Context, commentID string, in UpdateCommentInput) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return Comment{}, NotFoundError{Op: "feed.UpdateComment", Resource: "comment"}
	}
	if in.Content != nil {
		c.Content = *in.Content
		c.UpdatedAt = in.Now
		s.comments[commentID] = c
	}
	return c, nil
}

func (s *MemoryStore) DeleteComment(_ context.Context, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[commentID]; !ok {
		return NotFoundError{Op: "feed.DeleteComment", Resource: "comment"}
	}
	delete(s.comments, commentID)
	return nil
}

func (s *MemoryStore) DeleteAllCommentsBySender(_ context.Context, senderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.comments {
		if c.SenderID == senderID {
			delete(s.comments, id)
			n++
		}
	}
	return n, nil
}

func pagePosts(posts []Post, limit, offset int) []Post {
	if offset >= len(posts) {
		return []Post{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

func pageComments(comments []Comment, limit, offset int) []Comment {
	if offset >= len(comments) {
		return []Comment{}
	}
	end := offset + limit
	if end > len(comments) {
		end = len(comments)
	}
	return comments[offset:end]
}
