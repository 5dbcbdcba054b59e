package session

import (
	"context"
	"sync"
	"time"

	"pulse/cmd/identity"
)

// MemoryStore is an in-memory Store for dev mode and tests. It honors the
// same contracts as PostgresStore, including the guarded rotation.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]Row
	byUser map[string]string // userID -> sessionID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]Row),
		byUser: make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, now time.Time, userID, ip string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byUser[userID]; ok {
		delete(s.byID, old)
	}

	id, err := identity.NewULID(now)
	if err != nil {
		return "", err
	}
	s.byID[id] = Row{
		ID:        id,
		UserID:    userID,
		IP:        ip,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	s.byUser[userID] = id
	return id, nil
}

func (s *MemoryStore) AttachRefreshToken(_ context.Context, now time.Time, sessionID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[sessionID]
	if !ok {
		return ErrNoSession
	}
	r.RefreshTokenHash = tokenHash
	r.UpdatedAt = now
	r.ExpiresAt = expiresAt
	s.byID[sessionID] = r
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, sessionID string) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[sessionID]
	if !ok {
		return Row{}, ErrNoSession
	}
	return r, nil
}

func (s *MemoryStore) GetByUser(_ context.Context, userID string) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUser[userID]
	if !ok {
		return Row{}, ErrNoSession
	}
	return s.byID[id], nil
}

func (s *MemoryStore) Rotate(_ context.Context, now time.Time, sessionID, oldHash, newHash string, newExpiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[sessionID]
	if !ok {
		return ErrNoSession
	}
	if r.RefreshTokenHash != oldHash {
		return ErrInvalidToken
	}
	r.RefreshTokenHash = newHash
	r.UpdatedAt = now
	r.ExpiresAt = newExpiresAt
	s.byID[sessionID] = r
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[sessionID]
	if !ok {
		return ErrNoSession
	}
	delete(s.byID, sessionID)
	delete(s.byUser, r.UserID)
	return nil
}

func (s *MemoryStore) DeleteByUser(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUser[userID]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	delete(s.byUser, userID)
	return true, nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.byID {
		if r.Expired(now) {
			delete(s.byID, id)
			delete(s.byUser, r.UserID)
			n++
		}
	}
	return n, nil
}
