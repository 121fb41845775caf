package session

import (
	"context"
	"sync"
	"time"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[string]*Session)}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Insert(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (s *InMemory) ListByAccount(ctx context.Context, kind Kind, accountID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Session
	for _, sess := range s.sessions {
		if sess.Kind == kind && sess.AccountID == accountID {
			out := *sess
			res = append(res, &out)
		}
	}
	return res, nil
}

func (s *InMemory) UpdateAccessToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.AccessToken = accessToken
	sess.AccessExpiresAt = expiresAt
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) ClearTokens(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.AccessToken = ""
	sess.RefreshToken = ""
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *InMemory) DeleteByAccount(ctx context.Context, kind Kind, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.Kind == kind && sess.AccountID == accountID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemory) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.ProjectID == projectID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
