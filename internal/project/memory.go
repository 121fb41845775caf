package project

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and by dev mode when no database DSN is configured.
type InMemory struct {
	mu       sync.RWMutex
	projects map[string]*Project
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{projects: make(map[string]*Project)}
}

var _ Store = (*InMemory)(nil)

func (s *InMemory) Insert(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, have := range s.projects {
		if have.OwnerID == p.OwnerID && have.Name == p.Name {
			return ErrAlreadyExists
		}
	}
	cp := *p
	cp.Config = p.Config.clone()
	s.projects[p.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	out.Config = p.Config.clone()
	return &out, nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Project
	for _, p := range s.projects {
		if p.OwnerID != ownerID {
			continue
		}
		out := *p
		out.Config = p.Config.clone()
		res = append(res, &out)
	}
	return res, nil
}

func (s *InMemory) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, p := range s.projects {
		if p.OwnerID == ownerID {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (s *InMemory) UpdateKey(ctx context.Context, id, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.Key = key
	return nil
}

func (s *InMemory) UpdateConfig(ctx context.Context, id string, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.Config = cfg.clone()
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	return nil
}
