package account

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryAdmins implements AdminStore with in-process concurrency safety.
type InMemoryAdmins struct {
	mu     sync.RWMutex
	admins map[string]*Admin
}

// NewInMemoryAdmins creates an empty admin store.
func NewInMemoryAdmins() *InMemoryAdmins {
	return &InMemoryAdmins{admins: make(map[string]*Admin)}
}

var _ AdminStore = (*InMemoryAdmins)(nil)

func (s *InMemoryAdmins) Insert(ctx context.Context, a *Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return fmt.Errorf("%w: email %s", ErrAlreadyExists, a.Email)
		}
	}
	cp := *a
	s.admins[a.ID] = &cp
	return nil
}

func (s *InMemoryAdmins) Find(ctx context.Context, id string) (*Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[id]
	if !ok {
		return nil, fmt.Errorf("%w: admin %s", ErrNotFound, id)
	}
	cp := *a
	return &cp, nil
}

func (s *InMemoryAdmins) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: admin email %s", ErrNotFound, email)
}

func (s *InMemoryAdmins) SetVerifyToken(ctx context.Context, id, tok string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return fmt.Errorf("%w: admin %s", ErrNotFound, id)
	}
	a.VerifyToken = tok
	a.VerifyTokenExpiry = expiry
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryAdmins) MarkVerified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return fmt.Errorf("%w: admin %s", ErrNotFound, id)
	}
	a.Verified = true
	a.VerifyToken = ""
	a.VerifyTokenExpiry = time.Time{}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryAdmins) SetResetToken(ctx context.Context, id, tok string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return fmt.Errorf("%w: admin %s", ErrNotFound, id)
	}
	a.ResetToken = tok
	a.ResetTokenExpiry = expiry
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryAdmins) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return fmt.Errorf("%w: admin %s", ErrNotFound, id)
	}
	a.PasswordHash = passwordHash
	a.ResetToken = ""
	a.ResetTokenExpiry = time.Time{}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryAdmins) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.admins, id)
	return nil
}

// InMemoryUsers implements UserStore with in-process concurrency safety.
type InMemoryUsers struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryUsers creates an empty user store.
func NewInMemoryUsers() *InMemoryUsers {
	return &InMemoryUsers{users: make(map[string]*User)}
}

var _ UserStore = (*InMemoryUsers)(nil)

func (s *InMemoryUsers) Insert(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.ProjectID == u.ProjectID && strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: email %s", ErrAlreadyExists, u.Email)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryUsers) FindByEmail(ctx context.Context, projectID, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ProjectID == projectID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: user email %s", ErrNotFound, email)
}

func (s *InMemoryUsers) ListByProject(ctx context.Context, projectID string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*User
	for _, u := range s.users {
		if u.ProjectID == projectID {
			cp := *u
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *InMemoryUsers) CountByProject(ctx context.Context, projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryUsers) TouchActivity(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	u.LastActiveAt = at
	u.UpdatedAt = at
	return nil
}

func (s *InMemoryUsers) MarkVerified(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	u.Verified = true
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryUsers) ListInactive(ctx context.Context, projectID string, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, u := range s.users {
		if u.ProjectID != projectID {
			continue
		}
		if u.LastActiveAt.IsZero() || u.LastActiveAt.Before(cutoff) {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryUsers) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

func (s *InMemoryUsers) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.users[id]; ok {
			delete(s.users, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryUsers) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, u := range s.users {
		if u.ProjectID == projectID {
			delete(s.users, id)
			n++
		}
	}
	return n, nil
}
