package project

import "context"

// Store persists project records. Insert reports ErrAlreadyExists when the
// (owner, name) pair collides; lookups report ErrNotFound.
type Store interface {
	Insert(ctx context.Context, p *Project) error
	Find(ctx context.Context, id string) (*Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Project, error)
	// IDsByOwner is the owner-scoped id projection used by cascade deletes.
	IDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	UpdateKey(ctx context.Context, id, key string) error
	UpdateConfig(ctx context.Context, id string, cfg Config) error
	Delete(ctx context.Context, id string) error
}
