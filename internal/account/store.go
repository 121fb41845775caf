package account

import (
	"context"
	"time"
)

// AdminStore persists admin accounts. Email addresses are globally unique;
// Insert reports ErrAlreadyExists on collision.
type AdminStore interface {
	Insert(ctx context.Context, a *Admin) error
	Find(ctx context.Context, id string) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	SetVerifyToken(ctx context.Context, id, tok string, expiry time.Time) error
	MarkVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, tok string, expiry time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// UserStore persists end-user accounts. Emails are unique within one project
// only; Insert reports ErrAlreadyExists on a (project, email) collision.
type UserStore interface {
	Insert(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, projectID, email string) (*User, error)
	ListByProject(ctx context.Context, projectID string) ([]*User, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	TouchActivity(ctx context.Context, id string, at time.Time) error
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ListInactive returns ids of users in the project whose last activity is
	// before cutoff; users with no recorded activity are included.
	ListInactive(ctx context.Context, projectID string, cutoff time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}
