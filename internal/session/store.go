package session

import (
	"context"
	"time"
)

// Store persists session records.
type Store interface {
	Insert(ctx context.Context, s *Session) error
	Find(ctx context.Context, id string) (*Session, error)
	ListByAccount(ctx context.Context, kind Kind, accountID string) ([]*Session, error)
	UpdateAccessToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error
	// ClearTokens nulls the stored token fields so verification fails
	// immediately, independent of record deletion.
	ClearTokens(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteByAccount(ctx context.Context, kind Kind, accountID string) (int64, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}
