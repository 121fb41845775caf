package seclog

import (
	"context"
	"time"
)

// Filter is the storage-level query shape. Zero-valued fields are ignored.
type Filter struct {
	ProjectID string
	UserID    string
	Code      EventCode
	Start     *time.Time
	End       *time.Time
	Offset    int
	Limit     int
}

// Store persists events. Query returns entries ordered by creation time
// descending; storage failures propagate unmasked.
type Store interface {
	Append(ctx context.Context, e *Event) error
	Query(ctx context.Context, f Filter) ([]Event, error)
	DeleteByProject(ctx context.Context, projectID string) (int64, error)
}
