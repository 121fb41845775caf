package seclog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/ids"
	"github.com/Auth-Wave/authwave-backend/internal/obs"
)

// MaxPageSize caps a single log query page.
const MaxPageSize = 100

// Service validates the shared query contract and appends events.
type Service struct {
	store   Store
	now     func() time.Time
	publish func(Event)
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithPublisher registers a callback invoked after every successful append,
// typically a live event stream fan-out. The callback must not block.
func WithPublisher(fn func(Event)) ServiceOption {
	return func(s *Service) {
		s.publish = fn
	}
}

// NewService constructs a Service over the given store.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("seclog store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Append records one event. The only validation is that the code is
// recognized; storage failures propagate to the caller unmasked.
func (s *Service) Append(ctx context.Context, projectID, userID string, code EventCode, metadata map[string]string) (*Event, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidQuery)
	}
	if !KnownEvent(code) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, code)
	}
	e := &Event{
		ID:        ids.New(),
		ProjectID: projectID,
		UserID:    strings.TrimSpace(userID),
		Code:      code,
		Metadata:  metadata,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Append(ctx, e); err != nil {
		return nil, err
	}
	obs.CountSecurityEvent(string(code))
	if s.publish != nil {
		s.publish(*e)
	}
	return e, nil
}

// Page is one page of query results.
type Page struct {
	Events   []Event `json:"events"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// QueryByUser returns the user's events, newest first.
func (s *Service) QueryByUser(ctx context.Context, projectID, userID string, page, pageSize int, start, end *time.Time) (Page, error) {
	if strings.TrimSpace(userID) == "" {
		return Page{}, fmt.Errorf("%w: user id is required", ErrInvalidQuery)
	}
	return s.query(ctx, Filter{ProjectID: projectID, UserID: userID}, page, pageSize, start, end)
}

// QueryByEvent returns the project's events of one code, newest first.
func (s *Service) QueryByEvent(ctx context.Context, projectID string, code EventCode, page, pageSize int, start, end *time.Time) (Page, error) {
	if !KnownEvent(code) {
		return Page{}, fmt.Errorf("%w: %q", ErrUnknownEvent, code)
	}
	return s.query(ctx, Filter{ProjectID: projectID, Code: code}, page, pageSize, start, end)
}

// QueryByUserAndEvent intersects both filters.
func (s *Service) QueryByUserAndEvent(ctx context.Context, projectID, userID string, code EventCode, page, pageSize int, start, end *time.Time) (Page, error) {
	if strings.TrimSpace(userID) == "" {
		return Page{}, fmt.Errorf("%w: user id is required", ErrInvalidQuery)
	}
	if !KnownEvent(code) {
		return Page{}, fmt.Errorf("%w: %q", ErrUnknownEvent, code)
	}
	return s.query(ctx, Filter{ProjectID: projectID, UserID: userID, Code: code}, page, pageSize, start, end)
}

// query applies the shared pagination/time-range contract: page is
// 1-indexed, pageSize positive and capped, bounds inclusive, and an empty
// result is an empty page, not an error.
func (s *Service) query(ctx context.Context, f Filter, page, pageSize int, start, end *time.Time) (Page, error) {
	if strings.TrimSpace(f.ProjectID) == "" {
		return Page{}, fmt.Errorf("%w: project id is required", ErrInvalidQuery)
	}
	if page <= 0 {
		return Page{}, fmt.Errorf("%w: page must be positive", ErrInvalidQuery)
	}
	if pageSize <= 0 {
		return Page{}, fmt.Errorf("%w: page size must be positive", ErrInvalidQuery)
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if start != nil && end != nil && end.Before(*start) {
		return Page{}, fmt.Errorf("%w: end date precedes start date", ErrInvalidQuery)
	}
	f.Start = start
	f.End = end
	f.Offset = (page - 1) * pageSize
	f.Limit = pageSize

	events, err := s.store.Query(ctx, f)
	if err != nil {
		return Page{}, err
	}
	if events == nil {
		events = []Event{}
	}
	return Page{Events: events, Page: page, PageSize: pageSize}, nil
}

// DeleteByProject removes every event of the project; used by cascades only.
func (s *Service) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	return s.store.DeleteByProject(ctx, projectID)
}
