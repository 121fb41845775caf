// Package seclog is the append-only, per-project security event log. Entries
// are never mutated after creation and are queried by user, event code and
// time range, always paginated and timestamp-descending.
package seclog

import (
	"errors"
	"time"
)

var (
	ErrInvalidQuery = errors.New("seclog: invalid query")
	ErrUnknownEvent = errors.New("seclog: unknown event code")
)

// EventCode enumerates the recognized security event types.
type EventCode string

const (
	EventUserCreated     EventCode = "user.created"
	EventUserLogin       EventCode = "user.login"
	EventUserLoginFailed EventCode = "user.login.failed"
	EventUserLogout      EventCode = "user.logout"
	EventSessionRefresh  EventCode = "user.session.refresh"
	EventPasswordChanged EventCode = "user.password.changed"
	EventUserVerified    EventCode = "user.verified"
	EventUserDeleted     EventCode = "user.deleted"

	EventProjectCreated       EventCode = "project.created"
	EventProjectKeyRotated    EventCode = "project.key.rotated"
	EventProjectConfigUpdated EventCode = "project.config.updated"
	EventProjectDeleted       EventCode = "project.deleted"
	EventUsersReclaimed       EventCode = "users.reclaimed"
)

var knownEvents = map[EventCode]struct{}{
	EventUserCreated:          {},
	EventUserLogin:            {},
	EventUserLoginFailed:      {},
	EventUserLogout:           {},
	EventSessionRefresh:       {},
	EventPasswordChanged:      {},
	EventUserVerified:         {},
	EventUserDeleted:          {},
	EventProjectCreated:       {},
	EventProjectKeyRotated:    {},
	EventProjectConfigUpdated: {},
	EventProjectDeleted:       {},
	EventUsersReclaimed:       {},
}

// KnownEvent reports whether code is part of the event enumeration.
func KnownEvent(code EventCode) bool {
	_, ok := knownEvents[code]
	return ok
}

// Event is one security log entry. UserID is empty for project-level events.
type Event struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id"`
	UserID    string            `json:"user_id,omitempty"`
	Code      EventCode         `json:"code"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
