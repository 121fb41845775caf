// Package session manages live authenticated sessions for admins and users.
// Both share one record shape with a kind discriminator; slot policy (admins
// single-slot, users bounded by project policy) lives in the Manager.
package session

import (
	"errors"
	"time"
)

// Kind discriminates the account class a session belongs to.
type Kind string

const (
	KindAdmin Kind = "admin"
	KindUser  Kind = "user"
)

var (
	ErrNotFound            = errors.New("session: not found")
	ErrLimitExceeded       = errors.New("session: session limit exceeded")
	ErrRefreshTokenInvalid = errors.New("session: invalid refresh token")
	ErrRefreshTokenExpired = errors.New("session: refresh token expired")
)

// Session binds an account to its issued token pair. The stored token fields
// are the source of truth: revocation clears them, and verification compares
// presented tokens against them, so a revoked token fails immediately even
// while its self-encoded expiry would still pass.
type Session struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	AccountID string `json:"account_id"`
	// ProjectID is empty for admin sessions.
	ProjectID string `json:"project_id,omitempty"`

	AccessToken     string    `json:"-"`
	AccessExpiresAt time.Time `json:"access_expires_at"`

	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Live reports whether the session still holds an unexpired refresh token.
// Revoked sessions (cleared tokens) are not live.
func (s *Session) Live(now time.Time) bool {
	return s.RefreshToken != "" && now.Before(s.RefreshExpiresAt)
}
