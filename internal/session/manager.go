package session

import (
	"context"
	"errors"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/ids"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/token"
)

// TokenPair carries the credentials handed to a caller on session creation.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Manager creates, refreshes, verifies and revokes sessions.
type Manager struct {
	store    Store
	projects *project.Registry

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// ManagerOption configures Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewManager constructs a Manager. projects supplies the per-project session
// limit; secret signs session tokens.
func NewManager(store Store, projects *project.Registry, secret []byte, accessTTL, refreshTTL time.Duration, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if projects == nil {
		return nil, errors.New("project registry is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("session token secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= accessTTL {
		return nil, errors.New("invalid token ttl configuration")
	}
	m := &Manager{
		store:      store,
		projects:   projects,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create opens a session for the account. Admin sessions are single-slot:
// any existing admin session is replaced. User sessions are bounded by the
// owning project's current user_session_limit; the policy is reject-new, and
// a limit lowered later never evicts sessions that already exist.
func (m *Manager) Create(ctx context.Context, kind Kind, accountID, projectID string) (*Session, TokenPair, error) {
	now := m.now().UTC()

	switch kind {
	case KindAdmin:
		if _, err := m.store.DeleteByAccount(ctx, KindAdmin, accountID); err != nil {
			return nil, TokenPair{}, err
		}
	case KindUser:
		p, err := m.projects.Get(ctx, projectID)
		if err != nil {
			return nil, TokenPair{}, err
		}
		live, err := m.countLive(ctx, KindUser, accountID, now)
		if err != nil {
			return nil, TokenPair{}, err
		}
		if live >= p.Config.Security.UserSessionLimit {
			return nil, TokenPair{}, ErrLimitExceeded
		}
	default:
		return nil, TokenPair{}, errors.New("session: unknown kind")
	}

	sess := &Session{
		ID:        ids.New(),
		Kind:      kind,
		AccountID: accountID,
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	access, err := m.issue(sess, token.UseAccess, m.accessTTL)
	if err != nil {
		return nil, TokenPair{}, err
	}
	refresh, err := m.issue(sess, token.UseRefresh, m.refreshTTL)
	if err != nil {
		return nil, TokenPair{}, err
	}
	sess.AccessToken = access
	sess.AccessExpiresAt = now.Add(m.accessTTL)
	sess.RefreshToken = refresh
	sess.RefreshExpiresAt = now.Add(m.refreshTTL)

	if err := m.store.Insert(ctx, sess); err != nil {
		return nil, TokenPair{}, err
	}
	pair := TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  sess.AccessExpiresAt,
		RefreshExpiresAt: sess.RefreshExpiresAt,
	}
	return sess, pair, nil
}

// Refresh mints a new access token against a presented refresh token. The
// token is decoded unverified only to locate the session; every authoritative
// check runs against the stored record. The refresh token itself is left
// unchanged.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*Session, string, time.Time, error) {
	claims, err := token.DecodeUnsafe(refreshToken)
	if err != nil || claims.SessionID == "" || claims.TokenUse != token.UseRefresh {
		return nil, "", time.Time{}, ErrRefreshTokenInvalid
	}
	sess, err := m.store.Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", time.Time{}, ErrNotFound
		}
		return nil, "", time.Time{}, err
	}
	// Stored expiry is authoritative; the token's own exp claim is ignored.
	now := m.now().UTC()
	if sess.RefreshToken == "" || sess.RefreshToken != refreshToken {
		return nil, "", time.Time{}, ErrRefreshTokenInvalid
	}
	if !now.Before(sess.RefreshExpiresAt) {
		return nil, "", time.Time{}, ErrRefreshTokenExpired
	}

	access, err := m.issue(sess, token.UseAccess, m.accessTTL)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	expiresAt := now.Add(m.accessTTL)
	if err := m.store.UpdateAccessToken(ctx, sess.ID, access, expiresAt); err != nil {
		return nil, "", time.Time{}, err
	}
	sess.AccessToken = access
	sess.AccessExpiresAt = expiresAt
	return sess, access, expiresAt, nil
}

// Verify authenticates a presented access token. Signature and shape come
// from the token layer; liveness comes from the stored record, so revocation
// takes effect immediately.
func (m *Manager) Verify(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := token.Verify(accessToken, m.secret)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" || claims.TokenUse != token.UseAccess {
		return nil, token.ErrTokenInvalid
	}
	sess, err := m.store.Find(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, token.ErrTokenInvalid
		}
		return nil, err
	}
	if sess.AccessToken == "" || sess.AccessToken != accessToken {
		return nil, token.ErrTokenInvalid
	}
	if !m.now().UTC().Before(sess.AccessExpiresAt) {
		return nil, token.ErrTokenExpired
	}
	return sess, nil
}

// Revoke kills one session. Tokens are cleared before the record is deleted
// so verification fails even if the delete is interrupted.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if err := m.store.ClearTokens(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return m.store.Delete(ctx, sessionID)
}

// RevokeAccount kills every session of the account.
func (m *Manager) RevokeAccount(ctx context.Context, kind Kind, accountID string) (int64, error) {
	return m.store.DeleteByAccount(ctx, kind, accountID)
}

// Sessions lists the account's session records.
func (m *Manager) Sessions(ctx context.Context, kind Kind, accountID string) ([]*Session, error) {
	return m.store.ListByAccount(ctx, kind, accountID)
}

func (m *Manager) countLive(ctx context.Context, kind Kind, accountID string, now time.Time) (int, error) {
	sessions, err := m.store.ListByAccount(ctx, kind, accountID)
	if err != nil {
		return 0, err
	}
	live := 0
	for _, s := range sessions {
		if s.Live(now) {
			live++
		}
	}
	return live, nil
}

func (m *Manager) issue(sess *Session, use string, ttl time.Duration) (string, error) {
	claims := token.Claims{
		Kind:      string(sess.Kind),
		ProjectID: sess.ProjectID,
		SessionID: sess.ID,
		TokenUse:  use,
	}
	claims.Subject = sess.AccountID
	return token.Issue(claims, m.secret, ttl)
}
