package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/session"
)

var _ session.Store = (*sessionStore)(nil)

type sessionStore struct {
	db *sql.DB
}

// Sessions exposes the session store.
func (s *Store) Sessions() session.Store { return &sessionStore{db: s.db} }

func (s *sessionStore) Insert(ctx context.Context, sess *session.Session) error {
	_, err := s.db.ExecContext(ctx, `
		insert into sessions (id, kind, account_id, project_id, access_token, access_expires_at,
			refresh_token, refresh_expires_at, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sess.ID, string(sess.Kind), sess.AccountID, nullIfEmpty(sess.ProjectID),
		nullIfEmpty(sess.AccessToken), nullIfZero(sess.AccessExpiresAt),
		nullIfEmpty(sess.RefreshToken), nullIfZero(sess.RefreshExpiresAt),
		sess.CreatedAt, sess.UpdatedAt)
	return err
}

const sessionColumns = `
	id, kind, account_id, coalesce(project_id, ''),
	coalesce(access_token, ''), access_expires_at,
	coalesce(refresh_token, ''), refresh_expires_at,
	created_at, updated_at`

func scanSession(scan func(dest ...any) error) (*session.Session, error) {
	var (
		sess          session.Session
		kind          string
		accessExpiry  sql.NullTime
		refreshExpiry sql.NullTime
	)
	err := scan(
		&sess.ID, &kind, &sess.AccountID, &sess.ProjectID,
		&sess.AccessToken, &accessExpiry,
		&sess.RefreshToken, &refreshExpiry,
		&sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Kind = session.Kind(kind)
	if accessExpiry.Valid {
		sess.AccessExpiresAt = accessExpiry.Time
	}
	if refreshExpiry.Valid {
		sess.RefreshExpiresAt = refreshExpiry.Time
	}
	return &sess, nil
}

func (s *sessionStore) Find(ctx context.Context, id string) (*session.Session, error) {
	return scanSession(s.db.QueryRowContext(ctx, `select`+sessionColumns+` from sessions where id = $1`, id).Scan)
}

func (s *sessionStore) ListByAccount(ctx context.Context, kind session.Kind, accountID string) ([]*session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		select`+sessionColumns+` from sessions where kind = $1 and account_id = $2 order by created_at
	`, string(kind), accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *sessionStore) UpdateAccessToken(ctx context.Context, id, accessToken string, expiresAt time.Time) error {
	return s.exec(ctx, `
		update sessions
		set access_token = $2, access_expires_at = $3, updated_at = now()
		where id = $1
	`, id, nullIfEmpty(accessToken), nullIfZero(expiresAt))
}

func (s *sessionStore) ClearTokens(ctx context.Context, id string) error {
	return s.exec(ctx, `
		update sessions
		set access_token = null, access_expires_at = null,
			refresh_token = null, refresh_expires_at = null,
			updated_at = now()
		where id = $1
	`, id)
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id = $1`, id)
	return err
}

func (s *sessionStore) DeleteByAccount(ctx context.Context, kind session.Kind, accountID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where kind = $1 and account_id = $2`, string(kind), accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionStore) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *sessionStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return session.ErrNotFound
	}
	return nil
}
