package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/account"
)

var _ account.AdminStore = (*adminStore)(nil)

type adminStore struct {
	db *sql.DB
}

// Admins exposes the admin account store.
func (s *Store) Admins() account.AdminStore { return &adminStore{db: s.db} }

func (s *adminStore) Insert(ctx context.Context, a *account.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		insert into admins (id, name, email, password_hash, verified, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Name, a.Email, a.PasswordHash, a.Verified, a.CreatedAt, a.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: email %s", account.ErrAlreadyExists, a.Email)
	}
	return err
}

const adminColumns = `
	id, name, email, password_hash, verified,
	coalesce(verify_token, ''), verify_token_expiry,
	coalesce(reset_token, ''), reset_token_expiry,
	created_at, updated_at`

func (s *adminStore) scanAdmin(row *sql.Row) (*account.Admin, error) {
	var (
		a            account.Admin
		verifyExpiry sql.NullTime
		resetExpiry  sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Verified,
		&a.VerifyToken, &verifyExpiry,
		&a.ResetToken, &resetExpiry,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if verifyExpiry.Valid {
		a.VerifyTokenExpiry = verifyExpiry.Time
	}
	if resetExpiry.Valid {
		a.ResetTokenExpiry = resetExpiry.Time
	}
	return &a, nil
}

func (s *adminStore) Find(ctx context.Context, id string) (*account.Admin, error) {
	return s.scanAdmin(s.db.QueryRowContext(ctx, `select`+adminColumns+` from admins where id = $1`, id))
}

func (s *adminStore) FindByEmail(ctx context.Context, email string) (*account.Admin, error) {
	return s.scanAdmin(s.db.QueryRowContext(ctx, `select`+adminColumns+` from admins where lower(email) = lower($1)`, email))
}

func (s *adminStore) SetVerifyToken(ctx context.Context, id, tok string, expiry time.Time) error {
	return s.exec(ctx, `
		update admins
		set verify_token = $2, verify_token_expiry = $3, updated_at = now()
		where id = $1
	`, id, nullIfEmpty(tok), nullIfZero(expiry))
}

func (s *adminStore) MarkVerified(ctx context.Context, id string) error {
	return s.exec(ctx, `
		update admins
		set verified = true, verify_token = null, verify_token_expiry = null, updated_at = now()
		where id = $1
	`, id)
}

func (s *adminStore) SetResetToken(ctx context.Context, id, tok string, expiry time.Time) error {
	return s.exec(ctx, `
		update admins
		set reset_token = $2, reset_token_expiry = $3, updated_at = now()
		where id = $1
	`, id, nullIfEmpty(tok), nullIfZero(expiry))
}

func (s *adminStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.exec(ctx, `
		update admins
		set password_hash = $2, reset_token = null, reset_token_expiry = null, updated_at = now()
		where id = $1
	`, id, passwordHash)
}

func (s *adminStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from admins where id = $1`, id)
	return err
}

func (s *adminStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return account.ErrNotFound
	}
	return nil
}
