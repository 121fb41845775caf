package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/account"
)

var _ account.UserStore = (*userStore)(nil)

type userStore struct {
	db *sql.DB
}

// Users exposes the end-user account store.
func (s *Store) Users() account.UserStore { return &userStore{db: s.db} }

func (s *userStore) Insert(ctx context.Context, u *account.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, project_id, name, email, password_hash, verified, last_active_at, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.ProjectID, u.Name, u.Email, u.PasswordHash, u.Verified, nullIfZero(u.LastActiveAt), u.CreatedAt, u.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: email %s", account.ErrAlreadyExists, u.Email)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: project %s", account.ErrNotFound, u.ProjectID)
		}
	}
	return err
}

const userColumns = `
	id, project_id, name, email, password_hash, verified,
	last_active_at, created_at, updated_at`

func scanUser(scan func(dest ...any) error) (*account.User, error) {
	var (
		u          account.User
		lastActive sql.NullTime
	)
	err := scan(
		&u.ID, &u.ProjectID, &u.Name, &u.Email, &u.PasswordHash, &u.Verified,
		&lastActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		u.LastActiveAt = lastActive.Time
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*account.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `select`+userColumns+` from users where id = $1`, id).Scan)
}

func (s *userStore) FindByEmail(ctx context.Context, projectID, email string) (*account.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		select`+userColumns+` from users where project_id = $1 and lower(email) = lower($2)
	`, projectID, email).Scan)
}

func (s *userStore) ListByProject(ctx context.Context, projectID string) ([]*account.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		select`+userColumns+` from users where project_id = $1 order by id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*account.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *userStore) CountByProject(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from users where project_id = $1`, projectID).Scan(&n)
	return n, err
}

func (s *userStore) TouchActivity(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, `update users set last_active_at = $2, updated_at = $2 where id = $1`, id, at)
}

func (s *userStore) MarkVerified(ctx context.Context, id string) error {
	return s.exec(ctx, `update users set verified = true, updated_at = now() where id = $1`, id)
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.exec(ctx, `update users set password_hash = $2, updated_at = now() where id = $1`, id, passwordHash)
}

func (s *userStore) ListInactive(ctx context.Context, projectID string, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id from users
		where project_id = $1 and (last_active_at is null or last_active_at < $2)
		order by id
	`, projectID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	return err
}

func (s *userStore) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `delete from users where id = any($1)`, ids)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *userStore) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from users where project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *userStore) exec(ctx context.Context, query string, args ...any) error {
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
