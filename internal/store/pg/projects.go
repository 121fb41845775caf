package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Auth-Wave/authwave-backend/internal/project"
)

var _ project.Store = (*projectStore)(nil)

type projectStore struct {
	db *sql.DB
}

// Projects exposes the project store. Config is stored as one jsonb column;
// the schema of that document is owned by the project package.
func (s *Store) Projects() project.Store { return &projectStore{db: s.db} }

func (s *projectStore) Insert(ctx context.Context, p *project.Project) error {
	cfg, err := json.Marshal(p.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into projects (id, owner_id, name, app_name, app_email, key, config, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.OwnerID, p.Name, p.AppName, p.AppEmail, p.Key, cfg, p.CreatedAt, p.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%w: project %s", project.ErrAlreadyExists, p.Name)
	}
	return err
}

const projectColumns = `id, owner_id, name, app_name, app_email, key, config, created_at, updated_at`

func scanProject(scan func(dest ...any) error) (*project.Project, error) {
	var (
		p      project.Project
		rawCfg []byte
	)
	err := scan(&p.ID, &p.OwnerID, &p.Name, &p.AppName, &p.AppEmail, &p.Key, &rawCfg, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rawCfg) > 0 {
		if err := json.Unmarshal(rawCfg, &p.Config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	return &p, nil
}

func (s *projectStore) Find(ctx context.Context, id string) (*project.Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `select `+projectColumns+` from projects where id = $1`, id).Scan)
}

func (s *projectStore) ListByOwner(ctx context.Context, ownerID string) ([]*project.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+projectColumns+` from projects where owner_id = $1 order by name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *projectStore) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select id from projects where owner_id = $1 order by id`, ownerID)
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

func (s *projectStore) UpdateKey(ctx context.Context, id, key string) error {
	return s.exec(ctx, `update projects set key = $2, updated_at = now() where id = $1`, id, key)
}

func (s *projectStore) UpdateConfig(ctx context.Context, id string, cfg project.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return s.exec(ctx, `update projects set config = $2, updated_at = now() where id = $1`, id, raw)
}

func (s *projectStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from projects where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (s *projectStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return project.ErrNotFound
	}
	return nil
}
