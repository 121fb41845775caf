package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Auth-Wave/authwave-backend/internal/seclog"
)

var _ seclog.Store = (*seclogStore)(nil)

type seclogStore struct {
	db *sql.DB
}

// SecurityLogs exposes the append-only security event store.
func (s *Store) SecurityLogs() seclog.Store { return &seclogStore{db: s.db} }

func (s *seclogStore) Append(ctx context.Context, e *seclog.Event) error {
	meta := []byte("{}")
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		meta = raw
	}
	_, err := s.db.ExecContext(ctx, `
		insert into security_logs (id, project_id, user_id, code, metadata, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.ProjectID, nullIfEmpty(e.UserID), string(e.Code), meta, e.CreatedAt)
	return err
}

func (s *seclogStore) Query(ctx context.Context, f seclog.Filter) ([]seclog.Event, error) {
	var (
		conds = []string{"project_id = $1"}
		args  = []any{f.ProjectID}
		idx   = 2
	)
	if f.UserID != "" {
		conds = append(conds, fmt.Sprintf("user_id = $%d", idx))
		args = append(args, f.UserID)
		idx++
	}
	if f.Code != "" {
		conds = append(conds, fmt.Sprintf("code = $%d", idx))
		args = append(args, string(f.Code))
		idx++
	}
	if f.Start != nil {
		conds = append(conds, fmt.Sprintf("created_at >= $%d", idx))
		args = append(args, *f.Start)
		idx++
	}
	if f.End != nil {
		conds = append(conds, fmt.Sprintf("created_at <= $%d", idx))
		args = append(args, *f.End)
		idx++
	}
	query := fmt.Sprintf(`
		select id, project_id, coalesce(user_id, ''), code, metadata, created_at
		from security_logs
		where %s
		order by created_at desc
		limit $%d offset $%d
	`, strings.Join(conds, " and "), idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []seclog.Event
	for rows.Next() {
		var (
			e       seclog.Event
			code    string
			rawMeta []byte
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.UserID, &code, &rawMeta, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Code = seclog.EventCode(code)
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *seclogStore) DeleteByProject(ctx context.Context, projectID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from security_logs where project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
