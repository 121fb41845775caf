// Package lifecycle orchestrates the cascading deletes that span the account,
// project, session and security log stores. Cascades run children first and
// the owning record last, and are idempotent against partially deleted state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/account"
	"github.com/Auth-Wave/authwave-backend/internal/obs"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/session"
)

// DefaultInactiveDays is the reclamation threshold when none is configured.
const DefaultInactiveDays = 30

// Orchestrator walks the ownership tree admin -> project -> {users, sessions,
// logs} for deletes and reclamation.
type Orchestrator struct {
	admins   account.AdminStore
	users    account.UserStore
	projects project.Store
	sessions session.Store
	logs     *seclog.Service
	now      func() time.Time
}

// Option configures Orchestrator behavior.
type Option func(*Orchestrator)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.now = fn
		}
	}
}

// New wires the orchestrator over the individual stores.
func New(admins account.AdminStore, users account.UserStore, projects project.Store, sessions session.Store, logs *seclog.Service, opts ...Option) (*Orchestrator, error) {
	if admins == nil || users == nil || projects == nil || sessions == nil || logs == nil {
		return nil, errors.New("lifecycle requires every store")
	}
	o := &Orchestrator{
		admins:   admins,
		users:    users,
		projects: projects,
		sessions: sessions,
		logs:     logs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// DeleteProject removes the project and everything under it. An absent
// project record is not an error; any children left behind by a previous
// partial run are still swept.
func (o *Orchestrator) DeleteProject(ctx context.Context, projectID string) error {
	var errs []error
	if _, err := o.sessions.DeleteByProject(ctx, projectID); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}
	if _, err := o.logs.DeleteByProject(ctx, projectID); err != nil {
		errs = append(errs, fmt.Errorf("security logs: %w", err))
	}
	if _, err := o.users.DeleteByProject(ctx, projectID); err != nil {
		errs = append(errs, fmt.Errorf("users: %w", err))
	}
	if err := o.projects.Delete(ctx, projectID); err != nil && !errors.Is(err, project.ErrNotFound) {
		errs = append(errs, fmt.Errorf("project record: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("lifecycle: delete project %s: %w", projectID, err)
	}
	obs.Logger().Printf(`{"event":"project_deleted","project_id":%q}`, projectID)
	return nil
}

// DeleteAllProjectsOwnedBy cascades every project of the admin. Each project
// is attempted even when an earlier one fails; failures are aggregated.
func (o *Orchestrator) DeleteAllProjectsOwnedBy(ctx context.Context, adminID string) error {
	ids, err := o.projects.IDsByOwner(ctx, adminID)
	if err != nil {
		return fmt.Errorf("lifecycle: list projects of %s: %w", adminID, err)
	}
	var errs []error
	for _, id := range ids {
		if err := o.DeleteProject(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteAdmin revokes the admin's session, deletes the account record and
// then cascades every owned project.
func (o *Orchestrator) DeleteAdmin(ctx context.Context, adminID string) error {
	var errs []error
	if _, err := o.sessions.DeleteByAccount(ctx, session.KindAdmin, adminID); err != nil {
		errs = append(errs, fmt.Errorf("admin sessions: %w", err))
	}
	if err := o.admins.Delete(ctx, adminID); err != nil && !errors.Is(err, account.ErrNotFound) {
		errs = append(errs, fmt.Errorf("admin record: %w", err))
	}
	if err := o.DeleteAllProjectsOwnedBy(ctx, adminID); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("lifecycle: delete admin %s: %w", adminID, err)
	}
	obs.Logger().Printf(`{"event":"admin_deleted","admin_id":%q}`, adminID)
	return nil
}

// DeleteUser removes one end-user account and its sessions, and records the
// deletion in the project's security log.
func (o *Orchestrator) DeleteUser(ctx context.Context, projectID, userID string) error {
	u, err := o.users.Find(ctx, userID)
	if err != nil {
		return err
	}
	if u.ProjectID != projectID {
		return fmt.Errorf("%w: user %s", account.ErrNotFound, userID)
	}
	if _, err := o.sessions.DeleteByAccount(ctx, session.KindUser, userID); err != nil {
		return fmt.Errorf("lifecycle: delete sessions of %s: %w", userID, err)
	}
	if err := o.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("lifecycle: delete user %s: %w", userID, err)
	}
	_, _ = o.logs.Append(ctx, projectID, userID, seclog.EventUserDeleted, nil)
	return nil
}

// ReclaimInactiveUsers deletes users whose last activity is older than the
// threshold, along with their sessions. Users who never recorded activity are
// eligible. Returns the number of users removed.
func (o *Orchestrator) ReclaimInactiveUsers(ctx context.Context, projectID string, thresholdDays int) (int64, error) {
	if thresholdDays <= 0 {
		thresholdDays = DefaultInactiveDays
	}
	cutoff := o.now().UTC().AddDate(0, 0, -thresholdDays)
	ids, err := o.users.ListInactive(ctx, projectID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("lifecycle: list inactive users: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var errs []error
	for _, id := range ids {
		if _, err := o.sessions.DeleteByAccount(ctx, session.KindUser, id); err != nil {
			errs = append(errs, fmt.Errorf("sessions of %s: %w", id, err))
		}
	}
	n, err := o.users.DeleteMany(ctx, ids)
	if err != nil {
		errs = append(errs, fmt.Errorf("users: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return n, fmt.Errorf("lifecycle: reclaim project %s: %w", projectID, err)
	}
	_, _ = o.logs.Append(ctx, projectID, "", seclog.EventUsersReclaimed, map[string]string{
		"count": strconv.FormatInt(n, 10),
	})
	return n, nil
}
