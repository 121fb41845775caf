package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Auth-Wave/authwave-backend/internal/ids"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/validate"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// Service implements the admin and end-user credential flows. End-user signup
// is bounded by the owning project's user limit and requires the password
// login method to be enabled.
type Service struct {
	admins   AdminStore
	users    UserStore
	projects *project.Registry
	logs     *seclog.Service
	now      func() time.Time
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

// NewService wires the credential flows. The security log is optional; a nil
// logs argument disables event recording.
func NewService(admins AdminStore, users UserStore, projects *project.Registry, logs *seclog.Service, opts ...ServiceOption) (*Service, error) {
	if admins == nil || users == nil {
		return nil, errors.New("account stores are required")
	}
	if projects == nil {
		return nil, errors.New("project registry is required")
	}
	s := &Service{admins: admins, users: users, projects: projects, logs: logs, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterAdmin creates an unverified admin account and stages its email
// verification challenge. The returned token is delivered out of band.
func (s *Service) RegisterAdmin(ctx context.Context, name, email, password string) (*Admin, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Name("admin name", name); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validate.Email(email); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validate.Password(password); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	now := s.now().UTC()
	a := &Admin{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.admins.Insert(ctx, a); err != nil {
		return nil, "", err
	}
	tok, err := s.stageAdminVerification(ctx, a)
	if err != nil {
		return nil, "", err
	}
	return a, tok, nil
}

// AuthenticateAdmin checks credentials and returns the matching admin.
func (s *Service) AuthenticateAdmin(ctx context.Context, email, password string) (*Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := VerifyPassword(a.PasswordHash, password); err != nil {
		return nil, fmt.Errorf("%w: admin %s", ErrIncorrectPassword, a.ID)
	}
	return a, nil
}

// GetAdmin loads one admin by id.
func (s *Service) GetAdmin(ctx context.Context, id string) (*Admin, error) {
	return s.admins.Find(ctx, id)
}

// ReissueAdminVerification replaces any pending verification challenge.
func (s *Service) ReissueAdminVerification(ctx context.Context, adminID string) (string, error) {
	a, err := s.admins.Find(ctx, adminID)
	if err != nil {
		return "", err
	}
	if a.Verified {
		return "", fmt.Errorf("%w: admin already verified", ErrInvalidInput)
	}
	return s.stageAdminVerification(ctx, a)
}

func (s *Service) stageAdminVerification(ctx context.Context, a *Admin) (string, error) {
	tok := uuid.NewString()
	if err := s.admins.SetVerifyToken(ctx, a.ID, tok, s.now().UTC().Add(verifyTokenTTL)); err != nil {
		return "", err
	}
	return tok, nil
}

// ConfirmAdminEmail completes the verification challenge.
func (s *Service) ConfirmAdminEmail(ctx context.Context, adminID, token string) error {
	a, err := s.admins.Find(ctx, adminID)
	if err != nil {
		return err
	}
	if a.VerifyToken == "" || a.VerifyToken != token || s.now().After(a.VerifyTokenExpiry) {
		return fmt.Errorf("%w: verification", ErrChallengeInvalid)
	}
	return s.admins.MarkVerified(ctx, a.ID)
}

// RequestPasswordReset stages a reset challenge for the admin with the given
// email. The token is delivered out of band.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	tok := uuid.NewString()
	if err := s.admins.SetResetToken(ctx, a.ID, tok, s.now().UTC().Add(resetTokenTTL)); err != nil {
		return "", err
	}
	return tok, nil
}

// ConfirmPasswordReset completes the reset challenge and installs the new
// password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, token, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if a.ResetToken == "" || a.ResetToken != token || s.now().After(a.ResetTokenExpiry) {
		return fmt.Errorf("%w: password reset", ErrChallengeInvalid)
	}
	if err := validate.Password(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.admins.UpdatePassword(ctx, a.ID, hash)
}

// ChangeAdminPassword rotates the password after re-checking the current one.
func (s *Service) ChangeAdminPassword(ctx context.Context, adminID, current, next string) error {
	a, err := s.admins.Find(ctx, adminID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(a.PasswordHash, current); err != nil {
		return fmt.Errorf("%w: admin %s", ErrIncorrectPassword, a.ID)
	}
	if err := validate.Password(next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.admins.UpdatePassword(ctx, a.ID, hash)
}

// RegisterUser signs an end user up on a project. Fails when the project's
// user limit is reached or the password method is disabled.
func (s *Service) RegisterUser(ctx context.Context, projectID, name, email, password string) (*User, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Config.HasMethod(project.MethodPassword) {
		return nil, fmt.Errorf("%w: password signup", ErrMethodDisabled)
	}
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Name("user name", name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validate.Email(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validate.Password(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n, err := s.users.CountByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if n >= p.Config.Security.UserLimit {
		return nil, fmt.Errorf("%w: limit %d", ErrUserLimitExceeded, p.Config.Security.UserLimit)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &User{
		ID:           ids.New(),
		ProjectID:    p.ID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, err
	}
	s.record(ctx, p.ID, u.ID, seclog.EventUserCreated, nil)
	return u, nil
}

// AuthenticateUser checks end-user credentials and records the attempt. A
// successful login touches the user's activity timestamp.
func (s *Service) AuthenticateUser(ctx context.Context, projectID, email, password string) (*User, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.Config.HasMethod(project.MethodPassword) {
		return nil, fmt.Errorf("%w: password login", ErrMethodDisabled)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, p.ID, email)
	if err != nil {
		return nil, err
	}
	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		s.record(ctx, p.ID, u.ID, seclog.EventUserLoginFailed, nil)
		return nil, fmt.Errorf("%w: user %s", ErrIncorrectPassword, u.ID)
	}
	now := s.now().UTC()
	if err := s.users.TouchActivity(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastActiveAt = now
	s.record(ctx, p.ID, u.ID, seclog.EventUserLogin, nil)
	return u, nil
}

// GetUser loads one user, masking cross-project lookups as not found.
func (s *Service) GetUser(ctx context.Context, projectID, userID string) (*User, error) {
	u, err := s.users.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.ProjectID != projectID {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return u, nil
}

// ListUsers returns every user of the project.
func (s *Service) ListUsers(ctx context.Context, projectID string) ([]*User, error) {
	return s.users.ListByProject(ctx, projectID)
}

// TouchUserActivity records activity outside the login path, e.g. on a
// session refresh.
func (s *Service) TouchUserActivity(ctx context.Context, userID string) error {
	return s.users.TouchActivity(ctx, userID, s.now().UTC())
}

// VerifyUser marks the user's email as confirmed.
func (s *Service) VerifyUser(ctx context.Context, projectID, userID string) error {
	u, err := s.GetUser(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if err := s.users.MarkVerified(ctx, u.ID); err != nil {
		return err
	}
	s.record(ctx, projectID, u.ID, seclog.EventUserVerified, nil)
	return nil
}

// ChangeUserPassword rotates the end user's password after re-checking the
// current one.
func (s *Service) ChangeUserPassword(ctx context.Context, projectID, userID, current, next string) error {
	u, err := s.GetUser(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(u.PasswordHash, current); err != nil {
		return fmt.Errorf("%w: user %s", ErrIncorrectPassword, u.ID)
	}
	if err := validate.Password(next); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}
	s.record(ctx, projectID, u.ID, seclog.EventPasswordChanged, nil)
	return nil
}

func (s *Service) record(ctx context.Context, projectID, userID string, code seclog.EventCode, metadata map[string]string) {
	if s.logs == nil {
		return
	}
	// Log writes never fail the credential flow that triggered them.
	_, _ = s.logs.Append(ctx, projectID, userID, code, metadata)
}
