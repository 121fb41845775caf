package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/project"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*Service, *project.Registry, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	reg, err := project.NewRegistry(project.NewInMemory(), []byte("key-secret"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	svc, err := NewService(NewInMemoryAdmins(), NewInMemoryUsers(), reg, nil, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, reg, clock
}

func newTestProject(t *testing.T, reg *project.Registry, cfg *project.Config) *project.Project {
	t.Helper()
	p, err := reg.Create(context.Background(), "adm-1", "acme", "Acme App", "ops@acme.test", cfg)
	if err != nil {
		t.Fatalf("Create project: %v", err)
	}
	return p
}

func TestRegisterAdminAndAuthenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, verifyTok, err := svc.RegisterAdmin(ctx, "Dana", "dana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}
	if a.Verified {
		t.Fatal("new admin must start unverified")
	}
	if verifyTok == "" {
		t.Fatal("verification token missing")
	}

	got, err := svc.AuthenticateAdmin(ctx, "Dana@Example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("AuthenticateAdmin: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("authenticated wrong admin: %s", got.ID)
	}

	if _, err := svc.AuthenticateAdmin(ctx, "dana@example.com", "wrong"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("want ErrIncorrectPassword, got %v", err)
	}
}

func TestRegisterAdminDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterAdmin(ctx, "Dana", "dana@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("first RegisterAdmin: %v", err)
	}
	if _, _, err := svc.RegisterAdmin(ctx, "Other", "DANA@example.com", "s3cret-pass"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestRegisterAdminValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"", "dana@example.com", "s3cret-pass"},
		{"Dana", "not-an-email", "s3cret-pass"},
		{"Dana", "dana@example.com", "short"},
	}
	for _, tc := range cases {
		if _, _, err := svc.RegisterAdmin(ctx, tc.name, tc.email, tc.password); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("(%q,%q): want ErrInvalidInput, got %v", tc.name, tc.email, err)
		}
	}
}

func TestConfirmAdminEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	a, tok, err := svc.RegisterAdmin(ctx, "Dana", "dana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}

	if err := svc.ConfirmAdminEmail(ctx, a.ID, "bogus"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("bogus token: want ErrChallengeInvalid, got %v", err)
	}
	if err := svc.ConfirmAdminEmail(ctx, a.ID, tok); err != nil {
		t.Fatalf("ConfirmAdminEmail: %v", err)
	}
	got, err := svc.GetAdmin(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
	if !got.Verified {
		t.Fatal("admin should be verified")
	}

	// A confirmed challenge cannot be replayed.
	if err := svc.ConfirmAdminEmail(ctx, a.ID, tok); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("replay: want ErrChallengeInvalid, got %v", err)
	}
}

func TestConfirmAdminEmailExpired(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	a, tok, err := svc.RegisterAdmin(ctx, "Dana", "dana@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}
	clock.Advance(verifyTokenTTL + time.Minute)
	if err := svc.ConfirmAdminEmail(ctx, a.ID, tok); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expired token: want ErrChallengeInvalid, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	if _, _, err := svc.RegisterAdmin(ctx, "Dana", "dana@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}

	tok, err := svc.RequestPasswordReset(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if err := svc.ConfirmPasswordReset(ctx, "dana@example.com", tok, "brand-new-pass"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	if _, err := svc.AuthenticateAdmin(ctx, "dana@example.com", "s3cret-pass"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("old password should be dead, got %v", err)
	}
	if _, err := svc.AuthenticateAdmin(ctx, "dana@example.com", "brand-new-pass"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	// Reset tokens are single use.
	if err := svc.ConfirmPasswordReset(ctx, "dana@example.com", tok, "another-pass"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("replay: want ErrChallengeInvalid, got %v", err)
	}

	tok2, err := svc.RequestPasswordReset(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("second RequestPasswordReset: %v", err)
	}
	clock.Advance(resetTokenTTL + time.Minute)
	if err := svc.ConfirmPasswordReset(ctx, "dana@example.com", tok2, "another-pass"); !errors.Is(err, ErrChallengeInvalid) {
		t.Fatalf("expired reset: want ErrChallengeInvalid, got %v", err)
	}
}

func TestRegisterUserEnforcesUserLimit(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	p := newTestProject(t, reg, nil)
	if _, err := reg.UpdateSecurity(ctx, p.ID, project.SecurityPolicy{UserLimit: 2, UserSessionLimit: 5}); err != nil {
		t.Fatalf("UpdateSecurity: %v", err)
	}

	for i, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := svc.RegisterUser(ctx, p.ID, "User", email, "s3cret-pass"); err != nil {
			t.Fatalf("RegisterUser %d: %v", i, err)
		}
	}
	if _, err := svc.RegisterUser(ctx, p.ID, "User", "c@example.com", "s3cret-pass"); !errors.Is(err, ErrUserLimitExceeded) {
		t.Fatalf("want ErrUserLimitExceeded, got %v", err)
	}
}

func TestRegisterUserMethodDisabled(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	p := newTestProject(t, reg, nil)
	if _, err := reg.UpdateLoginMethods(ctx, p.ID, []project.LoginMethod{project.MethodMagicLink}); err != nil {
		t.Fatalf("UpdateLoginMethods: %v", err)
	}

	if _, err := svc.RegisterUser(ctx, p.ID, "User", "a@example.com", "s3cret-pass"); !errors.Is(err, ErrMethodDisabled) {
		t.Fatalf("signup: want ErrMethodDisabled, got %v", err)
	}
	if _, err := svc.AuthenticateUser(ctx, p.ID, "a@example.com", "s3cret-pass"); !errors.Is(err, ErrMethodDisabled) {
		t.Fatalf("login: want ErrMethodDisabled, got %v", err)
	}
}

func TestUserEmailUniquePerProjectOnly(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	p1 := newTestProject(t, reg, nil)
	p2, err := reg.Create(ctx, "adm-1", "beta", "Beta App", "ops@beta.test", nil)
	if err != nil {
		t.Fatalf("Create second project: %v", err)
	}

	if _, err := svc.RegisterUser(ctx, p1.ID, "User", "a@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("RegisterUser p1: %v", err)
	}
	if _, err := svc.RegisterUser(ctx, p1.ID, "Other", "a@example.com", "s3cret-pass"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("same project duplicate: want ErrAlreadyExists, got %v", err)
	}
	if _, err := svc.RegisterUser(ctx, p2.ID, "User", "a@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("same email on another project should pass: %v", err)
	}
}

func TestAuthenticateUserTouchesActivity(t *testing.T) {
	svc, reg, clock := newTestService(t)
	ctx := context.Background()

	p := newTestProject(t, reg, nil)
	u, err := svc.RegisterUser(ctx, p.ID, "User", "a@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if !u.LastActiveAt.IsZero() {
		t.Fatal("fresh user should have zero activity")
	}

	clock.Advance(time.Hour)
	got, err := svc.AuthenticateUser(ctx, p.ID, "a@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if !got.LastActiveAt.Equal(clock.Now().UTC()) {
		t.Fatalf("LastActiveAt not touched: %v", got.LastActiveAt)
	}
}

func TestGetUserMasksCrossProjectLookup(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	p1 := newTestProject(t, reg, nil)
	p2, err := reg.Create(ctx, "adm-1", "beta", "Beta App", "ops@beta.test", nil)
	if err != nil {
		t.Fatalf("Create second project: %v", err)
	}
	u, err := svc.RegisterUser(ctx, p1.ID, "User", "a@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if _, err := svc.GetUser(ctx, p2.ID, u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-project lookup: want ErrNotFound, got %v", err)
	}
}

func TestChangeUserPassword(t *testing.T) {
	svc, reg, _ := newTestService(t)
	ctx := context.Background()

	p := newTestProject(t, reg, nil)
	u, err := svc.RegisterUser(ctx, p.ID, "User", "a@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if err := svc.ChangeUserPassword(ctx, p.ID, u.ID, "wrong", "next-pass-123"); !errors.Is(err, ErrIncorrectPassword) {
		t.Fatalf("want ErrIncorrectPassword, got %v", err)
	}
	if err := svc.ChangeUserPassword(ctx, p.ID, u.ID, "s3cret-pass", "next-pass-123"); err != nil {
		t.Fatalf("ChangeUserPassword: %v", err)
	}
	if _, err := svc.AuthenticateUser(ctx, p.ID, "a@example.com", "next-pass-123"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}
