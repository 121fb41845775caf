package pg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Auth-Wave/authwave-backend/internal/account"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/session"
)

var pgUniqueErr = pgconn.PgError{Code: pgErrUniqueViolation}

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestAdminInsertDuplicateEmail(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("insert into admins").
		WithArgs("adm-1", "Dana", "dana@example.com", "hash", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pgUniqueErr)

	err := store.Admins().Insert(context.Background(), &account.Admin{
		ID: "adm-1", Name: "Dana", Email: "dana@example.com", PasswordHash: "hash",
	})
	if !errors.Is(err, account.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdminFindScansTokens(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "verified",
		"verify_token", "verify_token_expiry", "reset_token", "reset_token_expiry",
		"created_at", "updated_at",
	}).AddRow("adm-1", "Dana", "dana@example.com", "hash", true, "vtok", now.Add(time.Hour), "", nil, now, now)
	mock.ExpectQuery("select.*from admins where id =").WithArgs("adm-1").WillReturnRows(rows)

	a, err := store.Admins().Find(context.Background(), "adm-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if a.VerifyToken != "vtok" || a.VerifyTokenExpiry.IsZero() {
		t.Fatalf("verify challenge not scanned: %+v", a)
	}
	if !a.ResetTokenExpiry.IsZero() {
		t.Fatalf("null reset expiry should stay zero, got %v", a.ResetTokenExpiry)
	}
}

func TestAdminUpdatePasswordNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update admins").
		WithArgs("adm-missing", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Admins().UpdatePassword(context.Background(), "adm-missing", "hash")
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestProjectConfigRoundTrip(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	cfg := project.DefaultConfig()
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}

	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "name", "app_name", "app_email", "key", "config", "created_at", "updated_at",
	}).AddRow("prj-1", "adm-1", "acme", "Acme", "ops@acme.test", "signed-key", raw, now, now)
	mock.ExpectQuery("select.*from projects where id =").WithArgs("prj-1").WillReturnRows(rows)

	p, err := store.Projects().Find(context.Background(), "prj-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p.Config.Security.UserLimit != cfg.Security.UserLimit {
		t.Fatalf("config not decoded: %+v", p.Config)
	}
	if !p.Config.HasMethod(project.MethodPassword) {
		t.Fatalf("login methods not decoded: %+v", p.Config)
	}
}

func TestSessionClearTokensNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("update sessions").
		WithArgs("ses-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Sessions().ClearTokens(context.Background(), "ses-missing")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSecurityLogQueryFilters(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "project_id", "user_id", "code", "metadata", "created_at"}).
		AddRow("evt-1", "prj-1", "usr-1", "user.login", []byte(`{"ip":"10.0.0.1"}`), now)
	mock.ExpectQuery("select.*from security_logs.*order by created_at desc").
		WithArgs("prj-1", "usr-1", "user.login", 10, 0).
		WillReturnRows(rows)

	events, err := store.SecurityLogs().Query(context.Background(), seclog.Filter{
		ProjectID: "prj-1",
		UserID:    "usr-1",
		Code:      seclog.EventUserLogin,
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].Metadata["ip"] != "10.0.0.1" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestUserDeleteByProject(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from users where project_id =").
		WithArgs("prj-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Users().DeleteByProject(context.Background(), "prj-1")
	if err != nil {
		t.Fatalf("DeleteByProject: %v", err)
	}
	if n != 3 {
		t.Fatalf("want 3 rows, got %d", n)
	}
}
