package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/account"
	"github.com/Auth-Wave/authwave-backend/internal/lifecycle"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/session"
	"github.com/Auth-Wave/authwave-backend/internal/stream"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	projects := project.NewInMemory()
	registry, err := project.NewRegistry(projects, []byte("key-secret"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	sessions := session.NewInMemory()
	manager, err := session.NewManager(sessions, registry, []byte("tok-secret"), 15*time.Minute, 14*24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	logs, err := seclog.NewService(seclog.NewInMemory())
	if err != nil {
		t.Fatalf("seclog.NewService: %v", err)
	}
	admins := account.NewInMemoryAdmins()
	users := account.NewInMemoryUsers()
	accounts, err := account.NewService(admins, users, registry, logs)
	if err != nil {
		t.Fatalf("account.NewService: %v", err)
	}
	orch, err := lifecycle.New(admins, users, projects, sessions, logs)
	if err != nil {
		t.Fatalf("lifecycle.New: %v", err)
	}
	return New(Config{
		Version:      "test",
		Accounts:     accounts,
		Projects:     registry,
		Sessions:     manager,
		Logs:         logs,
		Lifecycle:    orch,
		Stream:       stream.New(),
		InactiveDays: 30,
	})
}

func do(t *testing.T, a *API, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func signupAndLogin(t *testing.T, a *API) (adminID string, authz map[string]string) {
	t.Helper()
	rec := do(t, a, http.MethodPost, "/v1/admins", nil, map[string]string{
		"name": "Dana", "email": "dana@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: %d %s", rec.Code, rec.Body.String())
	}
	var signup struct {
		Admin struct {
			ID string `json:"id"`
		} `json:"admin"`
	}
	decodeBody(t, rec, &signup)

	rec = do(t, a, http.MethodPost, "/v1/admins/login", nil, map[string]string{
		"email": "dana@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	decodeBody(t, rec, &login)
	return signup.Admin.ID, map[string]string{"Authorization": "Bearer " + login.Tokens.AccessToken}
}

func createProject(t *testing.T, a *API, authz map[string]string, name string) (id, key string) {
	t.Helper()
	rec := do(t, a, http.MethodPost, "/v1/projects", authz, map[string]string{
		"name": name, "app_name": name + " app", "app_email": "ops@" + name + ".test",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Project struct {
			ID string `json:"id"`
		} `json:"project"`
		Key string `json:"key"`
	}
	decodeBody(t, rec, &resp)
	return resp.Project.ID, resp.Key
}

func TestHealthAndInfo(t *testing.T) {
	a := newTestAPI(t)
	if rec := do(t, a, http.MethodGet, "/healthz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := do(t, a, http.MethodGet, "/readyz", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
	if rec := do(t, a, http.MethodGet, "/v1/info", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("info: %d", rec.Code)
	}
}

func TestAdminSignupLoginAndMe(t *testing.T) {
	a := newTestAPI(t)
	adminID, authz := signupAndLogin(t, a)

	rec := do(t, a, http.MethodGet, "/v1/admins/me", authz, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	var me struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &me)
	if me.ID != adminID {
		t.Fatalf("me returned %s, want %s", me.ID, adminID)
	}

	if rec := do(t, a, http.MethodGet, "/v1/admins/me", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated me: want 401, got %d", rec.Code)
	}
}

func TestAdminDuplicateSignupConflict(t *testing.T) {
	a := newTestAPI(t)
	signupAndLogin(t, a)
	rec := do(t, a, http.MethodPost, "/v1/admins", nil, map[string]string{
		"name": "Other", "email": "dana@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("want 409, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestProjectLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	projectID, key := createProject(t, a, authz, "acme")
	if key == "" {
		t.Fatal("project key missing from create response")
	}

	rec := do(t, a, http.MethodGet, "/v1/projects/"+projectID, authz, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get project: %d %s", rec.Code, rec.Body.String())
	}

	// rotation hands out a new key and kills the old one
	rec = do(t, a, http.MethodPost, "/v1/projects/"+projectID+"/key", authz, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rotate key: %d %s", rec.Code, rec.Body.String())
	}
	var rotated struct {
		Key string `json:"key"`
	}
	decodeBody(t, rec, &rotated)
	if rotated.Key == key {
		t.Fatal("rotate returned the same key")
	}

	rec = do(t, a, http.MethodPost, "/v1/users", map[string]string{projectKeyHeader: key}, map[string]string{
		"name": "User", "email": "u@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old key should be rejected: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodDelete, "/v1/projects/"+projectID, authz, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete project: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, a, http.MethodGet, "/v1/projects/"+projectID, authz, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted project should 404, got %d", rec.Code)
	}
}

func TestProjectIsolationBetweenAdmins(t *testing.T) {
	a := newTestAPI(t)
	_, authz1 := signupAndLogin(t, a)
	projectID, _ := createProject(t, a, authz1, "acme")

	rec := do(t, a, http.MethodPost, "/v1/admins", nil, map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("second signup: %d", rec.Code)
	}
	rec = do(t, a, http.MethodPost, "/v1/admins/login", nil, map[string]string{
		"email": "eve@example.com", "password": "s3cret-pass",
	})
	var login struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	decodeBody(t, rec, &login)
	authz2 := map[string]string{"Authorization": "Bearer " + login.Tokens.AccessToken}

	if rec := do(t, a, http.MethodGet, "/v1/projects/"+projectID, authz2, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant access should 404, got %d", rec.Code)
	}
}

func TestUserSurface(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	projectID, key := createProject(t, a, authz, "acme")
	keyHdr := map[string]string{projectKeyHeader: key}

	rec := do(t, a, http.MethodPost, "/v1/users", keyHdr, map[string]string{
		"name": "User", "email": "u@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("user signup: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodPost, "/v1/users/login", keyHdr, map[string]string{
		"email": "u@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("user login: %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	decodeBody(t, rec, &login)

	userHdr := map[string]string{
		projectKeyHeader: key,
		"Authorization":  "Bearer " + login.Tokens.AccessToken,
	}
	rec = do(t, a, http.MethodGet, "/v1/users/me", userHdr, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("user me: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodPost, "/v1/sessions/refresh", nil, map[string]string{
		"refresh_token": login.Tokens.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodPost, "/v1/users/logout", userHdr, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, a, http.MethodGet, "/v1/users/me", userHdr, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token should 401, got %d", rec.Code)
	}

	// wrong credentials land in the security log
	do(t, a, http.MethodPost, "/v1/users/login", keyHdr, map[string]string{
		"email": "u@example.com", "password": "wrong-pass",
	})
	rec = do(t, a, http.MethodGet, "/v1/projects/"+projectID+"/logs?code=user.login.failed", authz, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs query: %d %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Events []struct {
			Code string `json:"code"`
		} `json:"events"`
	}
	decodeBody(t, rec, &page)
	if len(page.Events) != 1 || page.Events[0].Code != "user.login.failed" {
		t.Fatalf("expected one failed login event, got %+v", page.Events)
	}
}

func TestSessionLimitOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	projectID, key := createProject(t, a, authz, "acme")
	keyHdr := map[string]string{projectKeyHeader: key}

	rec := do(t, a, http.MethodPut, "/v1/projects/"+projectID+"/config/security", authz, map[string]int{
		"user_limit": 1000, "user_session_limit": 1,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update security: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodPost, "/v1/users", keyHdr, map[string]string{
		"name": "User", "email": "u@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("user signup: %d", rec.Code)
	}
	creds := map[string]string{"email": "u@example.com", "password": "s3cret-pass"}
	if rec := do(t, a, http.MethodPost, "/v1/users/login", keyHdr, creds); rec.Code != http.StatusOK {
		t.Fatalf("first login: %d", rec.Code)
	}
	if rec := do(t, a, http.MethodPost, "/v1/users/login", keyHdr, creds); rec.Code != http.StatusForbidden {
		t.Fatalf("second login should hit the session limit, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestLogsQueryValidationOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	projectID, _ := createProject(t, a, authz, "acme")

	if rec := do(t, a, http.MethodGet, "/v1/projects/"+projectID+"/logs", authz, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing filters should 400, got %d", rec.Code)
	}
	if rec := do(t, a, http.MethodGet, "/v1/projects/"+projectID+"/logs?code=no.such.event", authz, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown code should 400, got %d", rec.Code)
	}
	path := fmt.Sprintf("/v1/projects/%s/logs?code=user.login&start=%s&end=%s",
		projectID,
		time.Now().UTC().Format(time.RFC3339),
		time.Now().UTC().Add(-time.Hour).Format(time.RFC3339))
	if rec := do(t, a, http.MethodGet, path, authz, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range should 400, got %d", rec.Code)
	}
}

func TestAdminDeleteCascadesOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	_, key := createProject(t, a, authz, "acme")
	keyHdr := map[string]string{projectKeyHeader: key}

	rec := do(t, a, http.MethodDelete, "/v1/admins/me", authz, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete admin: %d %s", rec.Code, rec.Body.String())
	}

	// admin session is gone
	if rec := do(t, a, http.MethodGet, "/v1/admins/me", authz, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked admin session should 401, got %d", rec.Code)
	}
	// the project key dies with the project
	rec = do(t, a, http.MethodPost, "/v1/users", keyHdr, map[string]string{
		"name": "User", "email": "u@example.com", "password": "s3cret-pass",
	})
	if rec.Code != http.StatusUnauthorized && rec.Code != http.StatusNotFound {
		t.Fatalf("key of deleted project should be rejected, got %d", rec.Code)
	}
}

func TestEmailTemplateOverridesOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	projectID, _ := createProject(t, a, authz, "acme")

	rec := do(t, a, http.MethodPut, "/v1/projects/"+projectID+"/config/email-templates", authz, map[string]any{
		"templates": map[string]string{"welcome": "Hi {{.Name}}"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set template: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodPut, "/v1/projects/"+projectID+"/config/email-templates", authz, map[string]any{
		"templates": map[string]string{"ransom-note": "no"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown template name should 400, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, a, http.MethodDelete, "/v1/projects/"+projectID+"/config/email-templates/welcome", authz, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove template: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	a := newTestAPI(t)
	rec := do(t, a, http.MethodDelete, "/v1/admins/login", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("want 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow == "" {
		t.Fatal("Allow header missing")
	}
}

func TestDeleteAllOwnedProjects(t *testing.T) {
	a := newTestAPI(t)
	_, authz := signupAndLogin(t, a)
	first, _ := createProject(t, a, authz, "acme")
	second, _ := createProject(t, a, authz, "globex")

	rec := do(t, a, http.MethodDelete, "/v1/projects", authz, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete all: %d %s", rec.Code, rec.Body.String())
	}
	for _, id := range []string{first, second} {
		if rec := do(t, a, http.MethodGet, "/v1/projects/"+id, authz, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("project %s should be gone, got %d", id, rec.Code)
		}
	}
}
