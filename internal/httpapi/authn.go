package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Auth-Wave/authwave-backend/internal/audit"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/session"
)

const (
	authHeader       = "Authorization"
	bearer           = "Bearer "
	projectKeyHeader = "X-Project-Key"
)

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// ensureAdmin authenticates the bearer token as a live admin session. On
// success it returns the session and the request with actor context attached;
// on failure it writes the response and returns ok=false.
func (a *API) ensureAdmin(w http.ResponseWriter, r *http.Request) (*session.Session, *http.Request, bool) {
	tok, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return nil, r, false
	}
	sess, err := a.sessions.Verify(r.Context(), tok)
	if err != nil {
		handleDomainError(w, r, err)
		return nil, r, false
	}
	if sess.Kind != session.KindAdmin {
		writeError(w, r, http.StatusForbidden, "admin session required")
		return nil, r, false
	}
	return sess, r.WithContext(audit.WithActor(r.Context(), sess.AccountID)), true
}

// ensureProject resolves the project surface through the presented key.
func (a *API) ensureProject(w http.ResponseWriter, r *http.Request) (*project.Project, bool) {
	key := strings.TrimSpace(r.Header.Get(projectKeyHeader))
	if key == "" {
		writeError(w, r, http.StatusUnauthorized, "missing project key")
		return nil, false
	}
	p, err := a.projects.VerifyKey(r.Context(), key)
	if err != nil {
		handleDomainError(w, r, err)
		return nil, false
	}
	return p, true
}

// ensureUser authenticates the bearer token as a live end-user session bound
// to the given project.
func (a *API) ensureUser(w http.ResponseWriter, r *http.Request, projectID string) (*session.Session, *http.Request, bool) {
	tok, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return nil, r, false
	}
	sess, err := a.sessions.Verify(r.Context(), tok)
	if err != nil {
		handleDomainError(w, r, err)
		return nil, r, false
	}
	if sess.Kind != session.KindUser || sess.ProjectID != projectID {
		writeError(w, r, http.StatusForbidden, "user session required")
		return nil, r, false
	}
	return sess, r.WithContext(audit.WithActor(r.Context(), sess.AccountID)), true
}
