package httpapi

import (
	"net/http"

	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/session"
)

type userSignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleUserSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.ensureProject(w, r)
	if !ok {
		return
	}
	var req userSignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.accounts.RegisterUser(r.Context(), p.ID, req.Name, req.Email, req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.ensureProject(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.accounts.AuthenticateUser(r.Context(), p.ID, req.Email, req.Password)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	sess, pair, err := a.sessions.Create(r.Context(), session.KindUser, u.ID, p.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: sess.ID, Tokens: pair})
}

func (a *API) handleUserLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.ensureProject(w, r)
	if !ok {
		return
	}
	sess, r, ok := a.ensureUser(w, r, p.ID)
	if !ok {
		return
	}
	if err := a.sessions.Revoke(r.Context(), sess.ID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.recordEvent(r, p.ID, sess.AccountID, seclog.EventUserLogout, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := a.ensureProject(w, r)
	if !ok {
		return
	}
	sess, r, ok := a.ensureUser(w, r, p.ID)
	if !ok {
		return
	}
	u, err := a.accounts.GetUser(r.Context(), p.ID, sess.AccountID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) handleUserPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := a.ensureProject(w, r)
	if !ok {
		return
	}
	sess, r, ok := a.ensureUser(w, r, p.ID)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.ChangeUserPassword(r.Context(), p.ID, sess.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionRefresh serves both surfaces: the refresh token alone
// identifies the session to renew.
func (a *API) handleSessionRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, accessToken, expiresAt, err := a.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if sess.Kind == session.KindUser {
		_ = a.accounts.TouchUserActivity(r.Context(), sess.AccountID)
		a.recordEvent(r, sess.ProjectID, sess.AccountID, seclog.EventSessionRefresh, nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":      accessToken,
		"access_expires_at": expiresAt,
	})
}
