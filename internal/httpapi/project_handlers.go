package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
)

type createProjectRequest struct {
	Name     string          `json:"name"`
	AppName  string          `json:"app_name"`
	AppEmail string          `json:"app_email"`
	Config   *project.Config `json:"config"`
}

type projectResponse struct {
	Project *project.Project `json:"project"`
	Key     string           `json:"key"`
}

type loginMethodsRequest struct {
	LoginMethods []project.LoginMethod `json:"login_methods"`
}

type securityRequest struct {
	UserLimit        int `json:"user_limit"`
	UserSessionLimit int `json:"user_session_limit"`
}

type emailTemplatesRequest struct {
	Templates map[project.TemplateName]string `json:"templates"`
}

type reclaimRequest struct {
	ThresholdDays int `json:"threshold_days"`
}

func (a *API) handleProjects(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := a.ensureAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req createProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.projects.Create(r.Context(), sess.AccountID, req.Name, req.AppName, req.AppEmail, req.Config)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.recordEvent(r, p.ID, "", seclog.EventProjectCreated, nil)
		a.audit(r, "project.create", map[string]any{"project_id": p.ID})
		w.Header().Set("Location", fmt.Sprintf("/v1/projects/%s", p.ID))
		writeJSON(w, http.StatusCreated, projectResponse{Project: p, Key: p.Key})
	case http.MethodGet:
		list, err := a.projects.ListByOwner(r.Context(), sess.AccountID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": list})
	case http.MethodDelete:
		if err := a.lifecycle.DeleteAllProjectsOwnedBy(r.Context(), sess.AccountID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.audit(r, "project.delete_all", nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet, http.MethodDelete)
	}
}

// handleProjectScoped routes /v1/projects/{id}[/...] after checking the
// project belongs to the authenticated admin. Cross-tenant ids surface as
// not found, never as forbidden.
func (a *API) handleProjectScoped(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := a.ensureAdmin(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	path = strings.Trim(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	p, err := a.projects.GetOwned(r.Context(), sess.AccountID, parts[0])
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	switch {
	case len(parts) == 1:
		a.handleProjectResource(w, r, p)
	case parts[1] == "key" && len(parts) == 2:
		a.handleProjectKey(w, r, p)
	case parts[1] == "config":
		a.handleProjectConfig(w, r, p, parts[2:])
	case parts[1] == "users" && len(parts) == 2:
		a.handleProjectUsers(w, r, p)
	case parts[1] == "users" && len(parts) == 3:
		a.handleProjectUser(w, r, p, parts[2])
	case parts[1] == "logs" && len(parts) == 2:
		a.handleProjectLogs(w, r, p)
	case parts[1] == "logs" && len(parts) == 3 && parts[2] == "stream":
		a.handleProjectLogStream(w, r, p)
	case parts[1] == "reclaim" && len(parts) == 2:
		a.handleProjectReclaim(w, r, p)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request, p *project.Project) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := a.lifecycle.DeleteProject(r.Context(), p.ID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.audit(r, "project.delete", map[string]any{"project_id": p.ID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleProjectKey(w http.ResponseWriter, r *http.Request, p *project.Project) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	key, err := a.projects.RotateKey(r.Context(), p.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.recordEvent(r, p.ID, "", seclog.EventProjectKeyRotated, nil)
	a.audit(r, "project.key.rotate", map[string]any{"project_id": p.ID})
	writeJSON(w, http.StatusOK, map[string]any{"key": key})
}

func (a *API) handleProjectConfig(w http.ResponseWriter, r *http.Request, p *project.Project, rest []string) {
	if len(rest) == 0 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	var (
		updated *project.Project
		err     error
		section = rest[0]
	)
	switch {
	case section == "login-methods" && len(rest) == 1 && r.Method == http.MethodPut:
		var req loginMethodsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err = a.projects.UpdateLoginMethods(r.Context(), p.ID, req.LoginMethods)
	case section == "security" && len(rest) == 1 && r.Method == http.MethodPut:
		var req securityRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err = a.projects.UpdateSecurity(r.Context(), p.ID, project.SecurityPolicy{
			UserLimit:        req.UserLimit,
			UserSessionLimit: req.UserSessionLimit,
		})
	case section == "security" && len(rest) == 1 && r.Method == http.MethodDelete:
		updated, err = a.projects.ResetSecurityDefaults(r.Context(), p.ID)
	case section == "email-templates" && len(rest) == 1 && r.Method == http.MethodPut:
		var req emailTemplatesRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err = a.projects.UpdateEmailTemplates(r.Context(), p.ID, req.Templates)
	case section == "email-templates" && len(rest) == 2 && r.Method == http.MethodDelete:
		updated, err = a.projects.RemoveEmailTemplateOverride(r.Context(), p.ID, project.TemplateName(rest[1]))
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.recordEvent(r, p.ID, "", seclog.EventProjectConfigUpdated, map[string]string{"section": section})
	a.audit(r, "project.config.update", map[string]any{"project_id": p.ID, "section": section})
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleProjectUsers(w http.ResponseWriter, r *http.Request, p *project.Project) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	users, err := a.accounts.ListUsers(r.Context(), p.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) handleProjectUser(w http.ResponseWriter, r *http.Request, p *project.Project, userID string) {
	switch r.Method {
	case http.MethodGet:
		u, err := a.accounts.GetUser(r.Context(), p.ID, userID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodDelete:
		if err := a.lifecycle.DeleteUser(r.Context(), p.ID, userID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		a.audit(r, "user.delete", map[string]any{"project_id": p.ID, "user_id": userID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) handleProjectLogs(w http.ResponseWriter, r *http.Request, p *project.Project) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1<<30)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	pageSize, err := parsePositiveInt(q.Get("page_size"), 20, 1, seclog.MaxPageSize)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("page_size must be between 1 and %d", seclog.MaxPageSize))
		return
	}
	start, err := parseTimeParam(q.Get("start"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseTimeParam(q.Get("end"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var (
		userID  = strings.TrimSpace(q.Get("user_id"))
		code    = seclog.EventCode(strings.TrimSpace(q.Get("code")))
		results seclog.Page
	)
	switch {
	case userID != "" && code != "":
		results, err = a.logs.QueryByUserAndEvent(r.Context(), p.ID, userID, code, page, pageSize, start, end)
	case userID != "":
		results, err = a.logs.QueryByUser(r.Context(), p.ID, userID, page, pageSize, start, end)
	case code != "":
		results, err = a.logs.QueryByEvent(r.Context(), p.ID, code, page, pageSize, start, end)
	default:
		writeError(w, r, http.StatusBadRequest, "user_id or code query parameter is required")
		return
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) handleProjectReclaim(w http.ResponseWriter, r *http.Request, p *project.Project) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	req := reclaimRequest{ThresholdDays: a.inactiveDays}
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	n, err := a.lifecycle.ReclaimInactiveUsers(r.Context(), p.ID, req.ThresholdDays)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	a.audit(r, "project.users.reclaim", map[string]any{"project_id": p.ID, "reclaimed": n})
	writeJSON(w, http.StatusOK, map[string]any{"reclaimed": n})
}

func (a *API) recordEvent(r *http.Request, projectID, userID string, code seclog.EventCode, meta map[string]string) {
	if a.logs == nil {
		return
	}
	_, _ = a.logs.Append(r.Context(), projectID, userID, code, meta)
}
