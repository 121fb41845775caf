// Package httpapi is the HTTP surface of the service: the admin console API
// under bearer session tokens and the per-project end-user API under the
// X-Project-Key header.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/account"
	"github.com/Auth-Wave/authwave-backend/internal/lifecycle"
	"github.com/Auth-Wave/authwave-backend/internal/obs"
	"github.com/Auth-Wave/authwave-backend/internal/project"
	"github.com/Auth-Wave/authwave-backend/internal/seclog"
	"github.com/Auth-Wave/authwave-backend/internal/session"
	"github.com/Auth-Wave/authwave-backend/internal/stream"
)

// ReadyProbe reports whether the service can reach its dependencies.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	readyProbe   readinessChecker
	version      string
	accounts     *account.Service
	projects     *project.Registry
	sessions     *session.Manager
	logs         *seclog.Service
	lifecycle    *lifecycle.Orchestrator
	stream       *stream.Stream
	inactiveDays int
}

// Config carries the API dependencies.
type Config struct {
	ReadyProbe   readinessChecker
	Version      string
	Accounts     *account.Service
	Projects     *project.Registry
	Sessions     *session.Manager
	Logs         *seclog.Service
	Lifecycle    *lifecycle.Orchestrator
	Stream       *stream.Stream
	InactiveDays int
}

func New(cfg Config) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   cfg.ReadyProbe,
		version:      cfg.Version,
		accounts:     cfg.Accounts,
		projects:     cfg.Projects,
		sessions:     cfg.Sessions,
		logs:         cfg.Logs,
		lifecycle:    cfg.Lifecycle,
		stream:       cfg.Stream,
		inactiveDays: cfg.InactiveDays,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// admin console surface
	a.mux.HandleFunc("/v1/admins", a.handleAdmins)
	a.mux.HandleFunc("/v1/admins/login", a.handleAdminLogin)
	a.mux.HandleFunc("/v1/admins/logout", a.handleAdminLogout)
	a.mux.HandleFunc("/v1/admins/me", a.handleAdminMe)
	a.mux.HandleFunc("/v1/admins/verify", a.handleAdminVerify)
	a.mux.HandleFunc("/v1/admins/password", a.handleAdminPassword)
	a.mux.HandleFunc("/v1/admins/password-reset", a.handlePasswordReset)
	a.mux.HandleFunc("/v1/admins/password-reset/confirm", a.handlePasswordResetConfirm)

	a.mux.HandleFunc("/v1/projects", a.handleProjects)
	a.mux.HandleFunc("/v1/projects/", a.handleProjectScoped)

	// end-user surface, resolved through the project key
	a.mux.HandleFunc("/v1/users", a.handleUserSignup)
	a.mux.HandleFunc("/v1/users/login", a.handleUserLogin)
	a.mux.HandleFunc("/v1/users/logout", a.handleUserLogout)
	a.mux.HandleFunc("/v1/users/me", a.handleUserMe)
	a.mux.HandleFunc("/v1/users/password", a.handleUserPassword)

	// shared session surface
	a.mux.HandleFunc("/v1/sessions/refresh", a.handleSessionRefresh)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if a.readyProbe != nil {
		if err := a.readyProbe.Check(r.Context()); err != nil {
			obs.SetReady(false)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
