package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Auth-Wave/authwave-backend/internal/ids"
	"github.com/Auth-Wave/authwave-backend/internal/token"
	"github.com/Auth-Wave/authwave-backend/internal/validate"
)

// keyPending is the placeholder written before the project's real key exists.
// Re-keying happens immediately after insert because the key embeds the
// project's own id, which is unknown until the record is created.
const keyPending = "pending"

// Registry provides project lifecycle and policy operations.
type Registry struct {
	store     Store
	keySecret []byte
	now       func() time.Time
}

// RegistryOption configures Registry behavior.
type RegistryOption func(*Registry)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRegistry constructs a Registry. keySecret signs project keys and must be
// distinct from the session token secret.
func NewRegistry(store Store, keySecret []byte, opts ...RegistryOption) (*Registry, error) {
	if store == nil {
		return nil, errors.New("project store is required")
	}
	if len(keySecret) == 0 {
		return nil, errors.New("project key secret is required")
	}
	r := &Registry{store: store, keySecret: keySecret, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Create validates inputs, inserts the project with a placeholder key and
// immediately re-keys it. Validation is fail-fast: nothing is written unless
// every field passes.
func (r *Registry) Create(ctx context.Context, ownerID, name, appName, appEmail string, cfg *Config) (*Project, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	appName = strings.TrimSpace(appName)
	appEmail = strings.TrimSpace(appEmail)
	if err := validate.Name("project name", name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := validate.Name("app name", appName); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	if err := validate.Email(appEmail); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	resolved := DefaultConfig()
	if cfg != nil {
		resolved = cfg.clone()
		if err := resolved.Validate(); err != nil {
			return nil, err
		}
	}

	now := r.now().UTC()
	p := &Project{
		ID:        ids.New(),
		OwnerID:   ownerID,
		Name:      name,
		AppName:   appName,
		AppEmail:  appEmail,
		Key:       keyPending,
		Config:    resolved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.Insert(ctx, p); err != nil {
		return nil, err
	}
	key, err := r.RotateKey(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Key = key
	return p, nil
}

// Get loads a project by id.
func (r *Registry) Get(ctx context.Context, id string) (*Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	return r.store.Find(ctx, id)
}

// GetOwned loads a project and enforces tenant isolation: a project that
// exists but belongs to another admin is reported as absent, not forbidden.
func (r *Registry) GetOwned(ctx context.Context, ownerID, id string) (*Project, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListByOwner returns all projects owned by the admin.
func (r *Registry) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	return r.store.ListByOwner(ctx, ownerID)
}

// IDsByOwner exposes the owner-scoped id projection for cascade operations.
func (r *Registry) IDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	return r.store.IDsByOwner(ctx, ownerID)
}

// RotateKey mints a fresh key binding {project id, owner} and overwrites the
// stored one. The previous key dies with the overwrite: VerifyKey compares
// presented keys against the stored value, never against the token alone.
func (r *Registry) RotateKey(ctx context.Context, id string) (string, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	claims := token.Claims{
		Kind:      "project",
		Owner:     p.OwnerID,
		ProjectID: p.ID,
		TokenUse:  token.UseKey,
	}
	claims.Subject = p.ID
	key, err := token.Issue(claims, r.keySecret, 0)
	if err != nil {
		return "", err
	}
	if err := r.store.UpdateKey(ctx, p.ID, key); err != nil {
		return "", err
	}
	return key, nil
}

// VerifyKey authenticates a presented project key and resolves its project.
func (r *Registry) VerifyKey(ctx context.Context, presented string) (*Project, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrInvalidKey
	}
	claims, err := token.Verify(presented, r.keySecret)
	if err != nil || claims.TokenUse != token.UseKey {
		return nil, ErrInvalidKey
	}
	p, err := r.store.Find(ctx, claims.ProjectID)
	if err != nil {
		return nil, ErrInvalidKey
	}
	// Stored key is the source of truth; a rotated-out key still carries a
	// valid signature but no longer matches.
	if p.Key != presented || p.OwnerID != claims.Owner {
		return nil, ErrInvalidKey
	}
	return p, nil
}

// UpdateLoginMethods replaces the login-methods section.
func (r *Registry) UpdateLoginMethods(ctx context.Context, id string, methods []LoginMethod) (*Project, error) {
	return r.updateConfig(ctx, id, func(cfg *Config) {
		cfg.LoginMethods = append([]LoginMethod(nil), methods...)
	})
}

// UpdateSecurity replaces the security section. Existing sessions above a
// lowered user_session_limit are grandfathered; only future session creation
// sees the new bound.
func (r *Registry) UpdateSecurity(ctx context.Context, id string, sec SecurityPolicy) (*Project, error) {
	return r.updateConfig(ctx, id, func(cfg *Config) {
		cfg.Security = sec
	})
}

// ResetSecurityDefaults restores {user_limit: 1000, user_session_limit: 5}.
func (r *Registry) ResetSecurityDefaults(ctx context.Context, id string) (*Project, error) {
	return r.updateConfig(ctx, id, func(cfg *Config) {
		cfg.Security = DefaultSecurity()
	})
}

// UpdateEmailTemplates replaces the template override mapping.
func (r *Registry) UpdateEmailTemplates(ctx context.Context, id string, templates map[TemplateName]string) (*Project, error) {
	return r.updateConfig(ctx, id, func(cfg *Config) {
		if len(templates) == 0 {
			cfg.EmailTemplates = nil
			return
		}
		cfg.EmailTemplates = make(map[TemplateName]string, len(templates))
		for k, v := range templates {
			cfg.EmailTemplates[k] = v
		}
	})
}

// RemoveEmailTemplateOverride deletes a single override, falling back to the
// system default for that template. Other overrides are untouched.
func (r *Registry) RemoveEmailTemplateOverride(ctx context.Context, id string, name TemplateName) (*Project, error) {
	if !KnownTemplate(name) {
		return nil, fmt.Errorf("%w: unknown email template %q", ErrInvalidConfig, name)
	}
	return r.updateConfig(ctx, id, func(cfg *Config) {
		delete(cfg.EmailTemplates, name)
		if len(cfg.EmailTemplates) == 0 {
			cfg.EmailTemplates = nil
		}
	})
}

// updateConfig loads, copies, mutates and validates before persisting, so a
// schema violation never leaves a partial write.
func (r *Registry) updateConfig(ctx context.Context, id string, mutate func(*Config)) (*Project, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg := p.Config.clone()
	mutate(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.UpdateConfig(ctx, p.ID, cfg); err != nil {
		return nil, err
	}
	p.Config = cfg
	return p, nil
}
