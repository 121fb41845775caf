// Package project owns tenant records: identity, owning admin, configuration
// and the project-scoped API key. Every end-user, session and security log
// entry hangs off exactly one project.
package project

import (
	"fmt"
	"time"
)

// LoginMethod enumerates the auth mechanisms a project may enable.
type LoginMethod string

const (
	MethodPassword  LoginMethod = "password"
	MethodMagicLink LoginMethod = "magic-link"
	MethodEmailOTP  LoginMethod = "email-otp"
)

var knownMethods = map[LoginMethod]struct{}{
	MethodPassword:  {},
	MethodMagicLink: {},
	MethodEmailOTP:  {},
}

// TemplateName enumerates the email templates a project may override.
type TemplateName string

const (
	TemplateWelcome       TemplateName = "welcome"
	TemplateVerification  TemplateName = "verification"
	TemplatePasswordReset TemplateName = "password-reset"
	TemplateSessionAlert  TemplateName = "session-alert"
)

var knownTemplates = map[TemplateName]struct{}{
	TemplateWelcome:       {},
	TemplateVerification:  {},
	TemplatePasswordReset: {},
	TemplateSessionAlert:  {},
}

// KnownTemplate reports whether name is part of the template enumeration.
func KnownTemplate(name TemplateName) bool {
	_, ok := knownTemplates[name]
	return ok
}

// SecurityPolicy bounds resource consumption per project.
type SecurityPolicy struct {
	UserLimit        int `json:"user_limit"`
	UserSessionLimit int `json:"user_session_limit"`
}

// DefaultSecurity returns the policy applied to new projects and restored by
// a security reset.
func DefaultSecurity() SecurityPolicy {
	return SecurityPolicy{UserLimit: 1000, UserSessionLimit: 5}
}

// Config is the per-project policy object, exclusively owned by its project.
type Config struct {
	LoginMethods   []LoginMethod           `json:"login_methods"`
	Security       SecurityPolicy          `json:"security"`
	EmailTemplates map[TemplateName]string `json:"email_templates,omitempty"`
}

// DefaultConfig enables password login with default security limits and no
// template overrides.
func DefaultConfig() Config {
	return Config{
		LoginMethods: []LoginMethod{MethodPassword},
		Security:     DefaultSecurity(),
	}
}

// Validate checks the whole config object against its schema.
func (c Config) Validate() error {
	if len(c.LoginMethods) == 0 {
		return fmt.Errorf("%w: at least one login method is required", ErrInvalidConfig)
	}
	seen := make(map[LoginMethod]struct{}, len(c.LoginMethods))
	for _, m := range c.LoginMethods {
		if _, ok := knownMethods[m]; !ok {
			return fmt.Errorf("%w: unknown login method %q", ErrInvalidConfig, m)
		}
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: duplicate login method %q", ErrInvalidConfig, m)
		}
		seen[m] = struct{}{}
	}
	if c.Security.UserLimit <= 0 || c.Security.UserSessionLimit <= 0 {
		return fmt.Errorf("%w: security limits must be positive", ErrInvalidConfig)
	}
	for name := range c.EmailTemplates {
		if !KnownTemplate(name) {
			return fmt.Errorf("%w: unknown email template %q", ErrInvalidConfig, name)
		}
	}
	return nil
}

// HasMethod reports whether the project enables the given login method.
func (c Config) HasMethod(m LoginMethod) bool {
	for _, have := range c.LoginMethods {
		if have == m {
			return true
		}
	}
	return false
}

// clone returns a deep copy so config mutations never alias stored state.
func (c Config) clone() Config {
	out := c
	out.LoginMethods = append([]LoginMethod(nil), c.LoginMethods...)
	if c.EmailTemplates != nil {
		out.EmailTemplates = make(map[TemplateName]string, len(c.EmailTemplates))
		for k, v := range c.EmailTemplates {
			out.EmailTemplates[k] = v
		}
	}
	return out
}

// Project is a tenant record. Name is unique per owner, not globally.
type Project struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	AppName  string `json:"app_name"`
	AppEmail string `json:"app_email"`

	// Key is the project-scoped signing token handed to project API
	// consumers. Verification resolves against this stored value, so
	// rotating it invalidates the previous key immediately.
	Key string `json:"-"`

	Config Config `json:"config"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
