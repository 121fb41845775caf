package account

import "time"

// Admin owns projects and authenticates against the console surface.
// Session tokens for admins live on a single-slot session record, not here;
// the fields below cover account-level challenges only.
type Admin struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Verified     bool   `json:"verified"`

	VerifyToken       string    `json:"-"`
	VerifyTokenExpiry time.Time `json:"-"`
	ResetToken        string    `json:"-"`
	ResetTokenExpiry  time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is an end-user account scoped to exactly one project. Users are never
// visible across tenants.
type User struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Verified     bool   `json:"verified"`

	// LastActiveAt drives inactive-account reclamation. The zero value means
	// the user never recorded activity and counts as eligible for cleanup.
	LastActiveAt time.Time `json:"last_active_at,omitzero"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
