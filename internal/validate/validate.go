// Package validate holds the pure input validators shared by the account and
// project services. Validators return nil or a descriptive error; they never
// touch storage.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

const (
	minNameLen = 1
	maxNameLen = 72
)

var nameFormat = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 ._-]*$`)

// Name checks the display-name rule used for admin names, project names and
// app names: trimmed, bounded, and drawn from a conservative character set.
func Name(label, value string) error {
	value = strings.TrimSpace(value)
	if len(value) < minNameLen {
		return fmt.Errorf("%s is required", label)
	}
	if len(value) > maxNameLen {
		return fmt.Errorf("%s must be at most %d characters", label, maxNameLen)
	}
	if !nameFormat.MatchString(value) {
		return fmt.Errorf("%s contains unsupported characters", label)
	}
	return nil
}

// Email checks address syntax only; deliverability is out of scope.
func Email(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("email is required")
	}
	parsed, err := mail.ParseAddress(value)
	if err != nil {
		return fmt.Errorf("invalid email address %q", value)
	}
	// Reject display-name forms ("A <a@b.c>"); only the bare address is stored.
	if parsed.Address != value {
		return fmt.Errorf("invalid email address %q", value)
	}
	return nil
}

// Password enforces the minimum credential policy for password login.
func Password(value string) error {
	if len(value) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len(value) > 256 {
		return errors.New("password too long")
	}
	return nil
}
