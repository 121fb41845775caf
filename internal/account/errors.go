package account

import "errors"

var (
	ErrNotFound          = errors.New("account: not found")
	ErrAlreadyExists     = errors.New("account: already exists")
	ErrInvalidInput      = errors.New("account: invalid input")
	ErrIncorrectPassword = errors.New("account: incorrect password")
	ErrUserLimitExceeded = errors.New("account: project user limit exceeded")
	ErrMethodDisabled    = errors.New("account: login method disabled for project")
	ErrChallengeInvalid  = errors.New("account: challenge token invalid or expired")
)
