package project

import "errors"

var (
	ErrNotFound      = errors.New("project: not found")
	ErrAlreadyExists = errors.New("project: already exists")
	ErrInvalidInput  = errors.New("project: invalid input")
	ErrInvalidConfig = errors.New("project: invalid config")
	ErrInvalidKey    = errors.New("project: invalid api key")
)
