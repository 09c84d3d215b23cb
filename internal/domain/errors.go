package domain

import "errors"

// Sentinel errors mapped to HTTP statuses at the handler boundary.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
)
