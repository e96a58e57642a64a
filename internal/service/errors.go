package service

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the entity
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned on a failed login
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token fails validation
	ErrInvalidToken = errors.New("invalid token")
)
