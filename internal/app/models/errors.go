package models

import "errors"

// Domain specific errors for authentication and authorization.
var (
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrSnapshotAbsent  = errors.New("session snapshot not found")
)
