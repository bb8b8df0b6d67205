package auth

import (
	"fmt"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

// Reason classifies an AuthError.
type Reason int

const (
	// ReasonNetwork: the backend could not be reached or failed on its side.
	ReasonNetwork Reason = iota
	// ReasonRejected: the backend refused the credentials or the session.
	ReasonRejected
	// ReasonValidation: the input was malformed and never left the portal.
	ReasonValidation
	// ReasonSuperseded: a newer login or logout was issued while this call was in flight.
	ReasonSuperseded
)

func (r Reason) String() string {
	switch r {
	case ReasonNetwork:
		return "network"
	case ReasonRejected:
		return "rejected"
	case ReasonValidation:
		return "validation"
	case ReasonSuperseded:
		return "superseded"
	}
	return "unknown"
}

// AuthError is returned by every Gateway operation that fails.
type AuthError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Reason, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is lets callers match AuthErrors against the domain errors in models.
func (e *AuthError) Is(target error) bool {
	switch target {
	case models.ErrUnauthenticated:
		return e.Reason == ReasonRejected
	case models.ErrValidation:
		return e.Reason == ReasonValidation
	}
	return false
}

// UserMessage is the text shown next to the login form.
func (e *AuthError) UserMessage() string {
	switch e.Reason {
	case ReasonRejected:
		return "Invalid email or password"
	case ReasonValidation:
		return e.Message
	case ReasonSuperseded:
		return "Another sign-in or sign-out happened at the same time. Please try again."
	}
	return "We could not reach the server. Please try again in a moment."
}
