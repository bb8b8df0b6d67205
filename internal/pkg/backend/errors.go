package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// KindNetwork means the request never produced a usable response.
	KindNetwork Kind = iota
	// KindAuthorization is a 401 or 403.
	KindAuthorization
	// KindStatus is any other non-2xx HTTP status or an envelope status other than 200.
	KindStatus
	// KindDecode means the response body was not the expected JSON.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthorization:
		return "authorization"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error is returned by Client for every failed call.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Path       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("backend %s %s failed", e.Kind, e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (%d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ServerSide reports whether the failure is the backend's fault rather than a
// rejection of the caller.
func (e *Error) ServerSide() bool {
	switch e.Kind {
	case KindNetwork, KindDecode:
		return true
	case KindStatus:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// KindOf returns the Kind of err and whether err is a backend *Error.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return KindNetwork, false
}

// IsAuthorization reports whether err is a 401/403 from the backend.
func IsAuthorization(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindAuthorization
}

func isAuthorizationStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
