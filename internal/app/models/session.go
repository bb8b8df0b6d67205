package models

import (
	"strings"
	"time"
)

// Role is the portal audience a session belongs to.
type Role string

const (
	RoleNone     Role = "NONE"
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
)

// ParseRole accepts "customer", "AGENT", "ROLE_CUSTOMER" and similar spellings.
func ParseRole(raw string) (Role, bool) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "ROLE_")
	switch Role(name) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleAgent:
		return RoleAgent, true
	case RoleNone:
		return RoleNone, true
	}
	return RoleNone, false
}

// Path returns the backend path segment for the role ("customer" or "agent").
func (r Role) Path() string {
	switch r {
	case RoleAgent:
		return "agent"
	case RoleCustomer:
		return "customer"
	}
	return ""
}

// Source records where a session came from. It is never persisted.
type Source int

const (
	SourceFreshCheck Source = iota
	SourceCached
)

func (s Source) String() string {
	if s == SourceCached {
		return "CACHED"
	}
	return "FRESH_CHECK"
}

type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Session is the viewer's belief about who is signed in.
type Session struct {
	Authenticated bool
	Role          Role
	Identity      *Identity
	Source        Source
	// CheckedAt is when the backend last confirmed the session; zero for cached sessions.
	CheckedAt time.Time
}

// Anonymous returns the unauthenticated session.
func Anonymous() Session {
	return Session{Role: RoleNone, Source: SourceFreshCheck}
}

// NewAuthenticated builds an authenticated session. An empty role becomes RoleNone.
func NewAuthenticated(role Role, identity *Identity, source Source, checkedAt time.Time) Session {
	if role == "" {
		role = RoleNone
	}
	var id *Identity
	if identity != nil {
		cp := *identity
		id = &cp
	}
	return Session{
		Authenticated: true,
		Role:          role,
		Identity:      id,
		Source:        source,
		CheckedAt:     checkedAt,
	}
}

// Valid reports whether the session invariants hold.
func (s Session) Valid() bool {
	if s.Role != RoleNone && !s.Authenticated {
		return false
	}
	if !s.Authenticated && s.Identity != nil {
		return false
	}
	return true
}

// Email returns the identity email or "".
func (s Session) Email() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Email
}

// DisplayName returns the identity display name, falling back to the email.
func (s Session) DisplayName() string {
	if s.Identity == nil {
		return ""
	}
	if s.Identity.DisplayName != "" {
		return s.Identity.DisplayName
	}
	return s.Identity.Email
}

// SameSubject reports whether two sessions carry the same authentication, role and identity.
func (s Session) SameSubject(o Session) bool {
	if s.Authenticated != o.Authenticated || s.Role != o.Role {
		return false
	}
	if (s.Identity == nil) != (o.Identity == nil) {
		return false
	}
	return s.Identity == nil || *s.Identity == *o.Identity
}
