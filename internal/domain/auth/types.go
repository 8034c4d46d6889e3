package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON payloads.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
	// RoleGuest is never sent by the backend; it is the role of an absent identity.
	RoleGuest Role = "guest"
)

// rank orders roles as guest < user < operator < admin.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleOperator:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r sits at or above required in the role order.
func (r Role) AtLeast(required Role) bool {
	return r.rank() >= required.rank()
}

// Valid reports whether r is one of the roles the backend assigns.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleUser:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for Role.
func (r *Role) UnmarshalText(text []byte) error {
	v := Role(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid role: %q (valid options: admin, operator, user)", string(text))
	}
	*r = v
	return nil
}

// Identity is the signed-in principal as reported by the backend profile endpoint.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
}

// Clone returns a copy that callers may keep without aliasing store state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	cp := *i
	return &cp
}

// State is the auth lifecycle state.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRefreshing     State = "refreshing"
)

// Snapshot is the observable session state: authenticated is true iff Identity is set.
type Snapshot struct {
	Identity      *Identity
	Authenticated bool
}

// NewSnapshot builds a Snapshot that upholds the identity/authenticated invariant.
func NewSnapshot(identity *Identity) Snapshot {
	return Snapshot{
		Identity:      identity.Clone(),
		Authenticated: identity != nil,
	}
}
