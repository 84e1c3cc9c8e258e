package auth

import (
	"errors"
	"fmt"
)

// Role is the capability class of an authenticated caller.
type Role string

const (
	RoleInvestor Role = "investor"
	RoleAnalyst  Role = "analyst"
	RoleAdmin    Role = "admin"
)

var ErrInvalidRole = errors.New("invalid role")

// ParseRole validates a role string coming from a token or request.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleInvestor, RoleAnalyst, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// Identity is the authenticated caller. It is passed explicitly into every
// service call; services never consult ambient flags to grant access.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Is reports whether the identity acts as the given user with the given role.
func (i Identity) Is(role Role, userID string) bool {
	return i.Role == role && i.UserID == userID
}
