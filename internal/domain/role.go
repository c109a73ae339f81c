package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RoleBasedAuthority is the role attached to a credential.
// The empty value means the role is not set.
type RoleBasedAuthority string

const (
	RoleUser  RoleBasedAuthority = "ROLE_USER"
	RoleAdmin RoleBasedAuthority = "ROLE_ADMIN"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists every known authority.
func Roles() []RoleBasedAuthority {
	return []RoleBasedAuthority{RoleUser, RoleAdmin}
}

func (r RoleBasedAuthority) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

func (r RoleBasedAuthority) String() string {
	if r == "" {
		return nullMarker
	}
	return string(r)
}

// ParseRoleBasedAuthority accepts the enumerant name case-insensitively.
// An empty input yields the unset role.
func ParseRoleBasedAuthority(s string) (RoleBasedAuthority, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	r := RoleBasedAuthority(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}
