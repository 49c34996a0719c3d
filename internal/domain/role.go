package domain

import (
	"fmt"
	"strings"
)

// Role is fixed for the lifetime of a room membership.
// The numeric values match the login form: 0 teacher, 1 student.
type Role int

const (
	RoleHost Role = iota
	RoleParticipant
)

func (r Role) Valid() bool {
	return r == RoleHost || r == RoleParticipant
}

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleParticipant:
		return "participant"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole accepts the canonical names, the classroom aliases and the
// numeric form used on the wire.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host", "teacher", "0":
		return RoleHost, nil
	case "participant", "student", "1":
		return RoleParticipant, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}
