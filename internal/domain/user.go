// Package domain contains entities without transport logic, just meta-data
// and the invariants that travel with it.
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxUserIDLen   = 36
	MaxUsernameLen = 36
)

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrInvalidRole     = errors.New("invalid role")
)

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// NewUser validates the display name and role and assigns a fresh id.
func NewUser(username string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	id := UserID(uuid.NewString())
	return &User{ID: id, Username: username, Role: role}, nil
}

func ValidateUsername(username string) error {
	if len(strings.TrimSpace(username)) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// Participant returns the roster view of the user.
func (u *User) Participant() Participant {
	return Participant{
		ID:          u.ID,
		DisplayName: u.Username,
		Role:        u.Role,
		Connection:  Connected,
	}
}
