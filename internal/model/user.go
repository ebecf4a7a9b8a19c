package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the access level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// ParseRole accepts "admin" or "operator".
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleOperator:
		return RoleOperator, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// User is a person allowed to sign in to the back office.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         Role
	Active       bool
	PasswordHash string
	CreatedAt    time.Time
}
