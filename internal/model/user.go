package model

import (
	"strings"
	"time"
)

// User represents an account. A user can hold multiple roles.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsDeleted    bool      `json:"is_deleted"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// HasRole reports whether the role set contains the given role.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// JoinRoles serializes a role set for storage.
func JoinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

// SplitRoles parses a stored role set.
func SplitRoles(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ValidRoles reports whether every role in the set is a known role.
func ValidRoles(roles []string) bool {
	for _, r := range roles {
		if r != RoleAdmin && r != RoleUser {
			return false
		}
	}
	return true
}
