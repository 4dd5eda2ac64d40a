package identity

import (
	"errors"
	"time"
)

// Roles mirror the values stored in users.role.
const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleService = "service"
)

// User represents a registered wallet owner.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	Role         string
	TokenVersion int
	CreatedAt    time.Time
}

// RegisterInput is the data needed to onboard a user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)
