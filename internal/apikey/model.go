// Package apikey issues and validates long-lived service credentials that
// carry an explicit capability set.
package apikey

import (
	"errors"
	"time"
)

// MaxActiveKeys bounds the number of usable keys a user may hold.
const MaxActiveKeys = 5

// Key is a stored API key. The secret itself is never persisted; only its
// SHA-256 hash and a short display prefix.
type Key struct {
	ID          string
	UserID      string
	Name        string
	Prefix      string
	Hash        string
	Permissions []string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	LastUsedAt  *time.Time
	CreatedAt   time.Time
}

// Active reports whether the key can authenticate at now.
func (k Key) Active(now time.Time) bool {
	return k.RevokedAt == nil && now.Before(k.ExpiresAt)
}

// Expired reports whether the key lifetime has elapsed at now.
func (k Key) Expired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// CreateInput describes a key to issue.
type CreateInput struct {
	Name        string
	Permissions []string
	Expiry      string
}

// Issued pairs a stored key with its one-time plaintext secret.
type Issued struct {
	Key    Key
	Secret string
}

var (
	// ErrKeyNotFound is returned when no key matches the lookup.
	ErrKeyNotFound = errors.New("api key not found")
	// ErrKeyLimit is returned when the user already holds MaxActiveKeys.
	ErrKeyLimit = errors.New("api key limit reached")
)
