// Package access models the resolved caller identity and the capability
// strings it has been granted.
package access

import (
	"context"
	"slices"
	"strings"

	"github.com/congo-pay/congo_wallet/internal/apperr"
)

// Capability strings. Matching is exact and case-sensitive.
const (
	PermDeposit  = "deposit"
	PermTransfer = "transfer"
	PermRead     = "read"
)

// Source identifies which credential produced a principal.
type Source string

const (
	SourceSession Source = "session"
	SourceAPIKey  Source = "api_key"
)

// All lists every capability known to the service.
func All() []string {
	return []string{PermDeposit, PermTransfer, PermRead}
}

// Known reports whether perm is a capability the service understands.
func Known(perm string) bool {
	return slices.Contains(All(), perm)
}

// Principal is the authenticated caller as resolved by the auth layer.
type Principal struct {
	UserID      string
	Email       string
	Source      Source
	KeyID       string
	Permissions map[string]struct{}
}

// NewPrincipal builds a principal holding exactly perms.
func NewPrincipal(userID string, source Source, perms ...string) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Principal{UserID: userID, Source: source, Permissions: set}
}

// SessionPrincipal is a principal backed by a user session; sessions carry
// every capability.
func SessionPrincipal(userID, email string) Principal {
	p := NewPrincipal(userID, SourceSession, All()...)
	p.Email = email
	return p
}

// HasAll reports whether every perm is granted.
func (p Principal) HasAll(perms ...string) bool {
	for _, perm := range perms {
		if _, ok := p.Permissions[perm]; !ok {
			return false
		}
	}
	return true
}

// Require returns Unauthorized for an anonymous principal and Forbidden when
// any of perms is missing.
func Require(p Principal, perms ...string) error {
	if p.UserID == "" {
		return apperr.Unauthorized("authentication required")
	}
	if !p.HasAll(perms...) {
		return apperr.Forbidden("missing required permissions: " + strings.Join(perms, ", "))
	}
	return nil
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored on ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
