// Package requestctx carries the caller identity resolved at a service boundary.
package requestctx

import (
	"context"
	"strings"
)

// identityContextKey is the context key for the authenticated caller.
type identityContextKey struct{}

// Identity is the caller as resolved from the request credential.
type Identity struct {
	UserID string
	Name   string
	Role   string
}

// WithIdentity stores a resolved caller identity in context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	identity.UserID = strings.TrimSpace(identity.UserID)
	identity.Name = strings.TrimSpace(identity.Name)
	identity.Role = strings.ToLower(strings.TrimSpace(identity.Role))
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the caller identity stored in context.
// The bool is false when no identity with a user id was stored.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, false
	}
	return identity, true
}
