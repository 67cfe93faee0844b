// Package auth resolves the caller's identity from bearer tokens and gates
// handlers behind pluggable permission policies.
package auth

import "context"

// Identity is the authenticated caller. A nil *Identity is the anonymous caller.
type Identity struct {
	UserID   int64
	Username string
	IsStaff  bool
}

// Policy decides whether an identity may use a resource.
type Policy func(identity *Identity) bool

// IsStaff permits only authenticated staff members.
func IsStaff(identity *Identity) bool {
	return identity != nil && identity.IsStaff
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the identity stored in ctx, or nil for anonymous callers.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(contextKey{}).(*Identity)
	return identity
}
