package auth

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
)

// UserLookup loads the stored account a token names.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Resolver turns an Authorization header into the caller's current identity.
// The token only names the user; username and staff status are read from the
// stored record on every call, so deleting or demoting a user takes effect on
// their next request.
type Resolver struct {
	tokens *TokenManager
	users  UserLookup
}

func NewResolver(tokens *TokenManager, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve returns nil (anonymous) for an empty header or for a token whose
// user no longer exists. Bad tokens fail with ErrMissingToken or
// ErrInvalidToken; any other error comes from the user lookup.
func (r *Resolver) Resolve(ctx context.Context, header string) (*Identity, error) {
	claimed, err := r.tokens.IdentityFromHeader(header)
	if err != nil || claimed == nil {
		return nil, err
	}

	user, err := r.users.GetUserByID(ctx, claimed.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to load user %d: %w", claimed.UserID, err)
	}
	return &Identity{UserID: user.ID, Username: user.Username, IsStaff: user.IsStaff}, nil
}

// isTokenError reports whether err rejects the caller's credentials rather
// than signalling a lookup failure.
func isTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken) || errors.Is(err, ErrInvalidToken)
}
