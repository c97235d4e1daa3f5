package auth

import (
	"context"
	"errors"
	"fmt"

	"tunetally/internal/models"
	"tunetally/internal/store"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID  string
	Name    string
	IsAdmin bool
}

type identityKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored on ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// UserLookup loads the user a token refers to.
type UserLookup interface {
	Get(ctx context.Context, id string) (models.User, error)
}

// Provider turns bearer tokens into identities. Admin rights are read from the
// user record on every request so revocation takes effect immediately.
type Provider struct {
	issuer *Issuer
	users  UserLookup
}

// NewProvider wires a Provider.
func NewProvider(issuer *Issuer, users UserLookup) *Provider {
	return &Provider{issuer: issuer, users: users}
}

// Authenticate verifies token and resolves the caller.
func (p *Provider) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, err := p.issuer.Parse(token)
	if err != nil {
		return Identity{}, err
	}

	user, err := p.users.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return Identity{}, fmt.Errorf("%w: user no longer exists", store.ErrUnauthorized)
		}
		return Identity{}, fmt.Errorf("resolve token subject: %w", err)
	}

	return Identity{UserID: user.ID, Name: user.Name, IsAdmin: user.IsAdmin}, nil
}
