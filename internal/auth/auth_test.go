package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"tunetally/internal/models"
	"tunetally/internal/store"
)

type stubUsers struct {
	users map[string]models.User
}

func (s stubUsers) Get(_ context.Context, id string) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", time.Hour)

	token, exp, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected expiry in the future, got %v", exp)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "u1" {
		t.Fatalf("expected subject u1, got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected token id to be set")
	}
}

func TestParseRejects(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", time.Hour)
	other := NewIssuer("fedcba9876543210", time.Hour)

	foreign, _, err := other.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	expiredIssuer := NewIssuer("0123456789abcdef", time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredIssuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: expired},
		{name: "empty", token: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := issuer.Parse(tc.token); !errors.Is(err, store.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestIssueRequiresUser(t *testing.T) {
	if _, _, err := NewIssuer("0123456789abcdef", 0).Issue(" "); !errors.Is(err, store.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestProviderAuthenticate(t *testing.T) {
	issuer := NewIssuer("0123456789abcdef", time.Hour)
	provider := NewProvider(issuer, stubUsers{users: map[string]models.User{
		"admin": {ID: "admin", Name: "Root", IsAdmin: true},
	}})

	token, _, err := issuer.Issue("admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	id, err := provider.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.UserID != "admin" || !id.IsAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}

	gone, _, err := issuer.Issue("deleted")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := provider.Authenticate(context.Background(), gone); !errors.Is(err, store.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for deleted user, got %v", err)
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity on empty context")
	}

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	id, ok := IdentityFrom(ctx)
	if !ok || id.UserID != "u1" {
		t.Fatalf("unexpected identity: %+v (ok=%v)", id, ok)
	}
}
