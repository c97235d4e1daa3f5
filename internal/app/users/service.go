package users

import (
	"context"
	"strings"
	"time"

	"tunetally/internal/models"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	UpsertUser(ctx context.Context, id, name string, image *string) (models.User, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateFavorites(ctx context.Context, id string, fav models.Favorites) (models.User, error)
	UpdateImage(ctx context.Context, id string, image *string) (models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TokenIssuer mints session tokens for signed-in users.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

// Service exposes user-related workflows.
type Service interface {
	SignIn(ctx context.Context, id, name string, image *string) (Session, error)
	Get(ctx context.Context, id string) (models.User, error)
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateFavorites(ctx context.Context, id string, fav models.Favorites) (models.User, error)
	UpdateImage(ctx context.Context, id string, image *string) (models.User, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	store  Store
	tokens TokenIssuer
}

// New wires a Service backed by the provided Store.
func New(store Store, tokens TokenIssuer) Service {
	return &service{store: store, tokens: tokens}
}

// SignIn records the music-service account on first login, refreshes it on
// later ones, and issues a session token.
func (s *service) SignIn(ctx context.Context, id, name string, image *string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	user, err := s.store.UpsertUser(ctx, id, name, image)
	if err != nil {
		return Session{}, err
	}

	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return Session{}, err
	}

	return Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *service) Get(ctx context.Context, id string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	return s.store.UserByID(ctx, id)
}

func (s *service) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []models.User{}, nil
	}
	return s.store.SearchUsers(ctx, query, limit)
}

func (s *service) UpdateFavorites(ctx context.Context, id string, fav models.Favorites) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	return s.store.UpdateFavorites(ctx, id, fav)
}

func (s *service) UpdateImage(ctx context.Context, id string, image *string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	return s.store.UpdateImage(ctx, id, image)
}

func (s *service) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, id)
}
