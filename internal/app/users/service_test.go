package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"tunetally/internal/models"
	"tunetally/internal/store"
)

type stubStore struct {
	users    map[string]models.User
	searched bool
}

func (s *stubStore) UpsertUser(_ context.Context, id, name string, image *string) (models.User, error) {
	if id == "" || name == "" {
		return models.User{}, store.ErrInvalidUser
	}
	u := models.User{ID: id, Name: name, Image: image}
	s.users[id] = u
	return u, nil
}

func (s *stubStore) UserByID(_ context.Context, id string) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (s *stubStore) SearchUsers(_ context.Context, _ string, _ int) ([]models.User, error) {
	s.searched = true
	return []models.User{}, nil
}

func (s *stubStore) UpdateFavorites(_ context.Context, id string, fav models.Favorites) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	u.FavoriteArtist = fav.Artist
	s.users[id] = u
	return u, nil
}

func (s *stubStore) UpdateImage(_ context.Context, id string, image *string) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	u.Image = image
	s.users[id] = u
	return u, nil
}

func (s *stubStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID string) (string, time.Time, error) {
	return "token-" + userID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func TestSignInIssuesToken(t *testing.T) {
	st := &stubStore{users: map[string]models.User{}}
	svc := New(st, stubIssuer{})

	session, err := svc.SignIn(context.Background(), "spotify:123", "Ada", nil)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.Token != "token-spotify:123" || session.User.Name != "Ada" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if _, ok := st.users["spotify:123"]; !ok {
		t.Fatalf("expected user to be stored")
	}

	if _, err := svc.SignIn(context.Background(), "", "Ada", nil); !errors.Is(err, store.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestSearchBlankSkipsStore(t *testing.T) {
	st := &stubStore{users: map[string]models.User{}}
	svc := New(st, stubIssuer{})

	got, err := svc.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 || st.searched {
		t.Fatalf("expected empty result without a store call")
	}
}

func TestProfileUpdatesAndDelete(t *testing.T) {
	st := &stubStore{users: map[string]models.User{"u1": {ID: "u1", Name: "Ada"}}}
	svc := New(st, stubIssuer{})
	ctx := context.Background()

	artist := "Stereolab"
	u, err := svc.UpdateFavorites(ctx, "u1", models.Favorites{Artist: &artist})
	if err != nil || u.FavoriteArtist == nil || *u.FavoriteArtist != artist {
		t.Fatalf("unexpected favorites update: %+v (%v)", u, err)
	}

	img := "https://img/ada.png"
	u, err = svc.UpdateImage(ctx, "u1", &img)
	if err != nil || u.Image == nil || *u.Image != img {
		t.Fatalf("unexpected image update: %+v (%v)", u, err)
	}

	if err := svc.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
}
