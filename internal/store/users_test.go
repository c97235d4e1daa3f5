package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tunetally/internal/models"
)

var userRowColumns = []string{"id", "name", "image", "favorite_artist", "favorite_artist_image", "favorite_album", "favorite_album_image", "is_admin", "created_at"}

func TestUpsertUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, image = COALESCE(users.image, EXCLUDED.image)`)).
		WithArgs("u1", "Ada", nil).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u1", "Ada", nil, nil, nil, nil, nil, false, created))

	user, err := New(db).UpsertUser(context.Background(), " u1 ", " Ada ", nil)
	if err != nil {
		t.Fatalf("UpsertUser error: %v", err)
	}
	if user.ID != "u1" || user.Name != "Ada" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertUserRequiresName(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	if _, err := New(db).UpsertUser(context.Background(), "u1", "   ", nil); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}
}

func TestUserByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	if _, err := New(db).UserByID(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchUsers(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	created := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE name ILIKE $1 ORDER BY name ASC, id ASC LIMIT $2`)).
		WithArgs("%ad%", 20).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "Ada", nil, "Autechre", nil, nil, nil, false, created).
			AddRow("u4", "Chad", nil, nil, nil, nil, nil, true, created))

	users, err := New(db).SearchUsers(context.Background(), " ad ", 0)
	if err != nil {
		t.Fatalf("SearchUsers error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].FavoriteArtist == nil || *users[0].FavoriteArtist != "Autechre" {
		t.Fatalf("expected favorite artist, got %v", users[0].FavoriteArtist)
	}
	if !users[1].IsAdmin {
		t.Fatalf("expected second user to be admin")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateFavorites(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	artist := "Broadcast"
	album := "Tender Buttons"
	created := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET favorite_artist = $2`)).
		WithArgs("u1", artist, nil, album, nil).
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u1", "Ada", nil, artist, nil, album, nil, false, created))

	user, err := New(db).UpdateFavorites(context.Background(), "u1", models.Favorites{Artist: &artist, Album: &album})
	if err != nil {
		t.Fatalf("UpdateFavorites error: %v", err)
	}
	if user.FavoriteAlbum == nil || *user.FavoriteAlbum != album {
		t.Fatalf("expected favorite album %q, got %v", album, user.FavoriteAlbum)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(db).DeleteUser(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchUsersCapsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE name ILIKE $1 ORDER BY name ASC, id ASC LIMIT $2`)).
		WithArgs("%ad%", MaxSearchLimit).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	if _, err := New(db).SearchUsers(context.Background(), "ad", 1_000_000_000); err != nil {
		t.Fatalf("SearchUsers error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
