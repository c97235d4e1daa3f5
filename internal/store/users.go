package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tunetally/internal/models"
)

const userColumns = `id, name, image, favorite_artist, favorite_artist_image, favorite_album, favorite_album_image, is_admin, created_at`

// UpsertUser creates the user on first sign-in and refreshes the display name afterwards.
// A profile image the user already set is kept.
func (s *Store) UpsertUser(ctx context.Context, id, name string, image *string) (models.User, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	switch {
	case id == "":
		return models.User{}, fmt.Errorf("%w: id is required", ErrInvalidUser)
	case name == "":
		return models.User{}, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, image)
		VALUES ($1, $2, $3)
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, image = COALESCE(users.image, EXCLUDED.image)
		RETURNING `+userColumns,
		id, name, image)

	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// UserByID returns a single user by identifier.
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// MaxSearchLimit caps how many users one search returns.
const MaxSearchLimit = 100

// SearchUsers finds users whose name contains query, case-insensitively.
// limit defaults to 20 and is capped at MaxSearchLimit.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE name ILIKE $1
		ORDER BY name ASC, id ASC
		LIMIT $2
	`, "%"+strings.TrimSpace(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateFavorites replaces the user's favorite artist and album.
func (s *Store) UpdateFavorites(ctx context.Context, id string, fav models.Favorites) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET favorite_artist = $2, favorite_artist_image = $3, favorite_album = $4, favorite_album_image = $5
		WHERE id = $1
		RETURNING `+userColumns,
		id, fav.Artist, fav.ArtistImage, fav.Album, fav.AlbumImage)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("update favorites: %w", err)
	}
	return user, nil
}

// UpdateImage sets the user's profile image.
func (s *Store) UpdateImage(ctx context.Context, id string, image *string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET image = $2
		WHERE id = $1
		RETURNING `+userColumns,
		id, image)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("update image: %w", err)
	}
	return user, nil
}

// SetAdmin grants or revokes admin rights.
func (s *Store) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_admin = $2
		WHERE id = $1
	`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteUser removes the user. Votes, friendships and friend requests go with it
// through the foreign keys.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(scanner rowScanner) (models.User, error) {
	var u models.User
	err := scanner.Scan(
		&u.ID,
		&u.Name,
		&u.Image,
		&u.FavoriteArtist,
		&u.FavoriteArtistImage,
		&u.FavoriteAlbum,
		&u.FavoriteAlbumImage,
		&u.IsAdmin,
		&u.CreatedAt,
	)
	return u, err
}
