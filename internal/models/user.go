package models

import "time"

// User is an account created on first sign-in through the music service.
type User struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Image               *string   `json:"image,omitempty" db:"image"`
	FavoriteArtist      *string   `json:"favoriteArtist,omitempty" db:"favorite_artist"`
	FavoriteArtistImage *string   `json:"favoriteArtistImage,omitempty" db:"favorite_artist_image"`
	FavoriteAlbum       *string   `json:"favoriteAlbum,omitempty" db:"favorite_album"`
	FavoriteAlbumImage  *string   `json:"favoriteAlbumImage,omitempty" db:"favorite_album_image"`
	IsAdmin             bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
}

// Summary trims the user down to what other users get to see next to a vote.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Image: u.Image}
}

// UserSummary identifies a user in feeds, friend lists and vote breakdowns.
type UserSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image,omitempty"`
}

// Favorites carries a favorites update. Nil fields are cleared.
type Favorites struct {
	Artist      *string `json:"favoriteArtist"`
	ArtistImage *string `json:"favoriteArtistImage"`
	Album       *string `json:"favoriteAlbum"`
	AlbumImage  *string `json:"favoriteAlbumImage"`
}
