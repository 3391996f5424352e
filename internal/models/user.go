package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID   `json:"_id"`
	Username       string      `json:"Username"`
	PasswordHash   string      `json:"-"` // Never expose password hash in JSON
	Email          string      `json:"Email"`
	Birthday       *time.Time  `json:"Birthday,omitempty"`
	FavoriteMovies []uuid.UUID `json:"FavoriteMovies"`
	CreatedAt      time.Time   `json:"-"`
}

// HasFavorite reports whether movieID is already in the user's favorites.
func (u *User) HasFavorite(movieID uuid.UUID) bool {
	for _, id := range u.FavoriteMovies {
		if id == movieID {
			return true
		}
	}
	return false
}
