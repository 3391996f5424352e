package models

import "github.com/google/uuid"

type Genre struct {
	Name        string `json:"Name"`
	Description string `json:"Description"`
}

type Director struct {
	Name  string `json:"Name"`
	Bio   string `json:"Bio"`
	Birth *int   `json:"Birth,omitempty"`
}

type Movie struct {
	ID            uuid.UUID `json:"_id"`
	Title         string    `json:"Title"`
	Description   string    `json:"Description"`
	Genre         Genre     `json:"Genre"`
	Director      Director  `json:"Director"`
	Actors        []string  `json:"Actors"`
	ImagePath     string    `json:"ImagePath"`
	Featured      bool      `json:"Featured"`
	FavoriteCount int       `json:"FavoriteCount"`
}

// FavoriteAction is the kind of change carried by a FavoriteEvent.
type FavoriteAction string

const (
	FavoriteAdded   FavoriteAction = "added"
	FavoriteRemoved FavoriteAction = "removed"
)

// FavoriteEvent is published whenever a user's favorites change.
type FavoriteEvent struct {
	UserID  uuid.UUID      `json:"user_id"`
	MovieID uuid.UUID      `json:"movie_id"`
	Action  FavoriteAction `json:"action"`
}

// Delta returns the change this event applies to a movie's favorite count.
func (e FavoriteEvent) Delta() int {
	switch e.Action {
	case FavoriteAdded:
		return 1
	case FavoriteRemoved:
		return -1
	default:
		return 0
	}
}
