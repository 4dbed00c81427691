package models

import "time"

// Player is one roster entry, keyed by SteamID64.
type Player struct {
	SteamID string `json:"steamid"`
	Name    string `json:"name"`
}

// Team is an externally managed team identity. The ID is chosen by the
// organizer and referenced from the tournament's ordered team list.
type Team struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Tag       *string   `json:"tag,omitempty" db:"tag"`
	Players   []Player  `json:"players" db:"players"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
