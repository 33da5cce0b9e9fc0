// internal/models/game.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle state of a game aggregate.
type GameStatus string

const (
	StatusWaiting   GameStatus = "waiting"
	StatusPlaying   GameStatus = "playing"
	StatusCompleted GameStatus = "completed"
)

// Settings bounds, matching the lobby form limits.
const (
	MinRounds  = 1
	MaxRounds  = 10
	MinPlayers = 2
	MaxPlayers = 8

	DefaultRounds     = 3
	DefaultMaxPlayers = 4
)

// GameSettings is the host-chosen configuration captured at creation.
type GameSettings struct {
	NumberOfRounds int `json:"numberOfRounds"`
	MaxPlayers     int `json:"maxPlayers"`
}

// Clamped returns a copy with out-of-range values pulled back to the
// allowed bounds, applying defaults for zero values.
func (s GameSettings) Clamped() GameSettings {
	if s.NumberOfRounds == 0 {
		s.NumberOfRounds = DefaultRounds
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = DefaultMaxPlayers
	}
	if s.NumberOfRounds < MinRounds {
		s.NumberOfRounds = MinRounds
	}
	if s.NumberOfRounds > MaxRounds {
		s.NumberOfRounds = MaxRounds
	}
	if s.MaxPlayers < MinPlayers {
		s.MaxPlayers = MinPlayers
	}
	if s.MaxPlayers > MaxPlayers {
		s.MaxPlayers = MaxPlayers
	}
	return s
}

// RosterEntry is one player slot inside the persisted aggregate.
type RosterEntry struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	Connected bool      `json:"isConnected"`
}

// GameRecord is the persisted game aggregate. Scores maps user id to
// cumulative score across rounds; roster order is the turn order.
type GameRecord struct {
	ID           uuid.UUID         `json:"id"`
	HostID       uuid.UUID         `json:"hostId"`
	Status       GameStatus        `json:"status"`
	Players      []RosterEntry     `json:"players"`
	Settings     GameSettings      `json:"settings"`
	CurrentRound int               `json:"currentRound"`
	TotalRounds  int               `json:"totalRounds"`
	Scores       map[uuid.UUID]int `json:"scores"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// FindPlayer returns the roster index for the given user, or -1.
func (g *GameRecord) FindPlayer(userID uuid.UUID) int {
	for i, p := range g.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}
