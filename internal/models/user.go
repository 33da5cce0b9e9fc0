// internal/models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account, including the lifetime aggregates that
// are incremented when a game completes.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	GamesPlayed  int       `json:"gamesPlayed"`
	GamesWon     int       `json:"gamesWon"`
	TotalPoints  int       `json:"totalPoints"`
	CreatedAt    time.Time `json:"createdAt"`
}
