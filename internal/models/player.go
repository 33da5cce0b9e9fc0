// internal/models/player.go
package models

import (
	"github.com/google/uuid"
)

// Player is a seat in a live game. Hand order carries no rule meaning
// but plays are addressed by hand index, so it must stay stable between
// broadcasts.
type Player struct {
	ID         uuid.UUID `json:"userId"`
	Username   string    `json:"username"`
	Hand       []Card    `json:"-"`
	RoundScore int       `json:"-"`
	Connected  bool      `json:"connected"`
}

// HandSum totals the numeric rank values of the player's current hand.
func (p *Player) HandSum() int {
	sum := 0
	for _, c := range p.Hand {
		sum += c.Value
	}
	return sum
}

// HasRank reports whether the player holds at least one card of the
// given rank symbol.
func (p *Player) HasRank(rank string) bool {
	for _, c := range p.Hand {
		if c.Rank == rank {
			return true
		}
	}
	return false
}
