// internal/game/state.go
package game

import (
	"github.com/google/uuid"

	"github.com/fadugame/fadu/internal/models"
)

// PublicPlayerState is the spectator-safe view of one seat: hand size
// and round score, never hand contents.
type PublicPlayerState struct {
	UserID    uuid.UUID `json:"userId"`
	Username  string    `json:"username"`
	HandSize  int       `json:"handSize"`
	Score     int       `json:"score"`
	Connected bool      `json:"connected"`
}

// PublicState is the room-wide game snapshot broadcast on every state
// change. The public channel must never carry any player's hand
// contents, only sizes.
type PublicState struct {
	GameID        uuid.UUID           `json:"gameId"`
	CurrentRound  int                 `json:"currentRound"`
	TotalRounds   int                 `json:"totalRounds"`
	CurrentPlayer uuid.UUID           `json:"currentPlayer"`
	TopCard       *models.Card        `json:"topCard,omitempty"`
	DeckSize      int                 `json:"deckSize"`
	Players       []PublicPlayerState `json:"players"`
}

// publicState builds the current snapshot. Assumes the game lock is
// held by the caller.
func (g *Game) publicState() *PublicState {
	st := &PublicState{
		GameID:       g.ID,
		CurrentRound: g.CurrentRound,
		TotalRounds:  g.TotalRounds,
		DeckSize:     len(g.deck.drawPile),
		Players:      make([]PublicPlayerState, len(g.Players)),
	}
	if cur := g.currentPlayer(); cur != nil {
		st.CurrentPlayer = cur.ID
	}
	if top := g.deck.top(); top != nil {
		c := *top
		st.TopCard = &c
	}
	for i, p := range g.Players {
		st.Players[i] = PublicPlayerState{
			UserID:    p.ID,
			Username:  p.Username,
			HandSize:  len(p.Hand),
			Score:     p.RoundScore,
			Connected: p.Connected,
		}
	}
	return st
}
