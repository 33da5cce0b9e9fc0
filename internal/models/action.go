// internal/models/action.go
package models

import (
	"github.com/google/uuid"
)

// GameAction is an inbound player action frame received over the
// websocket. Fields beyond Type are populated per action type.
type GameAction struct {
	Type      string        `json:"type"`
	GameID    uuid.UUID     `json:"gameId,omitempty"`
	UserID    uuid.UUID     `json:"userId,omitempty"`
	Username  string        `json:"username,omitempty"`
	CardIndex int           `json:"cardIndex"`
	Settings  *GameSettings `json:"settings,omitempty"`
}

// Inbound action type names, matching the client protocol.
const (
	ActionCreateGame = "createGame"
	ActionJoinGame   = "joinGame"
	ActionStartGame  = "startGame"
	ActionPlayCard   = "playCard"
	ActionDrawCard   = "drawCard"
	ActionMakeCall   = "makeCall"
)
