// internal/game/events.go
package game

import (
	"github.com/google/uuid"
)

// GameEventType names an outbound broadcast. The strings are the wire
// event names consumed by the client.
type GameEventType string

const (
	EventGameCreated        GameEventType = "gameCreated"        // Private: creator only.
	EventPlayerJoined       GameEventType = "playerJoined"       // Public: new or reactivated player.
	EventGameStarted        GameEventType = "gameStarted"        // Public: game left the waiting state.
	EventGameStateUpdate    GameEventType = "gameStateUpdate"    // Public: hand sizes only, never contents.
	EventUpdateHand         GameEventType = "updateHand"         // Private: a player's full hand.
	EventYourTurn           GameEventType = "yourTurn"           // Private: current player only.
	EventCardDrawn          GameEventType = "cardDrawn"          // Public: drawer id and new hand size.
	EventCallMade           GameEventType = "callMade"           // Public: call resolution.
	EventRoundEnded         GameEventType = "roundEnded"         // Public: committed scores, next starter.
	EventGameCompleted      GameEventType = "gameCompleted"      // Public: final scores and winners.
	EventPlayerDisconnected GameEventType = "playerDisconnected" // Public.
	EventDeckReshuffled     GameEventType = "deckReshuffled"     // Public.
	EventGameError          GameEventType = "gameError"          // Private when addressed, else room-wide.
)

// GameEvent is the standard structure delivered to websocket sessions.
// State is set only on gameStateUpdate events.
type GameEvent struct {
	Type    GameEventType          `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	State   *PublicState           `json:"state,omitempty"`
}

// BroadcastFunc delivers an event to every connected session in the
// game's room.
type BroadcastFunc func(ev GameEvent)

// BroadcastToPlayerFunc delivers an event to a single player's session.
type BroadcastToPlayerFunc func(playerID uuid.UUID, ev GameEvent)

func errorEvent(userID uuid.UUID, message string) GameEvent {
	payload := map[string]interface{}{"message": message}
	if userID != uuid.Nil {
		payload["userId"] = userID.String()
	}
	return GameEvent{Type: EventGameError, Payload: payload}
}
