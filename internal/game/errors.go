// internal/game/errors.go
package game

import "errors"

// Rule violations. The error text is the user-facing message delivered
// in the gameError event; rule errors are reported only to the acting
// player and never mutate game state.
var (
	ErrNotYourTurn         = errors.New("It's not your turn")
	ErrInvalidIndex        = errors.New("Invalid card index")
	ErrMustDrawFirst       = errors.New("You must draw a card first")
	ErrMustPlayMatchOrDraw = errors.New("You must play a matching card or draw first")
	ErrCallWindowClosed    = errors.New("You can only call at the start of your turn")
	ErrRoundInactive       = errors.New("The round is not active")
)

// Lookup and lobby failures.
var (
	ErrGameNotFound     = errors.New("Game not found")
	ErrPlayerNotFound   = errors.New("Player not found")
	ErrGameFull         = errors.New("Game is full")
	ErrGameStarted      = errors.New("Game already started")
	ErrNotHost          = errors.New("Only the host can start the game")
	ErrNotEnoughPlayers = errors.New("At least two players are required")
)

// ErrDeckExhausted should be unreachable while card conservation holds:
// 52 cards always leave something to reshuffle. If it fires anyway it
// is fatal for the round and surfaced room-wide.
var ErrDeckExhausted = errors.New("No cards left to draw")

// IsRuleError reports whether err is a turn/rule violation that leaves
// state untouched and concerns only the acting player.
func IsRuleError(err error) bool {
	switch {
	case errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrInvalidIndex),
		errors.Is(err, ErrMustDrawFirst),
		errors.Is(err, ErrMustPlayMatchOrDraw),
		errors.Is(err, ErrCallWindowClosed),
		errors.Is(err, ErrRoundInactive):
		return true
	}
	return false
}
