// internal/game/deck.go
package game

import (
	"math/rand/v2"

	"github.com/fadugame/fadu/internal/models"
)

// deckSize is the full card count; card conservation means
// drawPile + discardPile + all hands always total this within a round.
const deckSize = 52

// reshuffleThreshold triggers a discard-pile reshuffle before a draw
// when the draw pile falls below it.
const reshuffleThreshold = 5

// deck owns the draw pile (a stack: draws pop from the end) and the
// discard pile (plays push onto the end).
type deck struct {
	drawPile    []models.Card
	discardPile []models.Card
	rng         *rand.Rand
}

// newDeck builds a freshly shuffled 52-card deck with an empty discard
// pile. The generator is injected so tests can fix the order.
func newDeck(rng *rand.Rand) *deck {
	d := &deck{
		drawPile:    make([]models.Card, 0, deckSize),
		discardPile: make([]models.Card, 0, deckSize),
		rng:         rng,
	}
	for _, suit := range models.Suits {
		for _, r := range models.Ranks {
			d.drawPile = append(d.drawPile, models.Card{Suit: suit, Rank: r.Symbol, Value: r.Value})
		}
	}
	d.shuffle()
	return d
}

// shuffle performs a Fisher-Yates shuffle over the draw pile.
func (d *deck) shuffle() {
	d.rng.Shuffle(len(d.drawPile), func(i, j int) {
		d.drawPile[i], d.drawPile[j] = d.drawPile[j], d.drawPile[i]
	})
}

// draw removes and returns the top card of the draw pile. It reports
// whether a reshuffle happened so the caller can emit a notification.
// Returns ErrDeckExhausted if nothing is left even after reshuffling.
func (d *deck) draw() (models.Card, bool, error) {
	reshuffled := false
	if len(d.drawPile) < reshuffleThreshold {
		reshuffled = d.reshuffle()
	}
	if len(d.drawPile) == 0 {
		return models.Card{}, reshuffled, ErrDeckExhausted
	}
	card := d.drawPile[len(d.drawPile)-1]
	d.drawPile = d.drawPile[:len(d.drawPile)-1]
	return card, reshuffled, nil
}

// reshuffle keeps the current discard top in place and shuffles the
// remainder of the discard pile into the draw pile. Card conservation
// is untouched: every card moves, none are created or dropped.
// Returns false when there was nothing to move.
func (d *deck) reshuffle() bool {
	if len(d.discardPile) <= 1 {
		return false
	}
	top := d.discardPile[len(d.discardPile)-1]
	d.drawPile = append(d.drawPile, d.discardPile[:len(d.discardPile)-1]...)
	d.discardPile = d.discardPile[:0]
	d.discardPile = append(d.discardPile, top)
	d.shuffle()
	return true
}

// discard pushes a card onto the discard pile.
func (d *deck) discard(c models.Card) {
	d.discardPile = append(d.discardPile, c)
}

// top returns the current discard top, or nil when the pile is empty.
func (d *deck) top() *models.Card {
	if len(d.discardPile) == 0 {
		return nil
	}
	return &d.discardPile[len(d.discardPile)-1]
}

// reclaim returns all discard-pile cards and the given hands to the
// draw pile and shuffles. Used between rounds so the same 52 cards are
// redealt without rebuilding the deck.
func (d *deck) reclaim(hands ...[]models.Card) {
	d.drawPile = append(d.drawPile, d.discardPile...)
	d.discardPile = d.discardPile[:0]
	for _, h := range hands {
		d.drawPile = append(d.drawPile, h...)
	}
	d.shuffle()
}
