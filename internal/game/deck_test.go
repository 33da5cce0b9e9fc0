// internal/game/deck_test.go
package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fadugame/fadu/internal/models"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := newDeck(testRNG())
	require.Len(t, d.drawPile, deckSize)
	assert.Empty(t, d.discardPile)

	seen := make(map[models.Card]bool, deckSize)
	for _, c := range d.drawPile {
		assert.False(t, seen[c], "duplicate card %v", c)
		seen[c] = true
	}
	assert.Len(t, seen, deckSize)
}

func TestDrawAndDiscardConserveCards(t *testing.T) {
	d := newDeck(testRNG())
	for i := 0; i < 10; i++ {
		card, reshuffled, err := d.draw()
		require.NoError(t, err)
		assert.False(t, reshuffled)
		d.discard(card)
	}
	assert.Equal(t, deckSize, len(d.drawPile)+len(d.discardPile))
	assert.Len(t, d.discardPile, 10)
}

func TestReshuffleTriggersBelowThresholdAndKeepsTop(t *testing.T) {
	d := newDeck(testRNG())

	// Run the draw pile down to just under the threshold.
	for len(d.drawPile) >= reshuffleThreshold {
		card, _, err := d.draw()
		require.NoError(t, err)
		d.discard(card)
	}
	require.Less(t, len(d.drawPile), reshuffleThreshold)
	top := *d.top()

	_, reshuffled, err := d.draw()
	require.NoError(t, err)
	assert.True(t, reshuffled)

	// The visible discard top survives the reshuffle in place.
	require.Len(t, d.discardPile, 1)
	assert.Equal(t, top, *d.top())
	assert.Equal(t, deckSize, len(d.drawPile)+len(d.discardPile)+1)
}

func TestReshuffleNoopWithEmptyDiscard(t *testing.T) {
	d := newDeck(testRNG())
	assert.False(t, d.reshuffle())

	// A single discard card is the visible top; nothing to move.
	c, _, err := d.draw()
	require.NoError(t, err)
	d.discard(c)
	assert.False(t, d.reshuffle())
	assert.Len(t, d.discardPile, 1)
}

func TestReclaimRestoresFullDeck(t *testing.T) {
	d := newDeck(testRNG())

	var hands [2][]models.Card
	for i := 0; i < 2; i++ {
		for j := 0; j < cardsPerHand; j++ {
			c, _, err := d.draw()
			require.NoError(t, err)
			hands[i] = append(hands[i], c)
		}
	}
	c, _, err := d.draw()
	require.NoError(t, err)
	d.discard(c)

	d.reclaim(hands[0], hands[1])
	assert.Len(t, d.drawPile, deckSize)
	assert.Empty(t, d.discardPile)
}
