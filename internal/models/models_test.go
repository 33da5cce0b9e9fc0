// internal/models/models_test.go
package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandSum(t *testing.T) {
	p := &Player{Hand: []Card{
		{Suit: "hearts", Rank: "A", Value: 1},
		{Suit: "clubs", Rank: "10", Value: 10},
		{Suit: "spades", Rank: "K", Value: 13},
	}}
	assert.Equal(t, 24, p.HandSum())

	empty := &Player{}
	assert.Equal(t, 0, empty.HandSum())
}

func TestHasRank(t *testing.T) {
	p := &Player{Hand: []Card{
		{Suit: "hearts", Rank: "7", Value: 7},
		{Suit: "clubs", Rank: "Q", Value: 12},
	}}
	assert.True(t, p.HasRank("7"))
	assert.True(t, p.HasRank("Q"))
	assert.False(t, p.HasRank("A"))
}

func TestSettingsClamped(t *testing.T) {
	assert.Equal(t, GameSettings{NumberOfRounds: DefaultRounds, MaxPlayers: DefaultMaxPlayers},
		GameSettings{}.Clamped())
	assert.Equal(t, GameSettings{NumberOfRounds: MaxRounds, MaxPlayers: MaxPlayers},
		GameSettings{NumberOfRounds: 50, MaxPlayers: 50}.Clamped())
	assert.Equal(t, GameSettings{NumberOfRounds: MinRounds, MaxPlayers: MinPlayers},
		GameSettings{NumberOfRounds: -1, MaxPlayers: 1}.Clamped())
	assert.Equal(t, GameSettings{NumberOfRounds: 5, MaxPlayers: 6},
		GameSettings{NumberOfRounds: 5, MaxPlayers: 6}.Clamped())
}

func TestCardWireFormat(t *testing.T) {
	data, err := json.Marshal(Card{Suit: "hearts", Rank: "A", Value: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"suit":"hearts","value":"A","numericValue":1}`, string(data))
}

func TestPlayerJSONHidesHand(t *testing.T) {
	p := Player{Username: "alice", Hand: []Card{{Suit: "hearts", Rank: "A", Value: 1}}}
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hearts")
}
