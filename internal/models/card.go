// internal/models/card.go
package models

// Card is an immutable playing card. Rank is the display symbol ("A",
// "2".."10", "J", "Q", "K"); Value is its numeric rank (A=1 .. K=13)
// used for hand sums during call resolution.
type Card struct {
	Suit  string `json:"suit"`
	Rank  string `json:"value"`
	Value int    `json:"numericValue"`
}

// Suits in deck-build order.
var Suits = []string{"hearts", "diamonds", "clubs", "spades"}

// Ranks in deck-build order, paired with numeric values 1..13.
var Ranks = []struct {
	Symbol string
	Value  int
}{
	{"A", 1}, {"2", 2}, {"3", 3}, {"4", 4}, {"5", 5}, {"6", 6},
	{"7", 7}, {"8", 8}, {"9", 9}, {"10", 10}, {"J", 11}, {"Q", 12}, {"K", 13},
}
