// Package tarot holds the static 78-card deck and the drawing logic for
// readings.
package tarot

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Card is one card of the deck. Code is the stable identifier used for
// image assets and API payloads.
type Card struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DrawnCard is a card as it appears in a spread.
type DrawnCard struct {
	Card
	Position int  `json:"position"`
	Reversed bool `json:"reversed"`
}

// Spread names map to the number of cards drawn.
const (
	SpreadSingle      = "single"
	SpreadThreeCard   = "three_card"
	SpreadCelticCross = "celtic_cross"
)

var spreadSizes = map[string]int{
	SpreadSingle:      1,
	SpreadThreeCard:   3,
	SpreadCelticCross: 10,
}

// SpreadSize returns the number of cards for a spread name, or an error for
// an unknown spread.
func SpreadSize(spread string) (int, error) {
	n, ok := spreadSizes[spread]
	if !ok {
		return 0, fmt.Errorf("unknown spread %q", spread)
	}
	return n, nil
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 78

// Deck returns a copy of the full deck in canonical order.
func Deck() []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	return out
}

// Draw samples n distinct cards from the deck using crypto/rand, assigning
// each a position and an independent 50/50 reversed orientation.
func Draw(n int) ([]DrawnCard, error) {
	if n < 1 || n > DeckSize {
		return nil, fmt.Errorf("draw size %d out of range [1, %d]", n, DeckSize)
	}

	// Partial Fisher-Yates over a scratch copy
	scratch := Deck()
	drawn := make([]DrawnCard, n)
	for i := 0; i < n; i++ {
		j, err := randInt(len(scratch) - i)
		if err != nil {
			return nil, fmt.Errorf("failed to draw card: %w", err)
		}
		idx := i + j
		scratch[i], scratch[idx] = scratch[idx], scratch[i]

		reversed, err := randInt(2)
		if err != nil {
			return nil, fmt.Errorf("failed to draw orientation: %w", err)
		}

		drawn[i] = DrawnCard{
			Card:     scratch[i],
			Position: i + 1,
			Reversed: reversed == 1,
		}
	}

	return drawn, nil
}

// DrawSpread draws the cards for a named spread.
func DrawSpread(spread string) ([]DrawnCard, error) {
	n, err := SpreadSize(spread)
	if err != nil {
		return nil, err
	}
	return Draw(n)
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
