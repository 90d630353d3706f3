package game

import (
	"math/rand"
	"time"

	"uno-dealer/internal/models"
)

var playColors = []models.Color{models.ColorRed, models.ColorYellow, models.ColorGreen, models.ColorBlue}

// NewDeck builds the full 116-card deck: per colour one 0, two of each 1-9,
// and two each of skip/reverse/draw-two, plus four of each wild type.
func NewDeck() []models.Card {
	var deck []models.Card
	for _, color := range playColors {
		deck = append(deck, models.NumberCard(color, 0))
		for n := 1; n <= 9; n++ {
			deck = append(deck, models.NumberCard(color, n), models.NumberCard(color, n))
		}
		for _, s := range []models.Special{models.SpecialSkip, models.SpecialReverse, models.SpecialDrawTwo} {
			deck = append(deck, models.SpecialCard(color, s), models.SpecialCard(color, s))
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck,
			models.SpecialCard(models.ColorBlack, models.SpecialWild),
			models.SpecialCard(models.ColorBlack, models.SpecialWildDraw4),
			models.SpecialCard(models.ColorBlack, models.SpecialWildShuffle),
			models.SpecialCard(models.ColorWhite, models.SpecialWhiteWild),
		)
	}
	return deck
}

// shuffleCards shuffles in place with the given source, or a time-seeded one.
func shuffleCards(cards []models.Card, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
