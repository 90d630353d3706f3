package game

import "uno-dealer/internal/models"

// IsLegalPlay reports whether candidate may be placed on top of the table card.
// Wild-type cards are always legal; otherwise the candidate must match the top
// card's colour, special value, or number.
func IsLegalPlay(candidate, top models.Card) bool {
	if candidate.IsWildType() {
		return true
	}
	if candidate.Color == top.Color {
		return true
	}
	if candidate.Special != "" && candidate.Special == top.Special {
		return true
	}
	if candidate.Number != nil && top.Number != nil && *candidate.Number == *top.Number {
		return true
	}
	return false
}

// Effect is the structural consequence of a card play, applied by the Dealer.
type Effect struct {
	Skip         bool
	Reverse      bool
	Draw         int
	ChooseColor  bool
	ShuffleHands bool
	WhiteWild    bool
}

// EffectOf returns the effect a card has when played. Number cards have none.
func EffectOf(c models.Card) Effect {
	switch c.Special {
	case models.SpecialSkip:
		return Effect{Skip: true}
	case models.SpecialReverse:
		return Effect{Reverse: true}
	case models.SpecialDrawTwo:
		return Effect{Draw: 2}
	case models.SpecialWild:
		return Effect{ChooseColor: true}
	case models.SpecialWildDraw4:
		return Effect{Draw: 4, ChooseColor: true}
	case models.SpecialWildShuffle:
		return Effect{ShuffleHands: true, ChooseColor: true}
	case models.SpecialWhiteWild:
		return Effect{WhiteWild: true}
	}
	return Effect{}
}

// ScoreOf returns the point value of a card for round scoring.
func ScoreOf(c models.Card) int {
	switch c.Special {
	case models.SpecialSkip, models.SpecialReverse, models.SpecialDrawTwo:
		return 20
	case models.SpecialWild, models.SpecialWildDraw4:
		return 50
	case models.SpecialWildShuffle, models.SpecialWhiteWild:
		return 40
	}
	if c.Number != nil {
		return *c.Number
	}
	return 0
}

// CanChainDraw reports whether candidate extends a pending forced-draw chain:
// a draw-two on a draw-two, or a wild-draw-four on a wild-draw-four.
func CanChainDraw(candidate, pending models.Card) bool {
	switch pending.Special {
	case models.SpecialDrawTwo, models.SpecialWildDraw4:
		return candidate.Special == pending.Special
	}
	return false
}
