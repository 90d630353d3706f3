package models

import "fmt"

// Color is the printed colour of a card. Black and white only ever appear
// on wild-type cards until a colour is chosen for them.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"
)

// IsChoosable reports whether the colour is one a player may declare for a wild.
func (c Color) IsChoosable() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorBlue:
		return true
	}
	return false
}

// Special identifies an action card. The zero value means a number card.
type Special string

const (
	SpecialSkip        Special = "skip"
	SpecialReverse     Special = "reverse"
	SpecialDrawTwo     Special = "draw_two"
	SpecialWild        Special = "wild"
	SpecialWildDraw4   Special = "wild_draw_four"
	SpecialWildShuffle Special = "wild_shuffle"
	SpecialWhiteWild   Special = "white_wild"
)

// Card is a single UNO card. Exactly one of Number/Special is meaningful.
type Card struct {
	Color   Color   `json:"color"`
	Number  *int    `json:"number,omitempty"`
	Special Special `json:"special,omitempty"`
}

// NumberCard builds a numbered card.
func NumberCard(color Color, n int) Card {
	num := n
	return Card{Color: color, Number: &num}
}

// SpecialCard builds an action card.
func SpecialCard(color Color, s Special) Card {
	return Card{Color: color, Special: s}
}

// IsWildType reports whether the card may be played regardless of the table.
func (c Card) IsWildType() bool {
	switch c.Special {
	case SpecialWild, SpecialWildDraw4, SpecialWildShuffle, SpecialWhiteWild:
		return true
	}
	return false
}

// Equal compares colour, number and special value.
func (c Card) Equal(o Card) bool {
	if c.Color != o.Color || c.Special != o.Special {
		return false
	}
	if (c.Number == nil) != (o.Number == nil) {
		return false
	}
	if c.Number != nil && *c.Number != *o.Number {
		return false
	}
	return true
}

func (c Card) String() string {
	if c.Special != "" {
		return fmt.Sprintf("%s %s", c.Color, c.Special)
	}
	if c.Number != nil {
		return fmt.Sprintf("%s %d", c.Color, *c.Number)
	}
	return string(c.Color)
}
