package game

import (
	"uno-dealer/internal/models"
)

// Status tracks the lifecycle of a Desk.
type Status string

const (
	StatusNew      Status = "new"
	StatusStarting Status = "starting"
	StatusFinished Status = "finished"
)

// WhiteWildVariant selects the configured white-wild behavior.
type WhiteWildVariant string

const (
	WhiteWildBind2     WhiteWildVariant = "bind_2"
	WhiteWildSkipBind2 WhiteWildVariant = "skip_bind_2"
)

// Desk is the authoritative state record for one Dealer (match). It is the
// sole unit of mutation: every accepted action rewrites it in full under the
// Dealer's lock, then the new record is persisted to the keyed state store.
type Desk struct {
	DealerCode string           `json:"dealer"`
	Players    []string         `json:"players"` // seat order, 2-4 entries
	Status     Status           `json:"status"`
	WhiteWild  WhiteWildVariant `json:"white_wild"`

	DrawPile    []models.Card `json:"draw_pile"`
	DiscardPile []models.Card `json:"discard_pile"`

	TotalTurn      int `json:"total_turn"`
	Turn           int `json:"turn"`
	NumberTurnPlay int `json:"number_turn_play"`
	NumberCardPlay int `json:"number_card_play"`
	NoPlayCount    int `json:"no_play_count"`

	FirstPlayer  string `json:"first_player"`
	BeforePlayer string `json:"before_player"`
	NextPlayer   string `json:"next_player"`
	TurnRight    bool   `json:"turn_right"` // true = play proceeds in seat order

	Hands map[string][]models.Card `json:"cards_of_player"`

	// BeforeCardPlay mirrors the top of the discard pile, including any
	// colour chosen for a wild.
	BeforeCardPlay *models.Card `json:"before_card_play,omitempty"`

	// Pending-effect fields. At most one pending class is active at a time:
	// forced-draw, colour-choice, draw-then-play, or challenge (which rides
	// on a forced-draw from a wild-draw-four).
	IsSkip              bool         `json:"is_skip"`
	MustCallDrawCard    bool         `json:"must_call_draw_card"`
	CardAddOn           int          `json:"card_add_on"`
	CardBeforeWildDraw4 *models.Card `json:"card_before_wild_draw4,omitempty"`
	ColorBeforeWild     models.Color `json:"color_before_wild,omitempty"`
	DrawnCard           *models.Card `json:"drawn_card,omitempty"`
	CanPlayDrawnCard    bool         `json:"can_play_drawn_card"`
	WaitingColor        bool         `json:"waiting_color"`
	RestrictInterrupt   bool         `json:"restrict_interrupt"`

	ActivationWhiteWild map[string]int   `json:"activation_white_wild"`
	YellUno             map[string]bool  `json:"yell_uno"`
	Penalized           map[string]bool  `json:"penalized"`
	TimeoutPending      map[string]bool  `json:"timeout_pending"`
	SpecialLogicCount   map[string]int   `json:"special_logic_count"`
	Order               map[string]int   `json:"order"`
	Score               map[string]int   `json:"score"`
	RoundScores         map[string][]int `json:"round_scores"`
}

// NewDesk builds an empty Desk for the given seat order.
func NewDesk(code string, players []string, totalTurn int, variant WhiteWildVariant) *Desk {
	d := &Desk{
		DealerCode:          code,
		Players:             append([]string(nil), players...),
		Status:              StatusNew,
		WhiteWild:           variant,
		TotalTurn:           totalTurn,
		TurnRight:           true,
		Hands:               make(map[string][]models.Card),
		ActivationWhiteWild: make(map[string]int),
		YellUno:             make(map[string]bool),
		Penalized:           make(map[string]bool),
		TimeoutPending:      make(map[string]bool),
		SpecialLogicCount:   make(map[string]int),
		Order:               make(map[string]int),
		Score:               make(map[string]int),
		RoundScores:         make(map[string][]int),
	}
	for _, p := range players {
		d.Hands[p] = []models.Card{}
		d.RoundScores[p] = []int{}
	}
	return d
}

// Seated reports whether the player code occupies a seat on this Desk.
func (d *Desk) Seated(player string) bool {
	return d.seatIndex(player) >= 0
}

func (d *Desk) seatIndex(player string) int {
	for i, p := range d.Players {
		if p == player {
			return i
		}
	}
	return -1
}

// playerAfter returns the player the given number of seats past from, in the
// current direction of play.
func (d *Desk) playerAfter(from string, steps int) string {
	idx := d.seatIndex(from)
	if idx < 0 || len(d.Players) == 0 {
		return from
	}
	n := len(d.Players)
	if d.TurnRight {
		idx = (idx + steps) % n
	} else {
		idx = ((idx-steps)%n + n) % n
	}
	return d.Players[idx]
}

// TotalCards counts every card on the Desk: both piles plus all hands. The
// total is invariant for the life of a match.
func (d *Desk) TotalCards() int {
	total := len(d.DrawPile) + len(d.DiscardPile)
	for _, hand := range d.Hands {
		total += len(hand)
	}
	return total
}

// removeFromHand removes the first card equal to c from the player's hand.
// Returns false if the card is not held.
func (d *Desk) removeFromHand(player string, c models.Card) bool {
	hand := d.Hands[player]
	for i, held := range hand {
		if held.Equal(c) {
			d.Hands[player] = append(hand[:i:i], hand[i+1:]...)
			return true
		}
	}
	return false
}

// clearPending resets every pending-effect field. Every resolution path,
// including timeout defaults, must end up here or the match deadlocks.
func (d *Desk) clearPending() {
	d.MustCallDrawCard = false
	d.CardAddOn = 0
	d.CardBeforeWildDraw4 = nil
	d.DrawnCard = nil
	d.CanPlayDrawnCard = false
	d.WaitingColor = false
	d.RestrictInterrupt = false
}
