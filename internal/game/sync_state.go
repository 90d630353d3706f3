package game

import (
	"uno-dealer/internal/models"
)

// PlayerView is one seat's state from the perspective of a requesting player:
// only their own hand is revealed, everyone else is a count.
type PlayerView struct {
	Player        string        `json:"player"`
	HandSize      int           `json:"hand_size"`
	Hand          []models.Card `json:"hand,omitempty"` // only for self
	YellUno       bool          `json:"yell_uno"`
	Score         int           `json:"score"`
	Order         int           `json:"order"`
	BoundTurns    int           `json:"bound_turns"`
	IsCurrentTurn bool          `json:"is_current_turn"`
}

// DeskView is the obfuscated Desk snapshot sent on connect/reconnect and
// after table-wide changes.
type DeskView struct {
	Dealer           string       `json:"dealer"`
	Status           Status       `json:"status"`
	Turn             int          `json:"turn"`
	TotalTurn        int          `json:"total_turn"`
	NextPlayer       string       `json:"next_player"`
	TurnRight        bool         `json:"turn_right"`
	DrawPileSize     int          `json:"draw_pile_size"`
	DiscardPileSize  int          `json:"discard_pile_size"`
	BeforeCardPlay   *models.Card `json:"before_card_play,omitempty"`
	MustCallDrawCard bool         `json:"must_call_draw_card"`
	CardAddOn        int          `json:"card_add_on"`
	WaitingColor     bool         `json:"waiting_color"`
	NoPlayCount      int          `json:"no_play_count"`
	Players          []PlayerView `json:"players"`
}

// ViewFor builds the snapshot of the Desk for the requesting player.
// Assumes lock is held.
func (d *Dealer) ViewFor(player string) DeskView {
	desk := d.Desk
	view := DeskView{
		Dealer:           desk.DealerCode,
		Status:           desk.Status,
		Turn:             desk.Turn,
		TotalTurn:        desk.TotalTurn,
		NextPlayer:       desk.NextPlayer,
		TurnRight:        desk.TurnRight,
		DrawPileSize:     len(desk.DrawPile),
		DiscardPileSize:  len(desk.DiscardPile),
		BeforeCardPlay:   desk.BeforeCardPlay,
		MustCallDrawCard: desk.MustCallDrawCard,
		CardAddOn:        desk.CardAddOn,
		WaitingColor:     desk.WaitingColor,
		NoPlayCount:      desk.NoPlayCount,
	}
	for _, p := range desk.Players {
		pv := PlayerView{
			Player:        p,
			HandSize:      len(desk.Hands[p]),
			YellUno:       desk.YellUno[p],
			Score:         desk.Score[p],
			Order:         desk.Order[p],
			BoundTurns:    desk.ActivationWhiteWild[p],
			IsCurrentTurn: desk.NextPlayer == p,
		}
		if p == player {
			pv.Hand = append([]models.Card(nil), desk.Hands[p]...)
		}
		view.Players = append(view.Players, pv)
	}
	return view
}

// SendSyncState sends the obfuscated Desk view to a specific player.
// Assumes lock is held.
func (d *Dealer) SendSyncState(player string) {
	view := d.ViewFor(player)
	d.fireEventToPlayer(player, Event{Type: EventPrivateSyncState, State: &view})
}

// syncAllPlayers sends a fresh snapshot to every seat, e.g. after a deal or
// a hand shuffle. Assumes lock is held.
func (d *Dealer) syncAllPlayers() {
	for _, p := range d.Desk.Players {
		d.SendSyncState(p)
	}
}
