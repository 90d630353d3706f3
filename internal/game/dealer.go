package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"uno-dealer/internal/models"
)

// OnMatchEndFunc handles a finished match, persisting results, notifying
// the admin surface, etc.
type OnMatchEndFunc func(dealerCode string, winner string, scores map[string]int)

// TieBreaker orders two players with equal accumulated scores. A positive
// result ranks a ahead of b. The exact ordering is configurable; see
// CompareRecentRounds for the default.
type TieBreaker func(d *Desk, a, b string) int

// Config holds the orchestration tunables for one Dealer.
type Config struct {
	TurnTimeout     time.Duration // window for the current player's action
	WindowTimeout   time.Duration // shorter window for colour-choice and draw-then-play
	TotalTurn       int           // rounds per match
	HandCap         int           // hard upper bound on hand size
	PenaltyCount    int           // cards drawn on a rule violation
	NoPlayReshuffle int           // consecutive no-play draws before a full redeal
	DrawChainStacks bool          // forced-draw chains accumulate (true) or reset per card
	WhiteWild       WhiteWildVariant
}

// DefaultConfig mirrors the standard table settings.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:     15 * time.Second,
		WindowTimeout:   5 * time.Second,
		TotalTurn:       10,
		HandCap:         25,
		PenaltyCount:    2,
		NoPlayReshuffle: 40,
		DrawChainStacks: true,
		WhiteWild:       WhiteWildBind2,
	}
}

// timer window kinds, used to route a fired window timer to its default.
type windowKind int

const (
	windowColor windowKind = iota
	windowDrawPlay
)

// Dealer drives one match: it owns the Desk, validates and applies every
// inbound action under its lock, and schedules the timers that keep exactly
// one player's action valid at any instant.
type Dealer struct {
	Code string
	Desk *Desk
	Cfg  Config

	Mu  sync.Mutex
	rng *rand.Rand

	turnTimer   *time.Timer
	windowTimer *time.Timer
	turnSeq     int // increments on every turn change; stale timers check it

	// BroadcastFn sends an event to all seated players. If nil, no broadcast
	// is done.
	BroadcastFn func(ev Event)

	// BroadcastToPlayerFn sends an event to a single player identity.
	BroadcastToPlayerFn func(player string, ev Event)

	// OnDeskChange persists the Desk after every accepted action.
	OnDeskChange func(d *Desk)

	// OnMatchEnd is invoked once when the match finishes.
	OnMatchEnd OnMatchEndFunc

	// TieBreak resolves equal accumulated scores. Defaults to
	// CompareRecentRounds when nil.
	TieBreak TieBreaker
}

// NewDealer builds a Dealer for the given seat order. The match is not
// started until StartMatch is called.
func NewDealer(code string, players []string, cfg Config) *Dealer {
	return &Dealer{
		Code: code,
		Desk: NewDesk(code, players, cfg.TotalTurn, cfg.WhiteWild),
		Cfg:  cfg,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartMatch deals the first round and opens play. Requires 2-4 seated
// players.
func (d *Dealer) StartMatch() *Error {
	d.Mu.Lock()
	defer d.Mu.Unlock()

	if d.Desk.Status != StatusNew {
		return validationError("dealer %s already started", d.Code)
	}
	if n := len(d.Desk.Players); n < 2 || n > 4 {
		return validationError("dealer %s needs 2-4 players, has %d", d.Code, n)
	}

	d.Desk.Status = StatusStarting
	d.Desk.Turn = 1
	log.Printf("Dealer %s: match started with %d players.", d.Code, len(d.Desk.Players))
	d.fireEvent(Event{Type: EventMatchStarted, Payload: map[string]interface{}{
		"players":    d.Desk.Players,
		"total_turn": d.Desk.TotalTurn,
	}})
	d.startRound()
	return nil
}

// startRound shuffles a fresh deck, deals 7 cards to every seat, flips the
// initial discard top, and hands the turn to the round's first player.
// Assumes lock is held.
func (d *Dealer) startRound() {
	desk := d.Desk

	deck := NewDeck()
	shuffleCards(deck, d.rng)
	desk.DrawPile = deck
	desk.DiscardPile = nil
	desk.BeforeCardPlay = nil

	for _, p := range desk.Players {
		desk.Hands[p] = []models.Card{}
	}
	for i := 0; i < 7; i++ {
		for _, p := range desk.Players {
			if len(desk.DrawPile) == 0 {
				break
			}
			desk.Hands[p] = append(desk.Hands[p], desk.DrawPile[0])
			desk.DrawPile = desk.DrawPile[1:]
		}
	}

	d.flipInitialTop()

	desk.TurnRight = true
	desk.IsSkip = false
	desk.NumberTurnPlay = 0
	desk.NumberCardPlay = 0
	desk.NoPlayCount = 0
	desk.clearPending()
	for _, p := range desk.Players {
		desk.YellUno[p] = false
		desk.Penalized[p] = false
		desk.TimeoutPending[p] = false
		desk.ActivationWhiteWild[p] = 0
	}

	first := desk.Players[(desk.Turn-1)%len(desk.Players)]
	desk.FirstPlayer = first
	desk.BeforePlayer = ""
	desk.NextPlayer = first
	desk.Order[first]++
	desk.NumberTurnPlay++

	log.Printf("Dealer %s: round %d dealt, first player %s, top card %v.", d.Code, desk.Turn, first, desk.BeforeCardPlay)
	d.syncAllPlayers()
	d.fireEvent(Event{Type: EventNextPlayer, Player: first, Payload: map[string]interface{}{
		"turn": desk.Turn,
	}})
	d.scheduleTurnTimer()
	d.persist()
}

// flipInitialTop draws the opening discard card, re-drawing while it is a
// black special. Assumes lock is held.
func (d *Dealer) flipInitialTop() {
	desk := d.Desk
	for {
		if len(desk.DrawPile) == 0 {
			return
		}
		top := desk.DrawPile[0]
		desk.DrawPile = desk.DrawPile[1:]
		if top.Color == models.ColorBlack {
			// Put it back and reshuffle rather than burying it.
			desk.DrawPile = append(desk.DrawPile, top)
			shuffleCards(desk.DrawPile, d.rng)
			continue
		}
		desk.DiscardPile = append(desk.DiscardPile, top)
		topCopy := top
		desk.BeforeCardPlay = &topCopy
		return
	}
}

// drawCards moves up to n cards from the draw pile into the player's hand,
// reshuffling the discard pile (minus its top card) when the pile empties.
// Additions past the hand cap are silently not granted. Hand growth clears
// the player's UNO declaration. Returns the number actually granted.
// Assumes lock is held.
func (d *Dealer) drawCards(player string, n int) int {
	desk := d.Desk
	granted := 0
	for i := 0; i < n; i++ {
		if len(desk.Hands[player]) >= d.Cfg.HandCap {
			break
		}
		if len(desk.DrawPile) == 0 {
			d.reshuffleDiscard()
			if len(desk.DrawPile) == 0 {
				break
			}
		}
		card := desk.DrawPile[0]
		desk.DrawPile = desk.DrawPile[1:]
		desk.Hands[player] = append(desk.Hands[player], card)
		granted++
	}
	if granted > 0 {
		desk.YellUno[player] = false
	}
	return granted
}

// reshuffleDiscard folds every discard except the top card back into the
// draw pile. Assumes lock is held.
func (d *Dealer) reshuffleDiscard() {
	desk := d.Desk
	if len(desk.DiscardPile) <= 1 {
		return
	}
	top := desk.DiscardPile[len(desk.DiscardPile)-1]
	desk.DrawPile = append(desk.DrawPile, desk.DiscardPile[:len(desk.DiscardPile)-1]...)
	desk.DiscardPile = []models.Card{top}
	shuffleCards(desk.DrawPile, d.rng)
	log.Printf("Dealer %s: reshuffled discard pile into draw pile, %d cards.", d.Code, len(desk.DrawPile))
}

// redealAll gathers every card on the table, reshuffles, and deals fresh
// 7-card hands: the anti-stalemate valve after too many no-play draws.
// Assumes lock is held.
func (d *Dealer) redealAll() {
	desk := d.Desk

	var all []models.Card
	all = append(all, desk.DrawPile...)
	all = append(all, desk.DiscardPile...)
	for _, p := range desk.Players {
		all = append(all, desk.Hands[p]...)
		desk.Hands[p] = []models.Card{}
	}
	shuffleCards(all, d.rng)
	desk.DrawPile = all
	desk.DiscardPile = nil
	desk.BeforeCardPlay = nil

	for i := 0; i < 7; i++ {
		for _, p := range desk.Players {
			if len(desk.DrawPile) == 0 {
				break
			}
			desk.Hands[p] = append(desk.Hands[p], desk.DrawPile[0])
			desk.DrawPile = desk.DrawPile[1:]
		}
	}
	d.flipInitialTop()

	desk.NoPlayCount = 0
	desk.clearPending()
	for _, p := range desk.Players {
		desk.YellUno[p] = false
	}

	log.Printf("Dealer %s: no-play threshold reached, all hands redealt.", d.Code)
	d.fireEvent(Event{Type: EventHandsRedealt})
	d.syncAllPlayers()
}

// noPlay records a turn that ended without a card played and triggers the
// redeal valve at the configured threshold. Assumes lock is held.
func (d *Dealer) noPlay() {
	d.Desk.NoPlayCount++
	if d.Desk.NoPlayCount >= d.Cfg.NoPlayReshuffle {
		d.redealAll()
	}
}

// advanceTurn moves the turn pointer by one seat in the current direction,
// two if a skip is pending, consuming white-wild bindings along the way.
// Assumes lock is held.
func (d *Dealer) advanceTurn() {
	desk := d.Desk
	if desk.Status != StatusStarting {
		return
	}

	d.turnSeq++
	steps := 1
	if desk.IsSkip {
		steps = 2
		desk.IsSkip = false
	}
	desk.BeforePlayer = desk.NextPlayer
	next := desk.playerAfter(desk.NextPlayer, steps)

	// Bound players lose their turn automatically, drawing one card.
	for guard := 0; desk.ActivationWhiteWild[next] > 0 && guard < len(desk.Players)*2; guard++ {
		desk.ActivationWhiteWild[next]--
		drew := d.drawCards(next, 1)
		log.Printf("Dealer %s: player %s bound by white wild, turn skipped (%d left).", d.Code, next, desk.ActivationWhiteWild[next])
		d.fireEvent(Event{Type: EventBoundTurnSkipped, Player: next, Payload: map[string]interface{}{
			"remaining": desk.ActivationWhiteWild[next],
			"drew":      drew,
		}})
		next = desk.playerAfter(next, 1)
	}

	desk.NextPlayer = next
	desk.DrawnCard = nil
	desk.CanPlayDrawnCard = false
	for _, p := range desk.Players {
		desk.Penalized[p] = false
	}
	desk.Order[next]++
	desk.NumberTurnPlay++

	d.fireEvent(Event{Type: EventNextPlayer, Player: next, Payload: map[string]interface{}{
		"turn": desk.Turn,
	}})
	d.scheduleTurnTimer()
	d.persist()
}

// scheduleTurnTimer arms the one-shot turn timer for the current player.
// A fired timer re-checks the turn sequence so a stale fire is a no-op.
// Assumes lock is held.
func (d *Dealer) scheduleTurnTimer() {
	if d.Cfg.TurnTimeout <= 0 {
		return
	}
	if d.turnTimer != nil {
		d.turnTimer.Stop()
	}
	seq := d.turnSeq
	player := d.Desk.NextPlayer
	d.turnTimer = time.AfterFunc(d.Cfg.TurnTimeout, func() {
		d.Mu.Lock()
		defer d.Mu.Unlock()
		if d.Desk.Status != StatusStarting || d.turnSeq != seq || d.Desk.NextPlayer != player {
			return
		}
		d.handleTurnTimeout(player)
	})
}

// scheduleWindowTimer arms the shorter one-shot timer for a colour-choice
// or draw-then-play window. Assumes lock is held.
func (d *Dealer) scheduleWindowTimer(kind windowKind) {
	if d.Cfg.WindowTimeout <= 0 {
		return
	}
	if d.windowTimer != nil {
		d.windowTimer.Stop()
	}
	seq := d.turnSeq
	player := d.Desk.NextPlayer
	d.windowTimer = time.AfterFunc(d.Cfg.WindowTimeout, func() {
		d.Mu.Lock()
		defer d.Mu.Unlock()
		if d.Desk.Status != StatusStarting || d.turnSeq != seq || d.Desk.NextPlayer != player {
			return
		}
		d.handleWindowTimeout(kind, player)
	})
}

// cancelWindowTimer invalidates a pending window timer. Assumes lock is held.
func (d *Dealer) cancelWindowTimer() {
	if d.windowTimer != nil {
		d.windowTimer.Stop()
		d.windowTimer = nil
	}
}

// handleTurnTimeout applies the default action for a player whose turn timer
// elapsed: resolve whatever is pending, else draw on their behalf.
// Assumes lock is held.
func (d *Dealer) handleTurnTimeout(player string) {
	desk := d.Desk
	desk.TimeoutPending[player] = true
	log.Printf("Dealer %s: player %s timed out.", d.Code, player)

	switch {
	case desk.CanPlayDrawnCard:
		// Keep the drawn card; the turn passes.
		desk.DrawnCard = nil
		desk.CanPlayDrawnCard = false
		desk.RestrictInterrupt = false
		d.cancelWindowTimer()
		d.noPlay()
		d.advanceTurn()
	case desk.WaitingColor:
		d.revertWildColor(player)
	case desk.MustCallDrawCard:
		d.resolveForcedDraw(player)
	default:
		granted := d.drawCards(player, 1)
		d.fireEvent(Event{Type: EventCardDrawn, Player: player, Payload: map[string]interface{}{
			"count":   granted,
			"timeout": true,
		}})
		d.noPlay()
		d.advanceTurn()
	}
}

// handleWindowTimeout applies the default for an elapsed colour-choice or
// draw-then-play window. Assumes lock is held.
func (d *Dealer) handleWindowTimeout(kind windowKind, player string) {
	desk := d.Desk
	switch kind {
	case windowColor:
		if !desk.WaitingColor {
			return
		}
		desk.TimeoutPending[player] = true
		d.revertWildColor(player)
	case windowDrawPlay:
		if !desk.CanPlayDrawnCard {
			return
		}
		desk.TimeoutPending[player] = true
		desk.DrawnCard = nil
		desk.CanPlayDrawnCard = false
		desk.RestrictInterrupt = false
		d.noPlay()
		d.advanceTurn()
	}
}

// revertWildColor restores the discard top to the colour recorded before the
// wild was played, then lets the turn proceed. Assumes lock is held.
func (d *Dealer) revertWildColor(player string) {
	desk := d.Desk
	d.setTopColor(desk.ColorBeforeWild)
	desk.WaitingColor = false
	desk.RestrictInterrupt = false
	d.cancelWindowTimer()
	log.Printf("Dealer %s: colour choice timed out for %s, top reverted to %s.", d.Code, player, desk.ColorBeforeWild)
	d.fireEvent(Event{Type: EventColorReverted, Player: player, Payload: map[string]interface{}{
		"color": desk.ColorBeforeWild,
	}})
	d.advanceTurn()
}

// resolveForcedDraw makes the player draw the full pending amount and ends
// their turn. Assumes lock is held.
func (d *Dealer) resolveForcedDraw(player string) {
	desk := d.Desk
	count := desk.CardAddOn
	granted := d.drawCards(player, count)
	desk.MustCallDrawCard = false
	desk.CardAddOn = 0
	desk.CardBeforeWildDraw4 = nil
	d.fireEvent(Event{Type: EventCardDrawn, Player: player, Payload: map[string]interface{}{
		"count":  granted,
		"forced": true,
	}})
	d.noPlay()
	d.advanceTurn()
}

// setTopColor recolours the discard top (used for wild colour choices and
// reverts). Assumes lock is held.
func (d *Dealer) setTopColor(color models.Color) {
	desk := d.Desk
	if desk.BeforeCardPlay != nil {
		desk.BeforeCardPlay.Color = color
	}
	if len(desk.DiscardPile) > 0 {
		desk.DiscardPile[len(desk.DiscardPile)-1].Color = color
	}
}

// applyPenalty draws penalty cards for the offender without touching the
// turn pointer. Assumes lock is held.
func (d *Dealer) applyPenalty(player string, count int, reason string) {
	granted := d.drawCards(player, count)
	log.Printf("Dealer %s: penalty %d card(s) for %s (%s).", d.Code, granted, player, reason)
	d.fireEvent(Event{Type: EventPenalty, Player: player, Payload: map[string]interface{}{
		"count":  granted,
		"reason": reason,
	}})
	d.persist()
}

// fireEvent broadcasts an event to all seated players. Assumes lock is held.
func (d *Dealer) fireEvent(ev Event) {
	if d.BroadcastFn != nil {
		d.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event only to a specific player. Assumes lock
// is held.
func (d *Dealer) fireEventToPlayer(player string, ev Event) {
	if d.BroadcastToPlayerFn != nil {
		d.BroadcastToPlayerFn(player, ev)
	}
}

// persist hands the Desk to the configured store hook. Assumes lock is held.
func (d *Dealer) persist() {
	if d.OnDeskChange != nil {
		d.OnDeskChange(d.Desk)
	}
}

// Stop cancels all timers, e.g. on administrative teardown.
func (d *Dealer) Stop() {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	if d.turnTimer != nil {
		d.turnTimer.Stop()
		d.turnTimer = nil
	}
	d.cancelWindowTimer()
}
