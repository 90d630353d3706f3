package game

import (
	"log"

	"uno-dealer/internal/models"
)

// maxSpecialLogicTitle and maxSpecialLogicCount cap the named extension hook.
const (
	maxSpecialLogicTitle = 32
	maxSpecialLogicCount = 10
)

// validateCard checks structural validity of a card received off the wire.
func validateCard(c models.Card) *Error {
	if (c.Number == nil) == (c.Special == "") {
		return validationError("card must carry exactly one of number/special")
	}
	if c.Number != nil && (*c.Number < 0 || *c.Number > 9) {
		return validationError("card number %d out of range", *c.Number)
	}
	switch c.Color {
	case models.ColorRed, models.ColorYellow, models.ColorGreen, models.ColorBlue,
		models.ColorBlack, models.ColorWhite:
	default:
		return validationError("unknown card color %q", c.Color)
	}
	return nil
}

// guardAction runs the checks shared by every turn-bound transition. Assumes
// lock is held.
func (d *Dealer) guardAction(player string) *Error {
	desk := d.Desk
	if desk.Status != StatusStarting {
		return turnOrderError("match is not in progress")
	}
	if !desk.Seated(player) {
		return validationError("player %q is not seated at this dealer", player)
	}
	return nil
}

// HandlePlayCard validates and applies a play_card action. Assumes lock is
// held by the caller.
func (d *Dealer) HandlePlayCard(player string, card models.Card, yellUno bool, chosen models.Color) *Error {
	desk := d.Desk
	if err := d.guardAction(player); err != nil {
		return err
	}
	if err := validateCard(card); err != nil {
		return err
	}
	if desk.RestrictInterrupt {
		return turnOrderError("a pending effect must be resolved first")
	}
	if desk.NextPlayer != player {
		return turnOrderError("it is not your turn")
	}
	desk.TimeoutPending[player] = false

	if !handContains(desk.Hands[player], card) {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "card not in hand")
		return ruleViolation("card %v is not in your hand", card)
	}
	if desk.MustCallDrawCard {
		if desk.BeforeCardPlay == nil || !CanChainDraw(card, *desk.BeforeCardPlay) {
			d.applyPenalty(player, d.Cfg.PenaltyCount, "forced draw pending")
			return ruleViolation("you must draw %d cards or extend the chain", desk.CardAddOn)
		}
	} else if desk.BeforeCardPlay != nil && !IsLegalPlay(card, *desk.BeforeCardPlay) {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "illegal card")
		return ruleViolation("card %v cannot be played on %v", card, *desk.BeforeCardPlay)
	}
	if err := d.checkUnoDeclaration(player, len(desk.Hands[player])-1, yellUno); err != nil {
		return err
	}

	d.playAccepted(player, card, yellUno, chosen)
	return nil
}

// checkUnoDeclaration enforces the declaration rule for a play that would
// leave the hand at the given size. Assumes lock is held.
func (d *Dealer) checkUnoDeclaration(player string, resulting int, yellUno bool) *Error {
	if resulting == 1 && !yellUno {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "uno not declared")
		return ruleViolation("playing down to one card requires an UNO declaration")
	}
	if yellUno && resulting != 1 {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "false uno declaration")
		return ruleViolation("UNO declared with %d cards remaining", resulting)
	}
	return nil
}

// playAccepted applies an already-validated card play: mutates the piles,
// applies the card's effect, and advances or holds the turn. Assumes lock is
// held.
func (d *Dealer) playAccepted(player string, card models.Card, yellUno bool, chosen models.Color) {
	desk := d.Desk

	chaining := desk.MustCallDrawCard
	var prevTop models.Card
	if desk.BeforeCardPlay != nil {
		prevTop = *desk.BeforeCardPlay
	}

	desk.removeFromHand(player, card)
	desk.DiscardPile = append(desk.DiscardPile, card)
	topCopy := card
	desk.BeforeCardPlay = &topCopy
	desk.NumberCardPlay++
	desk.NoPlayCount = 0
	desk.YellUno[player] = yellUno
	desk.DrawnCard = nil
	desk.CanPlayDrawnCard = false

	d.fireEvent(Event{Type: EventCardPlayed, Player: player, Card: &topCopy, Payload: map[string]interface{}{
		"yell_uno":  yellUno,
		"hand_size": len(desk.Hands[player]),
	}})

	if len(desk.Hands[player]) == 0 {
		d.finishRound(player)
		return
	}

	eff := EffectOf(card)
	if eff.Reverse {
		desk.TurnRight = !desk.TurnRight
		if len(desk.Players) == 2 {
			// With two seats a reverse acts as a skip.
			desk.IsSkip = true
		}
	}
	if eff.Skip {
		desk.IsSkip = true
	}
	if eff.Draw > 0 {
		desk.MustCallDrawCard = true
		if chaining && d.Cfg.DrawChainStacks {
			desk.CardAddOn += eff.Draw
		} else {
			desk.CardAddOn = eff.Draw
		}
		if card.Special == models.SpecialWildDraw4 {
			snap := prevTop
			desk.CardBeforeWildDraw4 = &snap
		}
	}
	if eff.ShuffleHands {
		d.shuffleAllHands(player)
	}
	if eff.WhiteWild {
		d.applyWhiteWild(player)
	}
	if eff.ChooseColor {
		desk.ColorBeforeWild = prevTop.Color
		if chosen.IsChoosable() {
			d.setTopColor(chosen)
			d.fireEvent(Event{Type: EventColorChosen, Player: player, Payload: map[string]interface{}{
				"color": chosen,
			}})
		} else {
			desk.WaitingColor = true
			desk.RestrictInterrupt = true
			if d.turnTimer != nil {
				d.turnTimer.Stop()
			}
			d.scheduleWindowTimer(windowColor)
			d.persist()
			return // turn advances once the colour is resolved
		}
	}

	d.advanceTurn()
}

// shuffleAllHands gathers every hand, shuffles, and redistributes starting
// one seat past the player who played the shuffle wild. Assumes lock is held.
func (d *Dealer) shuffleAllHands(player string) {
	desk := d.Desk
	var pool []models.Card
	for _, p := range desk.Players {
		pool = append(pool, desk.Hands[p]...)
		desk.Hands[p] = []models.Card{}
		desk.YellUno[p] = false
	}
	shuffleCards(pool, d.rng)

	receiver := desk.playerAfter(player, 1)
	for _, c := range pool {
		for len(desk.Hands[receiver]) >= d.Cfg.HandCap {
			receiver = desk.playerAfter(receiver, 1)
		}
		desk.Hands[receiver] = append(desk.Hands[receiver], c)
		receiver = desk.playerAfter(receiver, 1)
	}

	counts := make(map[string]int, len(desk.Players))
	for _, p := range desk.Players {
		counts[p] = len(desk.Hands[p])
	}
	log.Printf("Dealer %s: shuffle wild played by %s, hands redistributed.", d.Code, player)
	d.fireEvent(Event{Type: EventShuffleWild, Player: player, Payload: map[string]interface{}{
		"hand_sizes": counts,
	}})
	d.syncAllPlayers()
}

// applyWhiteWild binds the next player for two of their coming turns, per
// the configured variant. Assumes lock is held.
func (d *Dealer) applyWhiteWild(player string) {
	desk := d.Desk
	target := desk.playerAfter(player, 1)
	desk.ActivationWhiteWild[target] += 2
	if desk.WhiteWild == WhiteWildSkipBind2 {
		desk.IsSkip = true
	}
	d.fireEvent(Event{Type: EventWhiteWildBound, Player: target, Payload: map[string]interface{}{
		"variant":   desk.WhiteWild,
		"remaining": desk.ActivationWhiteWild[target],
	}})
}

// HandleDrawCard validates and applies a draw_card action: it resolves a
// pending forced draw, or draws a single card and opens the draw-then-play
// window when the card is playable. Assumes lock is held.
func (d *Dealer) HandleDrawCard(player string) *Error {
	desk := d.Desk
	if err := d.guardAction(player); err != nil {
		return err
	}
	if desk.RestrictInterrupt {
		return turnOrderError("a pending effect must be resolved first")
	}
	if desk.NextPlayer != player {
		return turnOrderError("it is not your turn")
	}
	desk.TimeoutPending[player] = false

	if desk.MustCallDrawCard {
		d.resolveForcedDraw(player)
		return nil
	}

	granted := d.drawCards(player, 1)
	if granted == 0 {
		d.fireEvent(Event{Type: EventCardDrawn, Player: player, Payload: map[string]interface{}{"count": 0}})
		d.noPlay()
		d.advanceTurn()
		return nil
	}

	drawn := desk.Hands[player][len(desk.Hands[player])-1]
	drawnCopy := drawn
	desk.DrawnCard = &drawnCopy
	desk.CanPlayDrawnCard = desk.BeforeCardPlay != nil && IsLegalPlay(drawn, *desk.BeforeCardPlay)

	d.fireEvent(Event{Type: EventCardDrawn, Player: player, Payload: map[string]interface{}{"count": granted}})
	d.fireEventToPlayer(player, Event{Type: EventPrivateCardDrawn, Card: &drawnCopy, Payload: map[string]interface{}{
		"playable": desk.CanPlayDrawnCard,
	}})

	if desk.CanPlayDrawnCard {
		desk.RestrictInterrupt = true
		if d.turnTimer != nil {
			d.turnTimer.Stop()
		}
		d.scheduleWindowTimer(windowDrawPlay)
		d.persist()
		return nil
	}

	d.noPlay()
	d.advanceTurn()
	return nil
}

// HandlePlayDrawCard resolves the draw-then-play window: play the drawn card
// or keep it and pass. Assumes lock is held.
func (d *Dealer) HandlePlayDrawCard(player string, isPlay, yellUno bool, chosen models.Color) *Error {
	desk := d.Desk
	if err := d.guardAction(player); err != nil {
		return err
	}
	if desk.WaitingColor {
		return turnOrderError("a colour choice is pending")
	}
	if desk.DrawnCard == nil || !desk.CanPlayDrawnCard {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "no drawn card pending")
		return ruleViolation("there is no drawn card to decide on")
	}
	if desk.NextPlayer != player {
		return turnOrderError("it is not your turn")
	}
	desk.TimeoutPending[player] = false

	card := *desk.DrawnCard

	if !isPlay {
		if yellUno {
			// Declaring while keeping the card can never leave one card.
			d.applyPenalty(player, d.Cfg.PenaltyCount, "false uno declaration")
			return ruleViolation("UNO declared without playing a card")
		}
		desk.DrawnCard = nil
		desk.CanPlayDrawnCard = false
		desk.RestrictInterrupt = false
		d.cancelWindowTimer()
		d.fireEvent(Event{Type: EventPlayDrawnCard, Player: player, Payload: map[string]interface{}{
			"is_play_card": false,
		}})
		d.noPlay()
		d.advanceTurn()
		return nil
	}

	// The window stays open on a rejected declaration.
	if err := d.checkUnoDeclaration(player, len(desk.Hands[player])-1, yellUno); err != nil {
		return err
	}

	desk.RestrictInterrupt = false
	d.cancelWindowTimer()
	d.fireEvent(Event{Type: EventPlayDrawnCard, Player: player, Payload: map[string]interface{}{
		"is_play_card": true,
	}})
	d.playAccepted(player, card, yellUno, chosen)
	return nil
}

// HandleColorOfWild resolves a pending colour choice. Assumes lock is held.
func (d *Dealer) HandleColorOfWild(player string, color models.Color) *Error {
	desk := d.Desk
	if err := d.guardAction(player); err != nil {
		return err
	}
	if !desk.WaitingColor {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "no colour choice pending")
		return ruleViolation("no wild is awaiting a colour")
	}
	if desk.NextPlayer != player {
		return turnOrderError("it is not your turn")
	}
	if !color.IsChoosable() {
		return validationError("color %q cannot be chosen for a wild", color)
	}
	desk.TimeoutPending[player] = false

	d.setTopColor(color)
	desk.WaitingColor = false
	desk.RestrictInterrupt = false
	d.cancelWindowTimer()
	d.fireEvent(Event{Type: EventColorChosen, Player: player, Payload: map[string]interface{}{
		"color": color,
	}})
	d.advanceTurn()
	return nil
}

// HandleChallenge resolves the challenge decision on a pending
// wild-draw-four. Declining simply resolves the forced draw. Assumes lock is
// held.
func (d *Dealer) HandleChallenge(player string, isChallenge bool) *Error {
	desk := d.Desk
	if err := d.guardAction(player); err != nil {
		return err
	}
	if desk.RestrictInterrupt {
		return turnOrderError("a pending effect must be resolved first")
	}
	if !desk.MustCallDrawCard || desk.CardBeforeWildDraw4 == nil {
		d.applyPenalty(player, d.Cfg.PenaltyCount, "no challengeable play")
		return ruleViolation("there is no wild-draw-four to challenge")
	}
	if desk.NextPlayer != player {
		return turnOrderError("it is not your turn")
	}
	desk.TimeoutPending[player] = false

	if !isChallenge {
		d.fireEvent(Event{Type: EventChallengeResult, Player: player, Payload: map[string]interface{}{
			"is_challenge": false,
		}})
		d.resolveForcedDraw(player)
		return nil
	}

	d.resolveChallenge(player)
	return nil
}

// HandlePointedNotSayUno applies a call-out against a player holding exactly
// one undeclared card. Assumes lock is held.
func (d *Dealer) HandlePointedNotSayUno(caller, target string) *Error {
	desk := d.Desk
	if err := d.guardAction(caller); err != nil {
		return err
	}
	if !desk.Seated(target) {
		return validationError("player %q is not seated at this dealer", target)
	}
	if desk.RestrictInterrupt {
		return turnOrderError("a pending effect must be resolved first")
	}
	if desk.Penalized[target] {
		// Idempotent against repeat call-outs within the turn.
		return validationError("player %q was already penalized this turn", target)
	}
	if target == caller || len(desk.Hands[target]) != 1 || desk.YellUno[target] {
		d.applyPenalty(caller, d.Cfg.PenaltyCount, "invalid call-out")
		return ruleViolation("player %q is not callable", target)
	}

	granted := d.drawCards(target, d.Cfg.PenaltyCount)
	desk.Penalized[target] = true
	log.Printf("Dealer %s: %s called out %s for an undeclared UNO.", d.Code, caller, target)
	d.fireEvent(Event{Type: EventPointedNotSayUno, Player: caller, Payload: map[string]interface{}{
		"target": target,
		"count":  granted,
	}})
	d.persist()
	return nil
}

// HandleSpecialLogic records an invocation of the named extension hook.
// Invocations past the per-player cap are accepted but have no additional
// effect.
// Assumes lock is held.
func (d *Dealer) HandleSpecialLogic(player, title string) *Error {
	desk := d.Desk
	if err := d.guardAction(player); err != nil {
		return err
	}
	if title == "" || len(title) > maxSpecialLogicTitle {
		return validationError("special logic title must be 1-%d characters", maxSpecialLogicTitle)
	}

	count := desk.SpecialLogicCount[player]
	desk.SpecialLogicCount[player] = count + 1
	if count < maxSpecialLogicCount {
		d.fireEvent(Event{Type: EventSpecialLogic, Player: player, Payload: map[string]interface{}{
			"title": title,
		}})
	}
	d.persist()
	return nil
}

func handContains(hand []models.Card, c models.Card) bool {
	for _, held := range hand {
		if held.Equal(c) {
			return true
		}
	}
	return false
}
