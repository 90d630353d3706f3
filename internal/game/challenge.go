package game

import (
	"log"

	"uno-dealer/internal/models"
)

// resolveChallenge evaluates a disputed wild-draw-four against the snapshot
// of the table immediately before it was played and the offender's current
// hand. Assumes lock is held and a wild-draw-four is pending.
func (d *Dealer) resolveChallenge(challenger string) {
	desk := d.Desk
	offender := desk.BeforePlayer
	snapshot := *desk.CardBeforeWildDraw4
	pending := desk.CardAddOn

	succeeded := false
	for _, c := range desk.Hands[offender] {
		if IsLegalPlay(c, snapshot) {
			succeeded = true
			break
		}
	}

	if succeeded {
		// The wild-draw-four comes off the table and back into the
		// offender's hand, the discard top reverts, and the offender draws
		// the penalty. The turn stays with the challenger.
		if n := len(desk.DiscardPile); n > 0 {
			played := desk.DiscardPile[n-1]
			desk.DiscardPile = desk.DiscardPile[:n-1]
			played.Color = models.ColorBlack // undo any colour choice
			desk.Hands[offender] = append(desk.Hands[offender], played)
		}
		snapCopy := snapshot
		desk.BeforeCardPlay = &snapCopy
		desk.MustCallDrawCard = false
		desk.CardAddOn = 0
		desk.CardBeforeWildDraw4 = nil
		desk.YellUno[offender] = false
		d.drawCards(offender, 4)

		log.Printf("Dealer %s: challenge by %s succeeded against %s.", d.Code, challenger, offender)
		d.fireEvent(Event{Type: EventChallengeResult, Player: challenger, Payload: map[string]interface{}{
			"is_challenge": true,
			"success":      true,
			"target":       offender,
		}})

		// Fresh window for the challenger to take their restored turn.
		d.turnSeq++
		d.scheduleTurnTimer()
		d.persist()
		return
	}

	// Failed challenge: the play stands and the challenger draws two extra.
	granted := d.drawCards(challenger, pending+2)
	desk.MustCallDrawCard = false
	desk.CardAddOn = 0
	desk.CardBeforeWildDraw4 = nil

	log.Printf("Dealer %s: challenge by %s failed, drew %d.", d.Code, challenger, granted)
	d.fireEvent(Event{Type: EventChallengeResult, Player: challenger, Payload: map[string]interface{}{
		"is_challenge": true,
		"success":      false,
		"count":        granted,
	}})
	d.noPlay()
	d.advanceTurn()
}
