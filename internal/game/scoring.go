package game

import (
	"log"

	"uno-dealer/internal/models"
)

// HandScore sums ScoreOf over a player's remaining hand. Assumes lock is
// held.
func (d *Desk) HandScore(player string) int {
	total := 0
	for _, c := range d.Hands[player] {
		total += ScoreOf(c)
	}
	return total
}

// finishRound credits the emptied-hand player with the sum of every other
// hand's score, clears the table, and either deals the next round or ends
// the match. Assumes lock is held.
func (d *Dealer) finishRound(winner string) {
	desk := d.Desk

	if d.turnTimer != nil {
		d.turnTimer.Stop()
	}
	d.cancelWindowTimer()
	d.turnSeq++

	payout := 0
	for _, p := range desk.Players {
		if p == winner {
			continue
		}
		payout += desk.HandScore(p)
	}
	desk.Score[winner] += payout
	for _, p := range desk.Players {
		gain := 0
		if p == winner {
			gain = payout
		}
		desk.RoundScores[p] = append(desk.RoundScores[p], gain)
	}

	for _, p := range desk.Players {
		desk.Hands[p] = []models.Card{}
		desk.YellUno[p] = false
		desk.Penalized[p] = false
		desk.ActivationWhiteWild[p] = 0
	}
	desk.DrawPile = nil
	desk.DiscardPile = nil
	desk.BeforeCardPlay = nil
	desk.clearPending()
	desk.IsSkip = false

	log.Printf("Dealer %s: round %d won by %s for %d points.", d.Code, desk.Turn, winner, payout)
	d.fireEvent(Event{Type: EventRoundFinished, Player: winner, Payload: map[string]interface{}{
		"turn":   desk.Turn,
		"payout": payout,
		"scores": copyScores(desk.Score),
	}})

	if desk.Turn >= desk.TotalTurn {
		d.finishMatch()
		return
	}
	desk.Turn++
	d.startRound()
}

// finishMatch determines the winner from accumulated totals and closes the
// Desk. Assumes lock is held.
func (d *Dealer) finishMatch() {
	desk := d.Desk
	desk.Status = StatusFinished
	if d.turnTimer != nil {
		d.turnTimer.Stop()
		d.turnTimer = nil
	}
	d.cancelWindowTimer()

	winner := DetermineWinner(desk, d.TieBreak)
	log.Printf("Dealer %s: match finished, winner %s.", d.Code, winner)
	d.fireEvent(Event{Type: EventMatchFinished, Player: winner, Payload: map[string]interface{}{
		"winner": winner,
		"scores": copyScores(desk.Score),
	}})
	d.persist()
	if d.OnMatchEnd != nil {
		d.OnMatchEnd(d.Code, winner, copyScores(desk.Score))
	}
}

// DetermineWinner picks the highest accumulated total, breaking ties with
// the given comparator (CompareRecentRounds when nil).
func DetermineWinner(desk *Desk, tieBreak TieBreaker) string {
	if tieBreak == nil {
		tieBreak = CompareRecentRounds
	}
	if len(desk.Players) == 0 {
		return ""
	}
	winner := desk.Players[0]
	for _, p := range desk.Players[1:] {
		switch {
		case desk.Score[p] > desk.Score[winner]:
			winner = p
		case desk.Score[p] == desk.Score[winner] && tieBreak(desk, p, winner) > 0:
			winner = p
		}
	}
	return winner
}

// CompareRecentRounds is the default tie-breaker: it walks the per-round
// score history from the latest round backwards and prefers the player who
// scored more recently; exhausted histories fall back to seat order.
func CompareRecentRounds(desk *Desk, a, b string) int {
	ha, hb := desk.RoundScores[a], desk.RoundScores[b]
	for i := 0; i < len(ha) && i < len(hb); i++ {
		sa := ha[len(ha)-1-i]
		sb := hb[len(hb)-1-i]
		if sa != sb {
			if sa > sb {
				return 1
			}
			return -1
		}
	}
	// Earlier seat keeps the win.
	if desk.seatIndex(a) < desk.seatIndex(b) {
		return 1
	}
	return -1
}

func copyScores(scores map[string]int) map[string]int {
	out := make(map[string]int, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}
