// internal/game/dealer_test.go
package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uno-dealer/internal/models"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []Event
	playerEvents map[string][]Event
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{
		playerEvents: make(map[string][]Event),
	}
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(player string, ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[player] = append(mb.playerEvents[player], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[string][]Event)
}

func (mb *mockBroadcaster) countOfType(t EventType) int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	n := 0
	for _, ev := range mb.allEvents {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (mb *mockBroadcaster) lastOfType(t EventType) *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.allEvents) - 1; i >= 0; i-- {
		if mb.allEvents[i].Type == t {
			ev := mb.allEvents[i]
			return &ev
		}
	}
	return nil
}

// testConfig disables both timers so tests control every transition.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TurnTimeout = 0
	cfg.WindowTimeout = 0
	return cfg
}

// setupMatch starts a match for n players named p1..pn with the given config.
func setupMatch(t *testing.T, n int, cfg Config) (*Dealer, []string, *mockBroadcaster) {
	t.Helper()
	players := make([]string, n)
	names := []string{"p1", "p2", "p3", "p4"}
	copy(players, names[:n])

	d := NewDealer("test-dealer", players, cfg)
	mb := newMockBroadcaster()
	d.BroadcastFn = mb.broadcastFn
	d.BroadcastToPlayerFn = mb.broadcastToPlayerFn

	require.NoError(t, errOrNil(d.StartMatch()))
	t.Cleanup(d.Stop)
	mb.clear()
	return d, players, mb
}

// errOrNil converts a typed *Error into a plain error for require.NoError.
func errOrNil(e *Error) error {
	if e == nil {
		return nil
	}
	return e
}

// setTable replaces the discard top and the given player hands under the lock.
func setTable(d *Dealer, top models.Card, hands map[string][]models.Card) {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	topCopy := top
	d.Desk.DiscardPile = []models.Card{top}
	d.Desk.BeforeCardPlay = &topCopy
	for p, hand := range hands {
		d.Desk.Hands[p] = append([]models.Card(nil), hand...)
	}
}

func locked[T any](d *Dealer, fn func() T) T {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	return fn()
}

// cardTotal reads the table-wide card count under the lock.
func cardTotal(d *Dealer) int {
	return locked(d, func() int { return d.Desk.TotalCards() })
}

func TestStartMatchDealsSevenEach(t *testing.T) {
	d, players, _ := setupMatch(t, 3, testConfig())
	d.Mu.Lock()
	defer d.Mu.Unlock()

	assert.Equal(t, StatusStarting, d.Desk.Status)
	assert.Equal(t, 1, d.Desk.Turn)
	for _, p := range players {
		assert.Len(t, d.Desk.Hands[p], 7, "every seat gets seven cards")
	}
	require.NotNil(t, d.Desk.BeforeCardPlay)
	assert.NotEqual(t, models.ColorBlack, d.Desk.BeforeCardPlay.Color, "initial top is never a black special")
	assert.Equal(t, "p1", d.Desk.NextPlayer, "round one opens on the first seat")
	assert.Equal(t, 116, d.Desk.TotalCards(), "card count is invariant")
}

func TestStartMatchPlayerCount(t *testing.T) {
	d := NewDealer("solo", []string{"p1"}, testConfig())
	err := d.StartMatch()
	require.NotNil(t, err)
	assert.Equal(t, ErrValidation, err.Code)

	d = NewDealer("crowd", []string{"a", "b", "c", "d", "e"}, testConfig())
	err = d.StartMatch()
	require.NotNil(t, err)
	assert.Equal(t, ErrValidation, err.Code)
}

func TestStartMatchTwiceRejected(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	err := d.StartMatch()
	require.NotNil(t, err)
	assert.Equal(t, ErrValidation, err.Code)
}

func TestPlayCardAdvancesTurn(t *testing.T) {
	d, _, mb := setupMatch(t, 3, testConfig())
	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {red5, models.NumberCard(models.ColorBlue, 7), models.NumberCard(models.ColorGreen, 2)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", red5, false, "") })
	require.Nil(t, errOrNil(err))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, "p2", d.Desk.NextPlayer)
	assert.Equal(t, "p1", d.Desk.BeforePlayer)
	assert.True(t, d.Desk.BeforeCardPlay.Equal(red5), "played card becomes the table top")
	assert.Len(t, d.Desk.Hands["p1"], 2)
	assert.Equal(t, 0, d.Desk.NoPlayCount, "a played card resets the no-play streak")
	assert.Equal(t, 1, mb.countOfType(EventCardPlayed))
	assert.Equal(t, 1, mb.countOfType(EventNextPlayer))
}

func TestPlayCardOutOfTurn(t *testing.T) {
	d, _, _ := setupMatch(t, 3, testConfig())
	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p2": {red5, models.NumberCard(models.ColorBlue, 7)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p2", red5, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrTurnOrder, err.Code)

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p2"], 2, "no penalty for acting out of turn")
	assert.Equal(t, "p1", d.Desk.NextPlayer)
}

func TestIllegalPlayPenalized(t *testing.T) {
	d, _, mb := setupMatch(t, 3, testConfig())
	blue7 := models.NumberCard(models.ColorBlue, 7)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {blue7, models.NumberCard(models.ColorGreen, 2), models.NumberCard(models.ColorYellow, 8)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", blue7, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p1"], 5, "two penalty cards on top of the kept hand")
	assert.Equal(t, "p1", d.Desk.NextPlayer, "a rejected play does not pass the turn")
	assert.Equal(t, 1, mb.countOfType(EventPenalty))
}

func TestPlayCardNotInHand(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {models.NumberCard(models.ColorGreen, 2), models.NumberCard(models.ColorYellow, 8)},
	})

	ghost := models.NumberCard(models.ColorRed, 9)
	err := locked(d, func() *Error { return d.HandlePlayCard("p1", ghost, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, 4, locked(d, func() int { return len(d.Desk.Hands["p1"]) }))
}

func TestUnoDeclarationRequired(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {red5, models.NumberCard(models.ColorBlue, 7)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", red5, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, 4, locked(d, func() int { return len(d.Desk.Hands["p1"]) }),
		"undeclared UNO costs two cards and keeps the played card")
}

func TestUnoDeclarationAccepted(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {red5, models.NumberCard(models.ColorBlue, 7)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", red5, true, "") })
	require.Nil(t, errOrNil(err))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.True(t, d.Desk.YellUno["p1"])
	assert.Len(t, d.Desk.Hands["p1"], 1)
}

func TestFalseUnoDeclaration(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {red5, models.NumberCard(models.ColorBlue, 7), models.NumberCard(models.ColorGreen, 2)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", red5, true, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, 5, locked(d, func() int { return len(d.Desk.Hands["p1"]) }))
}

func TestPointedNotSayUno(t *testing.T) {
	d, _, mb := setupMatch(t, 3, testConfig())
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p2": {models.NumberCard(models.ColorBlue, 7)},
	})

	err := locked(d, func() *Error { return d.HandlePointedNotSayUno("p1", "p2") })
	require.Nil(t, errOrNil(err))

	d.Mu.Lock()
	assert.Len(t, d.Desk.Hands["p2"], 3, "called-out player draws the penalty")
	assert.True(t, d.Desk.Penalized["p2"])
	d.Mu.Unlock()
	assert.Equal(t, 1, mb.countOfType(EventPointedNotSayUno))

	// A repeat call-out within the turn is rejected without a second penalty.
	err = locked(d, func() *Error { return d.HandlePointedNotSayUno("p3", "p2") })
	require.NotNil(t, err)
	assert.Equal(t, ErrValidation, err.Code)
	assert.Equal(t, 3, locked(d, func() int { return len(d.Desk.Hands["p2"]) }))
}

func TestPointedNotSayUnoInvalidTarget(t *testing.T) {
	d, _, _ := setupMatch(t, 3, testConfig())
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p2": {models.NumberCard(models.ColorBlue, 7), models.NumberCard(models.ColorGreen, 2)},
		"p3": {models.NumberCard(models.ColorYellow, 1), models.NumberCard(models.ColorRed, 8)},
	})

	before := locked(d, func() int { return len(d.Desk.Hands["p3"]) })
	err := locked(d, func() *Error { return d.HandlePointedNotSayUno("p3", "p2") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, before+2, locked(d, func() int { return len(d.Desk.Hands["p3"]) }),
		"an invalid call-out penalizes the caller")
}

func TestSkipCard(t *testing.T) {
	d, _, _ := setupMatch(t, 3, testConfig())
	skip := models.SpecialCard(models.ColorRed, models.SpecialSkip)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {skip, models.NumberCard(models.ColorBlue, 7), models.NumberCard(models.ColorGreen, 2)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", skip, false, "") })
	require.Nil(t, errOrNil(err))
	assert.Equal(t, "p3", locked(d, func() string { return d.Desk.NextPlayer }), "skip jumps one seat")
}

func TestReverseChangesDirection(t *testing.T) {
	d, _, _ := setupMatch(t, 3, testConfig())
	rev := models.SpecialCard(models.ColorRed, models.SpecialReverse)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {rev, models.NumberCard(models.ColorBlue, 7), models.NumberCard(models.ColorGreen, 2)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", rev, false, "") })
	require.Nil(t, errOrNil(err))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.False(t, d.Desk.TurnRight)
	assert.Equal(t, "p3", d.Desk.NextPlayer, "reversed play proceeds to the seat before")
}

func TestReverseActsAsSkipHeadsUp(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	rev := models.SpecialCard(models.ColorRed, models.SpecialReverse)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {rev, models.NumberCard(models.ColorBlue, 7), models.NumberCard(models.ColorGreen, 2)},
	})

	err := locked(d, func() *Error { return d.HandlePlayCard("p1", rev, false, "") })
	require.Nil(t, errOrNil(err))
	assert.Equal(t, "p1", locked(d, func() string { return d.Desk.NextPlayer }),
		"with two seats a reverse gives the player another turn")
}

func TestDrawTwoChainStacks(t *testing.T) {
	d, _, _ := setupMatch(t, 3, testConfig())
	d2red := models.SpecialCard(models.ColorRed, models.SpecialDrawTwo)
	d2blue := models.SpecialCard(models.ColorBlue, models.SpecialDrawTwo)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {d2red, filler, filler},
		"p2": {d2blue, filler, filler},
	})

	before := cardTotal(d)
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", d2red, false, "") })))
	d.Mu.Lock()
	assert.True(t, d.Desk.MustCallDrawCard)
	assert.Equal(t, 2, d.Desk.CardAddOn)
	assert.Equal(t, "p2", d.Desk.NextPlayer)
	d.Mu.Unlock()

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p2", d2blue, false, "") })))
	d.Mu.Lock()
	assert.Equal(t, 4, d.Desk.CardAddOn, "chained draw twos accumulate")
	assert.Equal(t, "p3", d.Desk.NextPlayer)
	d.Mu.Unlock()

	p3Before := locked(d, func() int { return len(d.Desk.Hands["p3"]) })
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleDrawCard("p3") })))
	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, p3Before+4, len(d.Desk.Hands["p3"]), "forced draw resolves the full chain")
	assert.False(t, d.Desk.MustCallDrawCard)
	assert.Equal(t, 0, d.Desk.CardAddOn)
	assert.Equal(t, "p1", d.Desk.NextPlayer)
	assert.Equal(t, before, d.Desk.TotalCards(), "resolving the chain moves cards, never creates them")
}

func TestDrawChainResetWhenNotStacking(t *testing.T) {
	cfg := testConfig()
	cfg.DrawChainStacks = false
	d, _, _ := setupMatch(t, 3, cfg)
	d2red := models.SpecialCard(models.ColorRed, models.SpecialDrawTwo)
	d2blue := models.SpecialCard(models.ColorBlue, models.SpecialDrawTwo)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {d2red, filler, filler},
		"p2": {d2blue, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", d2red, false, "") })))
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p2", d2blue, false, "") })))
	assert.Equal(t, 2, locked(d, func() int { return d.Desk.CardAddOn }),
		"without stacking each card sets the pending amount")
}

func TestForcedDrawBlocksOtherPlays(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	d2red := models.SpecialCard(models.ColorRed, models.SpecialDrawTwo)
	blue7 := models.NumberCard(models.ColorBlue, 7)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {d2red, filler, filler},
		"p2": {blue7, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", d2red, false, "") })))

	err := locked(d, func() *Error { return d.HandlePlayCard("p2", filler, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code, "a non-chaining card cannot answer a forced draw")
}

func TestWildColorChosenEagerly(t *testing.T) {
	d, _, mb := setupMatch(t, 3, testConfig())
	wild := models.SpecialCard(models.ColorBlack, models.SpecialWild)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {wild, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", wild, false, models.ColorBlue) })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, models.ColorBlue, d.Desk.BeforeCardPlay.Color)
	assert.Equal(t, "p2", d.Desk.NextPlayer)
	assert.False(t, d.Desk.WaitingColor)
	assert.Equal(t, 1, mb.countOfType(EventColorChosen))
}

func TestWildColorWindow(t *testing.T) {
	d, _, _ := setupMatch(t, 3, testConfig())
	wild := models.SpecialCard(models.ColorBlack, models.SpecialWild)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {wild, filler, filler},
		"p2": {filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", wild, false, "") })))

	d.Mu.Lock()
	assert.True(t, d.Desk.WaitingColor)
	assert.True(t, d.Desk.RestrictInterrupt)
	assert.Equal(t, "p1", d.Desk.NextPlayer, "turn holds until the colour is named")
	d.Mu.Unlock()

	// Other actions are turn-order rejections while the window is open.
	err := locked(d, func() *Error { return d.HandlePlayCard("p2", filler, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrTurnOrder, err.Code)

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleColorOfWild("p1", models.ColorGreen) })))
	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, models.ColorGreen, d.Desk.BeforeCardPlay.Color)
	assert.False(t, d.Desk.WaitingColor)
	assert.Equal(t, "p2", d.Desk.NextPlayer)
}

func TestColorOfWildWithoutPending(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	before := locked(d, func() int { return len(d.Desk.Hands["p1"]) })
	err := locked(d, func() *Error { return d.HandleColorOfWild("p1", models.ColorRed) })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, before+2, locked(d, func() int { return len(d.Desk.Hands["p1"]) }))
}

func TestChallengeSucceeds(t *testing.T) {
	d, _, mb := setupMatch(t, 2, testConfig())
	wd4 := models.SpecialCard(models.ColorBlack, models.SpecialWildDraw4)
	red5 := models.NumberCard(models.ColorRed, 5)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {wd4, red5, filler},
		"p2": {filler, filler, filler},
	})

	before := cardTotal(d)

	// p1 held a playable red card, so the wild draw four is illegal.
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", wd4, false, models.ColorBlue) })))
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleChallenge("p2", true) })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p1"], 7, "offender takes the card back plus four")
	assert.Len(t, d.Desk.Hands["p2"], 3, "challenger draws nothing on success")
	assert.True(t, d.Desk.BeforeCardPlay.Equal(models.NumberCard(models.ColorRed, 3)), "table reverts to the snapshot")
	assert.False(t, d.Desk.MustCallDrawCard)
	assert.Equal(t, "p2", d.Desk.NextPlayer, "the challenger keeps the turn")
	assert.Equal(t, before, d.Desk.TotalCards(), "reverting the play conserves the card count")

	ev := mb.lastOfType(EventChallengeResult)
	require.NotNil(t, ev)
	assert.Equal(t, true, ev.Payload["success"])
}

func TestChallengeFails(t *testing.T) {
	d, _, mb := setupMatch(t, 2, testConfig())
	wd4 := models.SpecialCard(models.ColorBlack, models.SpecialWildDraw4)
	blue5 := models.NumberCard(models.ColorBlue, 5)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {wd4, blue5, blue5},
		"p2": {filler, filler, filler},
	})

	before := cardTotal(d)
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", wd4, false, models.ColorBlue) })))
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleChallenge("p2", true) })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p1"], 2, "the play stands")
	assert.Len(t, d.Desk.Hands["p2"], 9, "failed challenger draws four plus two")
	assert.Equal(t, "p1", d.Desk.NextPlayer, "turn passes after the failed challenge")
	assert.Equal(t, before, d.Desk.TotalCards(), "penalty cards come from the draw pile")

	ev := mb.lastOfType(EventChallengeResult)
	require.NotNil(t, ev)
	assert.Equal(t, false, ev.Payload["success"])
}

func TestChallengeDeclined(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	wd4 := models.SpecialCard(models.ColorBlack, models.SpecialWildDraw4)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {wd4, filler, filler},
		"p2": {filler, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", wd4, false, models.ColorBlue) })))
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleChallenge("p2", false) })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p2"], 7, "declining resolves the four-card draw")
	assert.Equal(t, "p1", d.Desk.NextPlayer)
}

func TestChallengeWithoutPending(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	before := locked(d, func() int { return len(d.Desk.Hands["p1"]) })
	err := locked(d, func() *Error { return d.HandleChallenge("p1", true) })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, before+2, locked(d, func() int { return len(d.Desk.Hands["p1"]) }))
}

func TestDrawCardOpensPlayWindow(t *testing.T) {
	d, _, mb := setupMatch(t, 2, testConfig())
	blue3 := models.NumberCard(models.ColorBlue, 3)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorBlue, 9), map[string][]models.Card{
		"p1": {filler, filler},
	})
	d.Mu.Lock()
	d.Desk.DrawPile = append([]models.Card{blue3}, d.Desk.DrawPile...)
	d.Mu.Unlock()

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleDrawCard("p1") })))

	d.Mu.Lock()
	require.NotNil(t, d.Desk.DrawnCard)
	assert.True(t, d.Desk.DrawnCard.Equal(blue3))
	assert.True(t, d.Desk.CanPlayDrawnCard)
	assert.True(t, d.Desk.RestrictInterrupt)
	assert.Equal(t, "p1", d.Desk.NextPlayer)
	d.Mu.Unlock()
	assert.Equal(t, 1, mb.countOfType(EventCardDrawn))

	// Play the drawn card.
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayDrawCard("p1", true, false, "") })))
	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.True(t, d.Desk.BeforeCardPlay.Equal(blue3))
	assert.Equal(t, "p2", d.Desk.NextPlayer)
	assert.Len(t, d.Desk.Hands["p1"], 2)
}

func TestDrawCardKeptAfterWindow(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	blue3 := models.NumberCard(models.ColorBlue, 3)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorBlue, 9), map[string][]models.Card{
		"p1": {filler, filler},
	})
	d.Mu.Lock()
	d.Desk.DrawPile = append([]models.Card{blue3}, d.Desk.DrawPile...)
	d.Mu.Unlock()

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleDrawCard("p1") })))
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayDrawCard("p1", false, false, "") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p1"], 3, "kept card stays in hand")
	assert.Equal(t, "p2", d.Desk.NextPlayer)
	assert.Equal(t, 1, d.Desk.NoPlayCount, "keeping the drawn card counts as a no-play turn")
}

func TestDrawCardUnplayableAdvances(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	green7 := models.NumberCard(models.ColorGreen, 7)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorBlue, 9), map[string][]models.Card{
		"p1": {filler, filler},
	})
	d.Mu.Lock()
	d.Desk.DrawPile = append([]models.Card{green7}, d.Desk.DrawPile...)
	d.Mu.Unlock()

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleDrawCard("p1") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Nil(t, d.Desk.DrawnCard)
	assert.Equal(t, "p2", d.Desk.NextPlayer, "an unplayable draw ends the turn")
	assert.Len(t, d.Desk.Hands["p1"], 3)
}

func TestPlayDrawCardWithoutWindow(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	before := locked(d, func() int { return len(d.Desk.Hands["p1"]) })
	err := locked(d, func() *Error { return d.HandlePlayDrawCard("p1", true, false, "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrRuleViolation, err.Code)
	assert.Equal(t, before+2, locked(d, func() int { return len(d.Desk.Hands["p1"]) }))
}

func TestWhiteWildBindsNextPlayer(t *testing.T) {
	d, _, mb := setupMatch(t, 3, testConfig())
	ww := models.SpecialCard(models.ColorWhite, models.SpecialWhiteWild)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {ww, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", ww, false, "") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, "p3", d.Desk.NextPlayer, "the bound player loses the turn immediately")
	assert.Equal(t, 1, d.Desk.ActivationWhiteWild["p2"], "one of two bound turns already consumed")
	assert.Equal(t, 1, mb.countOfType(EventWhiteWildBound))
	assert.Equal(t, 1, mb.countOfType(EventBoundTurnSkipped))
}

func TestWhiteWildSkipBindVariant(t *testing.T) {
	cfg := testConfig()
	cfg.WhiteWild = WhiteWildSkipBind2
	d, _, _ := setupMatch(t, 3, cfg)
	ww := models.SpecialCard(models.ColorWhite, models.SpecialWhiteWild)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {ww, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", ww, false, "") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, "p3", d.Desk.NextPlayer)
	assert.Equal(t, 2, d.Desk.ActivationWhiteWild["p2"], "skip variant jumps the seat without consuming a binding")
}

func TestShuffleWildRedistributes(t *testing.T) {
	d, players, mb := setupMatch(t, 3, testConfig())
	sw := models.SpecialCard(models.ColorBlack, models.SpecialWildShuffle)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {sw, filler, filler},
		"p2": {filler, filler, filler, filler},
		"p3": {filler, filler},
	})

	before := cardTotal(d)
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", sw, false, models.ColorRed) })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	total := 0
	for _, p := range players {
		total += len(d.Desk.Hands[p])
	}
	assert.Equal(t, 8, total, "pooled hands are fully redistributed")
	assert.Equal(t, before, d.Desk.TotalCards(), "shuffling hands conserves the card count")
	assert.Equal(t, 1, mb.countOfType(EventShuffleWild))
	for _, p := range players {
		assert.False(t, d.Desk.YellUno[p], "shuffle clears every declaration")
	}
}

func TestRoundScoringAndMatchEnd(t *testing.T) {
	cfg := testConfig()
	cfg.TotalTurn = 1
	d, _, mb := setupMatch(t, 2, cfg)

	var endedCode, endedWinner string
	var endedScores map[string]int
	d.OnMatchEnd = func(code, winner string, scores map[string]int) {
		endedCode, endedWinner, endedScores = code, winner, scores
	}

	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {red5},
		"p2": {models.NumberCard(models.ColorBlue, 9), models.SpecialCard(models.ColorYellow, models.SpecialSkip)},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", red5, false, "") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, StatusFinished, d.Desk.Status)
	assert.Equal(t, 29, d.Desk.Score["p1"], "winner collects the sum of opposing hands")
	assert.Equal(t, 0, d.Desk.Score["p2"])
	assert.Equal(t, []int{29}, d.Desk.RoundScores["p1"])
	assert.Equal(t, []int{0}, d.Desk.RoundScores["p2"])
	assert.Equal(t, 1, mb.countOfType(EventRoundFinished))
	assert.Equal(t, 1, mb.countOfType(EventMatchFinished))

	assert.Equal(t, "test-dealer", endedCode)
	assert.Equal(t, "p1", endedWinner)
	assert.Equal(t, 29, endedScores["p1"])
}

func TestRoundRolloverDealsNextRound(t *testing.T) {
	cfg := testConfig()
	cfg.TotalTurn = 2
	d, players, _ := setupMatch(t, 2, cfg)

	red5 := models.NumberCard(models.ColorRed, 5)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {red5},
		"p2": {models.NumberCard(models.ColorBlue, 9)},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", red5, false, "") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, StatusStarting, d.Desk.Status)
	assert.Equal(t, 2, d.Desk.Turn)
	for _, p := range players {
		assert.Len(t, d.Desk.Hands[p], 7, "next round deals fresh hands")
	}
	assert.Equal(t, "p2", d.Desk.NextPlayer, "the opening seat rotates per round")
}

func TestTurnTimeoutAutoDraws(t *testing.T) {
	cfg := testConfig()
	cfg.TurnTimeout = 50 * time.Millisecond
	d, _, _ := setupMatch(t, 2, cfg)

	time.Sleep(200 * time.Millisecond)

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p1"], 8, "the absent player draws one by default")
	assert.True(t, d.Desk.TimeoutPending["p1"])
	assert.Equal(t, "p2", d.Desk.NextPlayer)
}

func TestColorWindowTimeoutReverts(t *testing.T) {
	cfg := testConfig()
	cfg.WindowTimeout = 50 * time.Millisecond
	d, _, mb := setupMatch(t, 2, cfg)

	wild := models.SpecialCard(models.ColorBlack, models.SpecialWild)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorRed, 3), map[string][]models.Card{
		"p1": {wild, filler, filler},
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandlePlayCard("p1", wild, false, "") })))
	time.Sleep(200 * time.Millisecond)

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.False(t, d.Desk.WaitingColor)
	assert.Equal(t, models.ColorRed, d.Desk.BeforeCardPlay.Color, "top colour reverts to the pre-wild colour")
	assert.Equal(t, "p2", d.Desk.NextPlayer)
	assert.Equal(t, 1, mb.countOfType(EventColorReverted))
}

func TestNoPlayThresholdRedeals(t *testing.T) {
	cfg := testConfig()
	cfg.NoPlayReshuffle = 1
	d, players, mb := setupMatch(t, 2, cfg)

	green7 := models.NumberCard(models.ColorGreen, 7)
	filler := models.NumberCard(models.ColorGreen, 2)
	setTable(d, models.NumberCard(models.ColorBlue, 9), map[string][]models.Card{
		"p1": {filler, filler},
	})
	d.Mu.Lock()
	d.Desk.DrawPile = append([]models.Card{green7}, d.Desk.DrawPile...)
	d.Mu.Unlock()

	before := cardTotal(d)
	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleDrawCard("p1") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Equal(t, 0, d.Desk.NoPlayCount, "redeal resets the streak")
	for _, p := range players {
		assert.Len(t, d.Desk.Hands[p], 7, "everyone is redealt seven cards")
	}
	assert.Equal(t, before, d.Desk.TotalCards(), "the redeal pools and redeals the same cards")
	assert.Equal(t, 1, mb.countOfType(EventHandsRedealt))
}

func TestHandCapSilentlyStopsDraws(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	capHand := make([]models.Card, 0, 25)
	for i := 0; i < 25; i++ {
		capHand = append(capHand, models.NumberCard(models.ColorGreen, 2))
	}
	setTable(d, models.NumberCard(models.ColorBlue, 9), map[string][]models.Card{
		"p1": capHand,
	})

	require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleDrawCard("p1") })))

	d.Mu.Lock()
	defer d.Mu.Unlock()
	assert.Len(t, d.Desk.Hands["p1"], 25, "draws past the cap are not granted")
	assert.Equal(t, "p2", d.Desk.NextPlayer)
}

func TestSpecialLogicValidationAndCap(t *testing.T) {
	d, _, mb := setupMatch(t, 2, testConfig())

	err := locked(d, func() *Error { return d.HandleSpecialLogic("p1", "") })
	require.NotNil(t, err)
	assert.Equal(t, ErrValidation, err.Code)

	long := make([]byte, 33)
	for i := range long {
		long[i] = 'x'
	}
	err = locked(d, func() *Error { return d.HandleSpecialLogic("p1", string(long)) })
	require.NotNil(t, err)
	assert.Equal(t, ErrValidation, err.Code)

	for i := 0; i < 12; i++ {
		require.Nil(t, errOrNil(locked(d, func() *Error { return d.HandleSpecialLogic("p1", "table dance") })))
	}
	assert.Equal(t, 10, mb.countOfType(EventSpecialLogic), "invocations past the cap are accepted silently")
	assert.Equal(t, 12, locked(d, func() int { return d.Desk.SpecialLogicCount["p1"] }))
}

func TestSyncStateHidesOtherHands(t *testing.T) {
	d, _, _ := setupMatch(t, 2, testConfig())
	d.Mu.Lock()
	defer d.Mu.Unlock()

	view := d.ViewFor("p1")
	require.Len(t, view.Players, 2)
	for _, pv := range view.Players {
		if pv.Player == "p1" {
			assert.Len(t, pv.Hand, 7, "own hand is revealed")
		} else {
			assert.Empty(t, pv.Hand, "other hands are counts only")
			assert.Equal(t, 7, pv.HandSize)
		}
	}
}
