package game

import "log"

// HandleReconnect announces a player (re)joining the table and brings their
// seat up to date with a private snapshot. Locks internally.
func (d *Dealer) HandleReconnect(player string) {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	if !d.Desk.Seated(player) {
		return
	}
	log.Printf("Dealer %s: player %s connected.", d.Code, player)
	evType := EventPlayerReconnect
	if d.Desk.Status == StatusNew {
		evType = EventPlayerJoined
	}
	d.fireEvent(Event{Type: evType, Player: player})
	d.SendSyncState(player)
}

// HandleDisconnect announces a player's connection going away. The seat stays
// in the match; timers keep running and the timeout defaults act for the
// absent player. Locks internally.
func (d *Dealer) HandleDisconnect(player string) {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	if !d.Desk.Seated(player) {
		return
	}
	log.Printf("Dealer %s: player %s disconnected.", d.Code, player)
	d.fireEvent(Event{Type: EventPlayerDisconnect, Player: player})
}
