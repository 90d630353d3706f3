package models

import (
	"github.com/coder/websocket"
)

// Player is a seated participant's live connection state. The authoritative
// game data (hand, score, flags) lives on the Desk keyed by the player code;
// this struct only binds the stable player identity to its socket.
type Player struct {
	Code      string          `json:"code"`
	Team      string          `json:"team,omitempty"`
	Connected bool            `json:"connected"`
	Conn      *websocket.Conn `json:"-"`
}
