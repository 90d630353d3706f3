package models

// DealerAction captures a player's in-game move as received off the wire.
type DealerAction struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}
