package game

import "uno-dealer/internal/models"

// EventType is an enum-like type for broadcasting dealer actions.
type EventType string

const (
	EventPlayerJoined      EventType = "player_joined"
	EventMatchStarted      EventType = "match_started"
	EventNextPlayer        EventType = "next_player"
	EventCardPlayed        EventType = "play_card"
	EventCardDrawn         EventType = "draw_card"         // public: count only
	EventPrivateCardDrawn  EventType = "private_draw_card" // private: card details
	EventPlayDrawnCard     EventType = "play_draw_card"
	EventColorChosen       EventType = "color_of_wild"
	EventColorReverted     EventType = "color_reverted"
	EventChallengeResult   EventType = "challenge_result"
	EventPointedNotSayUno  EventType = "pointed_not_say_uno"
	EventPenalty           EventType = "penalty"
	EventShuffleWild       EventType = "shuffle_wild"
	EventWhiteWildBound    EventType = "white_wild_bound"
	EventBoundTurnSkipped  EventType = "bound_turn_skipped"
	EventHandsRedealt      EventType = "redeal"
	EventRoundFinished     EventType = "finish_turn"
	EventMatchFinished     EventType = "finish_game"
	EventSpecialLogic      EventType = "special_logic"
	EventPlayerDisconnect  EventType = "player_disconnected"
	EventPlayerReconnect   EventType = "player_reconnected"
	EventPrivateSyncState  EventType = "private_sync_state"
)

// Event holds data about a state change broadcast to the seated players.
type Event struct {
	Type   EventType    `json:"type"`
	Player string       `json:"player,omitempty"`
	Card   *models.Card `json:"card,omitempty"`

	// Payload carries event-specific fields (counts, colours, scores).
	Payload map[string]interface{} `json:"payload,omitempty"`

	// State carries a per-player snapshot for sync events.
	State *DeskView `json:"state,omitempty"`
}
