package events

import (
	"encoding/json"
	"time"
)

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types
const (
	TypeMatchStarted       = "match_started"
	TypeMatchFinished      = "match_finished"
	TypePlayerDisconnected = "player_disconnected"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// MatchStartedPayload is the payload for the "match_started" event.
type MatchStartedPayload struct {
	MatchID   string   `json:"match_id"`
	PlayerIDs []string `json:"player_ids"`
}

// MatchFinishedPayload is the payload for the "match_finished" event.
type MatchFinishedPayload struct {
	MatchID string    `json:"match_id"`
	Winner  string    `json:"winner"`
	Loser   string    `json:"loser"`
	Reason  string    `json:"reason"`
	EndedAt time.Time `json:"ended_at"`
}

// PlayerDisconnectedPayload is the payload for the "player_disconnected" event.
type PlayerDisconnectedPayload struct {
	PlayerID string `json:"player_id"`
	Cause    string `json:"cause"`
}

// New wraps payload into an Event.
func New(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}
