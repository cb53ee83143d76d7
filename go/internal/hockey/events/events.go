package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a match lifecycle notification
type Event struct {
	ID        string          `json:"id"`         // Event UUID
	Type      EventType       `json:"type"`       // Event type
	SessionID string          `json:"session_id"` // Session UUID
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of match event
type EventType string

const (
	EventTypeMatchStarted EventType = "MatchStarted"
	EventTypeGoalScored   EventType = "GoalScored"
	EventTypeMatchEnded   EventType = "MatchEnded"
)

// MatchStartedPayload is the payload for a MatchStarted event
type MatchStartedPayload struct {
	Player1ConnID string    `json:"player1_conn_id"`
	Player2ConnID string    `json:"player2_conn_id"`
	StartedAt     time.Time `json:"started_at"`
}

// GoalScoredPayload is the payload for a GoalScored event
type GoalScoredPayload struct {
	Scorer  int       `json:"scorer"`
	Player1 int       `json:"player1"`
	Player2 int       `json:"player2"`
	Tick    uint64    `json:"tick"`
	AtTime  time.Time `json:"scored_at"`
}

// MatchEndedPayload is the payload for a MatchEnded event
type MatchEndedPayload struct {
	Reason   string    `json:"reason"`
	LeftSide int       `json:"left_side,omitempty"`
	Player1  int       `json:"player1"`
	Player2  int       `json:"player2"`
	Ticks    uint64    `json:"ticks"`
	EndedAt  time.Time `json:"ended_at"`
	Duration string    `json:"duration"`
}

// NewEvent wraps a payload in an Event with a fresh id
func NewEvent(t EventType, sessionID string, at time.Time, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		SessionID: sessionID,
		Timestamp: at,
		Data:      data,
	}, nil
}
