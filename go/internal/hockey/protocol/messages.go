package protocol

import "github.com/mcdev12/airhockey/go/internal/hockey/physics"

// MessageType is the "type" discriminator carried by every frame
type MessageType string

// Server to client
const (
	TypeWaiting            MessageType = "waiting"
	TypeStart              MessageType = "start"
	TypeGameState          MessageType = "gameState"
	TypePlayerDisconnected MessageType = "playerDisconnected"
)

// Client to server
const (
	TypePlayerMove MessageType = "playerMove"
	TypePuckHit    MessageType = "puckHit"
)

// Waiting tells a client it is parked until an opponent arrives
type Waiting struct {
	Type MessageType `json:"type"`
}

// Start tells a client which side it plays
type Start struct {
	Type   MessageType `json:"type"`
	Player int         `json:"player"`
}

// GameState is the full authoritative snapshot sent every tick
type GameState struct {
	Type  MessageType `json:"type"`
	State Snapshot    `json:"state"`
}

// Snapshot is the session state as clients see it
type Snapshot struct {
	Score   physics.Score  `json:"score"`
	Puck    physics.Puck   `json:"puck"`
	Player1 physics.Paddle `json:"player1"`
	Player2 physics.Paddle `json:"player2"`
}

// PlayerDisconnected tells the survivor its opponent left
type PlayerDisconnected struct {
	Type MessageType `json:"type"`
}

// PlayerMove overwrites the sender's paddle position
type PlayerMove struct {
	Position physics.Paddle
}

// PuckHit overwrites the puck velocity
type PuckHit struct {
	VelocityX float64
	VelocityY float64
}
