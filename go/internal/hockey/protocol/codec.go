// Package protocol defines the JSON text frames exchanged with game clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mcdev12/airhockey/go/internal/hockey/physics"
)

var (
	ErrMalformed    = errors.New("malformed frame")
	ErrUnknownType  = errors.New("unknown message type")
	ErrMissingField = errors.New("missing required field")
)

// EncodeWaiting returns a waiting frame
func EncodeWaiting() ([]byte, error) {
	return json.Marshal(Waiting{Type: TypeWaiting})
}

// EncodeStart returns a start frame for the given side
func EncodeStart(side physics.Side) ([]byte, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("encode start: invalid side %d", side)
	}
	return json.Marshal(Start{Type: TypeStart, Player: int(side)})
}

// EncodeGameState returns a gameState frame for a snapshot
func EncodeGameState(s Snapshot) ([]byte, error) {
	return json.Marshal(GameState{Type: TypeGameState, State: s})
}

// EncodePlayerDisconnected returns a playerDisconnected frame
func EncodePlayerDisconnected() ([]byte, error) {
	return json.Marshal(PlayerDisconnected{Type: TypePlayerDisconnected})
}

// wire shapes for inbound frames; pointers detect missing fields
type inbound struct {
	Type      MessageType `json:"type"`
	Position  *position   `json:"position"`
	VelocityX *float64    `json:"velocityX"`
	VelocityY *float64    `json:"velocityY"`
}

type position struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// DecodeClientMessage parses one inbound frame into a PlayerMove or a PuckHit.
// Errors wrap ErrMalformed, ErrUnknownType or ErrMissingField.
func DecodeClientMessage(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}

	var in inbound
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch in.Type {
	case TypePlayerMove:
		if in.Position == nil {
			return nil, fmt.Errorf("%w: position", ErrMissingField)
		}
		if in.Position.X == nil || in.Position.Y == nil {
			return nil, fmt.Errorf("%w: position.x/position.y", ErrMissingField)
		}
		return PlayerMove{Position: physics.Paddle{X: *in.Position.X, Y: *in.Position.Y}}, nil

	case TypePuckHit:
		if in.VelocityX == nil || in.VelocityY == nil {
			return nil, fmt.Errorf("%w: velocityX/velocityY", ErrMissingField)
		}
		return PuckHit{VelocityX: *in.VelocityX, VelocityY: *in.VelocityY}, nil

	case "":
		return nil, fmt.Errorf("%w: type", ErrMissingField)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
}

// Reason maps a decode error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	default:
		return "other"
	}
}
