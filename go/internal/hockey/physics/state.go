package physics

import "math"

// Side identifies one half of the rink. Side one defends the left goal.
type Side int

const (
	NoSide  Side = 0
	SideOne Side = 1
	SideTwo Side = 2
)

// Valid reports whether s names a player.
func (s Side) Valid() bool {
	return s == SideOne || s == SideTwo
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case SideOne:
		return SideTwo
	case SideTwo:
		return SideOne
	default:
		return NoSide
	}
}

// Puck is the authoritative puck position and per-tick velocity.
type Puck struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"velocityX"`
	VY float64 `json:"velocityY"`
}

// Speed returns the magnitude of the puck velocity.
func (p Puck) Speed() float64 {
	return math.Hypot(p.VX, p.VY)
}

// Paddle is a player's mallet position.
type Paddle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Score counts goals per side. It only ever grows.
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
}

// Award credits one goal to side.
func (s *Score) Award(side Side) {
	switch side {
	case SideOne:
		s.Player1++
	case SideTwo:
		s.Player2++
	}
}

// Coin is a source of independent fair coin flips.
type Coin interface {
	Flip() bool
}

// CoinFunc adapts a function to Coin.
type CoinFunc func() bool

func (f CoinFunc) Flip() bool { return f() }
