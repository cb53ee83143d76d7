package physics

import (
	"errors"
	"fmt"
)

// Table holds the rink geometry and the per-tick physics constants.
// The server's values are authoritative for scoring and for what clients render.
type Table struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	PuckRadius   float64 `yaml:"puck_radius"`
	PaddleRadius float64 `yaml:"paddle_radius"`
	GoalWidth    float64 `yaml:"goal_width"`
	GoalHeight   float64 `yaml:"goal_height"`
	Friction     float64 `yaml:"friction"`
	ResetSpeed   float64 `yaml:"reset_speed"`
	MaxHitSpeed  float64 `yaml:"max_hit_speed"`
}

// Default rink values.
const (
	DefaultWidth        = 800.0
	DefaultHeight       = 600.0
	DefaultPuckRadius   = 10.0
	DefaultPaddleRadius = 30.0
	DefaultGoalWidth    = 8.0
	DefaultGoalHeight   = 120.0
	DefaultFriction     = 0.99
	DefaultResetSpeed   = 3.0
	DefaultMaxHitSpeed  = 20.0

	// paddleInset is the distance of each paddle's spawn point from its own edge.
	paddleInset = 100.0
)

var ErrInvalidTable = errors.New("invalid table")

// DefaultTable returns the canonical rink.
func DefaultTable() Table {
	return Table{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		PuckRadius:   DefaultPuckRadius,
		PaddleRadius: DefaultPaddleRadius,
		GoalWidth:    DefaultGoalWidth,
		GoalHeight:   DefaultGoalHeight,
		Friction:     DefaultFriction,
		ResetSpeed:   DefaultResetSpeed,
		MaxHitSpeed:  DefaultMaxHitSpeed,
	}
}

// Validate reports whether the table can be simulated.
func (t Table) Validate() error {
	switch {
	case t.Width <= 0 || t.Height <= 0:
		return fmt.Errorf("%w: dimensions must be positive, got %gx%g", ErrInvalidTable, t.Width, t.Height)
	case t.PuckRadius <= 0 || 2*t.PuckRadius >= t.Width || 2*t.PuckRadius >= t.Height:
		return fmt.Errorf("%w: puck radius %g does not fit the table", ErrInvalidTable, t.PuckRadius)
	case t.Friction <= 0 || t.Friction >= 1:
		return fmt.Errorf("%w: friction must be in (0,1), got %g", ErrInvalidTable, t.Friction)
	case t.GoalHeight <= 0 || t.GoalHeight > t.Height:
		return fmt.Errorf("%w: goal height %g out of range", ErrInvalidTable, t.GoalHeight)
	case t.GoalWidth < 0:
		return fmt.Errorf("%w: goal width must not be negative", ErrInvalidTable)
	case t.MaxHitSpeed <= 0:
		return fmt.Errorf("%w: max hit speed must be positive", ErrInvalidTable)
	}
	return nil
}

// Center returns the middle of the rink.
func (t Table) Center() (float64, float64) {
	return t.Width / 2, t.Height / 2
}

// GoalTop and GoalBottom bound the goal mouth on both side edges.
func (t Table) GoalTop() float64    { return t.Height/2 - t.GoalHeight/2 }
func (t Table) GoalBottom() float64 { return t.Height/2 + t.GoalHeight/2 }

// InGoalMouth reports whether a vertical position lies inside the goal mouth.
func (t Table) InGoalMouth(y float64) bool {
	return y >= t.GoalTop() && y <= t.GoalBottom()
}

// StartingPaddle returns the spawn position for a side.
func (t Table) StartingPaddle(side Side) Paddle {
	if side == SideTwo {
		return Paddle{X: t.Width - paddleInset, Y: t.Height / 2}
	}
	return Paddle{X: paddleInset, Y: t.Height / 2}
}
