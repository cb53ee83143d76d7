// Package physics simulates the puck on an air hockey rink.
//
// Everything here is a pure function of its arguments: no clocks, no I/O and
// no hidden randomness. Goal resets take a Coin so callers control the
// direction the puck restarts in.
package physics

import "math"

// Integrate moves the puck by one tick of its velocity.
func Integrate(p *Puck) {
	p.X += p.VX
	p.Y += p.VY
}

// ApplyFriction decays the velocity by the per-tick factor f.
func ApplyFriction(p *Puck, f float64) {
	p.VX *= f
	p.VY *= f
}

// BounceWalls reflects the puck off the top and bottom edges and pulls it back
// inside the rink. It reports whether a bounce happened.
func BounceWalls(p *Puck, t Table) bool {
	r := t.PuckRadius
	if p.Y-r > 0 && p.Y+r < t.Height {
		return false
	}
	p.VY = -p.VY
	p.Y = clamp(p.Y, r, t.Height-r)
	return true
}

// CheckSides handles the left and right edges. A crossing inside the goal
// mouth returns the scoring side and leaves the puck untouched; any other
// crossing reflects and clamps like a wall.
func CheckSides(p *Puck, t Table) Side {
	r := t.PuckRadius
	left := p.X-r <= 0
	right := p.X+r >= t.Width
	if !left && !right {
		return NoSide
	}

	if t.InGoalMouth(p.Y) {
		// the goal on the left is defended by side one
		if left {
			return SideTwo
		}
		return SideOne
	}

	p.VX = -p.VX
	p.X = clamp(p.X, r, t.Width-r)
	return NoSide
}

// ResetPuck centres the puck and launches it diagonally. Each axis picks its
// sign from an independent flip.
func ResetPuck(p *Puck, t Table, coin Coin) {
	p.X, p.Y = t.Center()
	p.VX = signed(t.ResetSpeed, coin.Flip())
	p.VY = signed(t.ResetSpeed, coin.Flip())
}

// Step advances the puck by one tick. It returns the side that scored, or
// NoSide. After a goal the puck has already been reset.
func Step(p *Puck, t Table, coin Coin) Side {
	Integrate(p)
	ApplyFriction(p, t.Friction)
	BounceWalls(p, t)

	scorer := CheckSides(p, t)
	if scorer != NoSide {
		ResetPuck(p, t, coin)
	}
	return scorer
}

// ClampPaddle keeps a paddle fully on the rink.
func ClampPaddle(pd Paddle, t Table) Paddle {
	r := t.PaddleRadius
	return Paddle{
		X: clamp(pd.X, r, t.Width-r),
		Y: clamp(pd.Y, r, t.Height-r),
	}
}

// CapSpeed scales (vx, vy) down so its magnitude does not exceed max.
func CapSpeed(vx, vy, max float64) (float64, float64) {
	speed := math.Hypot(vx, vy)
	if speed <= max || speed == 0 {
		return vx, vy
	}
	scale := max / speed
	return vx * scale, vy * scale
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func signed(v float64, positive bool) float64 {
	if positive {
		return v
	}
	return -v
}
