package boop

import "math"

// SpringState is the integration state of one smoothed field.
type SpringState struct {
	Y          float64
	Yd         float64
	PrevTarget float64
	PrevTime   float64
	Weird      bool
}

// NewSpringState creates a state resting at target.
func NewSpringState(target, now float64) SpringState {
	return SpringState{Y: target, PrevTarget: target, PrevTime: now}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Step advances the state by now-PrevTime toward x and returns the new
// position. weird is true when integration diverged and the state was reset
// to x with zero velocity.
//
// A step with no elapsed time and an unchanged target holds the current
// position, so re-evaluating a paused frame is not a divergence.
func (s *SpringState) Step(f, z, r, now, x float64) (y float64, weird bool) {
	dt := now - s.PrevTime
	if dt == 0 && x == s.PrevTarget {
		s.Weird = false
		return s.Y, false
	}
	xd := (x - s.PrevTarget) / dt

	k1 := z / (math.Pi * f)
	k2 := 1 / ((2 * math.Pi * f) * (2 * math.Pi * f))
	k3 := r * z / (2 * math.Pi * f)
	k2s := max(k2, dt*dt/2+dt*k1/2, dt*k1)

	s.Y += dt * s.Yd
	s.Yd += dt * (x + k3*xd - s.Y - k1*s.Yd) / k2s

	s.PrevTarget = x
	s.PrevTime = now

	if !isFinite(s.Y) || !isFinite(s.Yd) {
		s.Y = x
		s.Yd = 0
		s.Weird = true
		return x, true
	}
	s.Weird = false
	return s.Y, false
}
