package domain

import "math"

// integrate applies one tick of movement to f: horizontal input is lerped
// toward a target speed, gravity accumulates while airborne, and position
// is clamped to the stage.
func integrate(f *Fighter, moveLeft, moveRight bool, deltaTime float64) {
	targetSpeed := 0.0
	if f.CanAct && (f.State == StateWalking || f.State == StateRunning || f.State == StateIdle) {
		maxSpeed := WalkSpeed
		if f.State == StateRunning {
			maxSpeed = RunSpeed
		}
		if moveLeft && !moveRight {
			targetSpeed = -maxSpeed
		} else if moveRight && !moveLeft {
			targetSpeed = maxSpeed
		}
	}

	f.Velocity.X = lerpToward(f.Velocity.X, targetSpeed, Acceleration*deltaTime)

	if !f.Grounded {
		f.Velocity.Y -= Gravity * deltaTime
	}

	f.Position.X += f.Velocity.X * deltaTime
	f.Position.Y += f.Velocity.Y * deltaTime

	if f.Position.X < StageMinX {
		f.Position.X = StageMinX
	}
	if f.Position.X > StageMaxX {
		f.Position.X = StageMaxX
	}

	if f.Position.Y <= GroundY {
		f.Position.Y = GroundY
		wasAirborne := !f.Grounded
		f.Grounded = true
		f.Velocity.Y = 0
		if wasAirborne {
			onLand(f)
		}
	} else {
		f.Grounded = false
	}
}

// onLand handles the grounded transition fired by integrate when a fighter
// touches down after being airborne.
func onLand(f *Fighter) {
	if f.State == StateJumping || f.State == StateFalling {
		f.State = StateIdle
	}
}

func lerpToward(current, target, maxDelta float64) float64 {
	if current < target {
		return math.Min(current+maxDelta, target)
	}
	if current > target {
		return math.Max(current-maxDelta, target)
	}
	return current
}

// updateFacing turns a fighter to face the opponent, unless they are mid
// attack (facing is locked for the duration of an attack).
func updateFacing(f *Fighter, opponent *Fighter) {
	if !f.CanAct || f.State == StateAttacking {
		return
	}
	if opponent.Position.X > f.Position.X {
		f.Facing = FacingRight
	} else if opponent.Position.X < f.Position.X {
		f.Facing = FacingLeft
	}
}

// applyKnockback sets velocity away from the attacker and clears grounded.
func applyKnockback(f *Fighter, attackerIsLeft bool, kb Vec2) {
	sign := 1.0
	if attackerIsLeft {
		sign = 1.0
	} else {
		sign = -1.0
	}
	f.Velocity.X = sign * kb.X
	f.Velocity.Y = kb.Y
	f.Grounded = false
}
