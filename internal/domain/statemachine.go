package domain

// canAct reports whether a fighter may act on input this frame.
func canAct(f *Fighter) bool {
	switch f.State {
	case StateHitstun, StateKnockdown, StateGettingUp, StateKO:
		return false
	}
	if f.State == StateAttacking && f.CurrentAttackPhase != AttackPhaseNone {
		return false
	}
	return true
}

// resolveInput applies the input-priority list from the spec to a fighter
// that currently can act. It only changes State/CurrentAttack/velocity
// intent; integrate() performs the actual movement.
func resolveInput(f *Fighter, in Input, frame int64) {
	f.CanAct = canAct(f)
	if !f.CanAct {
		return
	}

	switch {
	case in.Special && f.Magic >= Spec(AttackSpecial).MagicCost:
		startAttack(f, AttackSpecial, frame)
		f.Magic -= Spec(AttackSpecial).MagicCost

	case in.Attack1:
		if f.Grounded {
			startLightChain(f, frame)
		} else {
			startAttack(f, AttackAirLight, frame)
		}

	case in.Attack2:
		if f.Grounded {
			startAttack(f, AttackHeavy, frame)
		} else {
			startAttack(f, AttackAirHeavy, frame)
		}

	case in.Jump && f.Grounded:
		f.State = StateJumping
		f.StateStartFrame = frame
		f.Velocity.Y = JumpVelocity
		f.Grounded = false

	case in.Down && f.Grounded && !in.Left && !in.Right:
		setState(f, StateBlocking, frame)

	case in.Left || in.Right:
		next := StateWalking
		if f.State == StateWalking || f.State == StateRunning {
			next = StateRunning
		}
		setState(f, next, frame)

	default:
		if f.Grounded {
			setState(f, StateIdle, frame)
		}
	}
}

func setState(f *Fighter, s FighterState, frame int64) {
	if f.State == s {
		return
	}
	f.State = s
	f.StateStartFrame = frame
}

// startLightChain starts the next light attack of the chain (light_1 ->
// light_2 -> light_3 -> light_4) when the fighter is in the recovery phase
// of a light attack, otherwise a fresh light_1. resolveInput calls it only
// when canAct is true, and canAct is false in every phase of an attack, so
// a grounded attack1 always starts light_1.
func startLightChain(f *Fighter, frame int64) {
	next := AttackLight1
	if f.State == StateAttacking && isLightAttack(f.CurrentAttack) && f.CurrentAttackPhase == AttackPhaseRecovery {
		next = nextLightInChain(f.CurrentAttack)
	}
	startAttack(f, next, frame)
}

func isLightAttack(k AttackKind) bool {
	switch k {
	case AttackLight1, AttackLight2, AttackLight3, AttackLight4:
		return true
	}
	return false
}

func nextLightInChain(k AttackKind) AttackKind {
	switch k {
	case AttackLight1:
		return AttackLight2
	case AttackLight2:
		return AttackLight3
	case AttackLight3:
		return AttackLight4
	default:
		return AttackLight1
	}
}

func startAttack(f *Fighter, kind AttackKind, frame int64) {
	f.State = StateAttacking
	f.CurrentAttack = kind
	f.CurrentAttackPhase = AttackPhaseStartup
	f.StateStartFrame = frame
	f.HitThisFrame = false
}

// tickAttackPhase recomputes the attack sub-phase from elapsed frames, and
// returns the fighter to idle/falling once the attack completes.
func tickAttackPhase(f *Fighter, frame int64) {
	if f.State != StateAttacking {
		return
	}
	spec := Spec(f.CurrentAttack)
	elapsed := frame - f.StateStartFrame
	f.CurrentAttackPhase = spec.PhaseAt(elapsed)
	if f.CurrentAttackPhase == AttackPhaseNone {
		f.CurrentAttack = AttackNone
		if f.Grounded {
			setState(f, StateIdle, frame)
		} else {
			setState(f, StateFalling, frame)
		}
	}
}

// isVulnerable reports whether a fighter can be hit right now.
func isVulnerable(f *Fighter) bool {
	if f.Invincible {
		return false
	}
	if f.State == StateBlocking {
		return false
	}
	return true
}

// tickTimedStates advances hitstun/knockdown/getting-up durations and
// performs their terminal transitions.
func tickTimedStates(f *Fighter, frame int64) {
	elapsed := frame - f.StateStartFrame
	switch f.State {
	case StateHitstun:
		if elapsed >= f.hitstunBudget() {
			if f.Grounded {
				setState(f, StateIdle, frame)
			} else {
				setState(f, StateFalling, frame)
			}
		}
	case StateKnockdown:
		if elapsed >= KnockdownFrames {
			setState(f, StateGettingUp, frame)
			f.Invincible = true
		}
	case StateGettingUp:
		if elapsed == GettingUpInvulnFrames {
			f.Invincible = false
		}
		if elapsed >= GettingUpFrames {
			setState(f, StateIdle, frame)
			f.Invincible = false
		}
	}
}

// hitstunBudget tracks the hitstun length set by the most recent hit; see
// applyHit where it is stashed via LastAttackFrame reuse is avoided by
// storing it on the fighter directly.
func (f *Fighter) hitstunBudget() int64 {
	return f.HitstunFrames
}
