package domain

import "math"

// resolveHits performs the P1->P2 and P2->P1 hit checks for one tick, in
// that fixed order, and returns the events either produced. A trade (both
// connect the same frame) resolves both independently: each attacker marks
// itself has-hit for the frame before the other check runs, so neither side
// can register a second hit this frame.
func resolveHits(sim *Simulation) []Event {
	var events []Event

	if ev, ok := resolveOneHit(sim, Player1, Player2); ok {
		events = append(events, ev...)
	}
	if ev, ok := resolveOneHit(sim, Player2, Player1); ok {
		events = append(events, ev...)
	}
	return events
}

func resolveOneHit(sim *Simulation, attackerIdx, defenderIdx PlayerSlot) ([]Event, bool) {
	attacker := &sim.Fighters[attackerIdx]
	defender := &sim.Fighters[defenderIdx]

	if attacker.State != StateAttacking || attacker.CurrentAttackPhase != AttackPhaseActive {
		return nil, false
	}
	if attacker.HitThisFrame {
		return nil, false
	}
	if !isVulnerable(defender) {
		return nil, false
	}

	spec := Spec(attacker.CurrentAttack)
	distance := math.Abs(attacker.Position.X - defender.Position.X)
	if distance > spec.Reach {
		return nil, false
	}

	attacker.HitThisFrame = true
	return applyHit(sim, attackerIdx, defenderIdx, spec), true
}

// applyHit computes final damage, applies it and its side effects to the
// defender, and returns the damage/KO events it produced.
func applyHit(sim *Simulation, attackerIdx, defenderIdx PlayerSlot, spec AttackSpec) []Event {
	attacker := &sim.Fighters[attackerIdx]
	defender := &sim.Fighters[defenderIdx]

	damage := float64(spec.Damage)

	isCombo := attacker.ComboCounter >= ComboScalingStartsAt
	if isCombo {
		scale := math.Pow(ComboDamageFactor, float64(attacker.ComboCounter-ComboScalingStartsAt+1))
		if scale < ComboDamageFloor {
			scale = ComboDamageFloor
		}
		damage *= scale
	}

	counterHit := defender.State == StateAttacking &&
		(defender.CurrentAttackPhase == AttackPhaseStartup || defender.CurrentAttackPhase == AttackPhaseRecovery)
	if counterHit {
		damage *= CounterHitBonus
	}

	finalDamage := int(math.Round(damage))
	if finalDamage < 1 {
		finalDamage = 1
	}

	attacker.Magic += MagicGainOnHit
	if attacker.Magic > attacker.MaxMagic {
		attacker.Magic = attacker.MaxMagic
	}

	defender.Health -= finalDamage
	if defender.Health < 0 {
		defender.Health = 0
	}

	attackerIsLeft := attacker.Position.X <= defender.Position.X
	applyKnockback(defender, attackerIsLeft, spec.Knockback)

	defender.HitstunFrames = spec.HitstunFrames
	defender.StateStartFrame = sim.Frame
	if spec.CausesKnockdown {
		defender.State = StateKnockdown
	} else {
		defender.State = StateHitstun
	}
	defender.CanAct = false

	comboIndex := attacker.ComboCounter + 1
	attacker.ComboCounter = comboIndex
	attacker.LastAttackFrame = sim.Frame
	attacker.ComboLastHitFrame = sim.Frame

	if spec.CausesKnockdown || defender.ComboLastHitFrame == 0 || sim.Frame-defender.ComboLastHitFrame > ComboWindowFrames {
		defender.ComboCounter = 0
	}

	events := []Event{{
		Kind: EventDamage,
		Payload: DamagePayload{
			Attacker:       attackerIdx,
			Defender:       defenderIdx,
			AttackKind:     attacker.CurrentAttack,
			Damage:         finalDamage,
			IsCombo:        isCombo,
			ComboIndex:     comboIndex,
			DefenderHealth: defender.Health,
			Frame:          sim.Frame,
		},
	}}

	if defender.Health == 0 {
		defender.State = StateKO
		defender.CanAct = false
		events = append(events, Event{Kind: EventKO, Payload: KOPayload{Loser: defenderIdx, Frame: sim.Frame}})
		sim.Phase = PhaseKO
	}

	return events
}
