package domain

// tickCountdown advances the pre-round countdown. No input is processed
// during countdown.
func tickCountdown(sim *Simulation) []Event {
	sim.CountdownTimer--
	if sim.CountdownTimer <= 0 {
		sim.Phase = PhaseFighting
	}
	return nil
}

// tickRoundResolution determines the round winner from a KO or timeout and
// moves the match into round_end. It fires exactly one tick after the KO or
// timeout condition was first detected.
func tickRoundResolution(sim *Simulation) []Event {
	var winner *int
	switch sim.Phase {
	case PhaseKO:
		for i := range sim.Fighters {
			if sim.Fighters[i].State == StateKO {
				w := 1 - i
				winner = &w
				break
			}
		}
	case PhaseTimeout:
		p1, p2 := sim.Fighters[Player1].Health, sim.Fighters[Player2].Health
		if p1 > p2 {
			w := int(Player1)
			winner = &w
		} else if p2 > p1 {
			w := int(Player2)
			winner = &w
		}
	}

	if winner != nil {
		sim.RoundsWon[*winner]++
	}

	sim.Phase = PhaseRoundEnd
	sim.RoundEndTimer = RoundEndFrames
	return nil
}

// tickRoundEnd advances the post-round pause, then either ends the match or
// starts the next round.
func tickRoundEnd(sim *Simulation) []Event {
	sim.RoundEndTimer--
	if sim.RoundEndTimer > 0 {
		return nil
	}

	if sim.RoundsWon[Player1] >= sim.RoundsToWin || sim.RoundsWon[Player2] >= sim.RoundsToWin {
		return endMatch(sim)
	}

	return startRound(sim)
}

// startRound resets both fighters to spawn and begins the next countdown.
func startRound(sim *Simulation) []Event {
	sim.Round++
	resetFighterForRound(&sim.Fighters[Player1], StageMaxX*0.35, FacingRight)
	resetFighterForRound(&sim.Fighters[Player2], StageMaxX*0.65, FacingLeft)
	sim.RoundSeconds = RoundTimeSeconds
	sim.secondTickAccum = 0
	sim.Phase = PhaseCountdown
	sim.CountdownTimer = CountdownFrames

	return []Event{{Kind: EventRoundStart, Payload: RoundStartPayload{RoundNumber: sim.Round}}}
}

func resetFighterForRound(f *Fighter, x float64, facing Facing) {
	f.Health = f.MaxHealth
	f.Magic = 0
	f.Position = Vec2{X: x, Y: GroundY}
	f.Velocity = Vec2{}
	f.Facing = facing
	f.State = StateIdle
	f.Grounded = true
	f.CanAct = true
	f.ComboCounter = 0
	f.ComboLastHitFrame = 0
	f.CurrentAttack = AttackNone
	f.CurrentAttackPhase = AttackPhaseNone
	f.Invincible = false
	f.HitThisFrame = false
}

// endMatch marks the simulation terminal and records the match winner: the
// bot with more rounds won, or nil on an overall draw.
func endMatch(sim *Simulation) []Event {
	sim.Phase = PhaseMatchEnd

	var winner *PlayerSlot
	if sim.RoundsWon[Player1] > sim.RoundsWon[Player2] {
		w := Player1
		winner = &w
	} else if sim.RoundsWon[Player2] > sim.RoundsWon[Player1] {
		w := Player2
		winner = &w
	}
	sim.Winner = winner

	return []Event{{
		Kind: EventMatchEnd,
		Payload: MatchEndPayload{
			Winner:   winner,
			P1Rounds: sim.RoundsWon[Player1],
			P2Rounds: sim.RoundsWon[Player2],
		},
	}}
}
