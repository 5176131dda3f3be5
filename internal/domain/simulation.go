package domain

// NewSimulation creates a fresh match simulation for two bots and returns
// the events produced by entering round 1 (a single RoundStart).
func NewSimulation(matchID, p1BotID, p2BotID string) (*Simulation, []Event) {
	sim := &Simulation{
		MatchID: matchID,
		Frame:   0,
		Phase:   PhaseCountdown,
		Fighters: [2]Fighter{
			{BotID: p1BotID, MaxHealth: DefaultMaxHealth, MaxMagic: DefaultMaxMagic},
			{BotID: p2BotID, MaxHealth: DefaultMaxHealth, MaxMagic: DefaultMaxMagic},
		},
		Round:        0,
		RoundsToWin:  RoundsToWin,
		RoundSeconds: RoundTimeSeconds,
	}
	events := startRound(sim)
	return sim, events
}

// WithRoundsToWin overrides the number of rounds needed to take the match;
// it must be called before the first Tick.
func (sim *Simulation) WithRoundsToWin(n int) *Simulation {
	sim.RoundsToWin = n
	return sim
}

// Tick advances the simulation by exactly one frame given each fighter's
// input for that frame, and returns the events emitted. Tick is a pure
// function of (Simulation, p1In, p2In, tickRate): identical inputs over an
// identical tick sequence always produce identical resulting state and
// identical event sequences.
func Tick(sim *Simulation, p1In, p2In Input, tickRate int) []Event {
	sim.Frame++

	switch sim.Phase {
	case PhaseCountdown:
		return tickCountdown(sim)
	case PhaseFighting:
		return tickFighting(sim, p1In, p2In, tickRate)
	case PhaseKO, PhaseTimeout:
		return tickRoundResolution(sim)
	case PhaseRoundEnd:
		return tickRoundEnd(sim)
	default: // PhaseMatchEnd: terminal
		return nil
	}
}

func tickFighting(sim *Simulation, p1In, p2In Input, tickRate int) []Event {
	deltaTime := 1.0 / float64(tickRate)

	p1 := &sim.Fighters[Player1]
	p2 := &sim.Fighters[Player2]
	p1.HitThisFrame = false
	p2.HitThisFrame = false

	resolveInput(p1, p1In, sim.Frame)
	resolveInput(p2, p2In, sim.Frame)

	tickAttackPhase(p1, sim.Frame)
	tickAttackPhase(p2, sim.Frame)

	updateFacing(p1, p2)
	updateFacing(p2, p1)

	integrate(p1, p1In.Left, p1In.Right, deltaTime)
	integrate(p2, p2In.Left, p2In.Right, deltaTime)

	events := resolveHits(sim)

	tickTimedStates(p1, sim.Frame)
	tickTimedStates(p2, sim.Frame)

	if sim.Phase != PhaseFighting {
		// A KO was just registered inside resolveHits.
		return events
	}

	sim.secondTickAccum++
	if sim.secondTickAccum >= float64(tickRate) {
		sim.secondTickAccum -= float64(tickRate)
		sim.RoundSeconds--
		if sim.RoundSeconds <= 0 {
			sim.Phase = PhaseTimeout
		}
	}

	return events
}
