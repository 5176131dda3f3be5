package domain

import "math"

// SelfSnapshot describes the observing fighter's own state.
type SelfSnapshot struct {
	Health        int     `json:"health"`
	HealthPercent float64 `json:"healthPercent"`
	Magic         int     `json:"magic"`
	MagicPercent  float64 `json:"magicPercent"`
	Position      Vec2    `json:"position"`
	Velocity      Vec2    `json:"velocity"`
	State         FighterState `json:"state"`
	Facing        Facing  `json:"facing"`
	Grounded      bool    `json:"grounded"`
	CanAct        bool    `json:"canAct"`
	ComboCounter  int     `json:"comboCounter"`
}

// OpponentSnapshot describes what the observing fighter can see of the
// opponent.
type OpponentSnapshot struct {
	Health        int          `json:"health"`
	HealthPercent float64      `json:"healthPercent"`
	Position      Vec2         `json:"position"`
	State         FighterState `json:"state"`
	Facing        Facing       `json:"facing"`
	Attacking     bool         `json:"attacking"`
	Blocking      bool         `json:"blocking"`
	Vulnerable    bool         `json:"vulnerable"`
	Grounded      bool         `json:"grounded"`
}

// Observation is everything a bot receives to decide its next input.
type Observation struct {
	Self     SelfSnapshot     `json:"self"`
	Opponent OpponentSnapshot `json:"opponent"`

	Distance           float64 `json:"distance"`
	InRangeNormal      bool    `json:"inRangeNormal"`
	InRangeSpecial     bool    `json:"inRangeSpecial"`

	Round        int `json:"round"`
	RoundsWonSelf int `json:"roundsWonSelf"`
	RoundsWonOpp  int `json:"roundsWonOpp"`
	RoundSeconds int `json:"roundSeconds"`

	Frame              int64 `json:"frame"`
	DecisionDeadlineMs int64 `json:"decisionDeadlineMs"`

	ValidActions []string `json:"validActions"`
}

// BuildObservation produces the observation for `self` (Player1 or
// Player2) at the simulation's current frame. DecisionDeadlineMs is left
// zero — the match runtime fills it in with this tick's decision deadline
// (tick time plus the decision timeout).
func BuildObservation(sim *Simulation, self PlayerSlot) Observation {
	opponent := Player2
	if self == Player2 {
		opponent = Player1
	}
	s := &sim.Fighters[self]
	o := &sim.Fighters[opponent]

	distance := math.Abs(s.Position.X - o.Position.X)

	obs := Observation{
		Self: SelfSnapshot{
			Health:        s.Health,
			HealthPercent: percent(s.Health, s.MaxHealth),
			Magic:         s.Magic,
			MagicPercent:  percent(s.Magic, s.MaxMagic),
			Position:      s.Position,
			Velocity:      s.Velocity,
			State:         s.State,
			Facing:        s.Facing,
			Grounded:      s.Grounded,
			CanAct:        s.CanAct,
			ComboCounter:  s.ComboCounter,
		},
		Opponent: OpponentSnapshot{
			Health:        o.Health,
			HealthPercent: percent(o.Health, o.MaxHealth),
			Position:      o.Position,
			State:         o.State,
			Facing:        o.Facing,
			Attacking:     o.State == StateAttacking,
			Blocking:      o.State == StateBlocking,
			Vulnerable:    isVulnerable(o),
			Grounded:      o.Grounded,
		},
		Distance:       distance,
		InRangeNormal:  distance <= Spec(AttackHeavy).Reach,
		InRangeSpecial: distance <= Spec(AttackSpecial).Reach,
		Round:          sim.Round,
		RoundsWonSelf:  sim.RoundsWon[self],
		RoundsWonOpp:   sim.RoundsWon[opponent],
		RoundSeconds:   sim.RoundSeconds,
		Frame:          sim.Frame,
		ValidActions:   validActions(s),
	}
	return obs
}

func percent(value, max int) float64 {
	if max == 0 {
		return 0
	}
	return float64(value) / float64(max) * 100
}

// validActions lists the action names usable given the fighter's current
// canAct state and magic.
func validActions(f *Fighter) []string {
	if !f.CanAct {
		return nil
	}
	actions := []string{"left", "right", "attack1", "attack2"}
	if f.Grounded {
		actions = append(actions, "jump", "down")
	}
	if f.Magic >= Spec(AttackSpecial).MagicCost {
		actions = append(actions, "special")
	}
	return actions
}
