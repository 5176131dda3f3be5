package domain

// AttackSpec is the fixed frame budget and effect profile for one attack
// kind. Startup/Active/Recovery are in frames; the attacker is vulnerable
// to being countered during Startup and Recovery but not Active.
type AttackSpec struct {
	Startup  int64
	Active   int64
	Recovery int64

	Damage        int
	Knockback     Vec2
	HitstunFrames int64
	CausesKnockdown bool
	MagicCost     int
	Airborne      bool
	Reach         float64 // max attacker-defender distance that still connects
}

var attackTable = map[AttackKind]AttackSpec{
	AttackLight1: {Startup: 4, Active: 3, Recovery: 6, Damage: 30, Knockback: Vec2{X: 60, Y: 0}, HitstunFrames: 14, Reach: 70},
	AttackLight2: {Startup: 3, Active: 3, Recovery: 7, Damage: 35, Knockback: Vec2{X: 70, Y: 0}, HitstunFrames: 15, Reach: 70},
	AttackLight3: {Startup: 3, Active: 3, Recovery: 8, Damage: 40, Knockback: Vec2{X: 80, Y: 0}, HitstunFrames: 16, Reach: 70},
	AttackLight4: {Startup: 4, Active: 4, Recovery: 14, Damage: 55, Knockback: Vec2{X: 160, Y: 220}, HitstunFrames: 22, CausesKnockdown: true, Reach: 75},
	AttackHeavy:  {Startup: 10, Active: 5, Recovery: 18, Damage: 90, Knockback: Vec2{X: 220, Y: 160}, HitstunFrames: 26, CausesKnockdown: true, Reach: 90},
	AttackAirLight: {Startup: 4, Active: 4, Recovery: 8, Damage: 35, Knockback: Vec2{X: 90, Y: -40}, HitstunFrames: 16, Airborne: true, Reach: 80},
	AttackAirHeavy: {Startup: 6, Active: 5, Recovery: 12, Damage: 70, Knockback: Vec2{X: 140, Y: 260}, HitstunFrames: 22, CausesKnockdown: true, Airborne: true, Reach: 85},
	AttackSpecial: {Startup: 12, Active: 6, Recovery: 20, Damage: 140, Knockback: Vec2{X: 260, Y: 180}, HitstunFrames: 30, CausesKnockdown: true, MagicCost: SpecialCost, Reach: 140},
}

// Spec returns the frame/effect budget for an attack kind.
func Spec(kind AttackKind) AttackSpec {
	return attackTable[kind]
}

// TotalFrames is the full startup+active+recovery duration of an attack.
func (s AttackSpec) TotalFrames() int64 {
	return s.Startup + s.Active + s.Recovery
}

// PhaseAt returns which sub-phase the attack is in at framesInState ticks
// since it began.
func (s AttackSpec) PhaseAt(framesInState int64) AttackPhase {
	switch {
	case framesInState < s.Startup:
		return AttackPhaseStartup
	case framesInState < s.Startup+s.Active:
		return AttackPhaseActive
	case framesInState < s.TotalFrames():
		return AttackPhaseRecovery
	default:
		return AttackPhaseNone
	}
}
