package domain

// Stage geometry, in abstract stage units.
const (
	StageMinX = 0.0
	StageMaxX = 1000.0
	GroundY   = 0.0
)

// Physics tuning. Velocities are units/second; the simulation integrates at
// whatever tick rate the match runtime is configured with.
const (
	WalkSpeed        = 120.0
	RunSpeed         = 220.0
	Acceleration     = 900.0 // units/sec^2 applied toward the target velocity
	Gravity          = 1800.0
	JumpVelocity     = 620.0
	KnockbackDivisor = 1.0
)

// Resource defaults.
const (
	DefaultMaxHealth = 1000
	DefaultMaxMagic  = 100
	SpecialCost      = 25
	MagicGainOnHit   = 6
)

// Frame budgets for timed states (all in ticks, independent of tick rate —
// the simulation is specified as a function of frames, not wall time, so
// that higher tick rates do not change gameplay pacing as long as inputs
// are supplied every tick).
const (
	CountdownFrames       = 90
	RoundEndFrames        = 120
	KnockdownFrames       = 45
	GettingUpFrames       = 30
	GettingUpInvulnFrames = 18
	RoundsToWin           = 2
	RoundTimeSeconds      = 99
)

// Combo scaling.
const (
	ComboScalingStartsAt = 3
	ComboDamageFactor    = 0.88
	ComboDamageFloor     = 0.25
	ComboWindowFrames    = 45
	CounterHitBonus      = 1.3
)

// Light-attack chain length.
const LightComboChainLength = 4
