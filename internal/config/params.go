// Package config carries the fixed game parameters and the archetype
// capability tables. Constants mirror the game manual values; archetype
// defaults live in an embedded YAML table so alternative parameter sets
// can be loaded from disk without recompiling.
package config

import "frcsim/internal/model"

// Match timing (seconds).
const (
	AutoDuration       = 20.0
	TransitionDuration = 10.0
	ShiftDuration      = 25.0
	EndgameDuration    = 30.0
	TotalMatchDuration = 160.0
	TickInterval       = 0.5
)

// Scoring.
const (
	FuelActiveHubPoints   = 1
	FuelInactiveHubPoints = 0
	TowerL1AutoPoints     = 15
	TowerL1TeleopPoints   = 10
	TowerL2Points         = 20
	TowerL3Points         = 30
	FoulPoints            = 5
	TechFoulPoints        = 12
)

// Ranking points.
const (
	RPWin                   = 3
	RPTie                   = 1
	RPEnergizedThreshold    = 100 // fuel scored
	RPSuperchargedThreshold = 360
	RPTraversalThreshold    = 50 // tower points
)

// Human player.
const (
	HPThrowInterval = 4.0
	HPFeedInterval  = 2.5
	HPThrowAccuracy = 0.55
)

// Field.
const (
	InitialNeutralFuel = 20
	InitialOutpostFuel = 10 // per alliance
	InitialPreloadFuel = 10 // per alliance, split across 3 robots
	TotalFuel          = 60 // conserved for the whole match
	MaxTowerOccupants  = 3
)

// Fuel physics (closed-loop recycling).
const (
	FuelHubTransitTime   = 1.5
	FuelMissRecoveryTime = 3.0
	HPThrowFlightTime    = 1.5
)

// Shooter parameters.
const (
	TurretAlignTime = 0.0
	FixedAlignTime  = 1.5
	ShootRateSingle = 3.0
	ShootRateDouble = 6.5
	ShootRateTriple = 9.0
	ShootRateDumper = 15.0
	JamClearTime    = 3.5
)

// Auto phase.
const (
	AutoL1ClimbTime   = 4.0
	AutoL1DescendTime = 3.0
	AutoPreloadMax    = 8
)

// Intake degradation.
const (
	IntakeBreakRateSimple   = 0.02
	IntakeDegradeRateSimple = 0.07
	DegradedIntakeSpeedMult = 0.5
	DegradedIntakeSuccess   = 0.60
)

// Shooter/turret reliability (per match, rolled once).
const (
	TurretFailureRate      = 0.12
	MultishotFailureRate   = 0.12
	BasicFailureRate       = 0.04
	TurretStuckAccuracyHit = 0.20
)

// Fuel pushing.
const (
	PushFuelPerTrip = 5
	PushScatterRate = 0.20
	PushTripTime    = 7.0
)

// Defense foul rates (per shift, while defending).
const (
	FoulRateNeutralZone      = 0.08
	FoulRateOpponentAlliance = 0.20
	FoulRateNearTower        = 0.25
	TechFoulRateNeutral      = 0.015
	TechFoulRateAlliance     = 0.06
	TechFoulRateTower        = 0.10
)

// PenaltyEscalation is indexed by fouls already drawn this match, capped at
// the last entry.
var PenaltyEscalation = []float64{1.0, 1.5, 2.0}

// Defense impact on the defended robot, keyed by effective shooter kind.
const (
	DefenseCycleHitTurret    = 0.35
	DefenseCycleHitFixed     = 0.50
	DefenseAccuracyHitTurret = 0.08
	DefenseAccuracyHitFixed  = 0.20
)

// Phase-aware strategy timing.
const (
	PrePositionTimeFromNeutral = 2.5
	PrePositionTimeFromOutpost = 3.0
	CrossfieldDriveTime        = 5.0
	DumpTimePerFuel            = 0.3
)

// IndexerRates is fuel/second throughput from hopper to shooter.
var IndexerRates = map[model.IndexerType]float64{
	model.IndexerSpindexer:  10.0,
	model.IndexerSerializer: 8.0,
	model.IndexerConveyor:   6.0,
	model.IndexerGravityFed: 15.0,
	model.IndexerNone:       0.0,
}

// IndexerJamRates is the jam probability per shooting burst.
var IndexerJamRates = map[model.IndexerType]float64{
	model.IndexerSpindexer:  0.005,
	model.IndexerSerializer: 0.005,
	model.IndexerConveyor:   0.01,
	model.IndexerGravityFed: 0.075,
	model.IndexerNone:       0.0,
}

// IntakeQualityParams maps intake quality to its pickup success range.
type IntakeQualityRange struct {
	SuccessLo float64
	SuccessHi float64
}

var IntakeQualityParams = map[model.IntakeQuality]IntakeQualityRange{
	model.IntakeTouchAndGo:     {SuccessLo: 0.95, SuccessHi: 0.99},
	model.IntakeSlowPickup:     {SuccessLo: 0.80, SuccessHi: 0.90},
	model.IntakePushAround:     {SuccessLo: 0.50, SuccessHi: 0.70},
	model.IntakeNoGroundPickup: {SuccessLo: 0.0, SuccessHi: 0.0},
}
