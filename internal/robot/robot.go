// Package robot drives a single robot through the match as a staged state
// machine: each stage sets an action and a countdown, and stage completion
// decides the next stage. Robots never award points themselves; they expose
// state the match engine reads when resolving shots, defense and climbs.
package robot

import (
	"math/rand"

	"frcsim/internal/config"
	"frcsim/internal/model"
)

// Ledger is the slice of the field manager a robot touches directly. Fuel
// intake is the only way fuel enters a robot from the floor; deposits are
// the push-trip return path.
type Ledger interface {
	TryIntake(a model.Alliance, zone model.RobotZone, amount int) int
	DepositNeutral(count int)
}

// cycleStage identifies where a robot is inside its current multi-step
// cycle. Stages are advanced when the action countdown reaches zero.
type cycleStage string

const (
	stageIdle cycleStage = "idle"

	// Scoring cycle.
	stageDriveToFuel    cycleStage = "drive_to_fuel"
	stageIntaking       cycleStage = "intaking"
	stageDriveToHub     cycleStage = "drive_to_hub"
	stageAligning       cycleStage = "aligning"
	stageShooting       cycleStage = "shooting"
	stageDumping        cycleStage = "dumping"
	stageDriveToOutpost cycleStage = "drive_to_outpost"
	stageWaitingForFeed cycleStage = "waiting_for_feed"

	// Stockpiling.
	stageStockpileDrive  cycleStage = "stockpile_drive"
	stageStockpileIntake cycleStage = "stockpile_intake"
	stagePrePositioning  cycleStage = "pre_positioning"

	// Defense and pushing.
	stageDefenseDrive cycleStage = "defense_drive"
	stageDefending    cycleStage = "defending"
	stagePushing      cycleStage = "pushing"

	// Endgame climb.
	stageClimbing cycleStage = "climbing"

	// Autonomous.
	stageAutoDrive          cycleStage = "auto_drive"
	stageAutoShoot          cycleStage = "auto_shoot"
	stageAutoDriveToNeutral cycleStage = "auto_drive_to_neutral"
	stageAutoIntake         cycleStage = "auto_intake"
	stageAutoClimbDrive     cycleStage = "auto_climb_drive"
	stageAutoClimb          cycleStage = "auto_climb"
	stageAutoDescend        cycleStage = "auto_descend"
	stageAutoDisruptDrive   cycleStage = "auto_disrupt_drive"
	stageAutoDisrupting     cycleStage = "auto_disrupting"

	stageTransition cycleStage = "transition"
)

// Robot simulates one robot for the duration of a match.
type Robot struct {
	ID       string
	Alliance model.Alliance
	Config   model.RobotConfig

	rng   *rand.Rand
	arch  config.ArchetypeDef
	state *model.RobotState

	// Effective performance numbers; defense penalties and mechanism
	// failures adjust these at runtime.
	cycleTimeMean    float64
	cycleTimeStddev  float64
	accuracy         float64
	shootRate        float64
	intakeRate       float64
	effectiveShooter model.ShooterType
	intakeQuality    model.IntakeQuality

	failuresChecked bool

	// Autonomous routine tracking.
	autoFuelScored      int
	autoCyclesCompleted int
	autoClimbAttempted  bool
	autoClimbScored     bool
	autoShooting        bool
	autoDescending      bool

	stockpileReady bool
	stage          cycleStage
	cycleTotal     float64

	foulCheckedThisShift bool
	lastPhase            model.Phase
	climbAttempted       bool

	// Cumulative useful fuel delivered by push trips.
	fuelPushedTotal int
}

// New builds a robot in its pre-match state. Preloaded fuel is assigned
// afterwards by the match engine.
func New(id string, alliance model.Alliance, cfg model.RobotConfig, arch config.ArchetypeDef, rng *rand.Rand) *Robot {
	shootRate := shootRateForType(cfg.ShooterType)
	if cfg.ShootRate > 0 {
		// Indexer throughput is the bottleneck on the configured rate.
		indexerRate := config.IndexerRates[cfg.IndexerType]
		shootRate = cfg.ShootRate
		if indexerRate < shootRate {
			shootRate = indexerRate
		}
	}

	return &Robot{
		ID:       id,
		Alliance: alliance,
		Config:   cfg,
		rng:      rng,
		arch:     arch,
		state: &model.RobotState{
			ID:              id,
			Alliance:        alliance,
			Archetype:       cfg.Archetype,
			Position:        model.ZoneAlliance,
			StorageCapacity: cfg.StorageCapacity,
			CurrentAction:   model.ActionIdle,
			ShiftRole:       model.RoleScorer,
			IntakeStatus:    model.MechNominal,
			ShooterStatus:   model.MechNominal,
			TurretStatus:    model.TurretNominal,
		},
		cycleTimeMean:    arch.CycleTimeMean,
		cycleTimeStddev:  arch.CycleTimeStddev,
		accuracy:         arch.Accuracy,
		shootRate:        shootRate,
		intakeRate:       cfg.IntakeRate,
		effectiveShooter: cfg.ShooterType,
		intakeQuality:    cfg.IntakeQuality,
		stage:            stageIdle,
	}
}

func shootRateForType(t model.ShooterType) float64 {
	switch t {
	case model.ShooterSingleTurret, model.ShooterSingleFixed:
		return config.ShootRateSingle
	case model.ShooterDoubleFixed:
		return config.ShootRateDouble
	case model.ShooterTripleFixed:
		return config.ShootRateTriple
	case model.ShooterDumper:
		return config.ShootRateDumper
	case model.ShooterNone:
		return 0
	}
	return config.ShootRateSingle
}

// Turret robots skip alignment unless the turret is stuck; dumpers must
// already be against the hub; everything else pays the fixed align time.
func alignTime(shooter model.ShooterType, turret model.TurretStatus) float64 {
	switch shooter {
	case model.ShooterSingleTurret:
		if turret == model.TurretStuck {
			return config.FixedAlignTime
		}
		return config.TurretAlignTime
	case model.ShooterDumper:
		return 0
	}
	return config.FixedAlignTime
}

// State returns the live robot state record.
func (r *Robot) State() *model.RobotState {
	return r.state
}

// Accuracy is the current per-shot hit probability, after failures and
// defense penalties.
func (r *Robot) Accuracy() float64 { return r.accuracy }

// ShootRate is the current fuel-per-second release rate.
func (r *Robot) ShootRate() float64 { return r.shootRate }

// CycleTimeMean is the current mean scoring cycle length in seconds.
func (r *Robot) CycleTimeMean() float64 { return r.cycleTimeMean }

// AutoClimbScored reports whether the robot banked an L1 climb during auto.
func (r *Robot) AutoClimbScored() bool { return r.autoClimbScored }

// FuelPushed is the cumulative useful fuel delivered by push trips.
func (r *Robot) FuelPushed() int { return r.fuelPushedTotal }

// IsTurret reports whether the robot still has a working turret.
func (r *Robot) IsTurret() bool {
	return r.effectiveShooter == model.ShooterSingleTurret &&
		r.state.TurretStatus == model.TurretNominal
}

// Tick runs one simulation step. Mechanism reliability is rolled once on
// the first tick; shift changes are edge-detected from the match phase.
func (r *Robot) Tick(ms *model.MatchState, ledger Ledger, dt float64) {
	if !r.failuresChecked {
		r.checkFailures()
		r.failuresChecked = true
	}

	r.detectShiftChange(ms)

	switch ms.CurrentPhase {
	case model.PhaseAuto:
		r.tickAuto(ms, ledger, dt)
	case model.PhaseTransition:
		r.tickTransition()
	case model.PhaseEndgame:
		r.tickEndgame(ms, ledger, dt)
	default:
		r.tickTeleopShift(ms, ledger, dt)
	}
}

// ---------------------------------------------------------------------------
// Shift changes
// ---------------------------------------------------------------------------

func (r *Robot) detectShiftChange(ms *model.MatchState) {
	phase := ms.CurrentPhase
	if phase == r.lastPhase {
		return
	}
	r.lastPhase = phase

	if phase.IsShift() {
		r.onShiftChange(ms.HubActive(r.Alliance))
	} else if phase == model.PhaseEndgame {
		// Both hubs active: everyone falls back to their active role.
		r.onShiftChange(true)
	}
}

func (r *Robot) onShiftChange(hubActive bool) {
	if hubActive {
		r.applyActiveRole()
	} else {
		r.applyInactiveRole()
	}
	r.foulCheckedThisShift = false
}

func (r *Robot) applyActiveRole() {
	switch r.Config.ActiveShiftRole {
	case model.ActiveScore:
		r.state.ShiftRole = model.RoleScorer
		r.state.IsDefending = false
		r.state.IsPushingFuel = false
		if r.state.FuelHeld > 0 && r.state.IsStockpiling {
			r.dumpStockpile()
		} else {
			r.startScoringCycle()
		}

	case model.ActiveDefend:
		r.state.ShiftRole = model.RoleDefender
		r.state.IsDefending = true
		r.state.IsStockpiling = false
		r.state.IsPushingFuel = false
		r.startDefense()

	case model.ActiveScoreAndDefend:
		if r.state.FuelHeld > 0 && r.state.IsStockpiling {
			r.state.ShiftRole = model.RoleScorer
			r.dumpStockpile()
		} else {
			r.state.ShiftRole = model.RoleDefender
			r.state.IsDefending = true
			r.startDefense()
		}
	}
}

func (r *Robot) applyInactiveRole() {
	switch r.Config.InactiveShiftRole {
	case model.InactiveStockpile, model.InactiveDenyNeutral:
		// Deny-neutral camps the same fuel the stockpiler wants; both
		// reduce to grabbing neutral fuel before the opponent can.
		r.state.ShiftRole = model.RoleStockpiler
		r.state.IsStockpiling = true
		r.state.IsDefending = false
		r.state.IsPushingFuel = false
		r.startStockpileCycle()

	case model.InactiveDefend:
		r.state.ShiftRole = model.RoleDefender
		r.state.IsDefending = true
		r.state.IsStockpiling = false
		r.state.IsPushingFuel = false
		r.startDefense()

	case model.InactivePushFuel:
		r.state.ShiftRole = model.RolePusher
		r.state.IsPushingFuel = true
		r.state.IsStockpiling = false
		r.state.IsDefending = false
		r.startPushCycle()
	}
}

// ---------------------------------------------------------------------------
// Autonomous
// ---------------------------------------------------------------------------

func (r *Robot) tickAuto(ms *model.MatchState, ledger Ledger, dt float64) {
	if r.state.ActionTimer > 0 {
		r.state.ActionTimer -= dt
		if r.state.ActionTimer <= 0 {
			r.completeAutoAction(ms, ledger)
		}
		return
	}

	switch r.Config.AutoAction {
	case model.AutoScoreFuel:
		r.tickAutoScore()
	case model.AutoClimbL1:
		r.tickAutoClimb()
	case model.AutoDisruptNeutral:
		r.tickAutoDisrupt(ledger)
	}
}

func (r *Robot) tickAutoScore() {
	maxCycles := r.Config.AutoCycles

	switch {
	case r.autoFuelScored < r.Config.AutoFuelTarget ||
		(r.autoCyclesCompleted < maxCycles && r.state.FuelHeld > 0):
		if !r.autoShooting {
			r.autoShooting = true
			r.state.CurrentAction = model.ActionDriving
			r.state.Position = model.ZoneHub
			r.state.ActionTimer = r.uniform(1.0, 2.0)
			r.stage = stageAutoDrive
		} else {
			r.startAutoShotBurst()
		}

	case r.autoCyclesCompleted > 0 && r.autoCyclesCompleted < maxCycles && r.state.FuelHeld == 0:
		r.state.CurrentAction = model.ActionDriving
		r.state.Position = model.ZoneNeutral
		r.state.ActionTimer = r.uniform(2.0, 3.0)
		r.stage = stageAutoDriveToNeutral

	default:
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle
	}
}

func (r *Robot) tickAutoClimb() {
	if r.autoClimbScored && !r.autoDescending {
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle
		return
	}
	if !r.autoClimbAttempted {
		r.autoClimbAttempted = true
		r.state.CurrentAction = model.ActionDriving
		r.state.Position = model.ZoneTower
		r.state.ActionTimer = r.uniform(1.5, 2.5)
		r.stage = stageAutoClimbDrive
		return
	}
	r.state.CurrentAction = model.ActionIdle
	r.stage = stageIdle
}

func (r *Robot) tickAutoDisrupt(ledger Ledger) {
	switch r.stage {
	case stageIdle, "":
		r.state.CurrentAction = model.ActionDriving
		r.state.Position = model.ZoneNeutral
		r.state.ActionTimer = r.uniform(1.5, 2.5)
		r.stage = stageAutoDisruptDrive
	case stageAutoDisrupting:
		r.disruptOnce(ledger)
	}
}

// One disruption pass: shove a pile around the neutral zone. The fuel
// never leaves the floor, so the pile goes straight back to the pool.
func (r *Robot) disruptOnce(ledger Ledger) {
	moved := ledger.TryIntake(r.Alliance, model.ZoneNeutral, config.PushFuelPerTrip)
	if moved > 0 {
		ledger.DepositNeutral(moved)
	}
	r.state.CurrentAction = model.ActionPushingFuel
	r.state.ActionTimer = config.TickInterval
	r.stage = stageAutoDisrupting
}

func (r *Robot) startAutoShotBurst() {
	if r.state.FuelHeld <= 0 {
		r.autoCyclesCompleted++
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle
		return
	}
	align := alignTime(r.effectiveShooter, r.state.TurretStatus)
	rate := r.shootRate
	if rate < 0.1 {
		rate = 0.1
	}
	r.state.CurrentAction = model.ActionShooting
	r.state.ActionTimer = align + float64(r.state.FuelHeld)/rate
	// Count the burst as attempted now; the match engine drains the hopper
	// while the action reads SHOOTING.
	r.autoFuelScored += r.state.FuelHeld
	r.stage = stageAutoShoot
}

func (r *Robot) completeAutoAction(ms *model.MatchState, ledger Ledger) {
	switch r.stage {
	case stageAutoDrive:
		r.startAutoShotBurst()

	case stageAutoShoot:
		// Shot resolution drained FuelHeld tick by tick; an undrained
		// remainder stays in the hopper, it was never released.
		r.autoCyclesCompleted++
		r.autoShooting = false
		r.state.ActionTimer = 0
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle

	case stageAutoDriveToNeutral:
		if need := r.state.StorageCapacity - r.state.FuelHeld; need > 0 {
			r.state.FuelHeld += ledger.TryIntake(r.Alliance, model.ZoneNeutral, need)
		}
		intakeTime := 0.5
		if r.intakeRate > 0 && r.state.FuelHeld > 0 {
			intakeTime = float64(r.state.FuelHeld) / r.intakeRate
		}
		r.state.CurrentAction = model.ActionIntaking
		r.state.ActionTimer = intakeTime
		r.stage = stageAutoIntake

	case stageAutoIntake:
		r.state.CurrentAction = model.ActionDriving
		r.state.Position = model.ZoneHub
		r.state.ActionTimer = r.uniform(1.5, 2.5)
		r.stage = stageAutoDrive

	case stageAutoClimbDrive:
		r.state.CurrentAction = model.ActionClimbing
		r.state.IsClimbing = true
		r.state.ActionTimer = config.AutoL1ClimbTime
		r.stage = stageAutoClimb

	case stageAutoClimb:
		if r.rng.Float64() < r.arch.ClimbSuccess(1) {
			r.state.ClimbLevel = 1
			r.autoClimbScored = true
		}
		r.state.IsClimbing = false
		r.autoDescending = true
		r.state.CurrentAction = model.ActionDriving
		r.state.Position = model.ZoneTower
		r.state.ActionTimer = config.AutoL1DescendTime
		r.stage = stageAutoDescend

	case stageAutoDescend:
		r.autoDescending = false
		r.state.Position = model.ZoneAlliance
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle

	case stageAutoDisruptDrive:
		r.state.CurrentAction = model.ActionPushingFuel
		r.state.Position = model.ZoneNeutral
		r.state.IsPushingFuel = true
		r.state.ActionTimer = config.TickInterval
		r.stage = stageAutoDisrupting

	case stageAutoDisrupting:
		r.disruptOnce(ledger)
	}
}

// ---------------------------------------------------------------------------
// Transition and teleop dispatch
// ---------------------------------------------------------------------------

// No scoring is allowed during the transition; robots just stage for the
// first shift.
func (r *Robot) tickTransition() {
	r.state.CurrentAction = model.ActionDriving
	r.state.Position = model.ZoneAlliance
	r.stage = stageTransition
}

func (r *Robot) tickTeleopShift(ms *model.MatchState, ledger Ledger, dt float64) {
	switch r.state.ShiftRole {
	case model.RoleScorer:
		r.tickScoring(ms, ledger, dt)
	case model.RoleStockpiler:
		r.tickStockpiling(ledger, dt)
	case model.RoleDefender:
		r.tickDefending(dt)
	case model.RolePusher:
		r.tickPushing(ledger, dt)
	}
}

func (r *Robot) tickEndgame(ms *model.MatchState, ledger Ledger, dt float64) {
	if r.state.IsClimbing {
		if r.state.ActionTimer > 0 {
			r.state.ActionTimer -= dt
			if r.state.ActionTimer <= 0 {
				r.resolveClimb()
			}
		}
		return
	}

	// A zero climb start time means score to the buzzer.
	shouldClimb := !r.climbAttempted &&
		r.Config.ClimbTarget > 0 &&
		r.Config.ClimbStartTime > 0 &&
		ms.TimeRemaining <= r.Config.ClimbStartTime

	if shouldClimb {
		r.startClimb()
		return
	}
	r.tickScoring(ms, ledger, dt)
}

// ---------------------------------------------------------------------------
// Scoring cycle
// ---------------------------------------------------------------------------

func (r *Robot) startScoringCycle() {
	// Cycle length is gaussian around the archetype mean, floored at half
	// the mean so a lucky draw cannot produce an impossible cycle.
	cycle := r.cycleTimeMean * 0.5
	if g := r.rng.NormFloat64()*r.cycleTimeStddev + r.cycleTimeMean; g > cycle {
		cycle = g
	}
	r.cycleTotal = cycle

	r.state.CurrentAction = model.ActionDriving
	r.state.Position = model.ZoneNeutral
	r.state.ActionTimer = cycle * 0.25
	r.stage = stageDriveToFuel
}

func (r *Robot) tickScoring(ms *model.MatchState, ledger Ledger, dt float64) {
	if r.state.ActionTimer > 0 {
		r.state.ActionTimer -= dt
		if r.state.ActionTimer > 0 {
			return
		}
		r.onScoringStageComplete(ledger)
		return
	}

	if r.stage == stageWaitingForFeed {
		// Parked at the outpost until the human player loads us.
		if r.state.FuelHeld > 0 {
			r.beginDriveToHub()
		}
		return
	}

	if r.state.CurrentAction == model.ActionIdle {
		if r.effectiveShooter == model.ShooterNone {
			return
		}
		r.startScoringCycle()
	}
}

func (r *Robot) onScoringStageComplete(ledger Ledger) {
	switch r.stage {
	case stageDriveToFuel:
		r.beginIntake(ledger)
	case stageIntaking:
		r.beginDriveToHub()
	case stageDriveToOutpost:
		r.state.CurrentAction = model.ActionWaitingForFuel
		r.state.Position = model.ZoneOutpost
		r.stage = stageWaitingForFeed
	case stageDriveToHub:
		r.beginAlign()
	case stageAligning:
		r.beginShooting()
	case stageShooting:
		r.finishShooting()
	case stageDumping:
		r.finishDumping()
	}
}

func (r *Robot) beginIntake(ledger Ledger) {
	quality := r.effectiveIntakeQuality()

	if quality == model.IntakeNoGroundPickup {
		// No ground pickup: ride to the outpost and wait for a feed.
		r.state.CurrentAction = model.ActionDriving
		r.state.Position = model.ZoneOutpost
		r.state.ActionTimer = 2.0
		r.stage = stageDriveToOutpost
		return
	}

	need := r.state.StorageCapacity - r.state.FuelHeld
	if need <= 0 {
		r.beginDriveToHub()
		return
	}

	picked := r.groundIntake(ledger, need)
	r.state.FuelHeld += picked

	r.state.CurrentAction = model.ActionIntaking
	r.state.ActionTimer = r.intakeDuration(picked)
	r.stage = stageIntaking
}

// groundIntake runs per-ball pickup trials against the robot's current
// position until the hopper is full or the zone runs dry.
func (r *Robot) groundIntake(ledger Ledger, need int) int {
	lo, hi := r.intakeSuccessRange()
	picked := 0
	for i := 0; i < need; i++ {
		rate := r.uniform(lo, hi)
		if r.state.IntakeStatus == model.MechDegraded && rate > config.DegradedIntakeSuccess {
			rate = config.DegradedIntakeSuccess
		}
		if r.rng.Float64() >= rate {
			continue
		}
		if ledger.TryIntake(r.Alliance, r.state.Position, 1) == 0 {
			break
		}
		picked++
	}
	return picked
}

func (r *Robot) intakeSuccessRange() (float64, float64) {
	p := config.IntakeQualityParams[r.effectiveIntakeQuality()]
	return p.SuccessLo, p.SuccessHi
}

func (r *Robot) intakeDuration(picked int) float64 {
	rate := r.intakeRate
	if r.state.IntakeStatus == model.MechDegraded {
		rate *= config.DegradedIntakeSpeedMult
	}
	if rate <= 0 || picked <= 0 {
		return config.TickInterval
	}
	d := float64(picked) / rate
	if d < config.TickInterval {
		return config.TickInterval
	}
	return d
}

func (r *Robot) beginDriveToHub() {
	r.state.CurrentAction = model.ActionDriving
	r.state.Position = model.ZoneHub
	r.state.ActionTimer = r.cycleTotal * 0.20
	r.stage = stageDriveToHub
}

func (r *Robot) beginAlign() {
	align := alignTime(r.effectiveShooter, r.state.TurretStatus)
	if align > 0 {
		// Rotating in place still reads as driving.
		r.state.CurrentAction = model.ActionDriving
		r.state.ActionTimer = align
		r.stage = stageAligning
		return
	}
	r.beginShooting()
}

func (r *Robot) beginShooting() {
	if r.state.FuelHeld <= 0 {
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle
		return
	}

	if r.rng.Float64() < config.IndexerJamRates[r.Config.IndexerType] {
		// Jam: clear it and come back to the same stage.
		r.state.CurrentAction = model.ActionClearingJam
		r.state.ActionTimer = config.JamClearTime
		r.stage = stageShooting
		return
	}

	rate := r.shootRate
	if r.state.ShooterStatus == model.MechDegraded {
		rate *= 0.67
	}
	if rate <= 0 {
		r.state.CurrentAction = model.ActionIdle
		r.stage = stageIdle
		return
	}

	r.state.CurrentAction = model.ActionShooting
	r.state.ActionTimer = float64(r.state.FuelHeld) / rate
	r.stage = stageShooting
}

// Shot outcomes are resolved tick by tick by the match engine while the
// action reads SHOOTING; fuel the engine did not drain stays in the hopper
// for the next cycle.
func (r *Robot) finishShooting() {
	r.state.CurrentAction = model.ActionIdle
	r.state.Position = model.ZoneHub
	r.stage = stageIdle
}

func (r *Robot) finishDumping() {
	r.state.CurrentAction = model.ActionIdle
	r.state.IsStockpiling = false
	r.stockpileReady = false
	r.stage = stageIdle
}

func (r *Robot) dumpStockpile() {
	if r.state.FuelHeld <= 0 {
		return
	}
	r.state.CurrentAction = model.ActionDumping
	r.state.ActionTimer = float64(r.state.FuelHeld) * config.DumpTimePerFuel
	r.state.IsStockpiling = false
	r.stockpileReady = false
	r.stage = stageDumping
}

// ---------------------------------------------------------------------------
// Stockpiling
// ---------------------------------------------------------------------------

func (r *Robot) startStockpileCycle() {
	if r.state.FuelHeld >= r.state.StorageCapacity {
		r.startPrePosition()
		return
	}
	r.state.CurrentAction = model.ActionDriving
	r.state.Position = model.ZoneNeutral
	r.state.ActionTimer = r.uniform(2.0, 3.5)
	r.stage = stageStockpileDrive
}

func (r *Robot) tickStockpiling(ledger Ledger, dt float64) {
	if r.state.ActionTimer > 0 {
		r.state.ActionTimer -= dt
		if r.state.ActionTimer > 0 {
			return
		}
		r.onStockpileStageComplete(ledger)
		return
	}

	if r.state.CurrentAction == model.ActionIdle && !r.stockpileReady {
		r.startStockpileCycle()
	}
}

func (r *Robot) onStockpileStageComplete(ledger Ledger) {
	switch r.stage {
	case stageStockpileDrive:
		r.stockpileIntake(ledger)

	case stageStockpileIntake:
		if r.Config.PrePositionBeforeShift {
			r.startPrePosition()
		} else {
			r.state.CurrentAction = model.ActionIdle
			r.state.IsStockpiling = true
			r.stockpileReady = true
			r.stage = stageIdle
		}

	case stagePrePositioning:
		r.state.CurrentAction = model.ActionIdle
		r.state.Position = model.ZoneHub
		r.state.IsStockpiling = true
		r.stockpileReady = true
		r.stage = stageIdle
	}
}

func (r *Robot) stockpileIntake(ledger Ledger) {
	quality := r.effectiveIntakeQuality()
	need := r.state.StorageCapacity - r.state.FuelHeld

	if quality == model.IntakeNoGroundPickup || need <= 0 {
		// Top up from the human player at the outpost instead.
		r.state.CurrentAction = model.ActionStockpiling
		r.state.ActionTimer = float64(need) * config.HPFeedInterval
		if r.state.ActionTimer < config.TickInterval {
			r.state.ActionTimer = config.TickInterval
		}
		r.state.Position = model.ZoneOutpost
		r.state.FuelHeld += ledger.TryIntake(r.Alliance, model.ZoneOutpost, need)
		r.stage = stageStockpileIntake
		return
	}

	picked := r.groundIntake(ledger, need)
	r.state.FuelHeld += picked

	r.state.CurrentAction = model.ActionStockpiling
	r.state.ActionTimer = r.intakeDuration(picked)
	r.stage = stageStockpileIntake
}

func (r *Robot) startPrePosition() {
	var needed float64
	switch r.state.Position {
	case model.ZoneHub:
		needed = 0
	case model.ZoneOutpost:
		needed = config.PrePositionTimeFromOutpost
	case model.ZoneOpponent:
		needed = config.CrossfieldDriveTime
	default:
		needed = config.PrePositionTimeFromNeutral
	}

	if needed <= 0 {
		r.state.CurrentAction = model.ActionIdle
		r.state.Position = model.ZoneHub
		r.state.IsStockpiling = true
		r.stockpileReady = true
		r.stage = stageIdle
		return
	}

	r.state.CurrentAction = model.ActionPrePositioning
	r.state.ActionTimer = needed
	r.stage = stagePrePositioning
}

// ---------------------------------------------------------------------------
// Defense
// ---------------------------------------------------------------------------

func (r *Robot) startDefense() {
	if r.state.Position == model.ZoneOpponent {
		r.state.CurrentAction = model.ActionDefending
		r.state.IsDefending = true
		r.state.ActionTimer = 0
		r.stage = stageDefending
		return
	}
	r.state.CurrentAction = model.ActionDriving
	r.state.ActionTimer = config.CrossfieldDriveTime
	r.stage = stageDefenseDrive
}

func (r *Robot) tickDefending(dt float64) {
	if r.state.ActionTimer > 0 {
		r.state.ActionTimer -= dt
		if r.state.ActionTimer <= 0 && r.stage == stageDefenseDrive {
			r.state.CurrentAction = model.ActionDefending
			r.state.Position = model.ZoneOpponent
			r.state.IsDefending = true
			r.stage = stageDefending
		}
		return
	}

	if !r.foulCheckedThisShift {
		r.foulCheckedThisShift = true
		r.checkDefenseFouls()
	}
}

// One foul trial and one tech-foul trial per shift of defense, with rates
// escalating as the robot racks up prior fouls.
func (r *Robot) checkDefenseFouls() {
	idx := r.state.FoulsDrawn
	if idx >= len(config.PenaltyEscalation) {
		idx = len(config.PenaltyEscalation) - 1
	}
	escalation := config.PenaltyEscalation[idx]

	var foulRate, techRate float64
	switch r.state.Position {
	case model.ZoneOpponent:
		foulRate = config.FoulRateOpponentAlliance
		techRate = config.TechFoulRateAlliance
	case model.ZoneTower:
		foulRate = config.FoulRateNearTower
		techRate = config.TechFoulRateTower
	default:
		foulRate = config.FoulRateNeutralZone
		techRate = config.TechFoulRateNeutral
	}

	foulRate = clamp01(foulRate * escalation)
	techRate = clamp01(techRate * escalation)

	if r.rng.Float64() < foulRate {
		r.state.FoulsDrawn++
	}
	if r.rng.Float64() < techRate {
		r.state.FoulsDrawn++
	}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// ---------------------------------------------------------------------------
// Fuel pushing
// ---------------------------------------------------------------------------

func (r *Robot) startPushCycle() {
	r.state.CurrentAction = model.ActionPushingFuel
	r.state.Position = model.ZoneNeutral
	r.state.IsPushingFuel = true
	r.state.FuelPushed = 0
	r.state.ActionTimer = config.PushTripTime
	r.stage = stagePushing
}

func (r *Robot) tickPushing(ledger Ledger, dt float64) {
	if r.state.ActionTimer > 0 {
		r.state.ActionTimer -= dt
		if r.state.ActionTimer <= 0 {
			r.completePushTrip(ledger)
		}
		return
	}
	if r.state.CurrentAction == model.ActionIdle {
		r.startPushCycle()
	}
}

// A push trip picks up a pile at trip end, scatters a fraction of it and
// drops the rest in the alliance-side pile. Everything stays on the floor,
// so the whole pile goes back to the pool; only the useful count is kept
// as a stat.
func (r *Robot) completePushTrip(ledger Ledger) {
	moved := ledger.TryIntake(r.Alliance, model.ZoneNeutral, config.PushFuelPerTrip)
	if moved > 0 {
		scattered := int(float64(moved)*config.PushScatterRate + 0.5)
		if useful := moved - scattered; useful > 0 {
			r.fuelPushedTotal += useful
		}
		ledger.DepositNeutral(moved)
	}
	r.state.FuelPushed = 0
	r.state.CurrentAction = model.ActionIdle
	r.state.IsPushingFuel = false
	r.stage = stageIdle
}

// ---------------------------------------------------------------------------
// Climbing
// ---------------------------------------------------------------------------

func (r *Robot) startClimb() {
	target := r.Config.ClimbTarget
	if target <= 0 {
		return
	}
	r.climbAttempted = true
	r.state.IsClimbing = true
	r.state.CurrentAction = model.ActionClimbing
	r.state.Position = model.ZoneTower

	base := map[int]float64{1: 3.0, 2: 5.0, 3: 7.0}[target]
	if base == 0 {
		base = 3.0
	}
	r.state.ActionTimer = r.uniform(base*0.8, base*1.2)
	r.stage = stageClimbing
}

func (r *Robot) resolveClimb() {
	target := r.Config.ClimbTarget
	if r.rng.Float64() < r.arch.ClimbSuccess(target) {
		r.state.ClimbLevel = target
	} else if target >= 2 {
		// Failed the target; a single fallback attempt one level down.
		if r.rng.Float64() < r.arch.ClimbSuccess(target-1) {
			r.state.ClimbLevel = target - 1
		}
	}
	r.state.IsClimbing = false
	r.state.CurrentAction = model.ActionIdle
	r.stage = stageIdle
}

// ---------------------------------------------------------------------------
// Mechanism reliability
// ---------------------------------------------------------------------------

func (r *Robot) checkFailures() {
	r.checkIntakeFailure()
	r.checkShooterFailure()
	r.checkTurretFailure()
}

func (r *Robot) checkIntakeFailure() {
	if r.rng.Float64() < config.IntakeBreakRateSimple {
		r.state.IntakeStatus = model.MechBroken
		return
	}
	if r.rng.Float64() < config.IntakeDegradeRateSimple {
		r.state.IntakeStatus = model.MechDegraded
	}
}

func (r *Robot) checkShooterFailure() {
	shooter := r.Config.ShooterType
	if shooter == model.ShooterNone {
		return
	}

	rate := config.BasicFailureRate
	if shooter == model.ShooterDoubleFixed || shooter == model.ShooterTripleFixed {
		rate = config.MultishotFailureRate
	}
	if r.rng.Float64() >= rate {
		return
	}

	r.state.ShooterStatus = model.MechDegraded
	// One barrel down on multishot designs.
	switch shooter {
	case model.ShooterTripleFixed:
		r.shootRate = config.ShootRateDouble
	case model.ShooterDoubleFixed:
		r.shootRate = config.ShootRateSingle
	}
}

func (r *Robot) checkTurretFailure() {
	if r.Config.ShooterType != model.ShooterSingleTurret {
		return
	}
	if r.rng.Float64() < config.TurretFailureRate {
		r.state.TurretStatus = model.TurretStuck
		r.effectiveShooter = model.ShooterSingleFixed
		r.accuracy -= config.TurretStuckAccuracyHit
		if r.accuracy < 0 {
			r.accuracy = 0
		}
	}
}

// A broken intake means no ground pickup at all; a degraded one drops the
// quality a tier.
func (r *Robot) effectiveIntakeQuality() model.IntakeQuality {
	switch r.state.IntakeStatus {
	case model.MechBroken:
		return model.IntakeNoGroundPickup
	case model.MechDegraded:
		switch r.intakeQuality {
		case model.IntakeTouchAndGo:
			return model.IntakeSlowPickup
		case model.IntakeSlowPickup:
			return model.IntakePushAround
		}
	}
	return r.intakeQuality
}

// ---------------------------------------------------------------------------
// Defense penalties (applied by the match engine)
// ---------------------------------------------------------------------------

// ApplyDefensePenalty degrades the robot while an opponent shadows it:
// cycleHit is a fractional cycle time increase, accuracyHit an absolute
// accuracy reduction.
func (r *Robot) ApplyDefensePenalty(cycleHit, accuracyHit float64) {
	r.cycleTimeMean *= 1.0 + cycleHit
	r.accuracy -= accuracyHit
	if r.accuracy < 0 {
		r.accuracy = 0
	}
}

// ResetDefensePenalty restores archetype performance once the defender
// leaves, keeping any stuck-turret accuracy hit.
func (r *Robot) ResetDefensePenalty() {
	r.cycleTimeMean = r.arch.CycleTimeMean
	r.cycleTimeStddev = r.arch.CycleTimeStddev
	r.accuracy = r.arch.Accuracy
	if r.state.TurretStatus == model.TurretStuck {
		r.accuracy -= config.TurretStuckAccuracyHit
		if r.accuracy < 0 {
			r.accuracy = 0
		}
	}
}

func (r *Robot) uniform(lo, hi float64) float64 {
	return lo + r.rng.Float64()*(hi-lo)
}
