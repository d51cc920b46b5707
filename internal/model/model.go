// Package model holds the shared data types for the match simulation:
// closed string-typed variants (phases, zones, actions, mechanism kinds)
// and the plain records passed between the field ledger, the robot
// behavior engines and the match engine. No behavior lives here.
package model

type Alliance string

const (
	Red  Alliance = "red"
	Blue Alliance = "blue"
)

// Opponent returns the other alliance.
func (a Alliance) Opponent() Alliance {
	if a == Red {
		return Blue
	}
	return Red
}

type Phase string

const (
	PhaseAuto       Phase = "auto"
	PhaseTransition Phase = "transition"
	PhaseShift1     Phase = "shift1"
	PhaseShift2     Phase = "shift2"
	PhaseShift3     Phase = "shift3"
	PhaseShift4     Phase = "shift4"
	PhaseEndgame    Phase = "endgame"
)

// IsShift reports whether p is one of the four alternating teleop shifts.
func (p Phase) IsShift() bool {
	switch p {
	case PhaseShift1, PhaseShift2, PhaseShift3, PhaseShift4:
		return true
	}
	return false
}

type RobotZone string

const (
	ZoneAlliance RobotZone = "alliance"
	ZoneMidfield RobotZone = "midfield"
	ZoneNeutral  RobotZone = "neutral"
	ZoneHub      RobotZone = "hub"
	ZoneTower    RobotZone = "tower"
	ZoneOutpost  RobotZone = "outpost"
	ZoneOpponent RobotZone = "opponent_zone"
	ZoneTrench   RobotZone = "trench"
)

type RobotAction string

const (
	ActionIdle           RobotAction = "idle"
	ActionIntaking       RobotAction = "intaking"
	ActionDriving        RobotAction = "driving"
	ActionShooting       RobotAction = "shooting"
	ActionClimbing       RobotAction = "climbing"
	ActionDefending      RobotAction = "defending"
	ActionStockpiling    RobotAction = "stockpiling"
	ActionPrePositioning RobotAction = "pre_positioning"
	ActionDumping        RobotAction = "dumping"
	ActionPushingFuel    RobotAction = "pushing_fuel"
	ActionClearingJam    RobotAction = "clearing_jam"
	ActionWaitingForFuel RobotAction = "waiting_for_fuel"
)

type ShiftRole string

const (
	RoleScorer     ShiftRole = "scorer"
	RoleStockpiler ShiftRole = "stockpiler"
	RoleDefender   ShiftRole = "defender"
	RolePusher     ShiftRole = "pusher"
)

type ShooterType string

const (
	ShooterSingleTurret ShooterType = "single_turret"
	ShooterDoubleFixed  ShooterType = "double_fixed"
	ShooterTripleFixed  ShooterType = "triple_fixed"
	ShooterSingleFixed  ShooterType = "single_fixed"
	ShooterDumper       ShooterType = "dumper"
	ShooterNone         ShooterType = "none"
)

type IndexerType string

const (
	IndexerSpindexer  IndexerType = "spindexer"
	IndexerSerializer IndexerType = "serializer"
	IndexerConveyor   IndexerType = "conveyor"
	IndexerGravityFed IndexerType = "gravity_fed"
	IndexerNone       IndexerType = "none"
)

type IntakeType string

const (
	IntakeOverBumper IntakeType = "over_bumper"
	IntakeFunnel     IntakeType = "funnel"
	IntakeNone       IntakeType = "none"
)

type IntakeQuality string

const (
	IntakeTouchAndGo     IntakeQuality = "touch_and_go"
	IntakeSlowPickup     IntakeQuality = "slow_pickup"
	IntakePushAround     IntakeQuality = "push_around"
	IntakeNoGroundPickup IntakeQuality = "no_ground_pickup"
)

type HopperType string

const (
	HopperLarge      HopperType = "large"
	HopperMedium     HopperType = "medium"
	HopperSmall      HopperType = "small"
	HopperSerializer HopperType = "serializer"
	HopperSpindexer  HopperType = "spindexer"
)

type DrivetrainType string

const (
	DrivetrainSwerve  DrivetrainType = "swerve"
	DrivetrainTank    DrivetrainType = "tank"
	DrivetrainMecanum DrivetrainType = "mecanum"
)

type MechanismStatus string

const (
	MechNominal  MechanismStatus = "nominal"
	MechDegraded MechanismStatus = "degraded"
	MechBroken   MechanismStatus = "broken"
)

type TurretStatus string

const (
	TurretNominal TurretStatus = "nominal"
	TurretStuck   TurretStatus = "stuck"
)

type AutoAction string

const (
	AutoScoreFuel      AutoAction = "score_fuel"
	AutoClimbL1        AutoAction = "climb_l1"
	AutoDisruptNeutral AutoAction = "disrupt"
)

type HumanPlayerMode string

const (
	HPFeed  HumanPlayerMode = "feed"
	HPThrow HumanPlayerMode = "throw"
	HPMixed HumanPlayerMode = "mixed"
)

type ActiveShiftRole string

const (
	ActiveScore          ActiveShiftRole = "score"
	ActiveDefend         ActiveShiftRole = "defend"
	ActiveScoreAndDefend ActiveShiftRole = "score_and_defend"
)

type InactiveShiftRole string

const (
	InactiveStockpile   InactiveShiftRole = "stockpile"
	InactiveDefend      InactiveShiftRole = "defend"
	InactiveDenyNeutral InactiveShiftRole = "deny_neutral"
	InactivePushFuel    InactiveShiftRole = "push_fuel"
)

type StrategyPreset string

const (
	PresetFullOffense    StrategyPreset = "full_offense"
	PresetTwoScoreOneDef StrategyPreset = "2_score_1_defend"
	PresetOneScoreTwoDef StrategyPreset = "1_score_2_defend"
	PresetDenyAndScore   StrategyPreset = "deny_and_score"
	PresetSurge          StrategyPreset = "surge"
)

// Presets lists every valid strategy preset.
func Presets() []StrategyPreset {
	return []StrategyPreset{
		PresetFullOffense,
		PresetTwoScoreOneDef,
		PresetOneScoreTwoDef,
		PresetDenyAndScore,
		PresetSurge,
	}
}

// MatchState is the central match snapshot, owned by the match engine and
// read-only for everyone else.
type MatchState struct {
	TimeRemaining float64
	CurrentPhase  Phase
	RedHubActive  bool
	BlueHubActive bool

	RedScore  int
	BlueScore int

	RedFuelScored  int
	BlueFuelScored int

	RedTowerPoints  int
	BlueTowerPoints int

	// Penalty points conceded by each alliance (awarded to the other side).
	RedPenalties  int
	BluePenalties int
}

// HubActive reports whether the given alliance's hub currently scores.
func (m *MatchState) HubActive(a Alliance) bool {
	if a == Red {
		return m.RedHubActive
	}
	return m.BlueHubActive
}

// RobotState is the per-robot runtime record, owned by that robot's
// behavior engine. The match engine reads it and mutates FuelHeld only
// through shot resolution and human-player feeds.
type RobotState struct {
	ID        string
	Alliance  Alliance
	Archetype string

	Position        RobotZone
	FuelHeld        int
	StorageCapacity int

	IsStockpiling bool
	IsClimbing    bool
	ClimbLevel    int
	IsDefending   bool
	IsPushingFuel bool
	FuelPushed    int

	CurrentAction RobotAction
	ActionTimer   float64
	ShiftRole     ShiftRole

	IntakeStatus  MechanismStatus
	ShooterStatus MechanismStatus
	TurretStatus  TurretStatus

	FoulsDrawn int
}

// RobotConfig is the static per-robot configuration, built by the strategy
// layer before the match and never mutated afterwards.
type RobotConfig struct {
	Archetype string `json:"archetype"`

	Drivetrain   DrivetrainType `json:"drivetrain"`
	FreeSpeedFPS float64        `json:"free_speed_fps"`

	ShooterType         ShooterType `json:"shooter_type"`
	HopperType          HopperType  `json:"hopper_type"`
	IndexerType         IndexerType `json:"indexer_type"`
	StorageCapacity     int         `json:"storage_capacity"`
	EffectiveRange      float64     `json:"effective_range"`
	CanShootWhileMoving bool        `json:"can_shoot_while_moving"`
	IntakeRate          float64     `json:"intake_rate"`
	ShootRate           float64     `json:"shoot_rate"`

	IntakeType    IntakeType    `json:"intake_type"`
	IntakeQuality IntakeQuality `json:"intake_quality"`

	AutoFuelTarget int        `json:"auto_fuel_target"`
	AutoAction     AutoAction `json:"auto_action"`
	AutoCycles     int        `json:"auto_cycles"`
	AutoClimb      bool       `json:"auto_climb"`

	ClimbTarget    int     `json:"climb_target"`
	ClimbStartTime float64 `json:"climb_start_time"`

	ActiveShiftRole   ActiveShiftRole   `json:"active_shift_role"`
	InactiveShiftRole InactiveShiftRole `json:"inactive_shift_role"`

	// Opponent robot id to shadow while defending; may name a robot that
	// does not exist, which resolves to no defensive effect.
	DefenseTarget string `json:"defense_target,omitempty"`

	PrePositionBeforeShift bool `json:"preposition_before_shift"`
}

// AllianceConfig is the alliance-level input to the match engine: exactly
// three robots plus the shared human-player mode and plans.
type AllianceConfig struct {
	Robots          []RobotConfig   `json:"robots"`
	StrategyPreset  StrategyPreset  `json:"strategy_preset"`
	HumanPlayerMode HumanPlayerMode `json:"human_player_mode"`
	EndgamePlan     []int           `json:"endgame_plan"`
	AutoPlan        []AutoAction    `json:"auto_plan"`
}

// SimulationResult is the immutable output of one simulated match.
type SimulationResult struct {
	RedTotalScore  int    `json:"red_total_score"`
	BlueTotalScore int    `json:"blue_total_score"`
	RedRP          int    `json:"red_rp"`
	BlueRP         int    `json:"blue_rp"`
	Winner         string `json:"winner"` // "red" | "blue" | "tie"

	RedFuelScored  int `json:"red_fuel_scored"`
	BlueFuelScored int `json:"blue_fuel_scored"`

	RedTowerPoints  int `json:"red_tower_points"`
	BlueTowerPoints int `json:"blue_tower_points"`

	RedPenaltiesDrawn  int `json:"red_penalties_drawn"`
	BluePenaltiesDrawn int `json:"blue_penalties_drawn"`

	RedEnergized    bool `json:"red_energized"`
	RedSupercharged bool `json:"red_supercharged"`
	RedTraversal    bool `json:"red_traversal"`

	BlueEnergized    bool `json:"blue_energized"`
	BlueSupercharged bool `json:"blue_supercharged"`
	BlueTraversal    bool `json:"blue_traversal"`

	PhaseScores map[string]map[string]int `json:"phase_scores"`
}
