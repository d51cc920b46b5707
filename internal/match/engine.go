// Package match runs a single timed two-alliance match: the fixed phase
// schedule, hub alternation driven by the auto winner, per-tick shot and
// defense resolution, penalties, human players and the final scoring of
// tower climbs and ranking points.
package match

import (
	"fmt"
	"math/rand"
	"strings"

	"frcsim/internal/config"
	"frcsim/internal/field"
	"frcsim/internal/model"
	"frcsim/internal/robot"
	"frcsim/internal/util"
)

type phaseWindow struct {
	lo, hi float64
	phase  model.Phase
}

// Boundaries in time remaining. Each window is [lo, hi).
var phaseWindows = []phaseWindow{
	{140.0, 160.0, model.PhaseAuto},
	{130.0, 140.0, model.PhaseTransition},
	{105.0, 130.0, model.PhaseShift1},
	{80.0, 105.0, model.PhaseShift2},
	{55.0, 80.0, model.PhaseShift3},
	{30.0, 55.0, model.PhaseShift4},
	{0.0, 30.0, model.PhaseEndgame},
}

// PhaseFor maps time remaining to the match phase. The phase is a pure
// function of the clock; nothing else moves the schedule.
func PhaseFor(timeRemaining float64) model.Phase {
	for _, w := range phaseWindows {
		if w.lo <= timeRemaining && timeRemaining < w.hi {
			return w.phase
		}
	}
	if timeRemaining >= config.TotalMatchDuration {
		return model.PhaseAuto
	}
	return model.PhaseEndgame
}

// Engine simulates one match from the starting configuration of both
// alliances. An Engine is single-use: build, Run, discard.
type Engine struct {
	rng *rand.Rand

	redConfig  model.AllianceConfig
	blueConfig model.AllianceConfig

	field *field.Manager
	state *model.MatchState

	redRobots  []*robot.Robot
	blueRobots []*robot.Robot
	robots     []*robot.Robot

	redFuelScored  int
	blueFuelScored int

	redTowerPoints  int
	blueTowerPoints int

	// Penalty points awarded TO each alliance from the other side's fouls.
	redPenaltyPoints  int
	bluePenaltyPoints int

	phaseScores map[string]map[string]int

	redHPTimer  float64
	blueHPTimer float64

	// Which robots currently carry a defense penalty, for edge-triggered
	// apply and reset.
	defenseApplied map[string]bool

	autoWinner model.Alliance

	prevFouls map[string]int
}

// NewEngine validates both alliance configurations and builds the match.
// Each robot gets its own random stream derived from the match stream, so
// one robot's draws never perturb another's.
func NewEngine(red, blue model.AllianceConfig, seed int64) (*Engine, error) {
	archetypes, err := config.LoadArchetypes()
	if err != nil {
		return nil, err
	}

	rng := util.New(seed)
	e := &Engine{
		rng:        rng,
		redConfig:  red,
		blueConfig: blue,
		field:      field.NewManager(),
		state: &model.MatchState{
			TimeRemaining: config.TotalMatchDuration,
			CurrentPhase:  model.PhaseAuto,
			RedHubActive:  true,
			BlueHubActive: true,
		},
		phaseScores:    make(map[string]map[string]int),
		defenseApplied: make(map[string]bool),
		prevFouls:      make(map[string]int),
	}

	build := func(a model.Alliance, cfgs []model.RobotConfig) ([]*robot.Robot, error) {
		if len(cfgs) != 3 {
			return nil, fmt.Errorf("%s alliance has %d robots, want 3", a, len(cfgs))
		}
		robots := make([]*robot.Robot, 0, 3)
		for i, cfg := range cfgs {
			arch, ok := archetypes[cfg.Archetype]
			if !ok {
				return nil, fmt.Errorf("%s robot %d: unknown archetype %q", a, i, cfg.Archetype)
			}
			id := fmt.Sprintf("%s_%d", a, i)
			robots = append(robots, robot.New(id, a, cfg, arch, util.Derive(rng)))
		}
		return robots, nil
	}

	if e.redRobots, err = build(model.Red, red.Robots); err != nil {
		return nil, err
	}
	if e.blueRobots, err = build(model.Blue, blue.Robots); err != nil {
		return nil, err
	}
	e.robots = append(append([]*robot.Robot{}, e.redRobots...), e.blueRobots...)

	e.field.DepositOutpost(model.Red, distributePreload(e.redRobots))
	e.field.DepositOutpost(model.Blue, distributePreload(e.blueRobots))

	for _, r := range e.robots {
		e.prevFouls[r.ID] = 0
	}
	return e, nil
}

// Each robot is preloaded up to its auto fuel target, capped by the preload
// maximum and its storage; whatever the alliance budget has left. Returns
// the undistributed remainder, which the caller must deposit back into the
// ledger to keep the fuel total intact.
func distributePreload(robots []*robot.Robot) int {
	remaining := config.InitialPreloadFuel
	for _, r := range robots {
		target := r.Config.AutoFuelTarget
		if target > config.AutoPreloadMax {
			target = config.AutoPreloadMax
		}
		if target > r.Config.StorageCapacity {
			target = r.Config.StorageCapacity
		}
		if target > remaining {
			target = remaining
		}
		r.State().FuelHeld = target
		remaining -= target
	}
	return remaining
}

// Run plays the match to the final buzzer and compiles the result. The
// fuel conservation invariant is checked every tick; a violation aborts
// the match with an error rather than a silently wrong score.
func (e *Engine) Run() (model.SimulationResult, error) {
	dt := config.TickInterval

	for e.state.TimeRemaining > 0 {
		phase := PhaseFor(e.state.TimeRemaining)
		if phase != e.state.CurrentPhase {
			e.onPhaseChange(phase)
			e.state.CurrentPhase = phase
		}
		if _, ok := e.phaseScores[string(phase)]; !ok {
			e.phaseScores[string(phase)] = map[string]int{"red": 0, "blue": 0}
		}

		elapsed := config.TotalMatchDuration - e.state.TimeRemaining

		e.field.Tick(elapsed, e.robotStates())
		e.processHumanPlayers(dt, elapsed)
		for _, r := range e.robots {
			r.Tick(e.state, e.field, dt)
		}
		e.resolveShooting(elapsed)
		e.processDefense()
		e.processFouls()

		if err := e.field.CheckConservation(e.robotStates()); err != nil {
			return model.SimulationResult{}, fmt.Errorf("t=%.1f: %w", elapsed, err)
		}

		e.state.TimeRemaining -= dt
	}

	e.resolveTowerClimbing()
	return e.compileResult(), nil
}

func (e *Engine) robotStates() []*model.RobotState {
	states := make([]*model.RobotState, len(e.robots))
	for i, r := range e.robots {
		states[i] = r.State()
	}
	return states
}

// ---------------------------------------------------------------------------
// Phase transitions and hub activation
// ---------------------------------------------------------------------------

func (e *Engine) onPhaseChange(next model.Phase) {
	if e.state.CurrentPhase == model.PhaseAuto && next == model.PhaseTransition {
		e.determineAutoWinner()
	}
	if next.IsShift() {
		e.updateHubActivation(next)
	}
	if next == model.PhaseEndgame {
		e.state.RedHubActive = true
		e.state.BlueHubActive = true
	}
}

// The alliance that scored more fuel in auto wins auto; a tie goes to red.
// The winner pays for it with an inactive hub in shifts 1 and 3.
func (e *Engine) determineAutoWinner() {
	if e.blueFuelScored > e.redFuelScored {
		e.autoWinner = model.Blue
	} else {
		e.autoWinner = model.Red
	}
}

func (e *Engine) updateHubActivation(phase model.Phase) {
	winnerActive := phase == model.PhaseShift2 || phase == model.PhaseShift4
	if e.autoWinner == model.Blue {
		e.state.BlueHubActive = winnerActive
		e.state.RedHubActive = !winnerActive
	} else {
		e.state.RedHubActive = winnerActive
		e.state.BlueHubActive = !winnerActive
	}
}

// ---------------------------------------------------------------------------
// Shot resolution
// ---------------------------------------------------------------------------

// resolveShooting drains fuel from robots in a shooting or dumping action
// at their release rate and runs one Bernoulli accuracy trial per ball.
// Hits into an inactive hub still recycle through the transit queue but
// score nothing.
func (e *Engine) resolveShooting(elapsed float64) {
	for _, r := range e.robots {
		st := r.State()
		if st.CurrentAction != model.ActionShooting && st.CurrentAction != model.ActionDumping {
			continue
		}
		if st.FuelHeld <= 0 {
			continue
		}
		rate := r.ShootRate()
		if rate <= 0 {
			continue
		}

		perTick := int(rate*config.TickInterval + 0.5)
		if perTick < 1 {
			perTick = 1
		}
		if perTick > st.FuelHeld {
			perTick = st.FuelHeld
		}

		accuracy := r.Accuracy()
		hits, misses := 0, 0
		for i := 0; i < perTick; i++ {
			st.FuelHeld--
			e.field.FuelShot(1)
			if e.rng.Float64() < accuracy {
				hits++
			} else {
				misses++
			}
		}

		if hits > 0 {
			e.field.FuelScored(hits, elapsed)
			if e.state.HubActive(st.Alliance) {
				e.awardFuel(st.Alliance, hits)
			}
		}
		if misses > 0 {
			e.field.FuelMissed(misses, elapsed)
		}
	}
}

func (e *Engine) awardFuel(a model.Alliance, hits int) {
	points := hits * config.FuelActiveHubPoints
	if a == model.Red {
		e.redFuelScored += hits
		e.state.RedFuelScored += hits
		e.state.RedScore += points
	} else {
		e.blueFuelScored += hits
		e.state.BlueFuelScored += hits
		e.state.BlueScore += points
	}
	if scores, ok := e.phaseScores[string(e.state.CurrentPhase)]; ok {
		scores[string(a)] += points
	}
}

// ---------------------------------------------------------------------------
// Defense
// ---------------------------------------------------------------------------

// processDefense applies defense penalties edge-triggered: a target is hit
// once when a defender locks on and restored once when the last defender
// leaves. A target id that matches no robot is a wasted defender, not an
// error.
func (e *Engine) processDefense() {
	defended := make(map[string]bool)

	for _, d := range e.robots {
		st := d.State()
		if !st.IsDefending || st.CurrentAction != model.ActionDefending {
			continue
		}
		targetID := d.Config.DefenseTarget
		if targetID == "" {
			// Default to the opponent's presumed best scorer.
			targetID = string(d.Alliance.Opponent()) + "_0"
		}
		target := e.findRobot(targetID)
		if target == nil {
			continue
		}
		defended[targetID] = true

		if !e.defenseApplied[targetID] {
			if target.IsTurret() {
				target.ApplyDefensePenalty(config.DefenseCycleHitTurret, config.DefenseAccuracyHitTurret)
			} else {
				target.ApplyDefensePenalty(config.DefenseCycleHitFixed, config.DefenseAccuracyHitFixed)
			}
			e.defenseApplied[targetID] = true
		}
	}

	for id, applied := range e.defenseApplied {
		if applied && !defended[id] {
			if target := e.findRobot(id); target != nil {
				target.ResetDefensePenalty()
			}
			e.defenseApplied[id] = false
		}
	}
}

func (e *Engine) findRobot(id string) *robot.Robot {
	for _, r := range e.robots {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Fouls
// ---------------------------------------------------------------------------

// processFouls detects newly drawn fouls by delta against the previous
// tick and awards the points to the opposing alliance.
func (e *Engine) processFouls() {
	for _, r := range e.robots {
		current := r.State().FoulsDrawn
		prev := e.prevFouls[r.ID]
		if current <= prev {
			continue
		}
		e.prevFouls[r.ID] = current
		points := (current - prev) * config.FoulPoints

		if r.Alliance == model.Red {
			e.bluePenaltyPoints += points
			e.state.RedPenalties += points
			e.state.BlueScore += points
		} else {
			e.redPenaltyPoints += points
			e.state.BluePenalties += points
			e.state.RedScore += points
		}
	}
}

// ---------------------------------------------------------------------------
// Human players
// ---------------------------------------------------------------------------

func (e *Engine) processHumanPlayers(dt, elapsed float64) {
	phase := e.state.CurrentPhase
	if phase == model.PhaseAuto || phase == model.PhaseTransition {
		return
	}
	e.redHPTimer = e.tickHumanPlayer(model.Red, e.redConfig.HumanPlayerMode, e.redRobots, e.redHPTimer+dt, elapsed)
	e.blueHPTimer = e.tickHumanPlayer(model.Blue, e.blueConfig.HumanPlayerMode, e.blueRobots, e.blueHPTimer+dt, elapsed)
}

func (e *Engine) tickHumanPlayer(a model.Alliance, mode model.HumanPlayerMode, robots []*robot.Robot, timer, elapsed float64) float64 {
	throw := func() float64 {
		if timer >= config.HPThrowInterval {
			timer -= config.HPThrowInterval
			e.hpThrow(a, elapsed)
		}
		return timer
	}
	feed := func() float64 {
		if timer >= config.HPFeedInterval {
			timer -= config.HPFeedInterval
			e.hpFeed(a, robots)
		}
		return timer
	}

	switch mode {
	case model.HPThrow:
		return throw()
	case model.HPFeed:
		return feed()
	case model.HPMixed:
		// Throw while our hub pays, feed while it does not.
		if e.state.HubActive(a) {
			return throw()
		}
		return feed()
	}
	return timer
}

func (e *Engine) hpThrow(a model.Alliance, elapsed float64) {
	if !e.field.HPThrow(a) {
		return
	}
	if e.rng.Float64() < config.HPThrowAccuracy {
		e.field.FuelScored(1, elapsed)
		if e.state.HubActive(a) {
			e.awardFuel(a, 1)
		}
	} else {
		e.field.FuelMissed(1, elapsed)
	}
}

func (e *Engine) hpFeed(a model.Alliance, robots []*robot.Robot) {
	for _, r := range robots {
		st := r.State()
		if st.FuelHeld >= st.StorageCapacity {
			continue
		}
		if e.field.HPFeed(a) {
			st.FuelHeld++
		}
		return
	}
}

// ---------------------------------------------------------------------------
// Tower climbing
// ---------------------------------------------------------------------------

// resolveTowerClimbing tallies tower points at the final buzzer. An L1
// banked during auto scores the auto bonus; a robot that later reached a
// higher level counts only that level.
func (e *Engine) resolveTowerClimbing() {
	for _, r := range e.robots {
		st := r.State()
		level := st.ClimbLevel
		if level <= 0 {
			continue
		}
		e.field.RegisterClimb(st.Alliance, r.ID)

		var points int
		switch {
		case level == 1 && r.AutoClimbScored():
			points = config.TowerL1AutoPoints
		case level == 1:
			points = config.TowerL1TeleopPoints
		case level == 2:
			points = config.TowerL2Points
		case level == 3:
			points = config.TowerL3Points
		}

		if st.Alliance == model.Red {
			e.redTowerPoints += points
			e.state.RedTowerPoints += points
			e.state.RedScore += points
		} else {
			e.blueTowerPoints += points
			e.state.BlueTowerPoints += points
			e.state.BlueScore += points
		}
	}
}

// ---------------------------------------------------------------------------
// Result compilation
// ---------------------------------------------------------------------------

func (e *Engine) compileResult() model.SimulationResult {
	redTotal := e.state.RedScore
	blueTotal := e.state.BlueScore

	winner := "tie"
	if redTotal > blueTotal {
		winner = string(model.Red)
	} else if blueTotal > redTotal {
		winner = string(model.Blue)
	}

	redRP, blueRP := 0, 0
	switch winner {
	case string(model.Red):
		redRP += config.RPWin
	case string(model.Blue):
		blueRP += config.RPWin
	default:
		redRP += config.RPTie
		blueRP += config.RPTie
	}

	redEnergized := e.redFuelScored >= config.RPEnergizedThreshold
	redSupercharged := e.redFuelScored >= config.RPSuperchargedThreshold
	blueEnergized := e.blueFuelScored >= config.RPEnergizedThreshold
	blueSupercharged := e.blueFuelScored >= config.RPSuperchargedThreshold
	redTraversal := e.redTowerPoints >= config.RPTraversalThreshold
	blueTraversal := e.blueTowerPoints >= config.RPTraversalThreshold

	for _, b := range []bool{redEnergized, redSupercharged, redTraversal} {
		if b {
			redRP++
		}
	}
	for _, b := range []bool{blueEnergized, blueSupercharged, blueTraversal} {
		if b {
			blueRP++
		}
	}

	return model.SimulationResult{
		RedTotalScore:      redTotal,
		BlueTotalScore:     blueTotal,
		RedRP:              redRP,
		BlueRP:             blueRP,
		Winner:             winner,
		RedFuelScored:      e.redFuelScored,
		BlueFuelScored:     e.blueFuelScored,
		RedTowerPoints:     e.redTowerPoints,
		BlueTowerPoints:    e.blueTowerPoints,
		RedPenaltiesDrawn:  e.redPenaltyPoints,
		BluePenaltiesDrawn: e.bluePenaltyPoints,
		RedEnergized:       redEnergized,
		RedSupercharged:    redSupercharged,
		RedTraversal:       redTraversal,
		BlueEnergized:      blueEnergized,
		BlueSupercharged:   blueSupercharged,
		BlueTraversal:      blueTraversal,
		PhaseScores:        e.phaseScores,
	}
}

// Summary renders a short human-readable account of the result.
func Summary(res model.SimulationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d - %d %s (winner: %s)\n",
		model.Red, res.RedTotalScore, res.BlueTotalScore, model.Blue, res.Winner)
	fmt.Fprintf(&b, "fuel: %d / %d  tower: %d / %d  rp: %d / %d",
		res.RedFuelScored, res.BlueFuelScored,
		res.RedTowerPoints, res.BlueTowerPoints,
		res.RedRP, res.BlueRP)
	return b.String()
}
