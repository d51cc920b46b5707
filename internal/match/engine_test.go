package match

import (
	"reflect"
	"testing"

	"frcsim/internal/config"
	"frcsim/internal/model"
)

func robotConfig(t *testing.T, name string) model.RobotConfig {
	t.Helper()
	table, err := config.LoadArchetypes()
	if err != nil {
		t.Fatalf("LoadArchetypes: %v", err)
	}
	arch, ok := table[name]
	if !ok {
		t.Fatalf("unknown archetype %q", name)
	}
	return model.RobotConfig{
		Archetype:           name,
		Drivetrain:          arch.Drivetrain,
		FreeSpeedFPS:        arch.FreeSpeedFPS,
		ShooterType:         arch.ShooterType,
		HopperType:          arch.HopperType,
		IndexerType:         arch.IndexerType,
		StorageCapacity:     arch.StorageCapacity,
		EffectiveRange:      arch.EffectiveRange,
		CanShootWhileMoving: arch.CanShootWhileMoving,
		IntakeRate:          arch.IntakeRate,
		ShootRate:           arch.ShootRate,
		IntakeType:          arch.IntakeType,
		IntakeQuality:       arch.IntakeQuality,
		AutoFuelTarget:      arch.AutoFuel,
		AutoAction:          model.AutoScoreFuel,
		AutoCycles:          arch.AutoCycles,
		AutoClimb:           arch.AutoClimb,
		ClimbTarget:         arch.ClimbLevel,
		ClimbStartTime:      arch.ClimbStartTime,
		ActiveShiftRole:     model.ActiveScore,
		InactiveShiftRole:   model.InactiveStockpile,
	}
}

func alliance(t *testing.T, names ...string) model.AllianceConfig {
	t.Helper()
	cfg := model.AllianceConfig{
		StrategyPreset:  model.PresetFullOffense,
		HumanPlayerMode: model.HPFeed,
	}
	for _, n := range names {
		cfg.Robots = append(cfg.Robots, robotConfig(t, n))
	}
	return cfg
}

func TestPhaseForBoundaries(t *testing.T) {
	cases := []struct {
		remaining float64
		want      model.Phase
	}{
		{160.0, model.PhaseAuto},
		{150.0, model.PhaseAuto},
		{140.0, model.PhaseAuto},
		{139.5, model.PhaseTransition},
		{130.0, model.PhaseTransition},
		{129.5, model.PhaseShift1},
		{105.0, model.PhaseShift1},
		{104.5, model.PhaseShift2},
		{80.0, model.PhaseShift2},
		{79.5, model.PhaseShift3},
		{55.0, model.PhaseShift3},
		{54.5, model.PhaseShift4},
		{30.0, model.PhaseShift4},
		{29.5, model.PhaseEndgame},
		{0.5, model.PhaseEndgame},
		{0.0, model.PhaseEndgame},
	}
	for _, c := range cases {
		if got := PhaseFor(c.remaining); got != c.want {
			t.Errorf("PhaseFor(%.1f) = %q, want %q", c.remaining, got, c.want)
		}
	}
}

func TestAutoTieGoesToRed(t *testing.T) {
	e, err := NewEngine(
		alliance(t, "everybot", "everybot", "everybot"),
		alliance(t, "everybot", "everybot", "everybot"),
		1,
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// Neither alliance scored in auto.
	e.determineAutoWinner()
	if e.autoWinner != model.Red {
		t.Fatalf("auto winner on a tie = %q, want red", e.autoWinner)
	}

	// The auto winner's hub is inactive during shifts 1 and 3.
	e.updateHubActivation(model.PhaseShift1)
	if e.state.RedHubActive || !e.state.BlueHubActive {
		t.Fatalf("shift1 activation red=%v blue=%v, want red inactive",
			e.state.RedHubActive, e.state.BlueHubActive)
	}
	e.updateHubActivation(model.PhaseShift2)
	if !e.state.RedHubActive || e.state.BlueHubActive {
		t.Fatalf("shift2 activation red=%v blue=%v, want red active",
			e.state.RedHubActive, e.state.BlueHubActive)
	}
}

func TestHubAlternationForBlueWinner(t *testing.T) {
	e, err := NewEngine(
		alliance(t, "everybot", "everybot", "everybot"),
		alliance(t, "everybot", "everybot", "everybot"),
		2,
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.blueFuelScored = 6
	e.determineAutoWinner()
	if e.autoWinner != model.Blue {
		t.Fatalf("auto winner = %q, want blue", e.autoWinner)
	}

	for _, c := range []struct {
		phase      model.Phase
		blueActive bool
	}{
		{model.PhaseShift1, false},
		{model.PhaseShift2, true},
		{model.PhaseShift3, false},
		{model.PhaseShift4, true},
	} {
		e.updateHubActivation(c.phase)
		if e.state.BlueHubActive != c.blueActive || e.state.RedHubActive == c.blueActive {
			t.Fatalf("%s: red=%v blue=%v, want blue active=%v",
				c.phase, e.state.RedHubActive, e.state.BlueHubActive, c.blueActive)
		}
	}
}

func TestPreloadDistribution(t *testing.T) {
	e, err := NewEngine(
		alliance(t, "elite_turret", "elite_turret", "elite_turret"),
		alliance(t, "kitbot_base", "kitbot_base", "kitbot_base"),
		3,
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// Red: targets of 8 each against a 10-fuel budget.
	want := []int{8, 2, 0}
	for i, r := range e.redRobots {
		if r.State().FuelHeld != want[i] {
			t.Fatalf("red robot %d preload = %d, want %d", i, r.State().FuelHeld, want[i])
		}
	}
	// Blue: targets of 1 each, budget never binds.
	for i, r := range e.blueRobots {
		if r.State().FuelHeld != 1 {
			t.Fatalf("blue robot %d preload = %d, want 1", i, r.State().FuelHeld)
		}
	}

	// Undistributed preload stays at the alliance outpost.
	fs := e.field.State()
	if fs.RedOutpostFuel != config.InitialOutpostFuel {
		t.Fatalf("red outpost = %d, want %d", fs.RedOutpostFuel, config.InitialOutpostFuel)
	}
	if want := config.InitialOutpostFuel + 7; fs.BlueOutpostFuel != want {
		t.Fatalf("blue outpost = %d, want %d", fs.BlueOutpostFuel, want)
	}

	if err := e.field.CheckConservation(e.robotStates()); err != nil {
		t.Fatalf("conservation at match start: %v", err)
	}
}

func TestWeakLineupMatchCompletes(t *testing.T) {
	// Both alliances carry almost no preload; the rest must sit at the
	// outposts or the first conservation check aborts the match.
	e, err := NewEngine(
		alliance(t, "kitbot_base", "kitbot_base", "kitbot_base"),
		alliance(t, "kitbot_base", "kitbot_base", "kitbot_base"),
		9,
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.field.CheckConservation(e.robotStates()); err != nil {
		t.Fatalf("conservation at match start: %v", err)
	}
	if _, err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRejectsWrongAllianceSize(t *testing.T) {
	_, err := NewEngine(
		alliance(t, "everybot", "everybot"),
		alliance(t, "everybot", "everybot", "everybot"),
		1,
	)
	if err == nil {
		t.Fatal("two-robot alliance accepted")
	}

	bad := alliance(t, "everybot", "everybot", "everybot")
	bad.Robots[1].Archetype = "mega_bot"
	_, err = NewEngine(bad, alliance(t, "everybot", "everybot", "everybot"), 1)
	if err == nil {
		t.Fatal("unknown archetype accepted")
	}
}

func TestFullMatchCompletes(t *testing.T) {
	red := alliance(t, "elite_turret", "strong_scorer", "everybot")
	blue := alliance(t, "elite_multishot", "everybot", "defense_bot")
	blue.Robots[2].ActiveShiftRole = model.ActiveDefend
	blue.Robots[2].InactiveShiftRole = model.InactiveDefend
	blue.Robots[2].DefenseTarget = "red_0"
	blue.Robots[2].AutoAction = model.AutoClimbL1

	e, err := NewEngine(red, blue, 12345)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	res, err := e.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Winner != "red" && res.Winner != "blue" && res.Winner != "tie" {
		t.Fatalf("winner = %q", res.Winner)
	}
	if res.RedTotalScore < 0 || res.BlueTotalScore < 0 {
		t.Fatalf("negative score: %+v", res)
	}
	if res.RedRP < 0 || res.RedRP > 6 || res.BlueRP < 0 || res.BlueRP > 6 {
		t.Fatalf("rp out of range: red=%d blue=%d", res.RedRP, res.BlueRP)
	}
	if res.Winner == "tie" && (res.RedRP < 1 || res.BlueRP < 1) {
		t.Fatalf("tie without tie rp: %+v", res)
	}
	if len(res.PhaseScores) == 0 {
		t.Fatal("no phase scores recorded")
	}
}

func TestSameSeedSameResult(t *testing.T) {
	run := func() model.SimulationResult {
		e, err := NewEngine(
			alliance(t, "elite_turret", "strong_scorer", "kitbot_plus"),
			alliance(t, "elite_multishot", "everybot", "kitbot_base"),
			777,
		)
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		res, err := e.Run()
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different results:\n%+v\n%+v", a, b)
	}
}

func TestBonusRankingPoints(t *testing.T) {
	e, err := NewEngine(
		alliance(t, "everybot", "everybot", "everybot"),
		alliance(t, "everybot", "everybot", "everybot"),
		4,
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	e.redFuelScored = config.RPEnergizedThreshold
	e.state.RedScore = config.RPEnergizedThreshold
	e.redTowerPoints = config.RPTraversalThreshold

	res := e.compileResult()
	if !res.RedEnergized || res.RedSupercharged {
		t.Fatalf("energized=%v supercharged=%v at exactly the energized threshold",
			res.RedEnergized, res.RedSupercharged)
	}
	if !res.RedTraversal {
		t.Fatal("traversal bonus missing at the threshold")
	}
	// Win (3) + energized (1) + traversal (1).
	if res.RedRP != 5 {
		t.Fatalf("red rp = %d, want 5", res.RedRP)
	}
	if res.BlueRP != 0 {
		t.Fatalf("blue rp = %d, want 0", res.BlueRP)
	}

	// One fuel short of the threshold loses the bonus.
	e.redFuelScored = config.RPEnergizedThreshold - 1
	if res := e.compileResult(); res.RedEnergized {
		t.Fatal("energized bonus awarded one fuel below the threshold")
	}
}
