package strategy

import (
	"testing"

	"frcsim/internal/model"
)

func planner(t *testing.T) *Planner {
	t.Helper()
	p, err := NewPlanner()
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	return p
}

func TestParseAllianceList(t *testing.T) {
	p := planner(t)

	names, err := p.ParseAllianceList(" elite_turret, strong_scorer ,defense_bot ")
	if err != nil {
		t.Fatalf("ParseAllianceList: %v", err)
	}
	want := []string{"elite_turret", "strong_scorer", "defense_bot"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}

	if _, err := p.ParseAllianceList("elite_turret,everybot"); err == nil {
		t.Fatal("two names accepted")
	}
	if _, err := p.ParseAllianceList("elite_turret,everybot,mega_bot"); err == nil {
		t.Fatal("unknown archetype accepted")
	}
}

func TestRobotConfigFromArchetype(t *testing.T) {
	p := planner(t)

	cfg, err := p.RobotConfig("elite_turret")
	if err != nil {
		t.Fatalf("RobotConfig: %v", err)
	}
	if cfg.ShooterType != model.ShooterSingleTurret {
		t.Fatalf("shooter = %q, want turret", cfg.ShooterType)
	}
	if cfg.StorageCapacity != 14 || cfg.AutoFuelTarget != 8 || cfg.ClimbTarget != 3 {
		t.Fatalf("defaults off: %+v", cfg)
	}
	if cfg.ActiveShiftRole != model.ActiveScore {
		t.Fatalf("default active role = %q", cfg.ActiveShiftRole)
	}

	if _, err := p.RobotConfig("mega_bot"); err == nil {
		t.Fatal("unknown archetype accepted")
	}
}

func TestTwoScoreOneDefendPutsWorstOnDefense(t *testing.T) {
	p := planner(t)

	a, err := p.AllianceConfig(
		[]string{"defense_bot", "elite_turret", "everybot"},
		model.PresetTwoScoreOneDef, nil,
	)
	if err != nil {
		t.Fatalf("AllianceConfig: %v", err)
	}

	if a.HumanPlayerMode != model.HPFeed {
		t.Fatalf("hp mode = %q, want feed", a.HumanPlayerMode)
	}
	// The defense bot has zero scoring potential and must draw the
	// defensive assignment.
	if a.Robots[0].ActiveShiftRole != model.ActiveDefend {
		t.Fatalf("defense_bot active role = %q, want defend", a.Robots[0].ActiveShiftRole)
	}
	if a.Robots[0].DefenseTarget == "" {
		t.Fatal("defender has no target")
	}
	for _, i := range []int{1, 2} {
		if a.Robots[i].ActiveShiftRole != model.ActiveScore {
			t.Fatalf("robot %d active role = %q, want score", i, a.Robots[i].ActiveShiftRole)
		}
		if a.Robots[i].InactiveShiftRole != model.InactiveStockpile {
			t.Fatalf("robot %d inactive role = %q, want stockpile", i, a.Robots[i].InactiveShiftRole)
		}
	}
}

func TestDenyAndScoreCampsNeutral(t *testing.T) {
	p := planner(t)

	a, err := p.AllianceConfig(
		[]string{"elite_turret", "strong_scorer", "kitbot_base"},
		model.PresetDenyAndScore, nil,
	)
	if err != nil {
		t.Fatalf("AllianceConfig: %v", err)
	}
	if a.Robots[2].InactiveShiftRole != model.InactiveDenyNeutral {
		t.Fatalf("weakest robot inactive role = %q, want deny_neutral", a.Robots[2].InactiveShiftRole)
	}
}

func TestEndgamePlanAssignsHighestFeasibleLevels(t *testing.T) {
	p := planner(t)

	a, err := p.AllianceConfig(
		[]string{"elite_turret", "strong_scorer", "kitbot_base"},
		model.PresetFullOffense, nil,
	)
	if err != nil {
		t.Fatalf("AllianceConfig: %v", err)
	}

	// Best climber takes L3; the kitbot cannot climb at all; the strong
	// scorer is bumped from L2 to L3 chasing the traversal threshold.
	want := []int{3, 3, 0}
	for i, lvl := range want {
		if a.EndgamePlan[i] != lvl {
			t.Fatalf("endgame plan = %v, want %v", a.EndgamePlan, want)
		}
		if a.Robots[i].ClimbTarget != lvl {
			t.Fatalf("robot %d climb target = %d, want %d", i, a.Robots[i].ClimbTarget, lvl)
		}
	}
}

func TestAutoPlanRejectsTwoClimbers(t *testing.T) {
	p := planner(t)

	_, err := p.AllianceConfig(
		[]string{"everybot", "everybot", "everybot"},
		model.PresetFullOffense,
		[]model.AutoAction{model.AutoClimbL1, model.AutoClimbL1, model.AutoScoreFuel},
	)
	if err == nil {
		t.Fatal("two auto climbers accepted")
	}
}

func TestCounterStrategy(t *testing.T) {
	p := planner(t)

	cases := []struct {
		opponents []string
		want      model.StrategyPreset
	}{
		{[]string{"elite_turret", "kitbot_base", "kitbot_base"}, model.PresetFullOffense},
		{[]string{"elite_turret", "elite_multishot", "strong_scorer"}, model.PresetSurge},
		{[]string{"elite_multishot", "strong_scorer", "everybot"}, model.PresetTwoScoreOneDef},
		{[]string{"strong_scorer", "everybot", "kitbot_plus"}, model.PresetTwoScoreOneDef},
		{[]string{"kitbot_base", "kitbot_plus", "everybot"}, model.PresetFullOffense},
	}
	for _, c := range cases {
		if got := p.CounterStrategy(c.opponents); got != c.want {
			t.Errorf("CounterStrategy(%v) = %q, want %q", c.opponents, got, c.want)
		}
	}
}

func TestParseAllianceJSON(t *testing.T) {
	p := planner(t)

	valid := []byte(`{
		"archetypes": ["elite_turret", "everybot", "defense_bot"],
		"strategy": "2_score_1_defend",
		"human_player_mode": "throw",
		"auto_plan": ["score_fuel", "score_fuel", "climb_l1"]
	}`)
	a, err := p.ParseAllianceJSON(valid)
	if err != nil {
		t.Fatalf("ParseAllianceJSON: %v", err)
	}
	if a.StrategyPreset != model.PresetTwoScoreOneDef {
		t.Fatalf("preset = %q", a.StrategyPreset)
	}
	if a.HumanPlayerMode != model.HPThrow {
		t.Fatalf("hp mode = %q, want explicit throw override", a.HumanPlayerMode)
	}
	if a.Robots[2].AutoAction != model.AutoClimbL1 {
		t.Fatalf("robot 2 auto action = %q", a.Robots[2].AutoAction)
	}

	for _, bad := range []string{
		`{"archetypes": ["elite_turret", "everybot"]}`,
		`{"archetypes": ["elite_turret", "everybot", "defense_bot"], "strategy": "zerg_rush"}`,
		`{"archetypes": ["elite_turret", "everybot", "mega_bot"]}`,
		`{}`,
		`{"archetypes": ["a", "b", "c"], "extra": 1}`,
	} {
		if _, err := p.ParseAllianceJSON([]byte(bad)); err == nil {
			t.Errorf("accepted invalid alliance json: %s", bad)
		}
	}
}
