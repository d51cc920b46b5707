// Package strategy turns archetype names into full alliance configurations:
// preset role assignment, endgame climb planning, counter-strategy selection
// and loading alliance definitions from schema-validated JSON files.
package strategy

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"frcsim/internal/config"
	"frcsim/internal/model"
)

//go:embed schema.json
var allianceSchema string

// AutoPresets are named per-robot autonomous plans selectable from the CLI.
var AutoPresets = map[string][]model.AutoAction{
	"all_score":                 {model.AutoScoreFuel, model.AutoScoreFuel, model.AutoScoreFuel},
	"2_score_1_climb":           {model.AutoScoreFuel, model.AutoScoreFuel, model.AutoClimbL1},
	"2_score_1_disrupt":         {model.AutoScoreFuel, model.AutoScoreFuel, model.AutoDisruptNeutral},
	"1_score_1_climb_1_disrupt": {model.AutoScoreFuel, model.AutoClimbL1, model.AutoDisruptNeutral},
}

// Planner builds alliance configurations against a loaded archetype table.
type Planner struct {
	table  map[string]config.ArchetypeDef
	schema *jsonschema.Schema
}

// NewPlanner loads the embedded archetype table and alliance schema.
func NewPlanner() (*Planner, error) {
	table, err := config.LoadArchetypes()
	if err != nil {
		return nil, err
	}
	schema, err := jsonschema.CompileString("alliance.schema.json", allianceSchema)
	if err != nil {
		return nil, fmt.Errorf("compile alliance schema: %w", err)
	}
	return &Planner{table: table, schema: schema}, nil
}

// Archetypes lists the valid archetype names in sorted order.
func (p *Planner) Archetypes() []string {
	return config.ArchetypeKeys(p.table)
}

// ParseAllianceList splits a comma-separated archetype list and validates
// it names exactly three known archetypes.
func (p *Planner) ParseAllianceList(s string) ([]string, error) {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) != 3 {
		return nil, fmt.Errorf("expected exactly 3 archetype names, got %d", len(names))
	}
	for _, n := range names {
		if _, ok := p.table[n]; !ok {
			return nil, fmt.Errorf("unknown archetype %q, valid: %s", n, strings.Join(p.Archetypes(), ", "))
		}
	}
	return names, nil
}

// RobotConfig builds a robot configuration from an archetype's defaults.
// Roles and climb targets are then reassigned by the strategy preset and
// the endgame plan.
func (p *Planner) RobotConfig(name string) (model.RobotConfig, error) {
	arch, ok := p.table[name]
	if !ok {
		return model.RobotConfig{}, fmt.Errorf("unknown archetype %q, valid: %s",
			name, strings.Join(p.Archetypes(), ", "))
	}
	return model.RobotConfig{
		Archetype:              name,
		Drivetrain:             arch.Drivetrain,
		FreeSpeedFPS:           arch.FreeSpeedFPS,
		ShooterType:            arch.ShooterType,
		HopperType:             arch.HopperType,
		IndexerType:            arch.IndexerType,
		StorageCapacity:        arch.StorageCapacity,
		EffectiveRange:         arch.EffectiveRange,
		CanShootWhileMoving:    arch.CanShootWhileMoving,
		IntakeRate:             arch.IntakeRate,
		ShootRate:              arch.ShootRate,
		IntakeType:             arch.IntakeType,
		IntakeQuality:          arch.IntakeQuality,
		AutoFuelTarget:         arch.AutoFuel,
		AutoAction:             model.AutoScoreFuel,
		AutoCycles:             arch.AutoCycles,
		AutoClimb:              arch.AutoClimb,
		ClimbTarget:            arch.ClimbLevel,
		ClimbStartTime:         arch.ClimbStartTime,
		ActiveShiftRole:        model.ActiveScore,
		InactiveShiftRole:      model.InactiveStockpile,
		PrePositionBeforeShift: true,
	}, nil
}

// AllianceConfig builds a full alliance from three archetype names, applies
// the strategy preset and assigns the endgame climb plan. A nil autoPlan
// means everyone scores fuel in auto.
func (p *Planner) AllianceConfig(names []string, preset model.StrategyPreset, autoPlan []model.AutoAction) (model.AllianceConfig, error) {
	if len(names) != 3 {
		return model.AllianceConfig{}, fmt.Errorf("an alliance requires exactly 3 robots, got %d", len(names))
	}
	if !validPreset(preset) {
		return model.AllianceConfig{}, fmt.Errorf("unknown strategy preset %q", preset)
	}

	robots := make([]model.RobotConfig, 0, 3)
	for _, n := range names {
		cfg, err := p.RobotConfig(n)
		if err != nil {
			return model.AllianceConfig{}, err
		}
		robots = append(robots, cfg)
	}

	if autoPlan == nil {
		autoPlan = AutoPresets["all_score"]
	}
	if len(autoPlan) != 3 {
		return model.AllianceConfig{}, fmt.Errorf("auto plan must have exactly 3 entries, got %d", len(autoPlan))
	}
	climbers := 0
	for i, a := range autoPlan {
		if a == model.AutoClimbL1 {
			climbers++
		}
		robots[i].AutoAction = a
	}
	if climbers > 1 {
		return model.AllianceConfig{}, fmt.Errorf("at most 1 robot per alliance can climb in auto, got %d", climbers)
	}

	alliance := model.AllianceConfig{
		Robots:          robots,
		StrategyPreset:  preset,
		HumanPlayerMode: model.HPMixed,
		EndgamePlan:     []int{0, 0, 0},
		AutoPlan:        append([]model.AutoAction{}, autoPlan...),
	}

	p.ApplyPreset(&alliance, preset)
	p.AssignEndgamePlan(&alliance)
	return alliance, nil
}

func validPreset(preset model.StrategyPreset) bool {
	for _, v := range model.Presets() {
		if v == preset {
			return true
		}
	}
	return false
}

// Rough offensive throughput: capacity scaled by accuracy per cycle second.
// Used to rank robots so presets put the best scorers on offense.
func (p *Planner) scoringPotential(cfg model.RobotConfig) float64 {
	arch := p.table[cfg.Archetype]
	if arch.CycleTimeMean <= 0 {
		return 0
	}
	return float64(cfg.StorageCapacity) * arch.Accuracy / arch.CycleTimeMean
}

// Probability-weighted tower value across all levels.
func (p *Planner) climbCapability(cfg model.RobotConfig) float64 {
	arch := p.table[cfg.Archetype]
	return arch.ClimbSuccessL3*config.TowerL3Points +
		arch.ClimbSuccessL2*config.TowerL2Points +
		arch.ClimbSuccessL1*config.TowerL1TeleopPoints
}

// rankByScoring returns robot indices sorted best scorer first.
func (p *Planner) rankByScoring(robots []model.RobotConfig) []int {
	idx := []int{0, 1, 2}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.scoringPotential(robots[idx[a]]) > p.scoringPotential(robots[idx[b]])
	})
	return idx
}

// ApplyPreset rewrites per-robot shift roles and the human player mode
// according to the preset.
func (p *Planner) ApplyPreset(alliance *model.AllianceConfig, preset model.StrategyPreset) {
	robots := alliance.Robots
	ranked := p.rankByScoring(robots)
	best, mid, worst := ranked[0], ranked[1], ranked[2]

	// The defense target names the opposing slot; the match engine
	// resolves it, and an unresolvable name is simply wasted defense.
	const opponentBest = "opponent_0"

	setOffense := func(i int) {
		robots[i].ActiveShiftRole = model.ActiveScore
		robots[i].InactiveShiftRole = model.InactiveStockpile
		robots[i].DefenseTarget = ""
		robots[i].PrePositionBeforeShift = true
	}
	setDefense := func(i int) {
		robots[i].ActiveShiftRole = model.ActiveDefend
		robots[i].InactiveShiftRole = model.InactiveDefend
		robots[i].DefenseTarget = opponentBest
		robots[i].PrePositionBeforeShift = false
	}

	switch preset {
	case model.PresetFullOffense:
		alliance.HumanPlayerMode = model.HPMixed
		for i := range robots {
			setOffense(i)
		}

	case model.PresetTwoScoreOneDef:
		alliance.HumanPlayerMode = model.HPFeed
		setOffense(best)
		setOffense(mid)
		setDefense(worst)

	case model.PresetOneScoreTwoDef:
		alliance.HumanPlayerMode = model.HPThrow
		setOffense(best)
		setDefense(mid)
		setDefense(worst)

	case model.PresetDenyAndScore:
		alliance.HumanPlayerMode = model.HPFeed
		for i := range robots {
			setOffense(i)
		}
		robots[worst].InactiveShiftRole = model.InactiveDenyNeutral

	case model.PresetSurge:
		alliance.HumanPlayerMode = model.HPFeed
		for i := range robots {
			setOffense(i)
		}
	}

	alliance.StrategyPreset = preset
}

// AssignEndgamePlan hands the highest feasible climb level to the best
// climber and works down, then bumps targets while the expected tower
// points fall short of the traversal bonus threshold.
func (p *Planner) AssignEndgamePlan(alliance *model.AllianceConfig) {
	robots := alliance.Robots

	idx := []int{0, 1, 2}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.climbCapability(robots[idx[a]]) > p.climbCapability(robots[idx[b]])
	})

	levels := []int{3, 2, 1}
	plan := make([]int, len(robots))

	for rank, ri := range idx {
		arch := p.table[robots[ri].Archetype]
		target := 0
		if rank < len(levels) {
			target = levels[rank]
		}
		// Drop to the highest level the robot can actually make.
		for target > 0 && arch.ClimbSuccess(target) <= 0 {
			target--
		}
		plan[ri] = target
		robots[ri].ClimbTarget = target
	}

	if p.expectedTowerPoints(robots, plan) < config.RPTraversalThreshold {
		for _, ri := range idx {
			arch := p.table[robots[ri].Archetype]
			for higher := plan[ri] + 1; higher <= 3; higher++ {
				if arch.ClimbSuccess(higher) > 0.05 {
					plan[ri] = higher
					robots[ri].ClimbTarget = higher
					break
				}
			}
			if p.expectedTowerPoints(robots, plan) >= config.RPTraversalThreshold {
				break
			}
		}
	}

	alliance.EndgamePlan = plan
}

func (p *Planner) expectedTowerPoints(robots []model.RobotConfig, plan []int) float64 {
	points := map[int]int{
		1: config.TowerL1TeleopPoints,
		2: config.TowerL2Points,
		3: config.TowerL3Points,
	}
	total := 0.0
	for i, level := range plan {
		if level == 0 {
			continue
		}
		arch := p.table[robots[i].Archetype]
		total += arch.ClimbSuccess(level) * float64(points[level])
	}
	return total
}

// CounterStrategy recommends a preset against a known opponent lineup.
// Defense pays off against fixed shooters but not against a turret, which
// keeps scoring while shoved around.
func (p *Planner) CounterStrategy(opponents []string) model.StrategyPreset {
	turrets, strong := 0, 0
	for _, a := range opponents {
		switch a {
		case "elite_turret":
			turrets++
			strong++
		case "elite_multishot", "strong_scorer":
			strong++
		}
	}

	if turrets >= 1 {
		if strong >= 3 {
			return model.PresetSurge
		}
		return model.PresetFullOffense
	}
	if strong >= 1 {
		return model.PresetTwoScoreOneDef
	}
	return model.PresetFullOffense
}

// allianceFile is the on-disk JSON shape, checked against the embedded
// schema before decoding.
type allianceFile struct {
	Archetypes      []string `json:"archetypes"`
	Strategy        string   `json:"strategy"`
	HumanPlayerMode string   `json:"human_player_mode"`
	AutoPlan        []string `json:"auto_plan"`
}

// LoadAllianceFile reads an alliance definition from a JSON file.
func (p *Planner) LoadAllianceFile(path string) (model.AllianceConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.AllianceConfig{}, err
	}
	return p.ParseAllianceJSON(raw)
}

// ParseAllianceJSON validates and decodes an alliance definition.
func (p *Planner) ParseAllianceJSON(raw []byte) (model.AllianceConfig, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return model.AllianceConfig{}, fmt.Errorf("alliance json: %w", err)
	}
	if err := p.schema.Validate(doc); err != nil {
		return model.AllianceConfig{}, fmt.Errorf("alliance json: %w", err)
	}

	var f allianceFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.AllianceConfig{}, fmt.Errorf("alliance json: %w", err)
	}

	for _, n := range f.Archetypes {
		if _, ok := p.table[n]; !ok {
			return model.AllianceConfig{}, fmt.Errorf("unknown archetype %q, valid: %s",
				n, strings.Join(p.Archetypes(), ", "))
		}
	}

	preset := model.PresetFullOffense
	if f.Strategy != "" {
		preset = model.StrategyPreset(f.Strategy)
	}

	var autoPlan []model.AutoAction
	if f.AutoPlan != nil {
		for _, a := range f.AutoPlan {
			autoPlan = append(autoPlan, model.AutoAction(a))
		}
	}

	alliance, err := p.AllianceConfig(f.Archetypes, preset, autoPlan)
	if err != nil {
		return model.AllianceConfig{}, err
	}
	if f.HumanPlayerMode != "" {
		alliance.HumanPlayerMode = model.HumanPlayerMode(f.HumanPlayerMode)
	}
	return alliance, nil
}
