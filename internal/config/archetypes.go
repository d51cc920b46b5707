package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"frcsim/internal/model"
)

//go:embed archetypes.yaml
var archetypesYAML []byte

// ArchetypeDef is one named bundle of robot capability parameters.
// cycle_time_stddev follows the 15%-of-mean rule; accuracy is the midpoint
// of the archetype's observed range.
type ArchetypeDef struct {
	StorageCapacity int     `yaml:"storage_capacity"`
	CycleTimeMean   float64 `yaml:"cycle_time_mean"`
	CycleTimeStddev float64 `yaml:"cycle_time_stddev"`
	AutoFuel        int     `yaml:"auto_fuel"`
	AutoCycles      int     `yaml:"auto_cycles"`
	ClimbLevel      int     `yaml:"climb_level"`
	Accuracy        float64 `yaml:"accuracy"`

	ClimbSuccessL1 float64 `yaml:"climb_success_l1"`
	ClimbSuccessL2 float64 `yaml:"climb_success_l2"`
	ClimbSuccessL3 float64 `yaml:"climb_success_l3"`

	ShooterType model.ShooterType `yaml:"shooter_type"`
	HopperType  model.HopperType  `yaml:"hopper_type"`
	IndexerType model.IndexerType `yaml:"indexer_type"`

	IntakeRate          float64 `yaml:"intake_rate"`
	ShootRate           float64 `yaml:"shoot_rate"`
	EffectiveRange      float64 `yaml:"effective_range"`
	CanShootWhileMoving bool    `yaml:"can_shoot_while_moving"`

	IntakeType    model.IntakeType    `yaml:"intake_type"`
	IntakeQuality model.IntakeQuality `yaml:"intake_quality"`

	Drivetrain   model.DrivetrainType `yaml:"drivetrain"`
	FreeSpeedFPS float64              `yaml:"free_speed_fps"`

	AutoClimb      bool    `yaml:"auto_climb"`
	ClimbStartTime float64 `yaml:"climb_start_time"`
}

// ClimbSuccess returns the success probability for the given tower level.
func (a ArchetypeDef) ClimbSuccess(level int) float64 {
	switch level {
	case 1:
		return a.ClimbSuccessL1
	case 2:
		return a.ClimbSuccessL2
	case 3:
		return a.ClimbSuccessL3
	}
	return 0.0
}

type archetypeFile struct {
	Archetypes map[string]ArchetypeDef `yaml:"archetypes"`
}

// LoadArchetypes parses the embedded archetype table.
func LoadArchetypes() (map[string]ArchetypeDef, error) {
	return parseArchetypes(archetypesYAML)
}

// LoadArchetypesDir reads archetypes.yaml from dir instead of the embedded
// table, for running with alternative parameter sets.
func LoadArchetypesDir(dir string) (map[string]ArchetypeDef, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "archetypes.yaml"))
	if err != nil {
		return nil, err
	}
	return parseArchetypes(raw)
}

func parseArchetypes(raw []byte) (map[string]ArchetypeDef, error) {
	var f archetypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("archetypes.yaml: %w", err)
	}
	if len(f.Archetypes) == 0 {
		return nil, fmt.Errorf("archetypes.yaml: no archetypes defined")
	}
	return f.Archetypes, nil
}

// ArchetypeKeys returns the archetype names in sorted order.
func ArchetypeKeys(table map[string]ArchetypeDef) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
