package config

import (
	"testing"

	"frcsim/internal/model"
)

func TestEmbeddedArchetypeTable(t *testing.T) {
	table, err := LoadArchetypes()
	if err != nil {
		t.Fatalf("LoadArchetypes: %v", err)
	}

	want := []string{
		"defense_bot", "elite_multishot", "elite_turret", "everybot",
		"kitbot_base", "kitbot_plus", "strong_scorer",
	}
	got := ArchetypeKeys(table)
	if len(got) != len(want) {
		t.Fatalf("archetype keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("archetype keys = %v, want %v", got, want)
		}
	}

	et := table["elite_turret"]
	if et.ShooterType != model.ShooterSingleTurret {
		t.Fatalf("elite_turret shooter = %q, want %q", et.ShooterType, model.ShooterSingleTurret)
	}
	if et.StorageCapacity != 14 || et.CycleTimeMean != 8.5 || et.Accuracy != 0.90 {
		t.Fatalf("elite_turret params off: %+v", et)
	}
	if et.ClimbSuccess(3) != 0.85 {
		t.Fatalf("elite_turret L3 climb = %v, want 0.85", et.ClimbSuccess(3))
	}
	if et.ClimbSuccess(0) != 0 || et.ClimbSuccess(4) != 0 {
		t.Fatal("climb success outside L1-L3 should be 0")
	}

	db := table["defense_bot"]
	if db.ShooterType != model.ShooterNone || db.IntakeQuality != model.IntakeNoGroundPickup {
		t.Fatalf("defense_bot mechanisms off: %+v", db)
	}
	if !db.AutoClimb {
		t.Fatal("defense_bot should attempt the auto climb")
	}

	for _, key := range got {
		a := table[key]
		if a.StorageCapacity < 0 || a.Accuracy < 0 || a.Accuracy > 1 {
			t.Fatalf("%s has out-of-range params: %+v", key, a)
		}
	}
}
