package resultstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frcsim/internal/model"
	"frcsim/internal/stats"
	"frcsim/internal/strategy"
)

func testBatch(t *testing.T) (model.AllianceConfig, model.AllianceConfig, stats.Batch) {
	t.Helper()
	p, err := strategy.NewPlanner()
	if err != nil {
		t.Fatalf("NewPlanner: %v", err)
	}
	red, err := p.AllianceConfig(
		[]string{"elite_turret", "strong_scorer", "everybot"},
		model.PresetFullOffense, nil,
	)
	if err != nil {
		t.Fatalf("red alliance: %v", err)
	}
	blue, err := p.AllianceConfig(
		[]string{"everybot", "everybot", "kitbot_plus"},
		model.PresetFullOffense, nil,
	)
	if err != nil {
		t.Fatalf("blue alliance: %v", err)
	}

	r := &stats.Runner{Red: red, Blue: blue, Seed: 31337, Workers: 2}
	batch, err := r.Run(3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return red, blue, batch
}

func TestSaveLoadRoundTrip(t *testing.T) {
	red, blue, batch := testBatch(t)

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	id, err := s.SaveBatch(red, blue, batch)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d", id)
	}

	arc, err := s.LoadBatch(id)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if arc.Batch.Runs != 3 || arc.Batch.Seed != 31337 {
		t.Fatalf("batch = runs %d seed %d", arc.Batch.Runs, arc.Batch.Seed)
	}
	if len(arc.Matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(arc.Matches))
	}
	if len(arc.Batch.Matches) != 3 {
		t.Fatal("loaded batch lost per-match results")
	}
	if strings.Join(arc.RedLineup, ",") != "elite_turret,strong_scorer,everybot" {
		t.Fatalf("red lineup = %v", arc.RedLineup)
	}
	for i, res := range arc.Matches {
		if res.RedTotalScore != batch.Matches[i].RedTotalScore {
			t.Fatalf("match %d score diverged after round trip", i)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	red, blue, batch := testBatch(t)

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	first, err := s.SaveBatch(red, blue, batch)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	second, err := s.SaveBatch(blue, red, batch)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("list = %d rows, want 2", len(metas))
	}
	if metas[0].ID != second || metas[1].ID != first {
		t.Fatalf("list order = [%d, %d], want newest first", metas[0].ID, metas[1].ID)
	}
	if metas[0].Runs != 3 || metas[0].Seed != 31337 {
		t.Fatalf("meta = %+v", metas[0])
	}
	if metas[0].RedLineup[0] != "everybot" {
		t.Fatalf("swapped lineup not recorded: %v", metas[0].RedLineup)
	}
}

func TestSaveBatchArchiveFailureNotIndexed(t *testing.T) {
	red, blue, batch := testBatch(t)
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	// Break the archive directory so the write fails partway through. The
	// save must report the error and leave no index row behind.
	if err := os.RemoveAll(filepath.Join(dir, "archives")); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if _, err := s.SaveBatch(red, blue, batch); err == nil {
		t.Fatal("save succeeded with an unwritable archive")
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 0 {
		t.Fatalf("failed save indexed: %d rows", len(metas))
	}
}

func TestLoadMissingBatch(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.LoadBatch(42); err == nil {
		t.Fatal("missing batch loaded")
	}
}

func TestReopenKeepsIndex(t *testing.T) {
	red, blue, batch := testBatch(t)
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := s.SaveBatch(red, blue, batch)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	arc, err := s2.LoadBatch(id)
	if err != nil {
		t.Fatalf("LoadBatch after reopen: %v", err)
	}
	if arc.Batch.Runs != 3 {
		t.Fatalf("runs = %d after reopen", arc.Batch.Runs)
	}
}
