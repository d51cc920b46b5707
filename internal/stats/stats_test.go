package stats

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"frcsim/internal/model"
	"frcsim/internal/strategy"
)

func testAlliances(t *testing.T) (model.AllianceConfig, model.AllianceConfig) {
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
		[]string{"strong_scorer", "everybot", "kitbot_plus"},
		model.PresetTwoScoreOneDef, nil,
	)
	if err != nil {
		t.Fatalf("blue alliance: %v", err)
	}
	return red, blue
}

func TestAggregate(t *testing.T) {
	results := []model.SimulationResult{
		{
			Winner:        "red",
			RedTotalScore: 100, BlueTotalScore: 50,
			RedRP: 5, BlueRP: 0,
			RedFuelScored: 80, BlueFuelScored: 40,
			RedTowerPoints: 30, BlueTowerPoints: 10,
			RedPenaltiesDrawn: 10,
			RedEnergized:      true,
			RedTraversal:      true,
			PhaseScores: map[string]map[string]int{
				"auto": {"red": 20, "blue": 10},
			},
		},
		{
			Winner:        "blue",
			RedTotalScore: 60, BlueTotalScore: 70,
			RedRP: 1, BlueRP: 3,
			RedFuelScored: 50, BlueFuelScored: 60,
			RedTowerPoints: 10, BlueTowerPoints: 10,
			BlueEnergized: true,
			PhaseScores: map[string]map[string]int{
				"auto": {"red": 10, "blue": 14},
			},
		},
	}

	b := Aggregate(results)
	if b.Runs != 2 {
		t.Fatalf("runs = %d", b.Runs)
	}
	if b.RedWinRate != 0.5 || b.BlueWinRate != 0.5 || b.TieRate != 0 {
		t.Fatalf("win rates = %v / %v / %v", b.RedWinRate, b.BlueWinRate, b.TieRate)
	}
	if b.RedScore.Mean != 80 || b.RedScore.Min != 60 || b.RedScore.Max != 100 {
		t.Fatalf("red score summary = %+v", b.RedScore)
	}
	// Population stddev of {100, 60} is 20.
	if math.Abs(b.RedScore.Stddev-20) > 1e-9 {
		t.Fatalf("red score stddev = %v, want 20", b.RedScore.Stddev)
	}
	if b.RedRPMean != 3 || b.BlueRPMean != 1.5 {
		t.Fatalf("rp means = %v / %v", b.RedRPMean, b.BlueRPMean)
	}
	if b.RedEnergizedRate != 0.5 || b.RedTraversalRate != 0.5 || b.RedSuperchargedRate != 0 {
		t.Fatalf("red bonus rates = %v / %v / %v",
			b.RedEnergizedRate, b.RedSuperchargedRate, b.RedTraversalRate)
	}
	if got := b.PhaseScoreMeans["auto"]["red"]; got != 15 {
		t.Fatalf("auto red mean = %v, want 15", got)
	}
	if got := b.PhaseScoreMeans["auto"]["blue"]; got != 12 {
		t.Fatalf("auto blue mean = %v, want 12", got)
	}
	if b.RedPenaltyMean != 5 || b.BluePenaltyMean != 0 {
		t.Fatalf("penalty means = %v / %v", b.RedPenaltyMean, b.BluePenaltyMean)
	}
	// Scores 100 and 60 land in the 100 and 50 buckets.
	wantHist := []HistBucket{{Lo: 50, Count: 1}, {Lo: 100, Count: 1}}
	if len(b.RedScoreHist) != 2 || b.RedScoreHist[0] != wantHist[0] || b.RedScoreHist[1] != wantHist[1] {
		t.Fatalf("red score hist = %v, want %v", b.RedScoreHist, wantHist)
	}
}

func TestBatchIsReproducible(t *testing.T) {
	red, blue := testAlliances(t)

	run := func(workers int) Batch {
		r := &Runner{Red: red, Blue: blue, Seed: 4242, Workers: workers}
		b, err := r.Run(6)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return b
	}

	// Same seeds, different pool sizes: identical batches.
	a, b := run(1), run(4)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("batch results depend on worker count")
	}
	if a.Runs != 6 || len(a.Matches) != 6 {
		t.Fatalf("runs = %d, matches = %d", a.Runs, len(a.Matches))
	}
	if total := a.RedWinRate + a.BlueWinRate + a.TieRate; math.Abs(total-1) > 1e-9 {
		t.Fatalf("win rates sum to %v", total)
	}
}

func TestRunRejectsEmptyBatch(t *testing.T) {
	red, blue := testAlliances(t)
	r := &Runner{Red: red, Blue: blue, Seed: 1}
	if _, err := r.Run(0); err == nil {
		t.Fatal("empty batch accepted")
	}
}

func TestFormatters(t *testing.T) {
	red, blue := testAlliances(t)
	r := &Runner{Red: red, Blue: blue, Seed: 99, Workers: 2}
	b, err := r.Run(3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := FormatText(b)
	for _, want := range []string{"runs: 3", "win rate:", "score:", "bonus red:"} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}

	raw, err := FormatJSON(b)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	if !strings.Contains(string(raw), `"red_win_rate"`) {
		t.Fatal("json report missing win rate field")
	}

	csvOut, err := FormatCSV(b)
	if err != nil {
		t.Fatalf("FormatCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvOut), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv has %d lines, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "match,winner,red_score") {
		t.Fatalf("csv header = %q", lines[0])
	}
}
