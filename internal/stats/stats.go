// Package stats runs Monte Carlo batches of matches and aggregates the
// outcomes: win rates, score distributions, ranking point averages and
// bonus rates, with text, JSON and CSV renderings.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"frcsim/internal/match"
	"frcsim/internal/model"
)

// DefaultWorkers is the batch worker pool size.
const DefaultWorkers = 8

// Summary describes the distribution of one numeric outcome over a batch.
type Summary struct {
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// ScoreBucketWidth is the histogram bucket size in points.
const ScoreBucketWidth = 25

// HistBucket counts scores falling in [Lo, Lo+ScoreBucketWidth).
type HistBucket struct {
	Lo    int `json:"lo"`
	Count int `json:"count"`
}

// Batch is the aggregate over n simulated matches of the same pairing.
type Batch struct {
	Runs int   `json:"runs"`
	Seed int64 `json:"seed"`

	RedWinRate  float64 `json:"red_win_rate"`
	BlueWinRate float64 `json:"blue_win_rate"`
	TieRate     float64 `json:"tie_rate"`

	RedScore  Summary `json:"red_score"`
	BlueScore Summary `json:"blue_score"`

	RedScoreHist  []HistBucket `json:"red_score_hist"`
	BlueScoreHist []HistBucket `json:"blue_score_hist"`

	RedRPMean  float64 `json:"red_rp_mean"`
	BlueRPMean float64 `json:"blue_rp_mean"`

	RedFuelMean  float64 `json:"red_fuel_mean"`
	BlueFuelMean float64 `json:"blue_fuel_mean"`

	RedTowerMean  float64 `json:"red_tower_mean"`
	BlueTowerMean float64 `json:"blue_tower_mean"`

	RedPenaltyMean  float64 `json:"red_penalty_mean"`
	BluePenaltyMean float64 `json:"blue_penalty_mean"`

	RedEnergizedRate    float64 `json:"red_energized_rate"`
	RedSuperchargedRate float64 `json:"red_supercharged_rate"`
	RedTraversalRate    float64 `json:"red_traversal_rate"`

	BlueEnergizedRate    float64 `json:"blue_energized_rate"`
	BlueSuperchargedRate float64 `json:"blue_supercharged_rate"`
	BlueTraversalRate    float64 `json:"blue_traversal_rate"`

	PhaseScoreMeans map[string]map[string]float64 `json:"phase_score_means"`

	// Per-match results in seed order, retained for CSV export and storage.
	Matches []model.SimulationResult `json:"-"`
}

// Runner simulates the same alliance pairing repeatedly with derived seeds.
type Runner struct {
	Red     model.AllianceConfig
	Blue    model.AllianceConfig
	Seed    int64
	Workers int
}

// Run simulates n matches and aggregates them. Match i uses seed Seed+i, so
// a batch is reproducible regardless of worker count or scheduling.
func (r *Runner) Run(n int) (Batch, error) {
	if n <= 0 {
		return Batch{}, fmt.Errorf("batch size must be positive, got %d", n)
	}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > n {
		workers = n
	}

	results := make([]model.SimulationResult, n)
	var mu sync.Mutex
	var firstErr error

	jobs := make(chan int, n)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				eng, err := match.NewEngine(r.Red, r.Blue, r.Seed+int64(i))
				if err == nil {
					results[i], err = eng.Run()
				}
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("match %d: %w", i, err)
					}
					mu.Unlock()
				}
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return Batch{}, firstErr
	}
	batch := Aggregate(results)
	batch.Seed = r.Seed
	return batch, nil
}

// Aggregate folds per-match results into batch statistics.
func Aggregate(results []model.SimulationResult) Batch {
	n := len(results)
	b := Batch{Runs: n, Matches: results}
	if n == 0 {
		return b
	}

	redScores := make([]float64, n)
	blueScores := make([]float64, n)
	phaseSums := map[string]map[string]int{}

	for i, res := range results {
		redScores[i] = float64(res.RedTotalScore)
		blueScores[i] = float64(res.BlueTotalScore)

		switch res.Winner {
		case string(model.Red):
			b.RedWinRate++
		case string(model.Blue):
			b.BlueWinRate++
		default:
			b.TieRate++
		}

		b.RedRPMean += float64(res.RedRP)
		b.BlueRPMean += float64(res.BlueRP)
		b.RedFuelMean += float64(res.RedFuelScored)
		b.BlueFuelMean += float64(res.BlueFuelScored)
		b.RedTowerMean += float64(res.RedTowerPoints)
		b.BlueTowerMean += float64(res.BlueTowerPoints)
		b.RedPenaltyMean += float64(res.RedPenaltiesDrawn)
		b.BluePenaltyMean += float64(res.BluePenaltiesDrawn)

		b.RedEnergizedRate += rate(res.RedEnergized)
		b.RedSuperchargedRate += rate(res.RedSupercharged)
		b.RedTraversalRate += rate(res.RedTraversal)
		b.BlueEnergizedRate += rate(res.BlueEnergized)
		b.BlueSuperchargedRate += rate(res.BlueSupercharged)
		b.BlueTraversalRate += rate(res.BlueTraversal)

		for phase, byAlliance := range res.PhaseScores {
			if phaseSums[phase] == nil {
				phaseSums[phase] = map[string]int{}
			}
			for alliance, pts := range byAlliance {
				phaseSums[phase][alliance] += pts
			}
		}
	}

	inv := 1.0 / float64(n)
	b.RedWinRate *= inv
	b.BlueWinRate *= inv
	b.TieRate *= inv
	b.RedRPMean *= inv
	b.BlueRPMean *= inv
	b.RedFuelMean *= inv
	b.BlueFuelMean *= inv
	b.RedTowerMean *= inv
	b.BlueTowerMean *= inv
	b.RedPenaltyMean *= inv
	b.BluePenaltyMean *= inv
	b.RedEnergizedRate *= inv
	b.RedSuperchargedRate *= inv
	b.RedTraversalRate *= inv
	b.BlueEnergizedRate *= inv
	b.BlueSuperchargedRate *= inv
	b.BlueTraversalRate *= inv

	b.RedScore = summarize(redScores)
	b.BlueScore = summarize(blueScores)
	b.RedScoreHist = histogram(redScores)
	b.BlueScoreHist = histogram(blueScores)

	b.PhaseScoreMeans = map[string]map[string]float64{}
	for phase, byAlliance := range phaseSums {
		b.PhaseScoreMeans[phase] = map[string]float64{}
		for alliance, sum := range byAlliance {
			b.PhaseScoreMeans[phase][alliance] = float64(sum) * inv
		}
	}
	return b
}

func rate(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func summarize(xs []float64) Summary {
	n := float64(len(xs))
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, x := range xs {
		s.Mean += x
		if x < s.Min {
			s.Min = x
		}
		if x > s.Max {
			s.Max = x
		}
	}
	s.Mean /= n
	for _, x := range xs {
		d := x - s.Mean
		s.Stddev += d * d
	}
	s.Stddev = math.Sqrt(s.Stddev / n)
	return s
}

// histogram buckets scores by ScoreBucketWidth, skipping empty buckets.
func histogram(xs []float64) []HistBucket {
	counts := map[int]int{}
	for _, x := range xs {
		lo := int(x) / ScoreBucketWidth * ScoreBucketWidth
		counts[lo]++
	}
	los := make([]int, 0, len(counts))
	for lo := range counts {
		los = append(los, lo)
	}
	sort.Ints(los)
	out := make([]HistBucket, 0, len(los))
	for _, lo := range los {
		out = append(out, HistBucket{Lo: lo, Count: counts[lo]})
	}
	return out
}

// FormatText renders the batch as a human-readable report.
func FormatText(b Batch) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "runs: %d (seed %d)\n", b.Runs, b.Seed)
	fmt.Fprintf(&sb, "win rate:  red %.1f%%  blue %.1f%%  tie %.1f%%\n",
		100*b.RedWinRate, 100*b.BlueWinRate, 100*b.TieRate)
	fmt.Fprintf(&sb, "score:     red %.1f ± %.1f [%.0f, %.0f]  blue %.1f ± %.1f [%.0f, %.0f]\n",
		b.RedScore.Mean, b.RedScore.Stddev, b.RedScore.Min, b.RedScore.Max,
		b.BlueScore.Mean, b.BlueScore.Stddev, b.BlueScore.Min, b.BlueScore.Max)
	fmt.Fprintf(&sb, "rp:        red %.2f  blue %.2f\n", b.RedRPMean, b.BlueRPMean)
	fmt.Fprintf(&sb, "fuel:      red %.1f  blue %.1f\n", b.RedFuelMean, b.BlueFuelMean)
	fmt.Fprintf(&sb, "tower:     red %.1f  blue %.1f\n", b.RedTowerMean, b.BlueTowerMean)
	fmt.Fprintf(&sb, "penalties: red %.1f  blue %.1f\n", b.RedPenaltyMean, b.BluePenaltyMean)
	fmt.Fprintf(&sb, "bonus red:  energized %.1f%%  supercharged %.1f%%  traversal %.1f%%\n",
		100*b.RedEnergizedRate, 100*b.RedSuperchargedRate, 100*b.RedTraversalRate)
	fmt.Fprintf(&sb, "bonus blue: energized %.1f%%  supercharged %.1f%%  traversal %.1f%%\n",
		100*b.BlueEnergizedRate, 100*b.BlueSuperchargedRate, 100*b.BlueTraversalRate)

	phases := make([]string, 0, len(b.PhaseScoreMeans))
	for phase := range b.PhaseScoreMeans {
		phases = append(phases, phase)
	}
	sort.Strings(phases)
	for _, phase := range phases {
		fmt.Fprintf(&sb, "phase %-10s red %.1f  blue %.1f\n", phase,
			b.PhaseScoreMeans[phase][string(model.Red)],
			b.PhaseScoreMeans[phase][string(model.Blue)])
	}
	return sb.String()
}

// FormatJSON renders the batch as indented JSON.
func FormatJSON(b Batch) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// FormatCSV renders one row per match, in seed order.
func FormatCSV(b Batch) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	header := []string{
		"match", "winner", "red_score", "blue_score", "red_rp", "blue_rp",
		"red_fuel", "blue_fuel", "red_tower", "blue_tower",
		"red_penalties_drawn", "blue_penalties_drawn",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for i, res := range b.Matches {
		row := []string{
			strconv.Itoa(i), res.Winner,
			strconv.Itoa(res.RedTotalScore), strconv.Itoa(res.BlueTotalScore),
			strconv.Itoa(res.RedRP), strconv.Itoa(res.BlueRP),
			strconv.Itoa(res.RedFuelScored), strconv.Itoa(res.BlueFuelScored),
			strconv.Itoa(res.RedTowerPoints), strconv.Itoa(res.BlueTowerPoints),
			strconv.Itoa(res.RedPenaltiesDrawn), strconv.Itoa(res.BluePenaltiesDrawn),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}
