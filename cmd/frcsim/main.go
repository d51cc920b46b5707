package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"frcsim/internal/match"
	"frcsim/internal/model"
	"frcsim/internal/resultstore"
	"frcsim/internal/scouting"
	"frcsim/internal/stats"
	"frcsim/internal/strategy"
)

type sideFlags struct {
	list     string
	file     string
	preset   string
	auto     string
	tbaTeams string
}

func main() {
	var red, blue sideFlags
	var counter, output, outFile, storeDir string
	var event, tbaKey string
	var seed int64
	var n, workers int

	flag.StringVar(&red.list, "red", "", "red lineup: 3 comma-separated archetypes")
	flag.StringVar(&blue.list, "blue", "", "blue lineup: 3 comma-separated archetypes")
	flag.StringVar(&red.file, "red-file", "", "red alliance definition json file")
	flag.StringVar(&blue.file, "blue-file", "", "blue alliance definition json file")
	flag.StringVar(&red.preset, "red-strategy", "full_offense", "red strategy preset")
	flag.StringVar(&blue.preset, "blue-strategy", "full_offense", "blue strategy preset")
	flag.StringVar(&red.auto, "red-auto", "all_score", "red auto plan preset")
	flag.StringVar(&blue.auto, "blue-auto", "all_score", "blue auto plan preset")
	flag.StringVar(&red.tbaTeams, "red-teams", "", "red lineup: 3 comma-separated FRC team numbers (needs -event)")
	flag.StringVar(&blue.tbaTeams, "blue-teams", "", "blue lineup: 3 comma-separated FRC team numbers (needs -event)")
	flag.StringVar(&event, "event", "", "TBA event key for -red-teams/-blue-teams, e.g. 2026casj")
	flag.StringVar(&tbaKey, "tba-key", os.Getenv("TBA_AUTH_KEY"), "TBA API key (default $TBA_AUTH_KEY)")
	flag.StringVar(&counter, "counter", "", "pick this side's strategy against the opponent lineup: red|blue")
	flag.Int64Var(&seed, "seed", 12345, "base seed; match i uses seed+i")
	flag.IntVar(&n, "n", 1, "number of matches to simulate")
	flag.IntVar(&workers, "workers", 0, "batch worker pool size (0 = default)")
	flag.StringVar(&output, "output", "text", "output format: text|json|csv")
	flag.StringVar(&outFile, "file", "", "write output to this file instead of stdout")
	flag.StringVar(&storeDir, "store", "", "also persist the batch into this result store directory")
	flag.Parse()

	planner, err := strategy.NewPlanner()
	if err != nil {
		die(err)
	}

	var tba *scouting.Client
	if red.tbaTeams != "" || blue.tbaTeams != "" {
		if event == "" {
			die(fmt.Errorf("-red-teams/-blue-teams require -event"))
		}
		if tba, err = scouting.NewClient(tbaKey); err != nil {
			die(err)
		}
	}

	redCfg, redNames, err := buildSide(planner, tba, event, red)
	if err != nil {
		die(fmt.Errorf("red: %w", err))
	}
	blueCfg, blueNames, err := buildSide(planner, tba, event, blue)
	if err != nil {
		die(fmt.Errorf("blue: %w", err))
	}

	switch counter {
	case "":
	case "red":
		preset := planner.CounterStrategy(blueNames)
		if redCfg, err = planner.AllianceConfig(redNames, preset, strategy.AutoPresets[red.auto]); err != nil {
			die(fmt.Errorf("red counter: %w", err))
		}
		fmt.Fprintf(os.Stderr, "red counters %v with %s\n", blueNames, preset)
	case "blue":
		preset := planner.CounterStrategy(redNames)
		if blueCfg, err = planner.AllianceConfig(blueNames, preset, strategy.AutoPresets[blue.auto]); err != nil {
			die(fmt.Errorf("blue counter: %w", err))
		}
		fmt.Fprintf(os.Stderr, "blue counters %v with %s\n", redNames, preset)
	default:
		die(fmt.Errorf("-counter must be red or blue, got %q", counter))
	}

	runner := &stats.Runner{Red: redCfg, Blue: blueCfg, Seed: seed, Workers: workers}
	batch, err := runner.Run(n)
	if err != nil {
		die(err)
	}

	var rendered string
	switch output {
	case "text":
		if n == 1 {
			rendered = match.Summary(batch.Matches[0]) + "\n"
		} else {
			rendered = stats.FormatText(batch)
		}
	case "json":
		raw, err := stats.FormatJSON(batch)
		if err != nil {
			die(err)
		}
		rendered = string(raw) + "\n"
	case "csv":
		if rendered, err = stats.FormatCSV(batch); err != nil {
			die(err)
		}
	default:
		die(fmt.Errorf("unknown output format %q", output))
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(rendered), 0o644); err != nil {
			die(err)
		}
		fmt.Printf("%d matches done -> %s\n", n, outFile)
	} else {
		fmt.Print(rendered)
	}

	if storeDir != "" {
		store, err := resultstore.Open(storeDir)
		if err != nil {
			die(err)
		}
		defer store.Close()
		id, err := store.SaveBatch(redCfg, blueCfg, batch)
		if err != nil {
			die(err)
		}
		fmt.Fprintf(os.Stderr, "stored batch %d in %s\n", id, storeDir)
	}
}

// buildSide resolves one alliance from, in priority order, a definition
// file, a TBA team list or an archetype list.
func buildSide(p *strategy.Planner, tba *scouting.Client, event string, f sideFlags) (model.AllianceConfig, []string, error) {
	if f.file != "" {
		cfg, err := p.LoadAllianceFile(f.file)
		if err != nil {
			return model.AllianceConfig{}, nil, err
		}
		names := make([]string, 0, len(cfg.Robots))
		for _, r := range cfg.Robots {
			names = append(names, r.Archetype)
		}
		return cfg, names, nil
	}

	var names []string
	var err error
	switch {
	case f.tbaTeams != "":
		teams, perr := parseTeams(f.tbaTeams)
		if perr != nil {
			return model.AllianceConfig{}, nil, perr
		}
		names, err = tba.AllianceArchetypes(context.Background(), event, teams)
		if err != nil {
			return model.AllianceConfig{}, nil, err
		}
		fmt.Fprintf(os.Stderr, "teams %v -> %v\n", teams, names)
	case f.list != "":
		names, err = p.ParseAllianceList(f.list)
		if err != nil {
			return model.AllianceConfig{}, nil, err
		}
	default:
		return model.AllianceConfig{}, nil, fmt.Errorf(
			"no lineup given, use -red/-blue, -red-file/-blue-file or -red-teams/-blue-teams (valid archetypes: %s)",
			strings.Join(p.Archetypes(), ", "))
	}

	autoPlan, ok := strategy.AutoPresets[f.auto]
	if !ok {
		return model.AllianceConfig{}, nil, fmt.Errorf("unknown auto preset %q", f.auto)
	}
	cfg, err := p.AllianceConfig(names, model.StrategyPreset(f.preset), autoPlan)
	if err != nil {
		return model.AllianceConfig{}, nil, err
	}
	return cfg, names, nil
}

func parseTeams(s string) ([]int, error) {
	var teams []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		num, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad team number %q", part)
		}
		teams = append(teams, num)
	}
	return teams, nil
}

func die(err error) {
	fmt.Fprintln(os.Stderr, "frcsim:", err)
	os.Exit(1)
}
