package scouting

import (
	"context"
	"fmt"
	"sort"
)

// ArchetypeForOPR maps a team's Offensive Power Rating to the closest
// simulation archetype. Tier cutoffs are tuned against typical regional
// OPR spreads.
func ArchetypeForOPR(opr float64) string {
	switch {
	case opr >= 80:
		return "elite_turret"
	case opr >= 60:
		return "elite_multishot"
	case opr >= 45:
		return "strong_scorer"
	case opr >= 30:
		return "everybot"
	case opr >= 15:
		return "kitbot_plus"
	default:
		return "kitbot_base"
	}
}

// TeamSummary combines a team's identity with its event performance and the
// archetype it maps to.
type TeamSummary struct {
	Name      string  `json:"name"`
	Number    int     `json:"number"`
	OPR       float64 `json:"opr"`
	DPR       float64 `json:"dpr"`
	CCWM      float64 `json:"ccwm"`
	Rank      int     `json:"rank"`
	Record    Record  `json:"record"`
	Archetype string  `json:"archetype"`
}

// TeamSummary fetches a team's info, OPR and ranking at one event and maps
// it to an archetype. A team with no OPR data yet maps to kitbot_base.
func (c *Client) TeamSummary(ctx context.Context, teamNumber int, eventKey string) (TeamSummary, error) {
	team, err := c.Team(ctx, teamNumber)
	if err != nil {
		return TeamSummary{}, err
	}

	oprs, err := c.EventOPRs(ctx, eventKey)
	if err != nil {
		return TeamSummary{}, err
	}
	key := TeamKey(teamNumber)
	s := TeamSummary{
		Name:   team.Nickname,
		Number: teamNumber,
		OPR:    oprs.OPRs[key],
		DPR:    oprs.DPRs[key],
		CCWM:   oprs.CCWMs[key],
	}
	s.Archetype = ArchetypeForOPR(s.OPR)

	rankings, err := c.EventRankings(ctx, eventKey)
	if err != nil {
		return TeamSummary{}, err
	}
	for _, r := range rankings.Rankings {
		if r.TeamKey == key {
			s.Rank = r.Rank
			s.Record = r.Record
			break
		}
	}
	return s, nil
}

// ArchetypeDistribution counts how many teams at an event map to each
// archetype.
func (c *Client) ArchetypeDistribution(ctx context.Context, eventKey string) (map[string]int, error) {
	oprs, err := c.EventOPRs(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	dist := map[string]int{}
	for _, opr := range oprs.OPRs {
		dist[ArchetypeForOPR(opr)]++
	}
	return dist, nil
}

// AllianceArchetypes maps three real teams at an event to the archetype
// list the strategy planner consumes, ordered best OPR first.
func (c *Client) AllianceArchetypes(ctx context.Context, eventKey string, teams []int) ([]string, error) {
	if len(teams) != 3 {
		return nil, fmt.Errorf("an alliance requires exactly 3 teams, got %d", len(teams))
	}
	oprs, err := c.EventOPRs(ctx, eventKey)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		team int
		opr  float64
	}
	rs := make([]ranked, 0, 3)
	for _, team := range teams {
		opr, ok := oprs.OPRs[TeamKey(team)]
		if !ok {
			return nil, fmt.Errorf("no opr data for team %d at %s", team, eventKey)
		}
		rs = append(rs, ranked{team: team, opr: opr})
	}
	sort.SliceStable(rs, func(a, b int) bool { return rs[a].opr > rs[b].opr })

	names := make([]string, 3)
	for i, r := range rs {
		names[i] = ArchetypeForOPR(r.opr)
	}
	return names, nil
}
