// Package scouting pulls real team data from The Blue Alliance API v3 and
// maps it onto simulation archetypes, so a lineup can be seeded from an
// actual event instead of hand-picked robots.
package scouting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production TBA API v3 endpoint.
const DefaultBaseURL = "https://www.thebluealliance.com/api/v3"

// ErrNotFound reports a 404 from the API: the team or event does not exist
// or has no data yet.
var ErrNotFound = errors.New("not found")

// Client is a The Blue Alliance API v3 client. Keys come from
// https://www.thebluealliance.com/account.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// NewClient builds a TBA client. The API key is required.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("tba api key cannot be empty")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-TBA-Auth-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("tba request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("tba %s: %w", path, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tba %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tba %s: decode: %w", path, err)
	}
	return nil
}

// Team is the TBA team record.
type Team struct {
	TeamNumber int    `json:"team_number"`
	Nickname   string `json:"nickname"`
	Name       string `json:"name"`
	City       string `json:"city"`
	StateProv  string `json:"state_prov"`
	Country    string `json:"country"`
}

// Event is the TBA event record.
type Event struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	EventCode string `json:"event_code"`
	EventType int    `json:"event_type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// MatchAlliance is one side of a played match.
type MatchAlliance struct {
	TeamKeys []string `json:"team_keys"`
	Score    int      `json:"score"`
}

// Match is the TBA match record.
type Match struct {
	Key         string `json:"key"`
	CompLevel   string `json:"comp_level"`
	MatchNumber int    `json:"match_number"`
	Alliances   struct {
		Red  MatchAlliance `json:"red"`
		Blue MatchAlliance `json:"blue"`
	} `json:"alliances"`
	Time int64 `json:"time"`
}

// EventOPRs holds the calculated contribution metrics for every team at an
// event, keyed by team key ("frc254").
type EventOPRs struct {
	OPRs  map[string]float64 `json:"oprs"`
	DPRs  map[string]float64 `json:"dprs"`
	CCWMs map[string]float64 `json:"ccwms"`
}

// Record is a win/loss/tie tally.
type Record struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Ties   int `json:"ties"`
}

// Ranking is one row of the event ranking table.
type Ranking struct {
	Rank    int    `json:"rank"`
	TeamKey string `json:"team_key"`
	Record  Record `json:"record"`
}

// EventRankings is the ranking table for an event.
type EventRankings struct {
	Rankings []Ranking `json:"rankings"`
}

// AllianceSelection is one picked playoff alliance.
type AllianceSelection struct {
	Name  string   `json:"name"`
	Picks []string `json:"picks"`
}

// TeamKey formats an FRC team number as a TBA team key.
func TeamKey(teamNumber int) string {
	return fmt.Sprintf("frc%d", teamNumber)
}

// Team fetches one team's record.
func (c *Client) Team(ctx context.Context, teamNumber int) (Team, error) {
	var t Team
	err := c.get(ctx, fmt.Sprintf("/team/%s", TeamKey(teamNumber)), &t)
	return t, err
}

// TeamEvents lists the events a team attended in a year.
func (c *Client) TeamEvents(ctx context.Context, teamNumber, year int) ([]Event, error) {
	var events []Event
	err := c.get(ctx, fmt.Sprintf("/team/%s/events/%d", TeamKey(teamNumber), year), &events)
	return events, err
}

// EventTeams lists every team at an event.
func (c *Client) EventTeams(ctx context.Context, eventKey string) ([]Team, error) {
	var teams []Team
	err := c.get(ctx, fmt.Sprintf("/event/%s/teams", eventKey), &teams)
	return teams, err
}

// EventMatches lists every match played at an event.
func (c *Client) EventMatches(ctx context.Context, eventKey string) ([]Match, error) {
	var matches []Match
	err := c.get(ctx, fmt.Sprintf("/event/%s/matches", eventKey), &matches)
	return matches, err
}

// EventOPRs fetches OPR, DPR and CCWM for every team at an event.
func (c *Client) EventOPRs(ctx context.Context, eventKey string) (EventOPRs, error) {
	var oprs EventOPRs
	err := c.get(ctx, fmt.Sprintf("/event/%s/oprs", eventKey), &oprs)
	return oprs, err
}

// EventRankings fetches the ranking table for an event.
func (c *Client) EventRankings(ctx context.Context, eventKey string) (EventRankings, error) {
	var r EventRankings
	err := c.get(ctx, fmt.Sprintf("/event/%s/rankings", eventKey), &r)
	return r, err
}

// EventAlliances lists the playoff alliance selections for an event.
func (c *Client) EventAlliances(ctx context.Context, eventKey string) ([]AllianceSelection, error) {
	var selections []AllianceSelection
	err := c.get(ctx, fmt.Sprintf("/event/%s/alliances", eventKey), &selections)
	return selections, err
}

// EventsByYear lists every event in a competition year.
func (c *Client) EventsByYear(ctx context.Context, year int) ([]Event, error) {
	var events []Event
	err := c.get(ctx, fmt.Sprintf("/events/%d", year), &events)
	return events, err
}

// TeamMatchesAtEvent lists one team's matches at an event.
func (c *Client) TeamMatchesAtEvent(ctx context.Context, teamNumber int, eventKey string) ([]Match, error) {
	var matches []Match
	err := c.get(ctx, fmt.Sprintf("/team/%s/event/%s/matches", TeamKey(teamNumber), eventKey), &matches)
	return matches, err
}
