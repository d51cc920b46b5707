package scouting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/team/frc254", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-TBA-Auth-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"team_number": 254, "nickname": "The Cheesy Poofs", "city": "San Jose"}`))
	})
	mux.HandleFunc("/event/2026casj/oprs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"oprs":  {"frc254": 87.3, "frc1678": 62.1, "frc9999": 12.0},
			"dprs":  {"frc254": 12.5, "frc1678": 20.0, "frc9999": 40.0},
			"ccwms": {"frc254": 45.2, "frc1678": 30.0, "frc9999": -5.0}
		}`))
	})
	mux.HandleFunc("/event/2026casj/rankings", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rankings": [
			{"rank": 1, "team_key": "frc254", "record": {"wins": 10, "losses": 0, "ties": 0}},
			{"rank": 5, "team_key": "frc1678", "record": {"wins": 7, "losses": 3, "ties": 0}}
		]}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T) *Client {
	t.Helper()
	srv := testServer(t)
	c, err := NewClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatal("empty api key accepted")
	}
}

func TestTeamFetchSendsAuthHeader(t *testing.T) {
	c := testClient(t)
	team, err := c.Team(context.Background(), 254)
	if err != nil {
		t.Fatalf("Team: %v", err)
	}
	if team.TeamNumber != 254 || team.Nickname != "The Cheesy Poofs" {
		t.Fatalf("team = %+v", team)
	}
}

func TestMissingTeamIsErrNotFound(t *testing.T) {
	c := testClient(t)
	_, err := c.Team(context.Background(), 99999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestArchetypeForOPRTiers(t *testing.T) {
	cases := []struct {
		opr  float64
		want string
	}{
		{95, "elite_turret"},
		{80, "elite_turret"},
		{79.9, "elite_multishot"},
		{60, "elite_multishot"},
		{45, "strong_scorer"},
		{30, "everybot"},
		{15, "kitbot_plus"},
		{14.9, "kitbot_base"},
		{0, "kitbot_base"},
	}
	for _, c := range cases {
		if got := ArchetypeForOPR(c.opr); got != c.want {
			t.Errorf("ArchetypeForOPR(%v) = %q, want %q", c.opr, got, c.want)
		}
	}
}

func TestTeamSummary(t *testing.T) {
	c := testClient(t)
	s, err := c.TeamSummary(context.Background(), 254, "2026casj")
	if err != nil {
		t.Fatalf("TeamSummary: %v", err)
	}
	if s.Name != "The Cheesy Poofs" || s.OPR != 87.3 || s.Rank != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Archetype != "elite_turret" {
		t.Fatalf("archetype = %q, want elite_turret", s.Archetype)
	}
	if s.Record.Wins != 10 {
		t.Fatalf("record = %+v", s.Record)
	}
}

func TestArchetypeDistribution(t *testing.T) {
	c := testClient(t)
	dist, err := c.ArchetypeDistribution(context.Background(), "2026casj")
	if err != nil {
		t.Fatalf("ArchetypeDistribution: %v", err)
	}
	want := map[string]int{"elite_turret": 1, "elite_multishot": 1, "kitbot_base": 1}
	for k, v := range want {
		if dist[k] != v {
			t.Fatalf("distribution = %v, want %v", dist, want)
		}
	}
}

func TestAllianceArchetypesOrdersByOPR(t *testing.T) {
	c := testClient(t)
	names, err := c.AllianceArchetypes(context.Background(), "2026casj", []int{9999, 254, 1678})
	if err != nil {
		t.Fatalf("AllianceArchetypes: %v", err)
	}
	want := []string{"elite_turret", "elite_multishot", "kitbot_base"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}

	if _, err := c.AllianceArchetypes(context.Background(), "2026casj", []int{254, 1678, 1114}); err == nil {
		t.Fatal("missing opr data accepted")
	}
	if _, err := c.AllianceArchetypes(context.Background(), "2026casj", []int{254}); err == nil {
		t.Fatal("short team list accepted")
	}
}
