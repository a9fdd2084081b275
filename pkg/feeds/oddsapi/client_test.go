package oddsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sharplabs/sharpline/pkg/model/market"
)

func TestSlate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/slate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"games": [{
				"game_id": "g1",
				"home_team": "AAA", "away_team": "BBB",
				"start": "2026-01-10T19:00:00Z",
				"spread": {"value": -4.5, "opening_odds": -110, "latest_odds": -115},
				"total": {"value": 145.5}
			}, {
				"game_id": "g2",
				"home_team": "CCC", "away_team": "DDD",
				"start": "2026-01-10T21:00:00Z",
				"neutral": true
			}],
			"props": [{
				"player": "Jalen Smith", "team": "AAA", "opponent": "BBB",
				"stat": "points",
				"start": "2026-01-10T19:00:00Z",
				"line": {"value": 20.5, "latest_odds": 105}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	slate, err := c.Slate(context.Background(), "cbb", "2026-01-10")
	if err != nil {
		t.Fatalf("Slate: %v", err)
	}

	if slate.Sport != "cbb" || slate.Date != "2026-01-10" {
		t.Errorf("slate header = %s/%s", slate.Sport, slate.Date)
	}
	if len(slate.Games) != 2 || len(slate.Props) != 1 {
		t.Fatalf("got %d games / %d props, want 2/1", len(slate.Games), len(slate.Props))
	}

	g1 := slate.Games[0]
	spread, ok := g1.Lines[market.CategorySpread]
	if !ok || spread.Value != -4.5 || spread.LatestOdds != -115 {
		t.Errorf("spread line mapped wrong: %+v", spread)
	}
	if total := g1.Lines[market.CategoryTotal]; total.Value != 145.5 {
		t.Errorf("total line mapped wrong: %+v", total)
	}

	// No quoted lines: the game still appears, with an empty line map.
	g2 := slate.Games[1]
	if len(g2.Lines) != 0 || !g2.Neutral {
		t.Errorf("lineless game mapped wrong: %+v", g2)
	}

	prop := slate.Props[0]
	if prop.Player != "Jalen Smith" || prop.Line.Value != 20.5 || prop.Line.LatestOdds != 105 {
		t.Errorf("prop mapped wrong: %+v", prop)
	}
}

func TestResults_ExcludeNonFinal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/results/games":
			w.Write([]byte(`[
				{"home_team":"AAA","away_team":"BBB","home_score":80,"away_score":70,
				 "start":"2026-01-10T19:00:00Z","final":true},
				{"home_team":"CCC","away_team":"DDD","home_score":40,"away_score":38,
				 "start":"2026-01-10T21:00:00Z","final":false}
			]`))
		case "/v1/results/props":
			w.Write([]byte(`[
				{"player":"Jalen Smith","stat":"points","value":27,
				 "start":"2026-01-10T19:00:00Z","final":true}
			]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	games, err := c.GameResults(context.Background(), "cbb", "2026-01-10")
	if err != nil {
		t.Fatalf("GameResults: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d game results, want 1 (in-progress excluded)", len(games))
	}
	if games[0].Margin() != 10 || games[0].Total() != 150 {
		t.Errorf("result mapped wrong: margin %v total %v", games[0].Margin(), games[0].Total())
	}

	props, err := c.PropResults(context.Background(), "cbb", "2026-01-10")
	if err != nil {
		t.Fatalf("PropResults: %v", err)
	}
	if len(props) != 1 || props[0].Value != 27 {
		t.Errorf("prop results mapped wrong: %+v", props)
	}
}
