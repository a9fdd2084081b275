package policy

import (
	"strings"
	"testing"

	"github.com/sharplabs/sharpline/pkg/model/market"
)

func TestEvaluate_Thresholds(t *testing.T) {
	e := NewEngine(&Config{
		Categories: map[market.Category]CategoryLimits{
			market.CategorySpread: {
				DisplayEdge: 1.5, DisplayRating: 2.8,
				TrackEdge: 2.5, TrackRating: 3.2,
				EdgeCeiling: 12.0,
				Gate:        GateAnd,
			},
		},
	})

	tests := []struct {
		name   string
		edge   float64
		rating float64
		want   Outcome
	}{
		{"below everything", 0.5, 2.4, OutcomeDiscard},
		{"display only", 1.8, 3.0, OutcomeDisplay},
		{"edge passes track, rating does not", 3.0, 3.0, OutcomeDisplay},
		{"track", 3.0, 3.5, OutcomeTrack},
		{"exactly at track bars", 2.5, 3.2, OutcomeTrack},
		{"above ceiling", 13.0, 4.9, OutcomeDiscard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate(market.CategorySpread, tt.edge, tt.rating)
			if got.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v (reason: %s)", got.Outcome, tt.want, got.Reason)
			}
		})
	}
}

// TestEvaluate_CeilingNeverTracks is the policy invariant: no edge above
// the ceiling may ever reach track status, no matter the rating.
func TestEvaluate_CeilingNeverTracks(t *testing.T) {
	e := NewEngine(nil)

	for _, cat := range []market.Category{market.CategorySpread, market.CategoryTotal, market.CategoryProp} {
		ceiling := DefaultConfig().Categories[cat].EdgeCeiling
		for _, edge := range []float64{ceiling + 0.1, ceiling * 2, 1000} {
			d := e.Evaluate(cat, edge, 4.9)
			if d.Outcome != OutcomeDiscard {
				t.Errorf("%s edge %.1f: Outcome = %v, want discard", cat, edge, d.Outcome)
			}
			if !strings.Contains(d.Reason, "model error") {
				t.Errorf("%s edge %.1f: reason %q should flag a likely model error", cat, edge, d.Reason)
			}
		}
	}
}

func TestEvaluate_OrGate(t *testing.T) {
	e := NewEngine(&Config{
		Categories: map[market.Category]CategoryLimits{
			market.CategoryTotal: {
				DisplayEdge: 2.0, DisplayRating: 3.0,
				TrackEdge: 4.0, TrackRating: 4.0,
				EdgeCeiling: 15.0,
				Gate:        GateOr,
			},
		},
	})

	// Rating alone clears the track bar under OR.
	d := e.Evaluate(market.CategoryTotal, 1.0, 4.2)
	if d.Outcome != OutcomeTrack {
		t.Errorf("Outcome = %v, want track under OR gate", d.Outcome)
	}

	// Neither clears anything.
	d = e.Evaluate(market.CategoryTotal, 1.0, 2.5)
	if d.Outcome != OutcomeDiscard {
		t.Errorf("Outcome = %v, want discard", d.Outcome)
	}
}

func TestEvaluate_UnknownCategory(t *testing.T) {
	e := NewEngine(&Config{Categories: map[market.Category]CategoryLimits{}})

	d := e.Evaluate(market.CategoryMoneyline, 5.0, 4.5)
	if d.Outcome != OutcomeDiscard {
		t.Errorf("Outcome = %v, want discard for unconfigured category", d.Outcome)
	}
}
