// Package policy decides what happens to a scored candidate: discarded as
// noise, displayed without logging, or tracked into the ledger. Thresholds
// and the edge ceiling are independent per bet category because categories
// exhibit different noise characteristics.
package policy

import (
	"fmt"

	"github.com/sharplabs/sharpline/pkg/model/market"
)

// Outcome is the disposition of one candidate.
type Outcome string

const (
	OutcomeDiscard Outcome = "discard"
	OutcomeDisplay Outcome = "display"
	OutcomeTrack   Outcome = "track"
)

// Gate selects how the edge and rating thresholds combine.
type Gate string

const (
	GateAnd Gate = "and" // both thresholds must pass
	GateOr  Gate = "or"  // either threshold suffices
)

// CategoryLimits holds one category's thresholds. The display pair is the
// lower bar (show without logging); the track pair is the higher bar
// (write a Pick). EdgeCeiling discards outright: edges that large are more
// often model or data errors than genuine market inefficiencies.
type CategoryLimits struct {
	DisplayEdge   float64
	DisplayRating float64
	TrackEdge     float64
	TrackRating   float64
	EdgeCeiling   float64
	Gate          Gate
}

// Config maps categories to their limits.
type Config struct {
	Categories map[market.Category]CategoryLimits
}

// DefaultConfig returns the standard per-category thresholds. Totals run
// noisier than spreads, so their bars sit higher.
func DefaultConfig() *Config {
	return &Config{
		Categories: map[market.Category]CategoryLimits{
			market.CategorySpread: {
				DisplayEdge: 1.5, DisplayRating: 2.8,
				TrackEdge: 2.5, TrackRating: 3.2,
				EdgeCeiling: 12.0,
				Gate:        GateAnd,
			},
			market.CategoryTotal: {
				DisplayEdge: 2.5, DisplayRating: 2.8,
				TrackEdge: 4.0, TrackRating: 3.2,
				EdgeCeiling: 15.0,
				Gate:        GateAnd,
			},
			market.CategoryProp: {
				DisplayEdge: 1.0, DisplayRating: 2.8,
				TrackEdge: 2.0, TrackRating: 3.4,
				EdgeCeiling: 8.0,
				Gate:        GateAnd,
			},
		},
	}
}

// Decision is the policy verdict for one candidate.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason,omitempty"`
}

// Engine applies per-category thresholds.
type Engine struct {
	config *Config
}

// NewEngine creates a policy engine.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// Evaluate decides the disposition of a candidate from its edge magnitude
// and composite rating.
func (e *Engine) Evaluate(category market.Category, edgeMagnitude, rating float64) Decision {
	limits, ok := e.config.Categories[category]
	if !ok {
		return Decision{
			Outcome: OutcomeDiscard,
			Reason:  fmt.Sprintf("no policy configured for category %s", category),
		}
	}

	if limits.EdgeCeiling > 0 && edgeMagnitude > limits.EdgeCeiling {
		return Decision{
			Outcome: OutcomeDiscard,
			Reason: fmt.Sprintf("edge %.1f above ceiling %.1f, likely model error",
				edgeMagnitude, limits.EdgeCeiling),
		}
	}

	if limits.pass(edgeMagnitude, rating, limits.TrackEdge, limits.TrackRating) {
		return Decision{Outcome: OutcomeTrack}
	}
	if limits.pass(edgeMagnitude, rating, limits.DisplayEdge, limits.DisplayRating) {
		return Decision{Outcome: OutcomeDisplay}
	}

	return Decision{
		Outcome: OutcomeDiscard,
		Reason: fmt.Sprintf("edge %.1f / rating %.2f below display threshold",
			edgeMagnitude, rating),
	}
}

func (l CategoryLimits) pass(edgeMag, rating, edgeBar, ratingBar float64) bool {
	edgeOK := edgeMag >= edgeBar
	ratingOK := rating >= ratingBar
	if l.Gate == GateOr {
		return edgeOK || ratingOK
	}
	return edgeOK && ratingOK
}
