// Package edge compares model projections against quoted market lines and
// produces signed edge values per bet category. The sign convention is
// fixed: a positive spread edge means the home side is undervalued, and a
// positive total or prop edge means the over is undervalued.
package edge

import (
	"math"

	"github.com/sharplabs/sharpline/pkg/model/market"
)

// Result is one signed edge for one bet category. The sign of Edge
// deterministically implies the pick direction.
type Result struct {
	Category  market.Category  `json:"category"`
	Edge      float64          `json:"edge"` // projection - market
	Direction market.Direction `json:"direction"`
	Projected float64          `json:"projected"`
	Market    float64          `json:"market"`
}

// Magnitude returns the absolute edge.
func (r Result) Magnitude() float64 {
	return math.Abs(r.Edge)
}

// Spread computes the spread edge from a projected home margin and the
// quoted home line (-4.5 = home favored by 4.5). A positive edge means the
// market underrates the home side.
func Spread(projectedMargin, homeLine float64) Result {
	marketMargin := -homeLine
	e := projectedMargin - marketMargin

	dir := market.DirectionHome
	if e < 0 {
		dir = market.DirectionAway
	}
	return Result{
		Category:  market.CategorySpread,
		Edge:      e,
		Direction: dir,
		Projected: projectedMargin,
		Market:    marketMargin,
	}
}

// Total computes the total edge. A positive edge favors the over.
func Total(projectedTotal, marketTotal float64) Result {
	e := projectedTotal - marketTotal

	dir := market.DirectionOver
	if e < 0 {
		dir = market.DirectionUnder
	}
	return Result{
		Category:  market.CategoryTotal,
		Edge:      e,
		Direction: dir,
		Projected: projectedTotal,
		Market:    marketTotal,
	}
}

// Prop computes the edge on a player-prop line. A positive edge favors
// the over.
func Prop(projectedValue, line float64) Result {
	e := projectedValue - line

	dir := market.DirectionOver
	if e < 0 {
		dir = market.DirectionUnder
	}
	return Result{
		Category:  market.CategoryProp,
		Edge:      e,
		Direction: dir,
		Projected: projectedValue,
		Market:    line,
	}
}

// MaxMagnitude returns the largest absolute edge among the results, used
// as the rating engine's normalized-edge input.
func MaxMagnitude(results ...Result) float64 {
	max := 0.0
	for _, r := range results {
		if m := r.Magnitude(); m > max {
			max = m
		}
	}
	return max
}
