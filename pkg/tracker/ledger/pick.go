// Package ledger is the authoritative record of tracked picks. Picks are
// written once under a deterministic identifier, graded exactly once when
// the final result arrives, and never deleted; aggregate statistics are
// always recomputed from the terminal records, never stored.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sharplabs/sharpline/pkg/model/market"
	"github.com/sharplabs/sharpline/pkg/model/stats"
)

// Status is the lifecycle state of a pick. Pending transitions to exactly
// one of the terminal states and never moves again.
type Status string

const (
	StatusPending Status = "pending"
	StatusWin     Status = "win"
	StatusLoss    Status = "loss"
	StatusPush    Status = "push"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusWin || s == StatusLoss || s == StatusPush
}

// Pick is one persisted betting recommendation. The averages are a
// snapshot frozen at logging time and never recomputed retroactively.
type Pick struct {
	ID       string `badgerhold:"key" json:"id"`
	Sport    string `json:"sport"`
	Entity   string `json:"entity"`
	Team     string `json:"team"`
	GameDate string `json:"game_date"` // YYYY-MM-DD

	Category  market.Category  `json:"category"`
	Direction market.Direction `json:"direction"`
	Line      float64          `json:"line"`
	// Value duplicates Line under the older field name; required for
	// backward compatibility with consumers of the v1 ledger export.
	Value       float64 `json:"value"`
	OpeningOdds int     `json:"opening_odds,omitempty"`
	LatestOdds  int     `json:"latest_odds,omitempty"`

	Edge   float64 `json:"edge"`
	Rating float64 `json:"rating"`

	SeasonAvg float64 `json:"season_avg"`
	RecentAvg float64 `json:"recent_avg"`
	Record    string  `json:"record,omitempty"` // optional display record

	Status Status  `badgerhold:"index" json:"status"`
	Result float64 `json:"result,omitempty"` // final observed value once graded
	// Profit in units for a 1-unit stake; zero until graded.
	Profit decimal.Decimal `json:"profit"`

	CreatedAt time.Time `json:"created_at"`
	GradedAt  time.Time `json:"graded_at,omitempty"`
}

// PickID derives the deterministic identifier for a pick. Re-running the
// pipeline on unchanged inputs yields the same ID, which is what makes
// ledger writes idempotent.
func PickID(sport, entity string, category market.Category, gameDate string) string {
	ent := strings.ReplaceAll(stats.NormalizeEntity(entity), " ", "-")
	return strings.ToLower(fmt.Sprintf("%s_%s_%s_%s", sport, ent, category, gameDate))
}

// Validate checks the fixed required field set. A pick failing validation
// is treated as a malformed record: skipped with a diagnostic, without
// aborting processing of other records.
func (p *Pick) Validate() error {
	switch {
	case p.ID == "":
		return errors.New("missing id")
	case p.Entity == "":
		return errors.New("missing entity")
	case p.Category == "":
		return errors.New("missing category")
	case p.Direction == "":
		return errors.New("missing direction")
	case p.GameDate == "":
		return errors.New("missing game date")
	case p.Status == "":
		return errors.New("missing status")
	case p.Line != p.Value:
		return fmt.Errorf("line %v and value %v disagree", p.Line, p.Value)
	}
	return nil
}

// StatsComplete reports whether the frozen averages snapshot is fully
// populated.
func (p *Pick) StatsComplete() bool {
	return p.SeasonAvg > 0 && p.RecentAvg > 0
}

// settle resolves the pick against the final observed value: equality is a
// push, otherwise win or loss per the frozen direction and line. For
// spread picks the observed value is the home winning margin and Line is
// the picked side's own line (the away line is the negated home line); for
// totals and props the observed value is the final combined score or stat.
func (p *Pick) settle(finalValue float64, now time.Time) {
	const eps = 1e-9

	var covered float64
	switch p.Direction {
	case market.DirectionOver:
		covered = finalValue - p.Line
	case market.DirectionUnder:
		covered = p.Line - finalValue
	case market.DirectionHome:
		covered = finalValue + p.Line
	case market.DirectionAway:
		covered = -finalValue + p.Line
	}

	switch {
	case math.Abs(covered) < eps:
		p.Status = StatusPush
		p.Profit = decimal.Zero
	case covered > 0:
		p.Status = StatusWin
		p.Profit = p.unitProfit()
	default:
		p.Status = StatusLoss
		p.Profit = decimal.NewFromInt(-1)
	}

	p.Result = finalValue
	p.GradedAt = now
}

// unitProfit is the profit on a 1-unit winning stake. Stored American odds
// take precedence; otherwise standard -110 juice applies.
func (p *Pick) unitProfit() decimal.Decimal {
	odds := p.LatestOdds
	if odds == 0 {
		odds = p.OpeningOdds
	}
	if odds == 0 {
		odds = -110
	}
	return americanProfit(odds)
}

// americanProfit converts American odds to decimal profit per unit staked.
func americanProfit(odds int) decimal.Decimal {
	o := decimal.NewFromInt(int64(odds))
	hundred := decimal.NewFromInt(100)
	if odds > 0 {
		return o.Div(hundred)
	}
	return hundred.Div(o.Abs())
}
