// Package projection is the projection engine: it turns two entities'
// performance records plus game context into a projected spread and total,
// or a player-prop projection. All math is deterministic; missing inputs
// are an explicit error, never a defaulted projection.
package projection

import (
	"errors"
	"fmt"

	"github.com/sharplabs/sharpline/pkg/model/market"
	"github.com/sharplabs/sharpline/pkg/model/stats"
)

// ErrInsufficientData is returned when a required performance record is
// missing or too thin to project from. Substituting league-average values
// would manufacture false edges, so the game is skipped instead.
var ErrInsufficientData = errors.New("insufficient data")

// Config holds the sport-tunable projection parameters.
type Config struct {
	// Blend weights: offensive strength vs inverse opponent defense.
	OffenseWeight float64
	DefenseWeight float64

	// RecentWeight is the share of the recent-form average in the
	// season/recent blend.
	RecentWeight float64

	// League baselines.
	LeagueAvgPace  float64
	LeagueAvgTotal float64

	// HomeAdvantage is the net spread adjustment for the home side.
	// Half is added to the home score and half subtracted from the away
	// score, so the projected margin moves by exactly this amount.
	// Ignored at neutral sites.
	HomeAdvantage float64

	// Regression to the mean. Unregressed projections overstate
	// mismatches: edges beyond these triggers historically lost at a
	// below-break-even rate.
	SpreadRegressTrigger float64 // |margin| above this shrinks toward zero
	SpreadRegressPct     float64 // shrink fraction, e.g. 0.10
	TotalBandLow         float64 // totals outside [low, high] shrink
	TotalBandHigh        float64
	TotalRegressPct      float64 // shrink fraction toward league average

	// MinGamesPlayed is the floor below which a record is too thin to use.
	MinGamesPlayed int

	// PropOpponentWeight scales the opponent-defense adjustment applied
	// to player-prop projections.
	PropOpponentWeight float64
}

// DefaultConfig returns basketball-flavored defaults.
func DefaultConfig() *Config {
	return &Config{
		OffenseWeight:        0.60,
		DefenseWeight:        0.40,
		RecentWeight:         0.30,
		LeagueAvgPace:        100.0,
		LeagueAvgTotal:       224.0,
		HomeAdvantage:        3.5,
		SpreadRegressTrigger: 12.0,
		SpreadRegressPct:     0.10,
		TotalBandLow:         195.0,
		TotalBandHigh:        255.0,
		TotalRegressPct:      0.15,
		MinGamesPlayed:       5,
		PropOpponentWeight:   0.5,
	}
}

// Engine produces projections from performance records and game context.
type Engine struct {
	config *Config
}

// NewEngine creates a projection engine.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config}
}

// GameProjection is the projected outcome of one game.
type GameProjection struct {
	HomeScore float64 `json:"home_score"`
	AwayScore float64 `json:"away_score"`

	// Margin is home minus away after all adjustments; positive means the
	// model favors the home side by that many points.
	Margin float64 `json:"margin"`
	Total  float64 `json:"total"`

	SpreadRegressed bool `json:"spread_regressed,omitempty"`
	TotalRegressed  bool `json:"total_regressed,omitempty"`
}

// PropProjection is the projected value of one player-prop stat line.
type PropProjection struct {
	Value float64 `json:"value"`
}

// ProjectGame projects a game from both sides' performance records.
// Either record missing or too thin yields ErrInsufficientData.
func (e *Engine) ProjectGame(game *market.GameContext, home, away *stats.PerformanceRecord) (*GameProjection, error) {
	if err := e.usable(game.HomeTeam, home); err != nil {
		return nil, err
	}
	if err := e.usable(game.AwayTeam, away); err != nil {
		return nil, err
	}
	if home.SeasonAllowed <= 0 || away.SeasonAllowed <= 0 {
		return nil, fmt.Errorf("%w: defensive averages missing for %s/%s",
			ErrInsufficientData, game.HomeTeam, game.AwayTeam)
	}

	cfg := e.config

	homeScore := cfg.OffenseWeight*e.blend(home.SeasonAvg, home.RecentAvg) +
		cfg.DefenseWeight*e.blend(away.SeasonAllowed, away.RecentAllowed)
	awayScore := cfg.OffenseWeight*e.blend(away.SeasonAvg, away.RecentAvg) +
		cfg.DefenseWeight*e.blend(home.SeasonAllowed, home.RecentAllowed)

	// Pace adjustment, normalized to the league-average pace. Unknown pace
	// on either side leaves scores untouched.
	if ratio := e.paceRatio(home.Pace, away.Pace); ratio != 1 {
		homeScore *= ratio
		awayScore *= ratio
	}

	if !game.Neutral {
		homeScore += cfg.HomeAdvantage / 2
		awayScore -= cfg.HomeAdvantage / 2
	}

	proj := &GameProjection{
		HomeScore: homeScore,
		AwayScore: awayScore,
		Margin:    homeScore - awayScore,
		Total:     homeScore + awayScore,
	}

	e.regress(proj)
	return proj, nil
}

// ProjectProp projects a player-prop value from the player's record and,
// when available, the opponent's defensive record. The opponent record may
// be nil; the player's record may not.
func (e *Engine) ProjectProp(prop *market.PropContext, player, opponent *stats.PerformanceRecord) (*PropProjection, error) {
	if err := e.usable(prop.Player, player); err != nil {
		return nil, err
	}

	cfg := e.config
	value := e.blend(player.SeasonAvg, player.RecentAvg)

	// Opponent-defense adjustment: playing a team that allows more than the
	// league average inflates the projection, and vice versa.
	if opponent != nil && opponent.SeasonAllowed > 0 && cfg.LeagueAvgTotal > 0 {
		leagueAllowed := cfg.LeagueAvgTotal / 2
		oppAllowed := e.blend(opponent.SeasonAllowed, opponent.RecentAllowed)
		factor := 1 + cfg.PropOpponentWeight*(oppAllowed/leagueAllowed-1)
		value *= clamp(factor, 0.85, 1.15)
	}

	if opponent != nil {
		if ratio := e.paceRatio(player.Pace, opponent.Pace); ratio != 1 {
			value *= ratio
		}
	}

	return &PropProjection{Value: value}, nil
}

// usable rejects absent or too-thin records.
func (e *Engine) usable(entity string, rec *stats.PerformanceRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: no performance record for %s", ErrInsufficientData, entity)
	}
	if rec.SeasonAvg <= 0 {
		return fmt.Errorf("%w: no season average for %s", ErrInsufficientData, entity)
	}
	if rec.GamesPlayed < e.config.MinGamesPlayed {
		return fmt.Errorf("%w: %s has %d games played, need %d",
			ErrInsufficientData, entity, rec.GamesPlayed, e.config.MinGamesPlayed)
	}
	return nil
}

// blend mixes a season average with a recent-form average. A missing recent
// average falls back to season alone rather than pulling the blend to zero.
func (e *Engine) blend(season, recent float64) float64 {
	if recent <= 0 {
		return season
	}
	return (1-e.config.RecentWeight)*season + e.config.RecentWeight*recent
}

func (e *Engine) paceRatio(homePace, awayPace float64) float64 {
	if homePace <= 0 || awayPace <= 0 || e.config.LeagueAvgPace <= 0 {
		return 1
	}
	return (homePace + awayPace) / 2 / e.config.LeagueAvgPace
}

// regress applies regression to the mean on extreme projections.
func (e *Engine) regress(proj *GameProjection) {
	cfg := e.config

	if cfg.SpreadRegressTrigger > 0 && abs(proj.Margin) > cfg.SpreadRegressTrigger {
		proj.Margin *= 1 - cfg.SpreadRegressPct
		proj.SpreadRegressed = true
	}

	if cfg.TotalBandLow > 0 && cfg.TotalBandHigh > cfg.TotalBandLow {
		if proj.Total < cfg.TotalBandLow || proj.Total > cfg.TotalBandHigh {
			proj.Total += cfg.TotalRegressPct * (cfg.LeagueAvgTotal - proj.Total)
			proj.TotalRegressed = true
		}
	}

	// Keep the per-side scores consistent with the regressed margin/total.
	proj.HomeScore = (proj.Total + proj.Margin) / 2
	proj.AwayScore = (proj.Total - proj.Margin) / 2
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
