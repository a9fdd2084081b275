// Package config defines daemon configuration and its loading order:
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"time"

	"github.com/sharplabs/sharpline/pkg/model/projection"
	"github.com/sharplabs/sharpline/pkg/tracker/bestplays"
	"github.com/sharplabs/sharpline/pkg/tracker/policy"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// LedgerPath is the directory holding the embedded pick store.
	LedgerPath string `koanf:"ledger_path"`

	// Sports lists the sports to scan, e.g. ["nba", "cbb"].
	Sports []string `koanf:"sports"`

	// SlateDate pins every cycle to one date (YYYY-MM-DD); empty means
	// today. Useful for backfills.
	SlateDate string `koanf:"slate_date"`

	// RunInterval is the delay between pipeline cycles; zero or RunOnce
	// disables the loop.
	RunInterval time.Duration `koanf:"run_interval"`
	RunOnce     bool          `koanf:"run_once"`

	// Feed providers.
	StatsBaseURL string `koanf:"stats_base_url"`
	StatsAPIKey  string `koanf:"stats_api_key"`
	OddsBaseURL  string `koanf:"odds_base_url"`
	OddsAPIKey   string `koanf:"odds_api_key"`

	// Model overrides; zero values keep the engine defaults.
	HomeAdvantage  float64 `koanf:"home_advantage"`
	LeagueAvgTotal float64 `koanf:"league_avg_total"`
	MinGamesPlayed int     `koanf:"min_games_played"`

	// PolicyGate selects how edge and rating thresholds combine for every
	// category: "and" (both) or "or" (either).
	PolicyGate string `koanf:"policy_gate"`

	// MaxPlays bounds the best-plays feed.
	MaxPlays int `koanf:"max_plays"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		Addr:        ":8090",
		LedgerPath:  "data/ledger",
		Sports:      []string{"nba", "cbb"},
		RunInterval: 30 * time.Minute,
		MaxPlays:    50,
	}
}

// ProjectionConfig builds the projection parameters with any overrides
// applied.
func (c *Config) ProjectionConfig() *projection.Config {
	cfg := projection.DefaultConfig()
	if c.HomeAdvantage > 0 {
		cfg.HomeAdvantage = c.HomeAdvantage
	}
	if c.LeagueAvgTotal > 0 {
		cfg.LeagueAvgTotal = c.LeagueAvgTotal
	}
	if c.MinGamesPlayed > 0 {
		cfg.MinGamesPlayed = c.MinGamesPlayed
	}
	return cfg
}

// PolicyConfig builds the decision-policy parameters with the configured
// gate applied to every category.
func (c *Config) PolicyConfig() *policy.Config {
	cfg := policy.DefaultConfig()
	if c.PolicyGate == "" {
		return cfg
	}

	gate := policy.GateAnd
	if c.PolicyGate == "or" {
		gate = policy.GateOr
	}
	for category, limits := range cfg.Categories {
		limits.Gate = gate
		cfg.Categories[category] = limits
	}
	return cfg
}

// AggregatorConfig builds the best-plays feed bound.
func (c *Config) AggregatorConfig() *bestplays.Config {
	cfg := bestplays.DefaultConfig()
	if c.MaxPlays > 0 {
		cfg.MaxPlays = c.MaxPlays
	}
	return cfg
}
