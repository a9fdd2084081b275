// Package bestplays merges picks across sports into the bounded,
// deduplicated, ranked "best plays" feed consumed by renderers and
// clients. The output is deterministic for identical ledger contents and
// never depends on store iteration order.
package bestplays

import (
	"sort"

	"github.com/sharplabs/sharpline/pkg/tracker/ledger"
)

// Play is one aggregated pick with its rank position. View-only; it lives
// for a single aggregation pass and is never persisted.
type Play struct {
	ledger.Pick
	Rank          int  `json:"rank"`
	StatsComplete bool `json:"stats_complete"`
}

// Config bounds the aggregation output.
type Config struct {
	MaxPlays int
}

// DefaultConfig returns the standard feed bound.
func DefaultConfig() *Config {
	return &Config{MaxPlays: 50}
}

// Aggregator builds best-plays feeds.
type Aggregator struct {
	config *Config
}

// New creates an aggregator.
func New(config *Config) *Aggregator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Aggregator{config: config}
}

type dedupKey struct {
	sport    string
	category string
	entity   string
}

// Best deduplicates picks by (sport, category, entity) keeping the
// highest-rated survivor per key, sorts by rating then stats completeness
// with the ID as a stable final tiebreaker, and truncates to the
// configured maximum.
func (a *Aggregator) Best(picks []ledger.Pick) []Play {
	byKey := make(map[dedupKey]Play, len(picks))
	for _, p := range picks {
		key := dedupKey{p.Sport, string(p.Category), p.Entity}
		candidate := Play{Pick: p, StatsComplete: p.StatsComplete()}

		held, ok := byKey[key]
		if !ok || better(candidate, held) {
			byKey[key] = candidate
		}
	}

	plays := make([]Play, 0, len(byKey))
	for _, p := range byKey {
		plays = append(plays, p)
	}
	sort.Slice(plays, func(i, j int) bool {
		return better(plays[i], plays[j])
	})

	if len(plays) > a.config.MaxPlays {
		plays = plays[:a.config.MaxPlays]
	}
	for i := range plays {
		plays[i].Rank = i + 1
	}
	return plays
}

// better orders plays: rating descending, complete stats first, then ID
// ascending so the order is total and map iteration cannot leak through.
func better(a, b Play) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	if a.StatsComplete != b.StatsComplete {
		return a.StatsComplete
	}
	return a.ID < b.ID
}
