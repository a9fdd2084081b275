// Package stats is the performance store: per-entity season and recent-form
// statistics keyed by player name or team code, refreshed by the stats feed
// and read-only to the rest of the pipeline.
package stats

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PerformanceRecord holds one entity's season and recent-form averages.
// For teams the averages are points scored/allowed per game; for players
// they are per-game averages of the quoted stat.
type PerformanceRecord struct {
	Entity      string  `json:"entity"` // player full name or team code
	Team        string  `json:"team"`   // team affiliation (same as Entity for teams)
	GamesPlayed int     `json:"games_played"`
	SeasonAvg   float64 `json:"season_avg"`
	RecentAvg   float64 `json:"recent_avg"`

	// Team defensive averages (points allowed per game). Zero for players.
	SeasonAllowed float64 `json:"season_allowed,omitempty"`
	RecentAllowed float64 `json:"recent_allowed,omitempty"`

	// Pace in possessions per game; zero means unknown.
	Pace float64 `json:"pace,omitempty"`

	// Record is an optional human-readable season record, e.g. "12-4".
	Record string `json:"record,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Complete reports whether both the season and recent averages are populated.
func (r *PerformanceRecord) Complete() bool {
	return r != nil && r.SeasonAvg > 0 && r.RecentAvg > 0
}

// Store is a keyed lookup of PerformanceRecords, namespaced by sport.
// Lookups normalize entity names so feed spelling variants resolve to the
// same record.
type Store struct {
	mu      sync.RWMutex
	bySport map[string]map[string]*PerformanceRecord // sport -> normalized entity -> record
}

// NewStore creates an empty performance store.
func NewStore() *Store {
	return &Store{
		bySport: make(map[string]map[string]*PerformanceRecord),
	}
}

// Put inserts or replaces a record in the sport's namespace.
func (s *Store) Put(sport string, rec *PerformanceRecord) {
	if rec == nil || rec.Entity == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.bySport[sport]
	if !ok {
		ns = make(map[string]*PerformanceRecord)
		s.bySport[sport] = ns
	}
	ns[NormalizeEntity(rec.Entity)] = rec
}

// PutAll inserts a batch of records, typically one feed refresh.
func (s *Store) PutAll(sport string, recs []PerformanceRecord) {
	for i := range recs {
		rec := recs[i]
		s.Put(sport, &rec)
	}
}

// Get looks up a record by entity name or team code.
func (s *Store) Get(sport, entity string) (*PerformanceRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.bySport[sport]
	if !ok {
		return nil, false
	}
	rec, ok := ns[NormalizeEntity(entity)]
	return rec, ok
}

// Len returns the number of records held for a sport.
func (s *Store) Len(sport string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySport[sport])
}

// Sports returns the sports that currently have records loaded.
func (s *Store) Sports() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sports := make([]string, 0, len(s.bySport))
	for sport := range s.bySport {
		sports = append(sports, sport)
	}
	return sports
}

// NormalizeEntity canonicalizes an entity name for store lookups:
// lowercase, accents stripped, punctuation and team suffixes removed.
func NormalizeEntity(name string) string {
	name = strings.ToLower(name)

	// Remove accents
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)

	// Strip punctuation that varies between feeds (D.J. vs DJ)
	name = strings.Map(func(r rune) rune {
		if r == '.' || r == '\'' {
			return -1
		}
		return r
	}, name)

	// Remove common team suffixes
	name = strings.ReplaceAll(name, " fc", "")
	name = strings.ReplaceAll(name, " afc", "")

	// Normalize spaces
	name = strings.Join(strings.Fields(name), " ")

	return strings.TrimSpace(name)
}
