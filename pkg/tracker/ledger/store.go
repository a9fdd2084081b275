package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/timshannon/badgerhold/v4"
)

// ErrNotFound is returned when no pick exists under the given identifier.
var ErrNotFound = errors.New("pick not found")

// Store persists picks in an embedded Badger key-value store indexed by
// pick ID. Writes are atomic per pick, inserts are write-if-absent, and
// grading is read-check-write, which makes the idempotency invariants
// mechanically enforceable.
type Store struct {
	store *badgerhold.Store

	// OnMalformed, when set, is invoked for each persisted record that
	// fails validation during a scan. The record is skipped; the scan
	// continues.
	OnMalformed func(id string, err error)
}

// Open opens (creating if needed) the ledger at the given directory.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening ledger store: %w", err)
	}
	return &Store{store: store}, nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Log writes a pick under its deterministic ID. If the ID already exists
// the stored record is kept as-is except for the latest observed odds;
// re-running a slate never duplicates or rewrites a ledger row. Returns
// true when a new row was inserted.
func (s *Store) Log(pick *Pick) (bool, error) {
	if err := pick.Validate(); err != nil {
		return false, fmt.Errorf("refusing to log malformed pick: %w", err)
	}
	if pick.Status == "" {
		pick.Status = StatusPending
	}
	if pick.CreatedAt.IsZero() {
		pick.CreatedAt = time.Now()
	}

	err := s.store.Insert(pick.ID, pick)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, badgerhold.ErrKeyExists) {
		return false, fmt.Errorf("inserting pick %s: %w", pick.ID, err)
	}

	// Already logged: refresh the latest odds only. The line, averages,
	// edge, and rating stay frozen at their original logging-time values.
	existing, err := s.Get(pick.ID)
	if err != nil {
		return false, err
	}
	if pick.LatestOdds != 0 && pick.LatestOdds != existing.LatestOdds {
		existing.LatestOdds = pick.LatestOdds
		if err := s.store.Update(existing.ID, existing); err != nil {
			return false, fmt.Errorf("updating odds for %s: %w", existing.ID, err)
		}
	}
	return false, nil
}

// Get fetches one pick by ID.
func (s *Store) Get(id string) (*Pick, error) {
	var p Pick
	if err := s.store.Get(id, &p); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting pick %s: %w", id, err)
	}
	return &p, nil
}

// Grade resolves a pending pick against the final observed value. Grading
// a pick already in a terminal state is a no-op: the bool result reports
// whether this call changed anything.
func (s *Store) Grade(id string, finalValue float64) (*Pick, bool, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, false, err
	}

	if p.Status.Terminal() {
		return p, false, nil
	}

	p.settle(finalValue, time.Now())
	if err := s.store.Update(p.ID, p); err != nil {
		return nil, false, fmt.Errorf("grading pick %s: %w", p.ID, err)
	}
	return p, true, nil
}

// Pending returns all picks awaiting a result.
func (s *Store) Pending() ([]Pick, error) {
	return s.scan(badgerhold.Where("Status").Eq(StatusPending).Index("Status"))
}

// Terminal returns all resolved picks.
func (s *Store) Terminal() ([]Pick, error) {
	return s.scan(badgerhold.Where("Status").Ne(StatusPending))
}

// ForDate returns all picks for one slate date (YYYY-MM-DD).
func (s *Store) ForDate(gameDate string) ([]Pick, error) {
	return s.scan(badgerhold.Where("GameDate").Eq(gameDate))
}

// All returns every pick in the ledger.
func (s *Store) All() ([]Pick, error) {
	return s.scan(badgerhold.Where("ID").Ne(""))
}

// scan runs a query, dropping malformed records with a diagnostic instead
// of failing the whole scan.
func (s *Store) scan(q *badgerhold.Query) ([]Pick, error) {
	var raw []Pick
	if err := s.store.Find(&raw, q); err != nil {
		return nil, fmt.Errorf("scanning ledger: %w", err)
	}

	picks := raw[:0]
	for _, p := range raw {
		if err := p.Validate(); err != nil {
			if s.OnMalformed != nil {
				s.OnMalformed(p.ID, err)
			}
			continue
		}
		picks = append(picks, p)
	}
	return picks, nil
}

// RecordStats are aggregate results derived from terminal picks. They are
// recomputed on every call so they can never drift from the ledger.
type RecordStats struct {
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Pushes  int `json:"pushes"`
	Pending int `json:"pending"`

	WinRate decimal.Decimal `json:"win_rate"` // wins / (wins+losses)
	Units   decimal.Decimal `json:"units"`    // net profit in units
	ROI     decimal.Decimal `json:"roi"`      // units / decided stakes
}

// Stats computes the aggregate record across the whole ledger.
func (s *Store) Stats() (*RecordStats, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}

	rs := &RecordStats{Units: decimal.Zero}
	for _, p := range all {
		switch p.Status {
		case StatusWin:
			rs.Wins++
		case StatusLoss:
			rs.Losses++
		case StatusPush:
			rs.Pushes++
		default:
			rs.Pending++
		}
		if p.Status.Terminal() {
			rs.Units = rs.Units.Add(p.Profit)
		}
	}

	decided := rs.Wins + rs.Losses
	if decided > 0 {
		rs.WinRate = decimal.NewFromInt(int64(rs.Wins)).Div(decimal.NewFromInt(int64(decided)))
	}
	staked := decided + rs.Pushes
	if staked > 0 {
		rs.ROI = rs.Units.Div(decimal.NewFromInt(int64(staked)))
	}
	return rs, nil
}
