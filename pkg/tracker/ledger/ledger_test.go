package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sharplabs/sharpline/pkg/model/market"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/ledger")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPick() *Pick {
	return &Pick{
		ID:        PickID("cbb", "Jalen Smith", market.CategoryProp, "2026-01-10"),
		Sport:     "cbb",
		Entity:    "Jalen Smith",
		Team:      "AAA",
		GameDate:  "2026-01-10",
		Category:  market.CategoryProp,
		Direction: market.DirectionOver,
		Line:      25.5,
		Value:     25.5,
		Edge:      2.3,
		Rating:    3.6,
		SeasonAvg: 25,
		RecentAvg: 30,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

func TestPickID_Stable(t *testing.T) {
	a := PickID("cbb", "Jalen Smith", market.CategoryProp, "2026-01-10")
	b := PickID("cbb", "jalen smith", market.CategoryProp, "2026-01-10")
	if a != b {
		t.Errorf("IDs differ for spelling variants: %q vs %q", a, b)
	}
	if a != "cbb_jalen-smith_prop_2026-01-10" {
		t.Errorf("unexpected ID format: %q", a)
	}

	other := PickID("cbb", "Jalen Smith", market.CategoryProp, "2026-01-11")
	if a == other {
		t.Error("different dates must produce different IDs")
	}
}

func TestLog_InsertIfAbsent(t *testing.T) {
	s := openTestStore(t)

	inserted, err := s.Log(testPick())
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if !inserted {
		t.Fatal("first Log should insert")
	}

	// Re-log with a drifted line and fresher odds: the row is not
	// duplicated and the frozen fields stay put, only the odds move.
	dup := testPick()
	dup.Line, dup.Value = 26.5, 26.5
	dup.LatestOdds = -115
	inserted, err = s.Log(dup)
	if err != nil {
		t.Fatalf("Log (duplicate): %v", err)
	}
	if inserted {
		t.Fatal("second Log must not insert a duplicate row")
	}

	got, err := s.Get(dup.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Line != 25.5 {
		t.Errorf("Line = %v, want original 25.5 (frozen at logging time)", got.Line)
	}
	if got.LatestOdds != -115 {
		t.Errorf("LatestOdds = %d, want refreshed -115", got.LatestOdds)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ledger has %d rows, want 1", len(all))
	}
}

func TestGrade_OverWin(t *testing.T) {
	s := openTestStore(t)

	p := testPick()
	p.Category = market.CategoryTotal
	p.ID = PickID("cbb", "AAA", market.CategoryTotal, "2026-01-10")
	p.Entity = "AAA"
	p.Line, p.Value = 145.5, 145.5

	if _, err := s.Log(p); err != nil {
		t.Fatalf("Log: %v", err)
	}

	// Over 145.5 against a 150 combined final is a win at default -110.
	graded, applied, err := s.Grade(p.ID, 150)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !applied {
		t.Fatal("first grade should apply")
	}
	if graded.Status != StatusWin {
		t.Errorf("Status = %v, want win", graded.Status)
	}

	want := decimal.NewFromInt(100).Div(decimal.NewFromInt(110))
	if !graded.Profit.Equal(want) {
		t.Errorf("Profit = %v, want %v", graded.Profit, want)
	}
}

func TestGrade_Idempotent(t *testing.T) {
	s := openTestStore(t)

	p := testPick()
	if _, err := s.Log(p); err != nil {
		t.Fatalf("Log: %v", err)
	}

	if _, applied, err := s.Grade(p.ID, 30); err != nil || !applied {
		t.Fatalf("first grade: applied=%v err=%v", applied, err)
	}

	before, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	// A second result arrival, even a contradictory one, is a no-op.
	graded, applied, err := s.Grade(p.ID, 10)
	if err != nil {
		t.Fatalf("second grade: %v", err)
	}
	if applied {
		t.Fatal("grading a terminal pick must be a no-op")
	}
	if graded.Status != StatusWin || graded.Result != 30 {
		t.Errorf("terminal pick mutated: status=%v result=%v", graded.Status, graded.Result)
	}

	after, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !before.Units.Equal(after.Units) {
		t.Errorf("aggregate profit drifted on re-grade: %v -> %v", before.Units, after.Units)
	}
}

func TestGrade_Push(t *testing.T) {
	s := openTestStore(t)

	p := testPick()
	if _, err := s.Log(p); err != nil {
		t.Fatalf("Log: %v", err)
	}

	graded, _, err := s.Grade(p.ID, 25.5)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if graded.Status != StatusPush {
		t.Errorf("Status = %v, want push on exact line", graded.Status)
	}
	if !graded.Profit.IsZero() {
		t.Errorf("Profit = %v, want zero on push", graded.Profit)
	}
}

func TestGrade_SpreadSides(t *testing.T) {
	s := openTestStore(t)

	home := testPick()
	home.ID = PickID("cbb", "AAA", market.CategorySpread, "2026-01-10")
	home.Entity = "AAA"
	home.Category = market.CategorySpread
	home.Direction = market.DirectionHome
	home.Line, home.Value = -4.5, -4.5 // home favored by 4.5

	away := testPick()
	away.ID = PickID("cbb", "BBB", market.CategorySpread, "2026-01-10")
	away.Entity = "BBB"
	away.Category = market.CategorySpread
	away.Direction = market.DirectionAway
	away.Line, away.Value = 4.5, 4.5 // away getting 4.5

	for _, p := range []*Pick{home, away} {
		if _, err := s.Log(p); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	// Home wins by 7: the home -4.5 covers, the away +4.5 does not.
	g, _, err := s.Grade(home.ID, 7)
	if err != nil {
		t.Fatalf("Grade home: %v", err)
	}
	if g.Status != StatusWin {
		t.Errorf("home -4.5 with margin 7: %v, want win", g.Status)
	}

	g, _, err = s.Grade(away.ID, 7)
	if err != nil {
		t.Fatalf("Grade away: %v", err)
	}
	if g.Status != StatusLoss {
		t.Errorf("away +4.5 with margin 7: %v, want loss", g.Status)
	}
}

func TestGrade_StoredOddsProfit(t *testing.T) {
	s := openTestStore(t)

	p := testPick()
	p.OpeningOdds = 150 // underdog price overrides the -110 default
	if _, err := s.Log(p); err != nil {
		t.Fatalf("Log: %v", err)
	}

	graded, _, err := s.Grade(p.ID, 30)
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if !graded.Profit.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("Profit = %v, want 1.5 at +150", graded.Profit)
	}
}

func TestStats_DerivedFromTerminal(t *testing.T) {
	s := openTestStore(t)

	mk := func(entity string, dir market.Direction, line float64) *Pick {
		p := testPick()
		p.ID = PickID("cbb", entity, market.CategoryProp, "2026-01-10")
		p.Entity = entity
		p.Direction = dir
		p.Line, p.Value = line, line
		return p
	}

	win := mk("Player A", market.DirectionOver, 20)   // final 25 -> win
	loss := mk("Player B", market.DirectionOver, 20)  // final 15 -> loss
	push := mk("Player C", market.DirectionUnder, 20) // final 20 -> push
	open := mk("Player D", market.DirectionOver, 20)  // stays pending

	for _, p := range []*Pick{win, loss, push, open} {
		if _, err := s.Log(p); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	for id, final := range map[string]float64{win.ID: 25, loss.ID: 15, push.ID: 20} {
		if _, _, err := s.Grade(id, final); err != nil {
			t.Fatalf("Grade %s: %v", id, err)
		}
	}

	rs, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if rs.Wins != 1 || rs.Losses != 1 || rs.Pushes != 1 || rs.Pending != 1 {
		t.Errorf("record = %d-%d-%d (%d pending), want 1-1-1 (1 pending)",
			rs.Wins, rs.Losses, rs.Pushes, rs.Pending)
	}

	// Units: +100/110 - 1 + 0.
	want := decimal.NewFromInt(100).Div(decimal.NewFromInt(110)).Sub(decimal.NewFromInt(1))
	if !rs.Units.Equal(want) {
		t.Errorf("Units = %v, want %v", rs.Units, want)
	}
	if !rs.WinRate.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("WinRate = %v, want 0.5", rs.WinRate)
	}

	pending, err := s.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Entity != "Player D" {
		t.Errorf("Pending = %+v, want just Player D", pending)
	}
}

func TestScan_SkipsMalformed(t *testing.T) {
	s := openTestStore(t)

	good := testPick()
	if _, err := s.Log(good); err != nil {
		t.Fatalf("Log: %v", err)
	}

	// Sneak a malformed record past Log's validation, simulating a row
	// written by an older version with a missing required field.
	bad := testPick()
	bad.ID = "cbb_broken_prop_2026-01-10"
	bad.Direction = ""
	if err := s.store.Insert(bad.ID, bad); err != nil {
		t.Fatalf("Insert malformed: %v", err)
	}

	var flagged []string
	s.OnMalformed = func(id string, err error) {
		flagged = append(flagged, id)
	}

	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].ID != good.ID {
		t.Errorf("scan returned %d rows, want only the valid pick", len(all))
	}
	if len(flagged) != 1 || flagged[0] != bad.ID {
		t.Errorf("flagged = %v, want the malformed ID", flagged)
	}
}

func TestAmericanProfit(t *testing.T) {
	tests := []struct {
		odds int
		want string
	}{
		{-110, "0.9090909090909091"},
		{100, "1"},
		{150, "1.5"},
		{-200, "0.5"},
	}

	for _, tt := range tests {
		got := americanProfit(tt.odds)
		if got.String() != tt.want {
			t.Errorf("americanProfit(%d) = %s, want %s", tt.odds, got, tt.want)
		}
	}
}
