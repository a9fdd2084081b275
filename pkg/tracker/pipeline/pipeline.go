// Package pipeline coordinates the daily pick workflow: refresh performance
// data, rebuild the historical rating index, scan the slate for candidates,
// grade arrived results, and publish the best-plays feed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharplabs/sharpline/pkg/model/edge"
	"github.com/sharplabs/sharpline/pkg/model/market"
	"github.com/sharplabs/sharpline/pkg/model/projection"
	"github.com/sharplabs/sharpline/pkg/model/rating"
	"github.com/sharplabs/sharpline/pkg/model/stats"
	"github.com/sharplabs/sharpline/pkg/tracker/bestplays"
	"github.com/sharplabs/sharpline/pkg/tracker/ledger"
	"github.com/sharplabs/sharpline/pkg/tracker/metrics"
	"github.com/sharplabs/sharpline/pkg/tracker/policy"
)

// StatsSource supplies per-sport performance records.
type StatsSource interface {
	Performance(ctx context.Context, sport string) ([]stats.PerformanceRecord, error)
}

// OddsSource supplies slates and final results.
type OddsSource interface {
	Slate(ctx context.Context, sport, date string) (*market.Slate, error)
	GameResults(ctx context.Context, sport, date string) ([]market.GameResult, error)
	PropResults(ctx context.Context, sport, date string) ([]market.PropResult, error)
}

// Stage represents a stage in the pick workflow.
type Stage string

const (
	StageStatsRefresh   Stage = "stats_refresh"
	StageHistoryRebuild Stage = "history_rebuild"
	StageCandidateScan  Stage = "candidate_scan"
	StageGrading        Stage = "grading"
	StageAggregation    Stage = "aggregation"
)

// StageResult holds the result of a stage execution.
type StageResult struct {
	Stage     Stage         `json:"stage"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Data      interface{}   `json:"data,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Config configures the pick workflow.
type Config struct {
	Sports []string

	// SlateDate pins the slate to one date (YYYY-MM-DD); empty means today.
	SlateDate string

	// RunInterval is the delay between cycles when running continuously.
	RunInterval time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sports:      []string{"nba", "cbb"},
		RunInterval: 30 * time.Minute,
	}
}

// Report summarizes one completed cycle.
type Report struct {
	RunID      string           `json:"run_id"`
	Date       string           `json:"date"`
	Stages     []StageResult    `json:"stages"`
	Candidates int              `json:"candidates"`
	Tracked    int              `json:"tracked"`
	Displayed  int              `json:"displayed"`
	Graded     int              `json:"graded"`
	Skipped    int              `json:"skipped"`
	Plays      []bestplays.Play `json:"plays"`
}

// Pipeline runs the pick workflow against its wired engines and stores.
type Pipeline struct {
	config *Config

	statsSource StatsSource
	oddsSource  OddsSource

	perfStore  *stats.Store
	projEngine *projection.Engine
	ratEngine  *rating.Engine
	polEngine  *policy.Engine
	book       *ledger.Store
	aggregator *bestplays.Aggregator
	metrics    *metrics.PipelineMetrics

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}

	lastReport *Report

	// Callbacks
	onStageComplete func(*StageResult)
	onPick          func(*ledger.Pick)
	onGrade         func(*ledger.Pick)
	onPlays         func([]bestplays.Play)
	onError         func(error)
}

// New creates a pipeline. The metrics collector may be nil.
func New(
	config *Config,
	statsSource StatsSource,
	oddsSource OddsSource,
	perfStore *stats.Store,
	projEngine *projection.Engine,
	ratEngine *rating.Engine,
	polEngine *policy.Engine,
	book *ledger.Store,
	aggregator *bestplays.Aggregator,
	m *metrics.PipelineMetrics,
) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if perfStore == nil || projEngine == nil || ratEngine == nil || polEngine == nil {
		return nil, errors.New("pipeline requires performance store and all three engines")
	}
	if book == nil {
		return nil, errors.New("pipeline requires a ledger store")
	}
	if aggregator == nil {
		aggregator = bestplays.New(nil)
	}

	return &Pipeline{
		config:      config,
		statsSource: statsSource,
		oddsSource:  oddsSource,
		perfStore:   perfStore,
		projEngine:  projEngine,
		ratEngine:   ratEngine,
		polEngine:   polEngine,
		book:        book,
		aggregator:  aggregator,
		metrics:     m,
		stopCh:      make(chan struct{}),
	}, nil
}

// OnStageComplete sets a callback for stage completions.
func (p *Pipeline) OnStageComplete(fn func(*StageResult)) { p.onStageComplete = fn }

// OnPick sets a callback for newly tracked picks.
func (p *Pipeline) OnPick(fn func(*ledger.Pick)) { p.onPick = fn }

// OnGrade sets a callback for freshly graded picks.
func (p *Pipeline) OnGrade(fn func(*ledger.Pick)) { p.onGrade = fn }

// OnPlays sets a callback for each refreshed best-plays feed.
func (p *Pipeline) OnPlays(fn func([]bestplays.Play)) { p.onPlays = fn }

// OnError sets a callback for recoverable errors.
func (p *Pipeline) OnError(fn func(error)) { p.onError = fn }

// Start runs the workflow on the configured interval until the context is
// cancelled or Stop is called.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	if _, err := p.RunOnce(ctx); err != nil {
		p.handleError(fmt.Errorf("initial cycle failed: %w", err))
	}

	go p.runLoop(ctx)
	return nil
}

// Stop stops the workflow.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		close(p.stopCh)
		p.running = false
	}
}

// IsRunning returns true if the pipeline loop is active.
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// LastReport returns the most recent cycle report, or nil before the first
// cycle completes.
func (p *Pipeline) LastReport() *Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastReport
}

func (p *Pipeline) runLoop(ctx context.Context) {
	ticker := time.NewTicker(p.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.handleError(fmt.Errorf("cycle failed: %w", err))
			}
		}
	}
}

// RunOnce executes a single workflow cycle: every stage runs even when an
// earlier one fails, so a stats feed outage still grades yesterday's picks.
func (p *Pipeline) RunOnce(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID: uuid.NewString(),
		Date:  p.slateDate(),
	}

	stages := []Stage{
		StageStatsRefresh,
		StageHistoryRebuild,
		StageCandidateScan,
		StageGrading,
		StageAggregation,
	}

	var firstErr error
	for _, stage := range stages {
		if err := p.runStage(ctx, stage, report); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stage %s: %w", stage, err)
		}
	}

	p.mu.Lock()
	p.lastReport = report
	p.mu.Unlock()

	if p.metrics != nil {
		status := "ok"
		if firstErr != nil {
			status = "error"
		}
		for _, sport := range p.config.Sports {
			p.metrics.RunsTotal.WithLabelValues(sport, status).Inc()
		}
	}
	return report, firstErr
}

func (p *Pipeline) slateDate() string {
	if p.config.SlateDate != "" {
		return p.config.SlateDate
	}
	return time.Now().Format("2006-01-02")
}

// --- Stage Execution ---

func (p *Pipeline) runStage(ctx context.Context, stage Stage, report *Report) error {
	start := time.Now()
	var err error
	var data interface{}

	switch stage {
	case StageStatsRefresh:
		data, err = p.executeStatsRefresh(ctx)
	case StageHistoryRebuild:
		data, err = p.executeHistoryRebuild()
	case StageCandidateScan:
		data, err = p.executeCandidateScan(ctx, report)
	case StageGrading:
		data, err = p.executeGrading(ctx, report)
	case StageAggregation:
		data, err = p.executeAggregation(report)
	default:
		err = fmt.Errorf("unknown stage: %s", stage)
	}

	result := StageResult{
		Stage:     stage,
		Success:   err == nil,
		Data:      data,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
	}
	report.Stages = append(report.Stages, result)

	if p.metrics != nil {
		p.metrics.StageDuration.WithLabelValues(string(stage)).Observe(result.Duration.Seconds())
	}
	if p.onStageComplete != nil {
		p.onStageComplete(&result)
	}
	return err
}

func (p *Pipeline) executeStatsRefresh(ctx context.Context) (interface{}, error) {
	if p.statsSource == nil {
		return nil, nil
	}

	loaded := map[string]int{}
	var firstErr error
	for _, sport := range p.config.Sports {
		recs, err := p.statsSource.Performance(ctx, sport)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("performance feed for %s: %w", sport, err)
			}
			continue
		}
		p.perfStore.PutAll(sport, recs)
		loaded[sport] = len(recs)
	}
	return map[string]interface{}{"records_loaded": loaded}, firstErr
}

// executeHistoryRebuild reindexes the rating engine's historical buckets
// from the ledger's terminal picks. Pushes carry no signal and are skipped.
func (p *Pipeline) executeHistoryRebuild() (interface{}, error) {
	terminal, err := p.book.Terminal()
	if err != nil {
		return nil, fmt.Errorf("loading terminal picks: %w", err)
	}

	history := p.ratEngine.Buckets()
	indexed := 0
	for _, pick := range terminal {
		switch pick.Status {
		case ledger.StatusWin:
			history.Add(pick.Edge, true)
		case ledger.StatusLoss:
			history.Add(pick.Edge, false)
		default:
			continue
		}
		indexed++
	}
	p.ratEngine.SetHistory(history)

	return map[string]interface{}{"outcomes_indexed": indexed}, nil
}

func (p *Pipeline) executeCandidateScan(ctx context.Context, report *Report) (interface{}, error) {
	if p.oddsSource == nil {
		return nil, nil
	}

	date := report.Date
	var firstErr error
	for _, sport := range p.config.Sports {
		slate, err := p.oddsSource.Slate(ctx, sport, date)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("slate for %s %s: %w", sport, date, err)
			}
			continue
		}
		if slate == nil {
			continue
		}

		for i := range slate.Games {
			p.scanGame(sport, date, &slate.Games[i], report)
		}
		for i := range slate.Props {
			p.scanProp(sport, date, &slate.Props[i], report)
		}
	}

	return map[string]interface{}{
		"candidates": report.Candidates,
		"tracked":    report.Tracked,
		"displayed":  report.Displayed,
		"skipped":    report.Skipped,
	}, firstErr
}

// scanGame projects one game and evaluates its spread and total lines.
// Games the model cannot project are skipped with a diagnostic, never
// projected from substituted defaults.
func (p *Pipeline) scanGame(sport, date string, game *market.GameContext, report *Report) {
	home, _ := p.perfStore.Get(sport, game.HomeTeam)
	away, _ := p.perfStore.Get(sport, game.AwayTeam)

	proj, err := p.projEngine.ProjectGame(game, home, away)
	if err != nil {
		p.skip(sport, report, fmt.Errorf("%s vs %s: %w", game.AwayTeam, game.HomeTeam, err))
		return
	}

	var results []edge.Result
	spreadLine, hasSpread := game.Lines[market.CategorySpread]
	if hasSpread {
		results = append(results, edge.Spread(proj.Margin, spreadLine.Value))
	}
	totalLine, hasTotal := game.Lines[market.CategoryTotal]
	if hasTotal {
		results = append(results, edge.Total(proj.Total, totalLine.Value))
	}
	if len(results) == 0 {
		return
	}

	// One composite rating per game, driven by its strongest edge.
	gp := home.GamesPlayed
	if away.GamesPlayed < gp {
		gp = away.GamesPlayed
	}
	r := p.ratEngine.Rate(rating.Input{
		EdgeMagnitude: edge.MaxMagnitude(results...),
		StatsComplete: home.Complete() && away.Complete(),
		GamesPlayed:   gp,
		SeasonAvg:     home.SeasonAvg,
		RecentAvg:     home.RecentAvg,
	})

	for _, res := range results {
		entity, team, rec := game.HomeTeam, game.HomeTeam, home
		line := res.Market
		switch res.Category {
		case market.CategorySpread:
			// The ledger stores the picked side's own line.
			line = spreadLine.Value
			if res.Direction == market.DirectionAway {
				entity, team, rec = game.AwayTeam, game.AwayTeam, away
				line = -spreadLine.Value
			}
		case market.CategoryTotal:
			line = totalLine.Value
		}

		quoted := game.Lines[res.Category]
		pick := &ledger.Pick{
			ID:          ledger.PickID(sport, entity, res.Category, date),
			Sport:       sport,
			Entity:      entity,
			Team:        team,
			GameDate:    date,
			Category:    res.Category,
			Direction:   res.Direction,
			Line:        line,
			Value:       line,
			OpeningOdds: quoted.OpeningOdds,
			LatestOdds:  quoted.LatestOdds,
			Edge:        res.Magnitude(),
			Rating:      r.Value,
			SeasonAvg:   rec.SeasonAvg,
			RecentAvg:   rec.RecentAvg,
			Record:      rec.Record,
			Status:      ledger.StatusPending,
		}
		p.decide(sport, res, r.Value, pick, report)
	}
}

// scanProp projects and evaluates one player-prop line.
func (p *Pipeline) scanProp(sport, date string, prop *market.PropContext, report *Report) {
	player, _ := p.perfStore.Get(sport, prop.Player)
	opponent, _ := p.perfStore.Get(sport, prop.Opponent)

	proj, err := p.projEngine.ProjectProp(prop, player, opponent)
	if err != nil {
		p.skip(sport, report, fmt.Errorf("prop %s %s: %w", prop.Player, prop.Stat, err))
		return
	}

	res := edge.Prop(proj.Value, prop.Line.Value)
	r := p.ratEngine.Rate(rating.Input{
		EdgeMagnitude: res.Magnitude(),
		StatsComplete: player.Complete(),
		GamesPlayed:   player.GamesPlayed,
		SeasonAvg:     player.SeasonAvg,
		RecentAvg:     player.RecentAvg,
	})

	pick := &ledger.Pick{
		ID:          ledger.PickID(sport, prop.Player, market.CategoryProp, date),
		Sport:       sport,
		Entity:      prop.Player,
		Team:        prop.Team,
		GameDate:    date,
		Category:    market.CategoryProp,
		Direction:   res.Direction,
		Line:        prop.Line.Value,
		Value:       prop.Line.Value,
		OpeningOdds: prop.Line.OpeningOdds,
		LatestOdds:  prop.Line.LatestOdds,
		Edge:        res.Magnitude(),
		Rating:      r.Value,
		SeasonAvg:   player.SeasonAvg,
		RecentAvg:   player.RecentAvg,
		Record:      player.Record,
		Status:      ledger.StatusPending,
	}
	p.decide(sport, res, r.Value, pick, report)
}

// decide applies the decision policy and, for tracked candidates, writes
// the pick to the ledger.
func (p *Pipeline) decide(sport string, res edge.Result, ratingValue float64, pick *ledger.Pick, report *Report) {
	report.Candidates++

	decision := p.polEngine.Evaluate(res.Category, res.Magnitude(), ratingValue)
	if p.metrics != nil {
		p.metrics.CandidatesTotal.WithLabelValues(sport, string(res.Category), string(decision.Outcome)).Inc()
		p.metrics.EdgeObserved.WithLabelValues(sport, string(res.Category)).Observe(res.Magnitude())
		p.metrics.RatingObserved.WithLabelValues(sport, string(res.Category)).Observe(ratingValue)
	}

	switch decision.Outcome {
	case policy.OutcomeTrack:
		inserted, err := p.book.Log(pick)
		if err != nil {
			p.skip(sport, report, fmt.Errorf("logging %s: %w", pick.ID, err))
			return
		}
		report.Tracked++
		if inserted {
			if p.metrics != nil {
				p.metrics.PicksTotal.WithLabelValues(sport, string(pick.Category)).Inc()
			}
			if p.onPick != nil {
				p.onPick(pick)
			}
		}
	case policy.OutcomeDisplay:
		report.Displayed++
	}
}

func (p *Pipeline) executeGrading(ctx context.Context, report *Report) (interface{}, error) {
	pending, err := p.book.Pending()
	if err != nil {
		return nil, fmt.Errorf("loading pending picks: %w", err)
	}
	if len(pending) == 0 || p.oddsSource == nil {
		return map[string]interface{}{"graded": 0}, nil
	}

	// Fetch results once per (sport, date) the pending picks span.
	type sportDate struct{ sport, date string }
	wanted := map[sportDate]bool{}
	for _, pick := range pending {
		wanted[sportDate{pick.Sport, pick.GameDate}] = true
	}

	games := map[sportDate][]market.GameResult{}
	props := map[sportDate][]market.PropResult{}
	var firstErr error
	for sd := range wanted {
		g, err := p.oddsSource.GameResults(ctx, sd.sport, sd.date)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("game results for %s %s: %w", sd.sport, sd.date, err)
		}
		games[sd] = g

		pr, err := p.oddsSource.PropResults(ctx, sd.sport, sd.date)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("prop results for %s %s: %w", sd.sport, sd.date, err)
		}
		props[sd] = pr
	}

	for i := range pending {
		pick := &pending[i]
		sd := sportDate{pick.Sport, pick.GameDate}

		final, ok := finalValue(pick, games[sd], props[sd])
		if !ok {
			continue // result not in yet
		}

		graded, applied, err := p.book.Grade(pick.ID, final)
		if err != nil {
			p.skip(pick.Sport, report, fmt.Errorf("grading %s: %w", pick.ID, err))
			continue
		}
		if !applied {
			continue
		}

		report.Graded++
		if p.metrics != nil {
			p.metrics.GradesTotal.WithLabelValues(pick.Sport, string(graded.Status)).Inc()
		}
		if p.onGrade != nil {
			p.onGrade(graded)
		}
	}

	p.refreshLedgerGauges()
	return map[string]interface{}{"graded": report.Graded}, firstErr
}

// finalValue resolves the observed value a pick grades against: the home
// margin for spreads, the combined score for totals, the stat value for
// props.
func finalValue(pick *ledger.Pick, games []market.GameResult, props []market.PropResult) (float64, bool) {
	switch pick.Category {
	case market.CategoryProp:
		want := stats.NormalizeEntity(pick.Entity)
		for i := range props {
			if stats.NormalizeEntity(props[i].Player) == want {
				return props[i].Value, true
			}
		}
	default:
		want := stats.NormalizeEntity(pick.Team)
		for i := range games {
			g := &games[i]
			if stats.NormalizeEntity(g.HomeTeam) != want && stats.NormalizeEntity(g.AwayTeam) != want {
				continue
			}
			if pick.Category == market.CategoryTotal {
				return g.Total(), true
			}
			return g.Margin(), true
		}
	}
	return 0, false
}

func (p *Pipeline) executeAggregation(report *Report) (interface{}, error) {
	pending, err := p.book.Pending()
	if err != nil {
		return nil, fmt.Errorf("loading pending picks: %w", err)
	}

	plays := p.aggregator.Best(pending)
	report.Plays = plays

	if p.metrics != nil {
		bySport := map[string]float64{}
		for _, play := range plays {
			bySport[play.Sport]++
		}
		for _, sport := range p.config.Sports {
			p.metrics.PlaysEmitted.WithLabelValues(sport).Set(bySport[sport])
		}
	}
	if p.onPlays != nil {
		p.onPlays(plays)
	}
	return map[string]interface{}{"plays": len(plays)}, nil
}

// refreshLedgerGauges recomputes the pending and profit gauges per sport.
func (p *Pipeline) refreshLedgerGauges() {
	if p.metrics == nil {
		return
	}

	all, err := p.book.All()
	if err != nil {
		return
	}

	pending := map[string]float64{}
	units := map[string]float64{}
	for _, pick := range all {
		if pick.Status == ledger.StatusPending {
			pending[pick.Sport]++
		} else {
			profit, _ := pick.Profit.Float64()
			units[pick.Sport] += profit
		}
	}
	for _, sport := range p.config.Sports {
		p.metrics.PendingPicks.WithLabelValues(sport).Set(pending[sport])
		p.metrics.UnitsProfit.WithLabelValues(sport).Set(units[sport])
	}
}

func (p *Pipeline) skip(sport string, report *Report, err error) {
	report.Skipped++
	if p.metrics != nil {
		p.metrics.SkipsTotal.WithLabelValues(sport, skipReason(err)).Inc()
	}
	p.handleError(err)
}

func skipReason(err error) string {
	if errors.Is(err, projection.ErrInsufficientData) {
		return "insufficient_data"
	}
	return "error"
}

func (p *Pipeline) handleError(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}

// Status is a point-in-time view of the pipeline for the status endpoint.
type Status struct {
	Running    bool                `json:"running"`
	LastRunID  string              `json:"last_run_id,omitempty"`
	LastDate   string              `json:"last_date,omitempty"`
	Record     *ledger.RecordStats `json:"record,omitempty"`
	PlaysCount int                 `json:"plays_count"`
}

// GetStatus returns the current status, including the recomputed ledger
// record.
func (p *Pipeline) GetStatus() *Status {
	p.mu.RLock()
	status := &Status{Running: p.running}
	if p.lastReport != nil {
		status.LastRunID = p.lastReport.RunID
		status.LastDate = p.lastReport.Date
		status.PlaysCount = len(p.lastReport.Plays)
	}
	p.mu.RUnlock()

	if record, err := p.book.Stats(); err == nil {
		status.Record = record
	}
	return status
}
