// sharplined is the pick tracking daemon. It scans each day's slate for
// edges against the market, tracks qualifying picks in an append-only
// ledger, grades them as results arrive, and serves the best-plays feed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sharplabs/sharpline/pkg/config"
	"github.com/sharplabs/sharpline/pkg/feeds/oddsapi"
	"github.com/sharplabs/sharpline/pkg/feeds/statsapi"
	"github.com/sharplabs/sharpline/pkg/model/projection"
	"github.com/sharplabs/sharpline/pkg/model/rating"
	"github.com/sharplabs/sharpline/pkg/model/stats"
	"github.com/sharplabs/sharpline/pkg/streaming"
	"github.com/sharplabs/sharpline/pkg/tracker/bestplays"
	"github.com/sharplabs/sharpline/pkg/tracker/ledger"
	"github.com/sharplabs/sharpline/pkg/tracker/metrics"
	"github.com/sharplabs/sharpline/pkg/tracker/pipeline"
	"github.com/sharplabs/sharpline/pkg/tracker/policy"
)

var (
	// Flags override the loaded configuration.
	httpAddr   = flag.String("http", "", "HTTP server address (default from config)")
	ledgerPath = flag.String("ledger", "", "Ledger directory (default from config)")
	slateDate  = flag.String("date", "", "Pin the slate date (YYYY-MM-DD)")
	runOnce    = flag.Bool("once", false, "Run a single cycle and exit")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting sharpline pick tracker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *httpAddr != "" {
		cfg.Addr = *httpAddr
	}
	if *ledgerPath != "" {
		cfg.LedgerPath = *ledgerPath
	}
	if *slateDate != "" {
		cfg.SlateDate = *slateDate
	}
	if *runOnce {
		cfg.RunOnce = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	tracker, err := newTracker(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize tracker: %v", err)
	}
	defer tracker.book.Close()

	// Wire callbacks to logs and the stream hub.
	tracker.pipe.OnStageComplete(func(result *pipeline.StageResult) {
		if *verbose || !result.Success {
			log.Printf("[%s] %s (%.2fms)", result.Stage, statusStr(result.Success),
				float64(result.Duration.Microseconds())/1000)
			if result.Error != "" {
				log.Printf("  Error: %s", result.Error)
			}
		}
		tracker.streamHub.BroadcastStage(result)
	})

	tracker.pipe.OnPick(func(pick *ledger.Pick) {
		log.Printf("[PICK] %s %s %s %s %.1f (edge %.2f, rating %.2f)",
			pick.Sport, pick.Entity, pick.Category, pick.Direction, pick.Line,
			pick.Edge, pick.Rating)
		tracker.streamHub.BroadcastPick(pick)
	})

	tracker.pipe.OnGrade(func(pick *ledger.Pick) {
		log.Printf("[GRADE] %s %s: %s (result %.1f, profit %s units)",
			pick.Sport, pick.Entity, pick.Status, pick.Result, pick.Profit)
		tracker.streamHub.BroadcastGrade(pick)
	})

	tracker.pipe.OnPlays(func(plays []bestplays.Play) {
		log.Printf("[PLAYS] %d plays in feed", len(plays))
		tracker.streamHub.BroadcastPlays(plays)
	})

	tracker.pipe.OnError(func(err error) {
		if *verbose {
			log.Printf("[SKIP] %v", err)
		}
		tracker.streamHub.BroadcastError(err, "pipeline")
	})

	if cfg.RunOnce {
		report, err := tracker.pipe.RunOnce(ctx)
		if err != nil {
			log.Printf("Cycle finished with error: %v", err)
		}
		logReport(report)
		printRecord(tracker.book)
		if err != nil {
			os.Exit(1)
		}
		return
	}

	go tracker.startHTTP(cfg.Addr)

	if err := tracker.pipe.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	log.Printf("Tracker running (sports=%v, interval=%s, http=%s)",
		cfg.Sports, cfg.RunInterval, cfg.Addr)
	log.Printf("WebSocket streaming available at ws://%s/ws", cfg.Addr)
	log.Println("Press Ctrl+C to stop")

	<-sigCh
	log.Println("Shutting down...")

	tracker.pipe.Stop()
	cancel()

	printRecord(tracker.book)
	log.Println("Goodbye!")
}

type pickTracker struct {
	book      *ledger.Store
	pipe      *pipeline.Pipeline
	metrics   *metrics.PipelineMetrics
	streamHub *streaming.Hub
}

func newTracker(cfg *config.Config) (*pickTracker, error) {
	tracker := &pickTracker{
		metrics:   metrics.NewPipelineMetrics(),
		streamHub: streaming.NewHub(),
	}

	go tracker.streamHub.Run()

	book, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	tracker.book = book

	var statsOpts []statsapi.ClientOption
	if cfg.StatsBaseURL != "" {
		statsOpts = append(statsOpts, statsapi.WithBaseURL(cfg.StatsBaseURL))
	}
	if cfg.StatsAPIKey != "" {
		statsOpts = append(statsOpts, statsapi.WithAPIKey(cfg.StatsAPIKey))
	}
	statsClient := statsapi.NewClient(statsOpts...)

	var oddsOpts []oddsapi.ClientOption
	if cfg.OddsBaseURL != "" {
		oddsOpts = append(oddsOpts, oddsapi.WithBaseURL(cfg.OddsBaseURL))
	}
	if cfg.OddsAPIKey != "" {
		oddsOpts = append(oddsOpts, oddsapi.WithAPIKey(cfg.OddsAPIKey))
	}
	oddsClient := oddsapi.NewClient(oddsOpts...)

	pipe, err := pipeline.New(
		&pipeline.Config{
			Sports:      cfg.Sports,
			SlateDate:   cfg.SlateDate,
			RunInterval: cfg.RunInterval,
		},
		statsClient,
		oddsClient,
		stats.NewStore(),
		projection.NewEngine(cfg.ProjectionConfig()),
		rating.NewEngine(nil, nil),
		policy.NewEngine(cfg.PolicyConfig()),
		book,
		bestplays.New(cfg.AggregatorConfig()),
		tracker.metrics,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	tracker.pipe = pipe

	return tracker, nil
}

func (t *pickTracker) startHTTP(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(t.pipe.GetStatus())
	})

	// Picks endpoint: all picks, or one slate date via ?date=YYYY-MM-DD.
	mux.HandleFunc("/picks", func(w http.ResponseWriter, r *http.Request) {
		var (
			picks []ledger.Pick
			err   error
		)
		if date := r.URL.Query().Get("date"); date != "" {
			picks, err = t.book.ForDate(date)
		} else {
			picks, err = t.book.All()
		}
		writeJSON(w, picks, err)
	})

	mux.HandleFunc("/pending", func(w http.ResponseWriter, r *http.Request) {
		picks, err := t.book.Pending()
		writeJSON(w, picks, err)
	})

	// Best-plays feed from the last completed cycle.
	mux.HandleFunc("/plays", func(w http.ResponseWriter, r *http.Request) {
		var plays []bestplays.Play
		if report := t.pipe.LastReport(); report != nil {
			plays = report.Plays
		}
		writeJSON(w, plays, nil)
	})

	// Aggregate win/loss record, recomputed from the ledger.
	mux.HandleFunc("/record", func(w http.ResponseWriter, r *http.Request) {
		record, err := t.book.Stats()
		writeJSON(w, record, err)
	})

	mux.Handle("/metrics", t.metrics.Handler())

	mux.HandleFunc("/ws", t.streamHub.ServeWS)

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("HTTP server listening on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("HTTP server error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(v)
}

func logReport(report *pipeline.Report) {
	if report == nil {
		return
	}
	log.Printf("Cycle %s (%s): %d candidates, %d tracked, %d displayed, %d graded, %d skipped",
		report.RunID, report.Date,
		report.Candidates, report.Tracked, report.Displayed, report.Graded, report.Skipped)
}

func printRecord(book *ledger.Store) {
	record, err := book.Stats()
	if err != nil {
		log.Printf("Failed to compute record: %v", err)
		return
	}
	log.Printf("Record: %d-%d-%d (%d pending), %s units, ROI %s",
		record.Wins, record.Losses, record.Pushes, record.Pending,
		record.Units.StringFixed(2), record.ROI.StringFixed(3))
}

func statusStr(success bool) string {
	if success {
		return "OK"
	}
	return "FAILED"
}
