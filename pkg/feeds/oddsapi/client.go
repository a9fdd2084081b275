// Package oddsapi fetches slates, quoted lines, and final results from the
// odds provider and maps them into market contexts.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/sharplabs/sharpline/pkg/model/market"
)

const (
	// DefaultBaseURL is the odds provider base URL
	DefaultBaseURL = "https://api.sharpodds.io"

	// Rate limits (provider free tier)
	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 2
)

// Client is an odds provider API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets custom rate limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a new odds provider client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Wire formats. Spread lines are quoted from the home side.
type lineRow struct {
	Value       float64 `json:"value"`
	OpeningOdds int     `json:"opening_odds"`
	LatestOdds  int     `json:"latest_odds"`
}

type gameRow struct {
	GameID   string    `json:"game_id"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Start    time.Time `json:"start"`
	Neutral  bool      `json:"neutral"`
	Spread   *lineRow  `json:"spread"`
	Total    *lineRow  `json:"total"`
}

type propRow struct {
	Player   string    `json:"player"`
	Team     string    `json:"team"`
	Opponent string    `json:"opponent"`
	Stat     string    `json:"stat"`
	Start    time.Time `json:"start"`
	Line     lineRow   `json:"line"`
}

type slateResponse struct {
	Games []gameRow `json:"games"`
	Props []propRow `json:"props"`
}

// Slate fetches one day's games and props for a sport.
func (c *Client) Slate(ctx context.Context, sport, date string) (*market.Slate, error) {
	params := url.Values{}
	params.Set("sport", sport)
	params.Set("date", date)

	var resp slateResponse
	if err := c.get(ctx, "/v1/slate", params, &resp); err != nil {
		return nil, err
	}

	slate := &market.Slate{Sport: sport, Date: date}
	for _, g := range resp.Games {
		lines := make(map[market.Category]market.Line)
		if g.Spread != nil {
			lines[market.CategorySpread] = toLine(*g.Spread)
		}
		if g.Total != nil {
			lines[market.CategoryTotal] = toLine(*g.Total)
		}
		slate.Games = append(slate.Games, market.GameContext{
			Sport:    sport,
			GameID:   g.GameID,
			HomeTeam: g.HomeTeam,
			AwayTeam: g.AwayTeam,
			Start:    g.Start,
			Neutral:  g.Neutral,
			Lines:    lines,
		})
	}
	for _, p := range resp.Props {
		slate.Props = append(slate.Props, market.PropContext{
			Sport:    sport,
			Player:   p.Player,
			Team:     p.Team,
			Opponent: p.Opponent,
			Stat:     p.Stat,
			Start:    p.Start,
			Line:     toLine(p.Line),
		})
	}
	return slate, nil
}

func toLine(row lineRow) market.Line {
	return market.Line{
		Value:       row.Value,
		OpeningOdds: row.OpeningOdds,
		LatestOdds:  row.LatestOdds,
	}
}

type gameResultRow struct {
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeScore float64   `json:"home_score"`
	AwayScore float64   `json:"away_score"`
	Start     time.Time `json:"start"`
	Final     bool      `json:"final"`
}

// GameResults fetches final scores for a sport and date. Games not yet
// final are excluded.
func (c *Client) GameResults(ctx context.Context, sport, date string) ([]market.GameResult, error) {
	params := url.Values{}
	params.Set("sport", sport)
	params.Set("date", date)

	var rows []gameResultRow
	if err := c.get(ctx, "/v1/results/games", params, &rows); err != nil {
		return nil, err
	}

	results := make([]market.GameResult, 0, len(rows))
	for _, row := range rows {
		if !row.Final {
			continue
		}
		results = append(results, market.GameResult{
			Sport:     sport,
			HomeTeam:  row.HomeTeam,
			AwayTeam:  row.AwayTeam,
			HomeScore: row.HomeScore,
			AwayScore: row.AwayScore,
			Start:     row.Start,
		})
	}
	return results, nil
}

type propResultRow struct {
	Player string    `json:"player"`
	Stat   string    `json:"stat"`
	Value  float64   `json:"value"`
	Start  time.Time `json:"start"`
	Final  bool      `json:"final"`
}

// PropResults fetches final player stat values for a sport and date.
func (c *Client) PropResults(ctx context.Context, sport, date string) ([]market.PropResult, error) {
	params := url.Values{}
	params.Set("sport", sport)
	params.Set("date", date)

	var rows []propResultRow
	if err := c.get(ctx, "/v1/results/props", params, &rows); err != nil {
		return nil, err
	}

	results := make([]market.PropResult, 0, len(rows))
	for _, row := range rows {
		if !row.Final {
			continue
		}
		results = append(results, market.PropResult{
			Sport:  sport,
			Player: row.Player,
			Stat:   row.Stat,
			Value:  row.Value,
			Start:  row.Start,
		})
	}
	return results, nil
}

// get performs a GET request with rate limiting.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
