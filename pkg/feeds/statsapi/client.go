// Package statsapi fetches season and recent-form performance averages
// from the stats provider and maps them into performance records.
package statsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/sharplabs/sharpline/pkg/model/stats"
)

const (
	// DefaultBaseURL is the stats provider base URL
	DefaultBaseURL = "https://api.sharpstats.io"

	// Rate limits (provider free tier)
	defaultRateLimit = 5.0 // requests per second
	defaultBurst     = 2
)

// Client is a stats provider API client.
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

// NewClient creates a new stats provider client.
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

// performanceRow is the provider's wire format for one entity.
type performanceRow struct {
	Name          string  `json:"name"`
	Team          string  `json:"team"`
	GamesPlayed   int     `json:"games_played"`
	SeasonAvg     float64 `json:"season_avg"`
	Last5Avg      float64 `json:"last5_avg"`
	SeasonAllowed float64 `json:"season_allowed"`
	Last5Allowed  float64 `json:"last5_allowed"`
	Pace          float64 `json:"pace"`
	Record        string  `json:"record"`
}

// Performance fetches all team and player averages for a sport.
func (c *Client) Performance(ctx context.Context, sport string) ([]stats.PerformanceRecord, error) {
	params := url.Values{}
	params.Set("sport", sport)

	var rows []performanceRow
	if err := c.get(ctx, "/v1/performance", params, &rows); err != nil {
		return nil, err
	}

	now := time.Now()
	recs := make([]stats.PerformanceRecord, 0, len(rows))
	for _, row := range rows {
		if row.Name == "" {
			continue
		}
		recs = append(recs, stats.PerformanceRecord{
			Entity:        row.Name,
			Team:          row.Team,
			GamesPlayed:   row.GamesPlayed,
			SeasonAvg:     row.SeasonAvg,
			RecentAvg:     row.Last5Avg,
			SeasonAllowed: row.SeasonAllowed,
			RecentAllowed: row.Last5Allowed,
			Pace:          row.Pace,
			Record:        row.Record,
			UpdatedAt:     now,
		})
	}
	return recs, nil
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
