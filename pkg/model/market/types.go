// Package market defines the shared vocabulary for the prediction pipeline:
// bet categories, pick directions, quoted lines, and the per-slate game and
// prop contexts assembled from the schedule and odds feeds.
package market

import "time"

// Category is the bet category a line is quoted for.
type Category string

const (
	CategorySpread    Category = "SPREAD"
	CategoryTotal     Category = "TOTAL"
	CategoryMoneyline Category = "MONEYLINE"
	CategoryProp      Category = "PROP"
)

// Direction is the side of a line a pick is on.
type Direction string

const (
	DirectionOver  Direction = "OVER"
	DirectionUnder Direction = "UNDER"
	DirectionHome  Direction = "HOME"
	DirectionAway  Direction = "AWAY"
)

// Line is one quoted market line with its pricing.
// Odds are American; zero means unknown and standard -110 juice is assumed.
type Line struct {
	Value       float64 `json:"value"`
	OpeningOdds int     `json:"opening_odds,omitempty"`
	LatestOdds  int     `json:"latest_odds,omitempty"`
}

// GameContext is one scheduled contest with its quoted lines.
// Spread lines are quoted from the home side (-4.5 = home favored by 4.5).
// Built per run from the schedule and odds feeds; never persisted.
type GameContext struct {
	Sport    string    `json:"sport"`
	GameID   string    `json:"game_id"`
	HomeTeam string    `json:"home_team"` // team code, e.g. "BOS"
	AwayTeam string    `json:"away_team"`
	Start    time.Time `json:"start"`
	Neutral  bool      `json:"neutral,omitempty"`

	Lines map[Category]Line `json:"lines"`
}

// Date returns the slate date the game belongs to, in YYYY-MM-DD form.
func (g *GameContext) Date() string {
	return g.Start.Format("2006-01-02")
}

// PropContext is one quoted player-prop line.
type PropContext struct {
	Sport    string    `json:"sport"`
	Player   string    `json:"player"` // full name
	Team     string    `json:"team"`
	Opponent string    `json:"opponent"`
	Stat     string    `json:"stat"` // e.g. "points", "rebounds"
	Start    time.Time `json:"start"`
	Line     Line      `json:"line"`
}

// Date returns the slate date the prop belongs to, in YYYY-MM-DD form.
func (p *PropContext) Date() string {
	return p.Start.Format("2006-01-02")
}

// Slate is one day's worth of games and props for a sport.
type Slate struct {
	Sport string        `json:"sport"`
	Date  string        `json:"date"`
	Games []GameContext `json:"games"`
	Props []PropContext `json:"props"`
}

// GameResult is the final score of a completed game, used only by grading.
type GameResult struct {
	Sport     string    `json:"sport"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	HomeScore float64   `json:"home_score"`
	AwayScore float64   `json:"away_score"`
	Start     time.Time `json:"start"`
}

// Margin returns the home-side winning margin (home - away).
func (r *GameResult) Margin() float64 {
	return r.HomeScore - r.AwayScore
}

// Total returns the combined final score.
func (r *GameResult) Total() float64 {
	return r.HomeScore + r.AwayScore
}

// Date returns the slate date of the result, in YYYY-MM-DD form.
func (r *GameResult) Date() string {
	return r.Start.Format("2006-01-02")
}

// PropResult is the final value of a player stat line, used only by grading.
type PropResult struct {
	Sport  string    `json:"sport"`
	Player string    `json:"player"`
	Stat   string    `json:"stat"`
	Value  float64   `json:"value"`
	Start  time.Time `json:"start"`
}

// Date returns the slate date of the result, in YYYY-MM-DD form.
func (r *PropResult) Date() string {
	return r.Start.Format("2006-01-02")
}
