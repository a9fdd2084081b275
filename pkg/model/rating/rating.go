// Package rating produces one bounded composite confidence score per game.
// A normalized-edge base on a 0-5 raw scale is multiplied by data-quality,
// historical-bucket, model-confidence, and entity-form factors, then
// linearly rescaled into the fixed [RMin, RMax] interval and clamped.
//
// The multiplicative, clamped design lets any single weak factor pull the
// rating down without pushing it below the floor, and keeps outputs in a
// stable, comparable range no matter how extreme the raw edge is.
package rating

// Factor ranges are part of the rating contract, not tunables.
const (
	dataQualityFloor = 0.85
	dataQualityCeil  = 1.0

	historicalFloor = 0.90
	historicalCeil  = 1.10

	confidenceFloor = 0.90
	confidenceCeil  = 1.15

	entityFormFloor = 0.90
	entityFormCeil  = 1.10

	rawScaleMax = 5.0
)

// Config holds the tunable rating parameters.
type Config struct {
	// EdgeCap caps the edge magnitude feeding the base; EdgeNormDivisor
	// maps the capped magnitude onto the 0-5 raw scale.
	EdgeCap         float64
	EdgeNormDivisor float64

	// Output interval.
	RMin float64
	RMax float64

	// Historical buckets: ascending upper bounds on edge magnitude, and
	// the minimum resolved sample before a bucket's win rate is trusted.
	BucketBounds     []float64
	MinBucketSamples int

	// Data-quality knobs.
	FullGamesPlayed int // games played at or above this take no penalty
}

// DefaultConfig returns the standard rating configuration: edges of 10+
// points map to the top of the raw scale, output bounded to [2.3, 4.9].
func DefaultConfig() *Config {
	return &Config{
		EdgeCap:          10.0,
		EdgeNormDivisor:  2.0,
		RMin:             2.3,
		RMax:             4.9,
		BucketBounds:     []float64{3.0, 4.0, 6.0},
		MinBucketSamples: 5,
		FullGamesPlayed:  10,
	}
}

// Input carries the per-candidate facts the rating is computed from.
type Input struct {
	// EdgeMagnitude is the largest absolute edge across the game's
	// categories (edge.MaxMagnitude).
	EdgeMagnitude float64

	// StatsComplete is false when either side's averages were partially
	// missing; GamesPlayed is the thinner side's count.
	StatsComplete bool
	GamesPlayed   int

	// Season/recent averages of the picked entity, for the hot/cold form
	// factor. Zero means unknown (neutral).
	SeasonAvg float64
	RecentAvg float64
}

// Rating is the composite score with its factor breakdown.
type Rating struct {
	Value float64 `json:"value"`

	Base        float64 `json:"base"` // normalized edge on the 0-5 raw scale
	DataQuality float64 `json:"data_quality"`
	Historical  float64 `json:"historical"`
	Confidence  float64 `json:"confidence"`
	EntityForm  float64 `json:"entity_form"`

	Bucket        string `json:"bucket"`
	BucketSamples int    `json:"bucket_samples"`
}

// Engine computes composite ratings, optionally informed by a History of
// prior resolved picks.
type Engine struct {
	config  *Config
	history *History
}

// NewEngine creates a rating engine. A nil history leaves the historical
// factor neutral.
func NewEngine(config *Config, history *History) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{config: config, history: history}
}

// Buckets returns a History sized to this engine's bucket bounds, for the
// caller to fill from the ledger's terminal picks.
func (e *Engine) Buckets() *History {
	return NewHistory(e.config.BucketBounds)
}

// SetHistory swaps in a freshly rebuilt history index.
func (e *Engine) SetHistory(h *History) {
	e.history = h
}

// Rate computes the composite rating. It assumes a projection exists for
// the candidate; candidates without a projection must be excluded upstream
// rather than given a neutral rating.
func (e *Engine) Rate(in Input) Rating {
	cfg := e.config

	mag := in.EdgeMagnitude
	if mag < 0 {
		mag = -mag
	}

	capped := mag
	if capped > cfg.EdgeCap {
		capped = cfg.EdgeCap
	}
	base := capped / cfg.EdgeNormDivisor
	if base > rawScaleMax {
		base = rawScaleMax
	}

	r := Rating{
		Base:        base,
		DataQuality: e.dataQuality(in),
		Historical:  1.0,
		Confidence:  e.confidence(mag),
		EntityForm:  e.entityForm(in),
	}

	if e.history != nil {
		winRate, samples := e.history.WinRate(mag)
		r.Bucket = e.history.Label(mag)
		r.BucketSamples = samples
		if samples >= cfg.MinBucketSamples {
			// Win rate 40% maps to the floor, 60% to the ceiling.
			r.Historical = clamp(1.0+(winRate-0.5), historicalFloor, historicalCeil)
		}
	}

	composite := base * r.DataQuality * r.Historical * r.Confidence * r.EntityForm
	composite = clamp(composite, 0, rawScaleMax)

	r.Value = clamp(cfg.RMin+composite/rawScaleMax*(cfg.RMax-cfg.RMin), cfg.RMin, cfg.RMax)
	return r
}

// dataQuality penalizes incomplete or thin inputs, bounded to [0.85, 1.0].
func (e *Engine) dataQuality(in Input) float64 {
	q := dataQualityCeil
	if !in.StatsComplete {
		q -= 0.10
	}
	if in.GamesPlayed > 0 && in.GamesPlayed < e.config.FullGamesPlayed {
		q -= 0.05
	}
	return clamp(q, dataQualityFloor, dataQualityCeil)
}

// confidence grows with larger edges and shrinks for very small ones,
// bounded to [0.9, 1.15].
func (e *Engine) confidence(mag float64) float64 {
	frac := clamp(mag/e.config.EdgeCap, 0, 1)
	return clamp(confidenceFloor+frac*(confidenceCeil-confidenceFloor), confidenceFloor, confidenceCeil)
}

// entityForm reflects the entity's own recent trajectory where known,
// bounded to [0.9, 1.1]; neutral when averages are unknown.
func (e *Engine) entityForm(in Input) float64 {
	if in.SeasonAvg <= 0 || in.RecentAvg <= 0 {
		return 1.0
	}
	ratio := in.RecentAvg / in.SeasonAvg
	return clamp(1.0+(ratio-1.0)*0.5, entityFormFloor, entityFormCeil)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
