package rating

import (
	"fmt"
	"sort"
)

// History is a read-only index of realized pick outcomes grouped into
// contiguous edge-magnitude buckets. It is rebuilt from the ledger's
// terminal picks at the start of each run and never mutated concurrently
// with ledger writes, which keeps "rating depends on history" and
// "history depends on graded picks" from becoming a cycle.
type History struct {
	bounds  []float64 // ascending upper bounds; last bucket is open-ended
	buckets []bucketTally
}

type bucketTally struct {
	wins   int
	losses int
}

// NewHistory creates a history index with the given ascending bucket upper
// bounds. Bounds {3, 4, 6} produce buckets [0,3), [3,4), [4,6), [6,inf).
func NewHistory(bounds []float64) *History {
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	return &History{
		bounds:  sorted,
		buckets: make([]bucketTally, len(sorted)+1),
	}
}

// Add records one resolved pick outcome. Pushes carry no signal and should
// not be added.
func (h *History) Add(edgeMagnitude float64, won bool) {
	i := h.index(edgeMagnitude)
	if won {
		h.buckets[i].wins++
	} else {
		h.buckets[i].losses++
	}
}

// WinRate returns the observed win rate and sample size for the bucket
// containing the given edge magnitude.
func (h *History) WinRate(edgeMagnitude float64) (rate float64, samples int) {
	b := h.buckets[h.index(edgeMagnitude)]
	samples = b.wins + b.losses
	if samples == 0 {
		return 0, 0
	}
	return float64(b.wins) / float64(samples), samples
}

// Label returns a human-readable range label for the bucket containing the
// given edge magnitude, e.g. "3.0-3.9" or "6.0+".
func (h *History) Label(edgeMagnitude float64) string {
	i := h.index(edgeMagnitude)

	lo := 0.0
	if i > 0 {
		lo = h.bounds[i-1]
	}
	if i == len(h.bounds) {
		return fmt.Sprintf("%.1f+", lo)
	}
	return fmt.Sprintf("%.1f-%.1f", lo, h.bounds[i]-0.1)
}

func (h *History) index(edgeMagnitude float64) int {
	for i, upper := range h.bounds {
		if edgeMagnitude < upper {
			return i
		}
	}
	return len(h.bounds)
}
