// Package scoring holds the pure ranking math: the business freshness decay
// and the multi-signal score fusion. Nothing here performs I/O.
package scoring

import (
	"math"
	"time"
)

// DefaultHalflifeDays is the freshness half-life applied when none is configured.
const DefaultHalflifeDays = 30

// timestampLayouts are the accepted document timestamp formats.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FreshnessScorer maps a document timestamp to a decayed recency score.
type FreshnessScorer struct {
	halflifeDays float64
	now          func() time.Time
}

// NewFreshnessScorer creates a scorer with the given half-life in days.
// Non-positive half-lives fall back to the default.
func NewFreshnessScorer(halflifeDays int) *FreshnessScorer {
	if halflifeDays <= 0 {
		halflifeDays = DefaultHalflifeDays
	}
	return &FreshnessScorer{halflifeDays: float64(halflifeDays), now: time.Now}
}

// WithNow overrides the clock. Test hook.
func (f *FreshnessScorer) WithNow(now func() time.Time) *FreshnessScorer {
	f.now = now
	return f
}

// Score returns the freshness of a document updated at the given timestamp,
// in [0,1]: 1.0 at age zero, 0.5 at one half-life, decaying exponentially.
// Empty or unparseable timestamps score 0.
func (f *FreshnessScorer) Score(updatedAt string) float64 {
	if updatedAt == "" {
		return 0
	}
	ts, ok := parseTimestamp(updatedAt)
	if !ok {
		return 0
	}
	ageDays := f.now().Sub(ts).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	score := math.Pow(0.5, ageDays/f.halflifeDays)
	return math.Min(1, math.Max(0, score))
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
