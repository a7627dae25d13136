package scoring

import (
	"math"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFreshness_AgeZero(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := NewFreshnessScorer(30).WithNow(fixedClock(now))

	got := f.Score(now.Format(time.RFC3339))
	if got != 1.0 {
		t.Errorf("expected score 1.0 at age zero, got %g", got)
	}
}

func TestFreshness_HalfAtHalflife(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFreshnessScorer(30).WithNow(fixedClock(now))

	got := f.Score(now.AddDate(0, 0, -30).Format(time.RFC3339))
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected score 0.5 at one half-life, got %g", got)
	}
}

func TestFreshness_Monotone(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFreshnessScorer(30).WithNow(fixedClock(now))

	prev := math.Inf(1)
	for _, days := range []int{0, 1, 7, 30, 90, 365} {
		got := f.Score(now.AddDate(0, 0, -days).Format(time.RFC3339))
		if got > prev {
			t.Errorf("score increased with age at %d days: %g > %g", days, got, prev)
		}
		if got < 0 || got > 1 {
			t.Errorf("score out of range at %d days: %g", days, got)
		}
		prev = got
	}
}

func TestFreshness_FutureTimestampClamped(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFreshnessScorer(30).WithNow(fixedClock(now))

	got := f.Score(now.AddDate(0, 0, 7).Format(time.RFC3339))
	if got != 1.0 {
		t.Errorf("expected future timestamp clamped to 1.0, got %g", got)
	}
}

func TestFreshness_MissingOrMalformed(t *testing.T) {
	f := NewFreshnessScorer(30)

	for _, raw := range []string{"", "not-a-date", "2025-13-45"} {
		if got := f.Score(raw); got != 0 {
			t.Errorf("Score(%q) = %g, want 0", raw, got)
		}
	}
}

func TestFreshness_AcceptedLayouts(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewFreshnessScorer(30).WithNow(fixedClock(now))

	for _, raw := range []string{
		"2025-05-31T00:00:00Z",
		"2025-05-31T00:00:00.123456Z",
		"2025-05-31 00:00:00",
		"2025-05-31",
	} {
		if got := f.Score(raw); got <= 0 {
			t.Errorf("Score(%q) = %g, want > 0", raw, got)
		}
	}
}
