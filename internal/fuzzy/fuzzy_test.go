package fuzzy

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"John Smith", "john smith"},
		{"  JOHN   SMITH  ", "john smith"},
		{"jöhn smïth", "john smith"},
		{"O'Brien, Mary-Jane", "o brien mary jane"},
		{"Nguyễn Văn A", "nguyen van a"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("", ""); got != 1 {
		t.Errorf("Ratio of two empty strings = %g, want 1", got)
	}
	if got := Ratio("abc", ""); got != 0 {
		t.Errorf("Ratio against empty = %g, want 0", got)
	}
	if got := Ratio("john", "john"); got != 1 {
		t.Errorf("Ratio of identical strings = %g, want 1", got)
	}
	// lcs("john", "john smith") = 4 -> 2*4/14
	want := 2.0 * 4 / 14
	if got := Ratio("john", "john smith"); math.Abs(got-want) > 1e-12 {
		t.Errorf("Ratio = %g, want %g", got, want)
	}
	if got := Ratio("abc", "xyz"); got != 0 {
		t.Errorf("Ratio of disjoint strings = %g, want 0", got)
	}
}

func TestMatchNames_ExactMatchScoresOne(t *testing.T) {
	entities := []Entity{{ID: "1", Name: "John Smith"}}

	got := MatchNames("JOHN SMITH", entities, 10)
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	if got[0].Score != 1.0 {
		t.Errorf("exact match score = %g, want 1.0", got[0].Score)
	}
}

func TestMatchNames_DiacriticInvariance(t *testing.T) {
	entities := []Entity{{ID: "1", Name: "jöhn smïth"}}

	got := MatchNames("john smith", entities, 10)
	if len(got) != 1 || got[0].Score != 1.0 {
		t.Fatalf("diacritic variant did not score as exact: %v", got)
	}
}

func TestMatchNames_PartialNameRanksBelowExact(t *testing.T) {
	entities := []Entity{
		{ID: "partial", Name: "John Smithson"},
		{ID: "exact", Name: "John Smith"},
		{ID: "other", Name: "Zelda Brown"},
	}

	got := MatchNames("john smith", entities, 10)
	if len(got) < 2 {
		t.Fatalf("got %d matches, want at least 2", len(got))
	}
	if got[0].Entity.ID != "exact" {
		t.Errorf("top match = %s, want exact", got[0].Entity.ID)
	}
	if got[1].Entity.ID != "partial" {
		t.Errorf("second match = %s, want partial", got[1].Entity.ID)
	}
	for _, m := range got {
		if m.Entity.ID == "other" && m.Score > 0.5 {
			t.Errorf("unrelated name scored %g", m.Score)
		}
	}
}

func TestMatchNames_SingleTokenAgainstFullName(t *testing.T) {
	entities := []Entity{{ID: "1", Name: "John Smith"}}

	got := MatchNames("john", entities, 10)
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	// word coverage dominates: one query token, exact word hit
	want := 0.95
	if math.Abs(got[0].Score-want) > 1e-12 {
		t.Errorf("score = %g, want %g", got[0].Score, want)
	}
}

func TestMatchNames_Initials(t *testing.T) {
	entities := []Entity{{ID: "1", Name: "John Kennedy"}}

	got := MatchNames("j k", entities, 10)
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	want := 0.7 * 0.7
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("initials score = %g, want %g", got[0].Score, want)
	}
}

func TestMatchNames_DiscardsImplausible(t *testing.T) {
	// Single token, no runes in common with the query, so all five signals
	// are zero and the candidate falls under the discard floor.
	entities := []Entity{{ID: "1", Name: "Xqzvwy"}}

	got := MatchNames("john smith", entities, 10)
	if len(got) != 0 {
		t.Errorf("implausible candidate survived with score %g", got[0].Score)
	}
}

func TestMatchNames_KeepsFaintOverlap(t *testing.T) {
	// "Xqz Vwy" shares only the space with "john smith": LCS ratio 2/17,
	// full-similarity signal 0.9*2/17 ~ 0.106, above the 0.05 floor.
	entities := []Entity{{ID: "1", Name: "Xqz Vwy"}}

	got := MatchNames("john smith", entities, 10)
	if len(got) != 1 {
		t.Fatalf("got %d matches, want 1", len(got))
	}
	want := 0.9 * 2.0 / 17.0
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("score = %g, want %g", got[0].Score, want)
	}
}

func TestMatchNames_TopK(t *testing.T) {
	entities := []Entity{
		{ID: "1", Name: "John Smith"},
		{ID: "2", Name: "John Smythe"},
		{ID: "3", Name: "John Smithson"},
	}

	got := MatchNames("john smith", entities, 2)
	if len(got) != 2 {
		t.Errorf("got %d matches, want 2", len(got))
	}
}

func TestMatchNames_EmptyInputs(t *testing.T) {
	if got := MatchNames("john", nil, 5); got != nil {
		t.Errorf("expected nil for empty entities, got %v", got)
	}
	if got := MatchNames("john", []Entity{{ID: "1", Name: "John"}}, 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
	got := MatchNames("john", []Entity{{ID: "1", Name: ""}}, 5)
	if len(got) != 0 {
		t.Errorf("nameless entity matched: %v", got)
	}
}
