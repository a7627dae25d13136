package search

import (
	"fmt"
	"testing"

	"github.com/openlibra/searchd/internal/domain"
)

func makeResults(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.Candidate{ID: fmt.Sprintf("doc-%03d", i)}
	}
	return out
}

func TestSupersetSize(t *testing.T) {
	if got := supersetSize(10, itemSearchFloor); got != itemSearchFloor {
		t.Errorf("supersetSize(10) = %d, want floor %d", got, itemSearchFloor)
	}
	if got := supersetSize(100, itemSearchFloor); got != 400 {
		t.Errorf("supersetSize(100) = %d, want 400", got)
	}
	if got := supersetSize(10, authorSearchFloor); got != authorSearchFloor {
		t.Errorf("supersetSize(10) = %d, want author floor %d", got, authorSearchFloor)
	}
}

func TestWindow_PartitionIsExact(t *testing.T) {
	results := makeResults(25)
	pageSize := 10

	var seen []string
	for page := 0; ; page++ {
		res := window(results, "q", page, pageSize)
		for _, c := range res.Results {
			seen = append(seen, c.ID)
		}
		if !res.Pagination.HasNext {
			break
		}
	}

	if len(seen) != len(results) {
		t.Fatalf("pages covered %d results, want %d", len(seen), len(results))
	}
	for i, id := range seen {
		if id != results[i].ID {
			t.Fatalf("page concatenation out of order at %d: %s != %s", i, id, results[i].ID)
		}
	}
}

func TestWindow_Envelope(t *testing.T) {
	results := makeResults(25)

	res := window(results, "q", 1, 10)
	p := res.Pagination
	if p == nil {
		t.Fatal("expected pagination envelope")
	}
	if p.TotalResults != 25 || p.TotalPages != 3 {
		t.Errorf("totals = %d/%d, want 25/3", p.TotalResults, p.TotalPages)
	}
	if !p.HasNext || !p.HasPrevious {
		t.Errorf("HasNext=%v HasPrevious=%v, want true/true", p.HasNext, p.HasPrevious)
	}
	if len(res.Results) != 10 || res.Results[0].ID != "doc-010" {
		t.Errorf("unexpected page content: %d results starting %s", len(res.Results), res.Results[0].ID)
	}
}

func TestWindow_LastPartialPage(t *testing.T) {
	results := makeResults(25)

	res := window(results, "q", 2, 10)
	if len(res.Results) != 5 {
		t.Errorf("last page has %d results, want 5", len(res.Results))
	}
	if res.Pagination.HasNext {
		t.Error("last page reports HasNext")
	}
	if !res.Pagination.HasPrevious {
		t.Error("last page misses HasPrevious")
	}
}

func TestWindow_BeyondEnd(t *testing.T) {
	results := makeResults(5)

	res := window(results, "q", 7, 10)
	if len(res.Results) != 0 {
		t.Errorf("page beyond end returned %d results", len(res.Results))
	}
	if res.Pagination.HasNext {
		t.Error("page beyond end reports HasNext")
	}
	if res.Pagination.TotalResults != 5 {
		t.Errorf("TotalResults = %d, want 5", res.Pagination.TotalResults)
	}
}

func TestWindow_EmptyResults(t *testing.T) {
	res := window(nil, "q", 0, 10)
	if len(res.Results) != 0 {
		t.Errorf("expected empty page")
	}
	p := res.Pagination
	if p.TotalResults != 0 || p.TotalPages != 0 || p.HasNext || p.HasPrevious {
		t.Errorf("unexpected envelope for empty results: %+v", p)
	}
}

func TestTopK(t *testing.T) {
	results := makeResults(25)

	res := topK(results, "q", 10)
	if len(res.Results) != 10 {
		t.Errorf("topK returned %d results, want 10", len(res.Results))
	}
	if res.Pagination != nil {
		t.Error("topK carries a pagination envelope")
	}

	short := topK(makeResults(3), "q", 10)
	if len(short.Results) != 3 {
		t.Errorf("topK over short list returned %d results", len(short.Results))
	}
}
