package search

import (
	"github.com/openlibra/searchd/internal/domain"
)

// Superset floors: the retrieval size is fixed per entity type and
// independent of the requested page, so total counts stay stable across
// pages of the same query.
const (
	itemSearchFloor   = 200
	authorSearchFloor = 100
)

// supersetSize is the number of results fetched for a paginated request:
// max(k*4, floor), large enough that every typical page comes from one
// superset fetch.
func supersetSize(k, floor int) int {
	if s := k * 4; s > floor {
		return s
	}
	return floor
}

// window slices one page out of the fused, thresholded result list and
// computes the pagination envelope over the full list.
func window(results []domain.Candidate, normalizedQuery string, pageIndex, pageSize int) domain.SearchResult {
	total := len(results)

	start := pageIndex * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return domain.SearchResult{
		Results:         results[start:end],
		NormalizedQuery: normalizedQuery,
		Pagination: &domain.Pagination{
			PageIndex:    pageIndex,
			PageSize:     pageSize,
			TotalResults: total,
			TotalPages:   (total + pageSize - 1) / pageSize,
			HasNext:      pageIndex*pageSize+pageSize < total,
			HasPrevious:  pageIndex > 0,
		},
	}
}

// topK returns the first k results with no pagination envelope.
func topK(results []domain.Candidate, normalizedQuery string, k int) domain.SearchResult {
	if len(results) > k {
		results = results[:k]
	}
	return domain.SearchResult{
		Results:         results,
		NormalizedQuery: normalizedQuery,
	}
}
