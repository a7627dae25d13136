package domain

// Pagination describes the window of one paginated response. TotalResults and
// TotalPages are computed over the full thresholded result set, so they stay
// identical for every page of the same query and filter configuration.
type Pagination struct {
	PageIndex    int
	PageSize     int
	TotalResults int
	TotalPages   int
	HasNext      bool
	HasPrevious  bool
}

// SearchResult is the response envelope for one entity type. Pagination is
// nil in top-k mode.
type SearchResult struct {
	Results         []Candidate
	NormalizedQuery string
	Pagination      *Pagination
}

// CombinedResult holds the item and author result sets of a general search.
type CombinedResult struct {
	Items   SearchResult
	Authors SearchResult
}
