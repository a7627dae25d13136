// Package chi is the inbound HTTP surface. It parses and validates request
// parameters, hands them to the search core, and maps domain errors onto
// status codes. No search logic lives here.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/openlibra/searchd/internal/domain"
	logpkg "github.com/openlibra/searchd/internal/logger"
	searchuc "github.com/openlibra/searchd/internal/usecase/search"
)

// maxTopK and maxPageSize bound the per-request result count.
const (
	maxTopK     = 100
	maxPageSize = 100
)

// Server wires the search service into an HTTP API.
type Server struct {
	search *searchuc.Service
	logger *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(search *searchuc.Service, logger *zap.Logger) *Server {
	return &Server{search: search, logger: logger}
}

// Routes mounts all handlers on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/v1/search", s.handleSearch)
	r.Get("/v1/search/items", s.handleSearchItems)
	r.Get("/v1/search/authors", s.handleSearchAuthors)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r)
	if !ok {
		return
	}

	res, err := s.search.Search(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, combinedToJSON(res))
}

func (s *Server) handleSearchItems(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r)
	if !ok {
		return
	}

	res, err := s.search.SearchItems(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToJSON(res, "items"))
}

func (s *Server) handleSearchAuthors(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseParams(w, r)
	if !ok {
		return
	}

	res, err := s.search.SearchAuthors(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resultToJSON(res, "authors"))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseParams extracts and validates the inbound query parameters. Both
// page_index and page_size must be given together for pagination mode.
func (s *Server) parseParams(w http.ResponseWriter, r *http.Request) (searchuc.Params, bool) {
	q := r.URL.Query()

	params := searchuc.Params{
		Query: q.Get("query"),
		AppID: q.Get("app_id"),
		TopK:  searchuc.DefaultTopK,
	}
	if params.Query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return searchuc.Params{}, false
	}

	if raw := q.Get("top_k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k <= 0 {
			writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return searchuc.Params{}, false
		}
		if k > maxTopK {
			k = maxTopK
		}
		params.TopK = k
	}

	pageIndex, okIdx, err := optionalInt(q.Get("page_index"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page_index must be a non-negative integer")
		return searchuc.Params{}, false
	}
	pageSize, okSize, err := optionalInt(q.Get("page_size"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page_size must be a positive integer")
		return searchuc.Params{}, false
	}
	if okIdx != okSize {
		writeError(w, http.StatusBadRequest, "page_index and page_size must be provided together")
		return searchuc.Params{}, false
	}
	if okIdx {
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
		params.PageIndex = &pageIndex
		params.PageSize = &pageSize
	}

	return params, true
}

func optionalInt(raw string, minVal int) (int, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < minVal {
		return 0, false, errors.New("invalid integer parameter")
	}
	return v, true, nil
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	// request-scoped logger carries request_id when the middleware installed one
	log := logpkg.FromContext(r.Context(), s.logger)
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTextSearchFailed):
		log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search backend unavailable")
	default:
		log.Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- JSON shapes ---

type resultJSON struct {
	ID       string            `json:"id"`
	Document map[string]string `json:"document,omitempty"`
	Scores   scoresJSON        `json:"scores"`
}

type scoresJSON struct {
	BM25     float64 `json:"bm25"`
	Semantic float64 `json:"semantic"`
	Vector   float64 `json:"vector"`
	Business float64 `json:"business"`
	Final    float64 `json:"final"`
}

type paginationJSON struct {
	PageIndex    int  `json:"page_index"`
	PageSize     int  `json:"page_size"`
	TotalResults int  `json:"total_results"`
	TotalPages   int  `json:"total_pages"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

type searchResponseJSON struct {
	Results         []resultJSON    `json:"results"`
	NormalizedQuery string          `json:"normalized_query"`
	Pagination      *paginationJSON `json:"pagination,omitempty"`
	SearchType      string          `json:"search_type"`
}

type combinedResponseJSON struct {
	Item   searchResponseJSON `json:"item"`
	Author searchResponseJSON `json:"author"`
}

func resultToJSON(res domain.SearchResult, searchType string) searchResponseJSON {
	out := searchResponseJSON{
		Results:         make([]resultJSON, 0, len(res.Results)),
		NormalizedQuery: res.NormalizedQuery,
		SearchType:      searchType,
	}
	for _, c := range res.Results {
		out.Results = append(out.Results, resultJSON{
			ID:       c.ID,
			Document: c.Document,
			Scores: scoresJSON{
				BM25:     c.BM25,
				Semantic: c.Semantic,
				Vector:   c.Vector,
				Business: c.Business,
				Final:    c.Final,
			},
		})
	}
	if res.Pagination != nil {
		out.Pagination = &paginationJSON{
			PageIndex:    res.Pagination.PageIndex,
			PageSize:     res.Pagination.PageSize,
			TotalResults: res.Pagination.TotalResults,
			TotalPages:   res.Pagination.TotalPages,
			HasNext:      res.Pagination.HasNext,
			HasPrevious:  res.Pagination.HasPrevious,
		}
	}
	return out
}

func combinedToJSON(res domain.CombinedResult) combinedResponseJSON {
	return combinedResponseJSON{
		Item:   resultToJSON(res.Items, "items"),
		Author: resultToJSON(res.Authors, "authors"),
	}
}

type errorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}
