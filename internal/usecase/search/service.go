// Package search is the search orchestration core: query planning hook,
// parallel retrieval coordination, score fusion, threshold filtering, and
// pagination windowing over the two-source result set.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openlibra/searchd/internal/domain"
	"github.com/openlibra/searchd/internal/fuzzy"
	"github.com/openlibra/searchd/internal/index"
	"github.com/openlibra/searchd/internal/metrics"
	"github.com/openlibra/searchd/internal/scoring"
)

// DefaultTopK is the result count when the caller does not specify one.
const DefaultTopK = 10

// authorScanLimit bounds the author candidate set fetched for the fuzzy
// pass.
const authorScanLimit = 10000

// Params are the parsed inbound search parameters. The transport layer owns
// parsing and validation; the core's job begins here.
type Params struct {
	Query     string
	TopK      int
	PageIndex *int
	PageSize  *int
	AppID     string
}

func (p *Params) paginated() bool {
	return p.PageIndex != nil && p.PageSize != nil && *p.PageSize > 0 && *p.PageIndex >= 0
}

func (p *Params) topK() int {
	if p.TopK <= 0 {
		return DefaultTopK
	}
	return p.TopK
}

// Config carries the fusion and filtering settings of one service instance.
type Config struct {
	ItemWeights    domain.FusionWeights
	AuthorWeights  domain.FusionWeights
	ScoreThreshold float64
}

// DefaultConfig returns the stock weight profiles and threshold.
func DefaultConfig() Config {
	return Config{
		ItemWeights:    scoring.DefaultItemWeights(),
		AuthorWeights:  scoring.DefaultAuthorWeights(),
		ScoreThreshold: scoring.DefaultScoreThreshold,
	}
}

// Service is the search façade. It is stateless per request: the call
// sequence is plan, retrieve or fuzzy-match, fuse, threshold, paginate.
// Errors at any stage surface as a single error outcome; partial results are
// never returned as success.
type Service struct {
	coord   *Coordinator
	idx     Index
	planner Planner
	cfg     Config
	logger  *zap.Logger
}

// New creates the search service.
func New(coord *Coordinator, idx Index, planner Planner, cfg Config, logger *zap.Logger) *Service {
	return &Service{coord: coord, idx: idx, planner: planner, cfg: cfg, logger: logger}
}

// Search runs the item and author searches for one query and returns both
// result sets. Either failing fails the whole call.
func (s *Service) Search(ctx context.Context, p Params) (domain.CombinedResult, error) {
	if p.Query == "" {
		return domain.CombinedResult{}, domain.ErrEmptyQuery
	}

	plan := s.planner.Plan(ctx, p.Query)

	items, err := s.searchItemsPlanned(ctx, p, plan)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("combined", "error").Inc()
		return domain.CombinedResult{}, fmt.Errorf("items search: %w", err)
	}
	authors, err := s.searchAuthorsPlanned(ctx, p, plan)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("combined", "error").Inc()
		return domain.CombinedResult{}, fmt.Errorf("authors search: %w", err)
	}

	metrics.SearchRequestsTotal.WithLabelValues("combined", "success").Inc()
	return domain.CombinedResult{Items: items, Authors: authors}, nil
}

// SearchItems searches content items.
func (s *Service) SearchItems(ctx context.Context, p Params) (domain.SearchResult, error) {
	if p.Query == "" {
		return domain.SearchResult{}, domain.ErrEmptyQuery
	}

	res, err := s.searchItemsPlanned(ctx, p, s.planner.Plan(ctx, p.Query))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("items", "error").Inc()
		return domain.SearchResult{}, err
	}
	metrics.SearchRequestsTotal.WithLabelValues("items", "success").Inc()
	return res, nil
}

// SearchAuthors searches authors via the fuzzy name pass.
func (s *Service) SearchAuthors(ctx context.Context, p Params) (domain.SearchResult, error) {
	if p.Query == "" {
		return domain.SearchResult{}, domain.ErrEmptyQuery
	}

	res, err := s.searchAuthorsPlanned(ctx, p, s.planner.Plan(ctx, p.Query))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("authors", "error").Inc()
		return domain.SearchResult{}, err
	}
	metrics.SearchRequestsTotal.WithLabelValues("authors", "success").Inc()
	return res, nil
}

func (s *Service) searchItemsPlanned(ctx context.Context, p Params, plan *domain.QueryPlan) (domain.SearchResult, error) {
	normalized, weights := s.resolvePlan(plan, p.Query, s.cfg.ItemWeights)

	k := p.topK()
	searchK := k
	if p.paginated() {
		searchK = supersetSize(k, itemSearchFloor)
	}

	candidates, err := s.coord.RetrieveItems(ctx, normalized, p.AppID, searchK)
	if err != nil {
		return domain.SearchResult{}, err
	}

	flat := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		flat = append(flat, *c)
	}

	fused := scoring.Fuse(flat, weights)
	fused = scoring.ApplyThreshold(fused, s.cfg.ScoreThreshold)

	s.logger.Debug("items search fused",
		zap.String("query", normalized),
		zap.Int("candidates", len(flat)),
		zap.Int("after_threshold", len(fused)),
	)

	if p.paginated() {
		return window(fused, normalized, *p.PageIndex, *p.PageSize), nil
	}
	return topK(fused, normalized, k), nil
}

// searchAuthorsPlanned fetches the full author candidate set and replaces
// backend relevance with the composite fuzzy name score, carried in the BM25
// signal slot.
func (s *Service) searchAuthorsPlanned(ctx context.Context, p Params, plan *domain.QueryPlan) (domain.SearchResult, error) {
	normalized, weights := s.resolvePlan(plan, p.Query, s.cfg.AuthorWeights)

	k := p.topK()
	searchK := k
	if p.paginated() {
		searchK = supersetSize(k, authorSearchFloor)
	}

	hits, err := s.idx.SearchText(ctx, index.LogicalAuthors, domain.TextQuery{
		Query:  "*",
		AppID:  p.AppID,
		Top:    authorScanLimit,
		Fields: []string{"full_name", "app_id"},
	})
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("list authors: %w", err)
	}

	entities := make([]fuzzy.Entity, 0, len(hits))
	for _, h := range hits {
		entities = append(entities, fuzzy.Entity{
			ID:   h.ID,
			Name: h.Fields["full_name"],
			Doc:  h.Fields,
		})
	}

	matches := fuzzy.MatchNames(normalized, entities, searchK)

	candidates := make([]domain.Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, domain.Candidate{
			ID:       m.Entity.ID,
			Document: m.Entity.Doc,
			BM25:     m.Score,
		})
	}

	fused := scoring.Fuse(candidates, weights)
	fused = scoring.ApplyThreshold(fused, s.cfg.ScoreThreshold)

	s.logger.Debug("authors search fused",
		zap.String("query", normalized),
		zap.Int("candidates", len(entities)),
		zap.Int("after_threshold", len(fused)),
	)

	if p.paginated() {
		return window(fused, normalized, *p.PageIndex, *p.PageSize), nil
	}
	return topK(fused, normalized, k), nil
}

// resolvePlan applies the plan's rewrite and weight overrides, or the raw
// query and defaults when no plan exists.
func (s *Service) resolvePlan(plan *domain.QueryPlan, rawQuery string, defaults domain.FusionWeights) (string, domain.FusionWeights) {
	if plan == nil {
		return rawQuery, defaults
	}
	weights := defaults
	if plan.Weights != nil {
		weights = *plan.Weights
	}
	return plan.NormalizedQuery, weights
}
