package search

import (
	"context"

	"github.com/openlibra/searchd/internal/domain"
)

// Index is the managed search backend consumed by the coordinator. Its
// ranking internals are opaque; only raw scores cross this boundary.
type Index interface {
	// SearchText runs the keyword/semantic text search. A semantic request
	// against a backend without the capability returns an error wrapping
	// domain.ErrSemanticNotSupported.
	SearchText(ctx context.Context, logical string, q domain.TextQuery) ([]domain.Hit, error)

	// SearchVector runs a nearest-neighbor search against a query embedding.
	SearchVector(ctx context.Context, logical string, q domain.VectorQuery) ([]domain.Hit, error)

	// FetchByIDs batch-retrieves full document payloads for an id set.
	FetchByIDs(ctx context.Context, logical string, ids []string, appID string) (map[string]map[string]string, error)
}

// Embedder vectorizes texts, one vector per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Planner optionally rewrites a query. A nil plan means "use the raw query
// and default weights"; planners never fail a request.
type Planner interface {
	Plan(ctx context.Context, query string) *domain.QueryPlan
}
