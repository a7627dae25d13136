package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/openlibra/searchd/internal/domain"
	"github.com/openlibra/searchd/internal/index"
	"github.com/openlibra/searchd/internal/metrics"
	"github.com/openlibra/searchd/internal/scoring"
)

// DefaultPoolSize is the worker pool size used for the retrieval branches of
// one item query.
const DefaultPoolSize = 4

// Default per-branch network timeouts.
const (
	DefaultTextTimeout   = 10 * time.Second
	DefaultVectorTimeout = 10 * time.Second
)

// itemSelectFields is the payload requested from the text branch.
var itemSelectFields = []string{"title", "abstract", "updated_at", "app_id"}

// Coordinator runs the text and vector retrieval branches of an item query
// concurrently and merges them into one candidate map keyed by document id.
// The merge is commutative, so candidate state does not depend on branch
// completion order. Vector-branch failures degrade to text-only results; a
// text-branch failure fails the search.
type Coordinator struct {
	index Index
	embed Embedder
	pool  *ants.Pool
	fresh *scoring.FreshnessScorer

	// semanticDisabled is the one piece of process-wide mutable state: once
	// the backend rejects a semantic query the downgrade is permanent for
	// the process lifetime (monotonic, never re-enabled), avoiding repeated
	// failed capability probes.
	semanticDisabled atomic.Bool

	textTimeout   time.Duration
	vectorTimeout time.Duration
	logger        *zap.Logger
}

// NewCoordinator creates a retrieval coordinator with its own fixed-size
// worker pool.
func NewCoordinator(idx Index, embed Embedder, fresh *scoring.FreshnessScorer, poolSize int, logger *zap.Logger) (*Coordinator, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Coordinator{
		index:         idx,
		embed:         embed,
		pool:          pool,
		fresh:         fresh,
		textTimeout:   DefaultTextTimeout,
		vectorTimeout: DefaultVectorTimeout,
		logger:        logger,
	}, nil
}

// WithTimeouts overrides the per-branch timeouts.
func (c *Coordinator) WithTimeouts(text, vector time.Duration) *Coordinator {
	if text > 0 {
		c.textTimeout = text
	}
	if vector > 0 {
		c.vectorTimeout = vector
	}
	return c
}

// Release shuts down the worker pool.
func (c *Coordinator) Release() {
	c.pool.Release()
}

// SemanticEnabled reports whether semantic text queries are still attempted.
func (c *Coordinator) SemanticEnabled() bool {
	return !c.semanticDisabled.Load()
}

// RetrieveItems runs both branches for one query and returns the merged
// candidate map. Candidates that surfaced only through the vector branch are
// batch-filled with their document payloads in a single fetch.
func (c *Coordinator) RetrieveItems(ctx context.Context, query, appID string, searchK int) (map[string]*domain.Candidate, error) {
	var (
		wg       sync.WaitGroup
		textHits []domain.Hit
		textErr  error
		vecHits  []domain.Hit
		vecErr   error
	)

	wg.Add(2)
	c.submit(func() {
		defer wg.Done()
		textHits, textErr = c.runTextBranch(ctx, query, appID, searchK)
	})
	c.submit(func() {
		defer wg.Done()
		vecHits, vecErr = c.runVectorBranch(ctx, query, appID, searchK)
	})
	wg.Wait()

	// Text relevance is mandatory; vector is supplementary.
	if textErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTextSearchFailed, textErr)
	}
	if vecErr != nil {
		var branchErr *domain.BranchError
		if errors.As(vecErr, &branchErr) {
			c.logger.Warn("vector branch degraded, continuing with text results",
				zap.String("branch", branchErr.Branch), zap.Error(branchErr.Err))
		} else {
			c.logger.Warn("vector branch degraded, continuing with text results", zap.Error(vecErr))
		}
		vecHits = nil
	}

	candidates := make(map[string]*domain.Candidate, len(textHits)+len(vecHits))
	for _, h := range textHits {
		c.mergeHit(candidates, domain.Candidate{
			ID:       h.ID,
			Document: h.Fields,
			BM25:     h.Score,
			Semantic: h.Rerank,
			Business: c.fresh.Score(h.Fields["updated_at"]),
		})
	}
	for _, h := range vecHits {
		if h.ID == "" {
			continue
		}
		c.mergeHit(candidates, domain.Candidate{ID: h.ID, Vector: h.Score})
	}

	if err := c.fillMissingDocuments(ctx, candidates, appID); err != nil {
		// Payload fill is best-effort; ranking signals are already merged.
		c.logger.Warn("batch document fetch failed", zap.Error(err))
	}

	return candidates, nil
}

// submit schedules f on the worker pool, falling back to inline execution if
// the pool rejects it.
func (c *Coordinator) submit(f func()) {
	if err := c.pool.Submit(f); err != nil {
		f()
	}
}

func (c *Coordinator) mergeHit(candidates map[string]*domain.Candidate, incoming domain.Candidate) {
	if existing, ok := candidates[incoming.ID]; ok {
		existing.MergeSignals(incoming)
		return
	}
	candidates[incoming.ID] = &incoming
}

// runTextBranch issues the keyword/semantic text search. A runtime
// capability rejection downgrades the process permanently to keyword-only
// and retries once.
func (c *Coordinator) runTextBranch(ctx context.Context, query, appID string, searchK int) ([]domain.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, c.textTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.SearchBranchDuration.WithLabelValues(domain.BranchText).Observe(time.Since(start).Seconds())
	}()

	q := domain.TextQuery{
		Query:    query,
		Semantic: !c.semanticDisabled.Load(),
		AppID:    appID,
		Top:      searchK + searchK/10,
		Fields:   itemSelectFields,
	}

	hits, err := c.index.SearchText(ctx, index.LogicalItems, q)
	if err != nil && q.Semantic && errors.Is(err, domain.ErrSemanticNotSupported) {
		c.semanticDisabled.Store(true)
		metrics.SemanticDowngradesTotal.Inc()
		c.logger.Warn("semantic queries rejected by backend, downgrading to keyword-only")

		q.Semantic = false
		hits, err = c.index.SearchText(ctx, index.LogicalItems, q)
	}
	if err != nil {
		metrics.SearchBranchFailuresTotal.WithLabelValues(domain.BranchText, "backend").Inc()
		return nil, domain.NewBranchError(domain.BranchText, err)
	}
	return hits, nil
}

// runVectorBranch embeds the query and runs the nearest-neighbor search.
func (c *Coordinator) runVectorBranch(ctx context.Context, query, appID string, searchK int) ([]domain.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, c.vectorTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.SearchBranchDuration.WithLabelValues(domain.BranchVector).Observe(time.Since(start).Seconds())
	}()

	vectors, err := c.embed.Embed(ctx, []string{query})
	if err != nil {
		metrics.SearchBranchFailuresTotal.WithLabelValues(domain.BranchVector, "embedding").Inc()
		return nil, domain.NewBranchError(domain.BranchVector, err)
	}
	if len(vectors) == 0 {
		metrics.SearchBranchFailuresTotal.WithLabelValues(domain.BranchVector, "embedding").Inc()
		return nil, domain.NewBranchError(domain.BranchVector, domain.ErrEmbeddingProviderError)
	}

	hits, err := c.index.SearchVector(ctx, index.LogicalItems, domain.VectorQuery{
		Vector: vectors[0],
		Field:  "abstract_vector",
		AppID:  appID,
		Top:    searchK + searchK/5,
	})
	if err != nil {
		metrics.SearchBranchFailuresTotal.WithLabelValues(domain.BranchVector, "backend").Inc()
		return nil, domain.NewBranchError(domain.BranchVector, err)
	}
	return hits, nil
}

// fillMissingDocuments batch-fetches payloads for candidates that appeared
// only via the vector branch, in one call instead of one per id.
func (c *Coordinator) fillMissingDocuments(ctx context.Context, candidates map[string]*domain.Candidate, appID string) error {
	var missing []string
	for id, cand := range candidates {
		if !cand.HasDocument() {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	docs, err := c.index.FetchByIDs(ctx, index.LogicalItems, missing, appID)
	if err != nil {
		return err
	}
	for _, id := range missing {
		doc, ok := docs[id]
		if !ok {
			continue
		}
		candidates[id].Document = doc
		candidates[id].Business = c.fresh.Score(doc["updated_at"])
	}
	return nil
}
