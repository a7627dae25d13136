// Package planner rewrites long free-text queries through an LLM before
// retrieval. Planning is strictly best-effort: any provider error, timeout,
// or malformed response falls back to the unplanned path, never failing the
// request.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openlibra/searchd/internal/domain"
)

// DefaultMinTokens is the query length, in whitespace tokens, below which
// planning is skipped: short queries gain nothing from rewriting.
const DefaultMinTokens = 5

// DefaultTimeout bounds one planning call.
const DefaultTimeout = 5 * time.Second

// ChatClient produces a completion for a system/user prompt pair.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Planner turns raw queries into QueryPlans via a chat provider.
type Planner struct {
	chat      ChatClient
	minTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a planner. A nil chat client yields a planner that always
// declines to plan.
func New(chat ChatClient, logger *zap.Logger) *Planner {
	return &Planner{
		chat:      chat,
		minTokens: DefaultMinTokens,
		timeout:   DefaultTimeout,
		logger:    logger,
	}
}

// WithMinTokens overrides the planning trigger length.
func (p *Planner) WithMinTokens(n int) *Planner {
	if n > 0 {
		p.minTokens = n
	}
	return p
}

// WithTimeout overrides the per-call timeout.
func (p *Planner) WithTimeout(d time.Duration) *Planner {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// Plan rewrites the query when it is long enough and a provider is
// available. Returns nil whenever the unplanned path should be used; callers
// must treat nil as "raw query, default weights".
func (p *Planner) Plan(ctx context.Context, query string) *domain.QueryPlan {
	if p == nil || p.chat == nil {
		return nil
	}
	if len(strings.Fields(query)) < p.minTokens {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.chat.Chat(ctx, systemPrompt, fmt.Sprintf(userPromptFormat, query))
	if err != nil {
		p.logger.Warn("query planning failed, using raw query", zap.Error(err))
		return nil
	}

	plan, err := parsePlan(raw)
	if err != nil {
		p.logger.Warn("discarding malformed query plan",
			zap.Error(err), zap.String("response", truncate(raw, 200)))
		return nil
	}

	p.logger.Debug("query planned",
		zap.String("query", query), zap.String("normalized", plan.NormalizedQuery))
	return plan
}

// planWire is the loose JSON shape the model emits. It is validated into a
// strictly typed QueryPlan; anything invalid triggers the documented
// fallback instead of leaking a dynamic object into the core.
type planWire struct {
	NormalizedQuery  string             `json:"normalized_query"`
	SearchParameters map[string]float64 `json:"search_parameters"`
}

func parsePlan(raw string) (*domain.QueryPlan, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedPlan)
	}

	var wire planWire
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPlan, err)
	}
	if strings.TrimSpace(wire.NormalizedQuery) == "" {
		return nil, fmt.Errorf("%w: empty normalized_query", domain.ErrMalformedPlan)
	}

	return &domain.QueryPlan{
		NormalizedQuery: strings.TrimSpace(wire.NormalizedQuery),
		Weights:         weightOverrides(wire.SearchParameters),
	}, nil
}

// weightOverrides builds a validated weight profile from the plan's
// search_parameters. All four weights must be present and within [0,1];
// otherwise the overrides are dropped and defaults apply.
func weightOverrides(params map[string]float64) *domain.FusionWeights {
	if len(params) == 0 {
		return nil
	}
	keys := []string{"semantic_weight", "bm25_weight", "vector_weight", "business_weight"}
	vals := make([]float64, len(keys))
	for i, k := range keys {
		v, ok := params[k]
		if !ok || v < 0 || v > 1 {
			return nil
		}
		vals[i] = v
	}
	return &domain.FusionWeights{
		Semantic: vals[0], BM25: vals[1], Vector: vals[2], Business: vals[3],
	}
}

// extractJSON pulls the outermost JSON object out of a completion that may
// be wrapped in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
