package planner

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/openlibra/searchd/internal/domain"
)

type fakeChat struct {
	response string
	err      error
	calls    int
}

func (f *fakeChat) Chat(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestPlan_SkipsShortQueries(t *testing.T) {
	chat := &fakeChat{response: `{"normalized_query": "x"}`}
	p := New(chat, zap.NewNop())

	if got := p.Plan(context.Background(), "short query"); got != nil {
		t.Errorf("expected nil plan for short query, got %+v", got)
	}
	if chat.calls != 0 {
		t.Errorf("provider called %d times for short query", chat.calls)
	}
}

func TestPlan_NilClient(t *testing.T) {
	p := New(nil, zap.NewNop())
	if got := p.Plan(context.Background(), "one two three four five six"); got != nil {
		t.Errorf("expected nil plan with nil client, got %+v", got)
	}
}

func TestPlan_ProviderErrorFallsBack(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	p := New(chat, zap.NewNop())

	if got := p.Plan(context.Background(), "one two three four five six"); got != nil {
		t.Errorf("expected nil plan on provider error, got %+v", got)
	}
}

func TestPlan_MalformedResponseFallsBack(t *testing.T) {
	for _, resp := range []string{
		"no json here at all",
		`{"normalized_query": ""}`,
		`{broken`,
	} {
		chat := &fakeChat{response: resp}
		p := New(chat, zap.NewNop())

		if got := p.Plan(context.Background(), "one two three four five six"); got != nil {
			t.Errorf("response %q: expected nil plan, got %+v", resp, got)
		}
	}
}

func TestPlan_ParsesFencedJSON(t *testing.T) {
	chat := &fakeChat{response: "Here is the plan:\n```json\n" +
		`{"normalized_query": "solar panel efficiency"}` + "\n```"}
	p := New(chat, zap.NewNop())

	got := p.Plan(context.Background(), "how can I improve my solar panel efficiency")
	if got == nil {
		t.Fatal("expected a plan")
	}
	if got.NormalizedQuery != "solar panel efficiency" {
		t.Errorf("NormalizedQuery = %q", got.NormalizedQuery)
	}
	if got.Weights != nil {
		t.Errorf("expected no weight overrides, got %+v", got.Weights)
	}
}

func TestPlan_WeightOverrides(t *testing.T) {
	chat := &fakeChat{response: `{
		"normalized_query": "q",
		"search_parameters": {
			"semantic_weight": 0.5, "bm25_weight": 0.2,
			"vector_weight": 0.2, "business_weight": 0.1
		}
	}`}
	p := New(chat, zap.NewNop())

	got := p.Plan(context.Background(), "one two three four five six")
	if got == nil || got.Weights == nil {
		t.Fatalf("expected plan with weights, got %+v", got)
	}
	want := domain.FusionWeights{Semantic: 0.5, BM25: 0.2, Vector: 0.2, Business: 0.1}
	if *got.Weights != want {
		t.Errorf("Weights = %+v, want %+v", *got.Weights, want)
	}
}

func TestPlan_RejectsInvalidWeights(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"missing key", `{"semantic_weight": 0.5, "bm25_weight": 0.2, "vector_weight": 0.2}`},
		{"out of range", `{"semantic_weight": 1.5, "bm25_weight": 0.2, "vector_weight": 0.2, "business_weight": 0.1}`},
		{"negative", `{"semantic_weight": -0.1, "bm25_weight": 0.2, "vector_weight": 0.2, "business_weight": 0.1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{response: `{"normalized_query": "q", "search_parameters": ` + tt.params + `}`}
			p := New(chat, zap.NewNop())

			got := p.Plan(context.Background(), "one two three four five six")
			if got == nil {
				t.Fatal("expected a plan with defaults")
			}
			if got.Weights != nil {
				t.Errorf("invalid overrides accepted: %+v", got.Weights)
			}
		})
	}
}

func TestPlan_CustomMinTokens(t *testing.T) {
	chat := &fakeChat{response: `{"normalized_query": "q"}`}
	p := New(chat, zap.NewNop()).WithMinTokens(2)

	if got := p.Plan(context.Background(), "two words"); got == nil {
		t.Error("expected planning at the lowered trigger")
	}
}
