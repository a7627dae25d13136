package domain

// FusionWeights is one per-entity-type weight profile for score fusion.
type FusionWeights struct {
	Semantic float64
	BM25     float64
	Vector   float64
	Business float64
}

// QueryPlan is the planner's normalization artifact for one query. It is
// created at most once per request, only when the query is long enough to
// benefit from LLM rewriting; absent otherwise, in which case callers use the
// raw query and the default weight profile.
type QueryPlan struct {
	NormalizedQuery string
	// Weights carries validated per-signal weight overrides from the
	// planner, or nil to keep the defaults.
	Weights *FusionWeights
}
