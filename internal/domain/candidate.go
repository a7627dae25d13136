package domain

// Candidate is one document considered for ranking in a single query.
// It is created when the document first appears from either retrieval branch
// and mutated in place when the other branch returns the same id. Candidates
// are request-scoped and never outlive the request.
type Candidate struct {
	ID       string
	Document map[string]string // backend fields; nil until batch-filled

	// Independent relevance signals. Zero when a source did not produce
	// the candidate.
	BM25     float64
	Semantic float64
	Vector   float64
	Business float64

	// Final is set by fusion; zero until Fuse runs.
	Final float64
}

// MergeSignals folds the signals of other into c. Each signal keeps its
// maximum so the merge is commutative and a later branch never overwrites an
// existing signal with zero. The document payload is adopted when c has none.
func (c *Candidate) MergeSignals(other Candidate) {
	c.BM25 = max(c.BM25, other.BM25)
	c.Semantic = max(c.Semantic, other.Semantic)
	c.Vector = max(c.Vector, other.Vector)
	c.Business = max(c.Business, other.Business)
	if len(c.Document) == 0 && len(other.Document) > 0 {
		c.Document = other.Document
	}
}

// HasDocument reports whether the candidate carries a full payload.
func (c *Candidate) HasDocument() bool { return len(c.Document) > 0 }

// Hit is one scored row returned by the search backend.
type Hit struct {
	ID     string
	Score  float64 // raw backend relevance (BM25 or vector similarity)
	Rerank float64 // semantic rerank score; zero when not requested or unsupported
	Fields map[string]string
}

// TextQuery describes a keyword/semantic text search against one index.
type TextQuery struct {
	Query    string
	Semantic bool
	AppID    string
	Top      int
	Fields   []string
}

// VectorQuery describes a nearest-neighbor search against one index.
type VectorQuery struct {
	Vector []float32
	Field  string
	AppID  string
	Top    int
}
