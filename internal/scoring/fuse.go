package scoring

import (
	"sort"

	"github.com/openlibra/searchd/internal/domain"
)

// DefaultScoreThreshold is the minimum fused score a candidate must reach to
// survive filtering. It bounds the irrelevant long tail without a fixed top-k
// cutoff that would distort pagination counts.
const DefaultScoreThreshold = 0.1

// DefaultItemWeights is the item fusion profile.
func DefaultItemWeights() domain.FusionWeights {
	return domain.FusionWeights{Semantic: 0.3, BM25: 0.4, Vector: 0.2, Business: 0.1}
}

// DefaultAuthorWeights is the author fusion profile. The BM25 slot carries
// the fuzzy name score; vector and business usually contribute nothing for
// authors since the fuzzy pass supplies the only relevance signal.
func DefaultAuthorWeights() domain.FusionWeights {
	return domain.FusionWeights{Semantic: 0.4, BM25: 0.3, Vector: 0.2, Business: 0.1}
}

// Normalize rescales an unbounded raw backend score into [0,1) with the
// saturating function s/(1+s). Monotonic, and 0 maps to 0. Applied uniformly
// to every backend signal; the business signal is already in [0,1] and is
// not renormalized.
func Normalize(s float64) float64 {
	if s <= 0 {
		return 0
	}
	return s / (1 + s)
}

// Fuse computes the final score of every candidate under the given weight
// profile and returns them sorted descending, ties broken by candidate id
// for determinism. The input slice is not modified.
func Fuse(candidates []domain.Candidate, w domain.FusionWeights) []domain.Candidate {
	fused := make([]domain.Candidate, len(candidates))
	copy(fused, candidates)

	for i := range fused {
		c := &fused[i]
		c.Final = w.Semantic*Normalize(c.Semantic) +
			w.BM25*Normalize(c.BM25) +
			w.Vector*Normalize(c.Vector) +
			w.Business*c.Business
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Final != fused[j].Final {
			return fused[i].Final > fused[j].Final
		}
		return fused[i].ID < fused[j].ID
	})

	return fused
}

// ApplyThreshold drops candidates whose final score is below the threshold.
// Idempotent: filtering an already-filtered list yields the same list.
func ApplyThreshold(candidates []domain.Candidate, threshold float64) []domain.Candidate {
	filtered := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Final >= threshold {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
