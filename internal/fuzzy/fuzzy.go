// Package fuzzy scores free-text queries against short proper names. The
// backend's text index is tuned for documents, not names with transliteration
// and typo variance, so author search runs this composite heuristic instead:
// five independent signals combined by weighted max, tolerant of casing,
// diacritics, punctuation, and partial input.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Signal weights. The strongest single signal wins; max() avoids
// overcounting correlated signals.
const (
	exactWeight     = 1.0
	fullSimWeight   = 0.9
	coverageWeight  = 0.95
	substringWeight = 0.85
	initialsWeight  = 0.7
)

// minKeepScore discards candidates that are not even minimally plausible.
const minKeepScore = 0.05

// Entity is one named candidate for fuzzy matching.
type Entity struct {
	ID   string
	Name string
	Doc  map[string]string
}

// Match is one scored candidate.
type Match struct {
	Entity Entity
	Score  float64
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares a string for name comparison: lowercase, diacritics
// stripped via canonical decomposition, punctuation replaced with spaces,
// whitespace collapsed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Ratio is the similarity of two strings in [0,1], based on the longest
// common subsequence: 2*lcs/(len(a)+len(b)) over runes. Two empty strings
// are identical and score 1.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	// Single-row LCS table.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// MatchNames scores every entity's name against the query and returns the
// top k matches sorted by descending score. The sort is stable, so ties keep
// the original candidate order.
func MatchNames(query string, entities []Entity, k int) []Match {
	if len(entities) == 0 || k <= 0 {
		return nil
	}

	queryNorm := Normalize(query)
	queryWords := strings.Fields(queryNorm)

	matches := make([]Match, 0, len(entities))
	for _, e := range entities {
		if e.Name == "" {
			continue
		}
		score := scoreName(queryNorm, queryWords, Normalize(e.Name))
		if score > minKeepScore {
			matches = append(matches, Match{Entity: e, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func scoreName(queryNorm string, queryWords []string, nameNorm string) float64 {
	nameWords := strings.Fields(nameNorm)

	var exact float64
	if queryNorm == nameNorm {
		exact = 1
	}

	fullSim := Ratio(queryNorm, nameNorm)
	coverage := wordCoverage(queryWords, nameWords)
	substring := substringScore(queryNorm, nameNorm)
	initials := initialsScore(queryWords, nameWords)

	final := maxOf(
		exact*exactWeight,
		fullSim*fullSimWeight,
		coverage*coverageWeight,
		substring*substringWeight,
		initials*initialsWeight,
	)

	// Concision boost: favor names not much longer than the query.
	if final > 0.5 && len([]rune(nameNorm)) <= len([]rune(queryNorm))+5 {
		final = math.Min(1, final*1.1)
	}
	return final
}

// wordCoverage awards each query token 1.0 for an exact word hit, 0.7 for
// substring containment (either direction, shorter token at least 3 runes),
// otherwise the best per-word similarity ratio when it reaches 0.8. The sum
// is divided by the query token count.
func wordCoverage(queryWords, nameWords []string) float64 {
	if len(queryWords) == 0 || len(nameWords) == 0 {
		return 0
	}
	var awarded float64
	for _, qw := range queryWords {
		awarded += wordAward(qw, nameWords)
	}
	return awarded / float64(len(queryWords))
}

func wordAward(qw string, nameWords []string) float64 {
	var contained bool
	var bestSim float64
	for _, nw := range nameWords {
		if qw == nw {
			return 1
		}
		shorter := qw
		if len([]rune(nw)) < len([]rune(qw)) {
			shorter = nw
		}
		if len([]rune(shorter)) >= 3 && (strings.Contains(nw, qw) || strings.Contains(qw, nw)) {
			contained = true
			continue
		}
		if sim := Ratio(qw, nw); sim > bestSim {
			bestSim = sim
		}
	}
	if contained {
		return 0.7
	}
	if bestSim >= 0.8 {
		return bestSim
	}
	return 0
}

func substringScore(queryNorm, nameNorm string) float64 {
	ql, nl := len([]rune(queryNorm)), len([]rune(nameNorm))
	switch {
	case ql == 0 || nl == 0:
		return 0
	case strings.Contains(nameNorm, queryNorm):
		return 0.9 * float64(ql) / float64(nl)
	case strings.Contains(queryNorm, nameNorm):
		return 0.8 * float64(nl) / float64(ql)
	}
	return 0
}

// initialsScore handles short queries like "j r smith": each query token's
// first rune must match the corresponding name token's first rune.
func initialsScore(queryWords, nameWords []string) float64 {
	if len(queryWords) == 0 || len(queryWords) > 3 || len(nameWords) < len(queryWords) {
		return 0
	}
	for i, qw := range queryWords {
		if []rune(qw)[0] != []rune(nameWords[i])[0] {
			return 0
		}
	}
	return 0.7
}

func maxOf(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
