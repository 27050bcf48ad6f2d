// Package dedupe decides whether an incoming book is already known.
//
// Matching is two-tiered: an exact match on ISBN-13, then a graded
// similarity score over title and authors for records without a usable
// natural key. All functions are pure.
package dedupe

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

const (
	titleWeight  = 0.7
	authorWeight = 0.3

	// DefaultThreshold is the similarity at or above which two books are
	// treated as the same work.
	DefaultThreshold = 0.9
)

// MatchKind says how a candidate relates to the existing records.
type MatchKind string

const (
	MatchNone  MatchKind = "none"
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// Verdict is the outcome of Classify. Index points into the existing slice
// and is -1 for MatchNone. Similarity is the best score seen, even when it
// fell short of the threshold.
type Verdict struct {
	IsDuplicate bool
	MatchKind   MatchKind
	Similarity  float64
	Index       int
}

// MatchesExisting reports whether any existing record shares a non-empty
// ISBN-13 with the candidate.
func MatchesExisting(candidate snapshot.BookRecord, existing []snapshot.BookRecord) bool {
	return exactIndex(candidate, existing) >= 0
}

func exactIndex(candidate snapshot.BookRecord, existing []snapshot.BookRecord) int {
	isbn := snapshot.NormalizeISBN(candidate.ISBN13)
	if isbn == "" {
		return -1
	}
	for i, e := range existing {
		if snapshot.NormalizeISBN(e.ISBN13) == isbn {
			return i
		}
	}
	return -1
}

// Similarity scores two books in [0,1]: 0.7 × title edit similarity plus
// 0.3 × author set overlap. Identical titles and author sets score 1.0.
func Similarity(a, b snapshot.BookRecord) float64 {
	title := stringSimilarity(normalizeTitle(a.Title), normalizeTitle(b.Title))
	authors := jaccard(authorSet(a.Authors), authorSet(b.Authors))
	if title == 1.0 && authors == 1.0 {
		return 1.0
	}
	return titleWeight*title + authorWeight*authors
}

// Classify finds the existing record a candidate duplicates, if any.
// An ISBN match wins outright. Otherwise the most similar record scoring at
// least threshold is a fuzzy match; records whose ISBN contradicts the
// candidate's are never fuzzy matches.
func Classify(candidate snapshot.BookRecord, existing []snapshot.BookRecord, threshold float64) Verdict {
	if i := exactIndex(candidate, existing); i >= 0 {
		return Verdict{IsDuplicate: true, MatchKind: MatchExact, Similarity: 1.0, Index: i}
	}

	candidateISBN := snapshot.NormalizeISBN(candidate.ISBN13)
	best := Verdict{MatchKind: MatchNone, Index: -1}
	for i, e := range existing {
		if isbn := snapshot.NormalizeISBN(e.ISBN13); candidateISBN != "" && isbn != "" {
			continue
		}
		if score := Similarity(candidate, e); score > best.Similarity {
			best.Similarity = score
			best.Index = i
		}
	}

	if best.Index >= 0 && best.Similarity >= threshold {
		best.IsDuplicate = true
		best.MatchKind = MatchFuzzy
		return best
	}
	return Verdict{MatchKind: MatchNone, Similarity: best.Similarity, Index: -1}
}

// normalizeTitle lower-cases, applies NFKC and collapses whitespace.
func normalizeTitle(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// stringSimilarity is 1 - editDistance/maxLen, measured in runes.
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// levenshteinDistance computes the edit distance with two rolling rows.
func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func authorSet(authors []string) map[string]struct{} {
	set := make(map[string]struct{}, len(authors))
	for _, a := range authors {
		if a = normalizeTitle(a); a != "" {
			set[a] = struct{}{}
		}
	}
	return set
}

// jaccard is |a∩b| / |a∪b|; two empty sets are identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
