package snapshot

import (
	"strings"
	"unicode"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to value or the zero value for nil.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// NormalizeISBN strips separators and upper-cases the check digit.
// Returns "" when nothing usable remains.
func NormalizeISBN(isbn *string) string {
	if isbn == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range *isbn {
		if unicode.IsDigit(r) || r == 'x' || r == 'X' {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// SplitAuthors splits a delimited author list, trimming blanks.
func SplitAuthors(s, sep string) []string {
	var authors []string
	for _, a := range strings.Split(s, sep) {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	return authors
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, " ", "-")
}
