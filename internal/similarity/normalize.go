package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a company name for comparison: diacritics removed,
// lowercased, everything but letters and digits dropped.
// "Tesco, Ltd." and "tesco ltd" both become "tescoltd".
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Exclude drops scored companies whose normalized name appears in names.
func Exclude(scored []Scored, names []string) []Scored {
	if len(names) == 0 {
		return scored
	}
	excluded := make(map[string]bool, len(names))
	for _, n := range names {
		if key := NormalizeName(n); key != "" {
			excluded[key] = true
		}
	}

	kept := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if excluded[NormalizeName(s.Company.Name)] {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// Paginate returns items[offset:offset+limit] clamped to the slice bounds
// and whether more items follow the page.
func Paginate[T any](items []T, offset, limit int) ([]T, bool) {
	total := len(items)
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	hasMore := offset+limit < total
	if offset >= total {
		return []T{}, hasMore
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], hasMore
}
