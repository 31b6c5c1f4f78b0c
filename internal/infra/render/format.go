// Package render turns report aggregates into file attachments: a branded
// PDF report and an XLSX workbook.
package render

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var printer = message.NewPrinter(language.BritishEnglish)

func money(v float64) string {
	return printer.Sprintf("£%.2f", v)
}

func number(v float64) string {
	return printer.Sprintf("%.1f", v)
}

type pairCount struct {
	Pair  string
	Count int
}

// sortedPairs orders a currency-pair histogram by count desc, then pair.
func sortedPairs(hist map[string]int) []pairCount {
	out := make([]pairCount, 0, len(hist))
	for p, n := range hist {
		out = append(out, pairCount{Pair: p, Count: n})
	}
	slices.SortFunc(out, func(a, b pairCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Pair, b.Pair)
	})
	return out
}

// filename builds "<prefix>-<company-slug>-<yyyy-mm-dd>.<ext>" from the
// period start.
func filename(prefix string, doc *domain.ReportDocument, ext string) string {
	parts := []string{prefix}
	if s := slug(doc.Company.Name); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, doc.Period.Start.Format("2006-01-02"))
	return strings.Join(parts, "-") + "." + ext
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
