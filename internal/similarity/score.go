// Package similarity scores, filters and ranks registry companies against a
// source company. Everything here is pure: callers fetch the rows and hand
// them in, so the same rules serve every endpoint that looks for similar
// companies.
package similarity

import (
	"cmp"
	"slices"
	"strings"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// Score weights.
const (
	Threshold = 0.5
	MaxScore  = 1.05

	industryExactWeight  = 0.6
	industrySectorWeight = 0.3
	sizeExactWeight      = 0.4
	sizeGroupFullWeight  = 0.35
	sizeTradingWeight    = 0.2
	chargesBonus         = 0.05

	chargesBonusMin = 5
)

// Size match kinds reported in a Breakdown.
const (
	SizeMatchNone      = ""
	SizeMatchExact     = "exact"
	SizeMatchGroupFull = "group_full"
	SizeMatchTrading   = "trading"
)

// Breakdown is the per-component result of Score.
type Breakdown struct {
	Industry      float64
	Size          float64
	Bonus         float64
	MatchingCodes []string
	SectorMatch   bool
	SizeMatch     string
}

// Total is the composite score. It is never above MaxScore.
func (b Breakdown) Total() float64 {
	return b.Industry + b.Size + b.Bonus
}

// Scored pairs a candidate with its breakdown.
type Scored struct {
	Company   domain.Company
	Breakdown Breakdown
}

// IndustryCodes returns the non-empty industry codes of c in slot order.
func IndustryCodes(c *domain.Company) []string {
	codes := make([]string, 0, 4)
	for _, slot := range c.SICSlots() {
		if slot == nil {
			continue
		}
		if code := strings.TrimSpace(*slot); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// IsEligible reports whether c may take part in similarity matching:
// status Active and at least one industry code.
func IsEligible(c *domain.Company) bool {
	return strings.EqualFold(strings.TrimSpace(c.Status), "active") && len(IndustryCodes(c)) > 0
}

// IsLarge classifies an accounts category as large (FULL or GROUP).
func IsLarge(category string) bool {
	up := strings.ToUpper(category)
	return strings.Contains(up, "FULL") || strings.Contains(up, "GROUP")
}

// MatchingCodes returns the industry codes shared by source and candidate,
// in the source's slot order.
func MatchingCodes(source, candidate *domain.Company) []string {
	candCodes := make(map[string]bool, 4)
	for _, code := range IndustryCodes(candidate) {
		candCodes[code] = true
	}
	var shared []string
	for _, code := range IndustryCodes(source) {
		if candCodes[code] && !slices.Contains(shared, code) {
			shared = append(shared, code)
		}
	}
	return shared
}

// Score computes the weighted similarity of candidate to source.
func Score(source, candidate *domain.Company) Breakdown {
	var b Breakdown

	b.MatchingCodes = MatchingCodes(source, candidate)
	switch {
	case len(b.MatchingCodes) > 0:
		b.Industry = industryExactWeight
	case sharesSector(source, candidate):
		b.Industry = industrySectorWeight
		b.SectorMatch = true
	}

	b.Size, b.SizeMatch = sizeScore(source.AccountsCategory, candidate.AccountsCategory)

	if source.MortgageCharges >= chargesBonusMin && candidate.MortgageCharges >= chargesBonusMin {
		b.Bonus = chargesBonus
	}
	return b
}

func sharesSector(source, candidate *domain.Company) bool {
	sectors := make(map[string]bool, 4)
	for _, code := range IndustryCodes(source) {
		if len(code) >= 2 {
			sectors[code[:2]] = true
		}
	}
	for _, code := range IndustryCodes(candidate) {
		if len(code) >= 2 && sectors[code[:2]] {
			return true
		}
	}
	return false
}

// sizeScore compares accounts categories. An empty source category never
// counts as an exact match.
func sizeScore(sourceCategory, candidateCategory string) (float64, string) {
	src := strings.ToUpper(strings.TrimSpace(sourceCategory))
	cand := strings.ToUpper(strings.TrimSpace(candidateCategory))

	switch {
	case src != "" && src == cand:
		return sizeExactWeight, SizeMatchExact
	case strings.Contains(src, "GROUP") && strings.Contains(cand, "FULL"),
		strings.Contains(src, "FULL") && strings.Contains(cand, "GROUP"):
		return sizeGroupFullWeight, SizeMatchGroupFull
	case !strings.Contains(cand, "MICRO") && !strings.Contains(cand, "DORMANT"):
		return sizeTradingWeight, SizeMatchTrading
	default:
		return 0, SizeMatchNone
	}
}

// Evaluate scores every eligible candidate (other than the source itself),
// drops those at or below Threshold and returns the rest ranked.
func Evaluate(source *domain.Company, candidates []domain.Company) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for i := range candidates {
		cand := &candidates[i]
		if cand.Number == source.Number || !IsEligible(cand) {
			continue
		}
		b := Score(source, cand)
		if b.Total() <= Threshold {
			continue
		}
		scored = append(scored, Scored{Company: *cand, Breakdown: b})
	}
	Rank(scored)
	return scored
}

// Rank orders by composite score, then by number of shared codes, then by
// name so equal inputs always produce the same page.
func Rank(scored []Scored) {
	slices.SortStableFunc(scored, func(a, b Scored) int {
		if c := cmp.Compare(b.Breakdown.Total(), a.Breakdown.Total()); c != 0 {
			return c
		}
		if c := cmp.Compare(len(b.Breakdown.MatchingCodes), len(a.Breakdown.MatchingCodes)); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Company.Name), strings.ToLower(b.Company.Name))
	})
}
