package similarity

import (
	"fmt"
	"strings"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// SizePolicy selects how company size constrains the candidate set.
type SizePolicy string

const (
	// StrictSizeFilter drops candidates of a different size class before
	// scoring. Large sources (FULL/GROUP) keep large candidates; everyone
	// else keeps candidates with the identical accounts category.
	StrictSizeFilter SizePolicy = "strictSizeFilter"

	// WeightedSizeScore lets size contribute only through the score.
	WeightedSizeScore SizePolicy = "weightedSizeScore"
)

// ParseSizePolicy accepts the configuration spelling of a policy.
func ParseSizePolicy(s string) (SizePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", strings.ToLower(string(WeightedSizeScore)), "weighted":
		return WeightedSizeScore, nil
	case strings.ToLower(string(StrictSizeFilter)), "strict":
		return StrictSizeFilter, nil
	default:
		return "", fmt.Errorf("unknown size policy %q", s)
	}
}

// Apply filters candidates under the policy. The weighted policy returns
// the input unchanged.
func (p SizePolicy) Apply(source *domain.Company, candidates []domain.Company) []domain.Company {
	if p != StrictSizeFilter {
		return candidates
	}
	return FilterBySize(source, candidates)
}

// FilterBySize implements the strict size class filter.
func FilterBySize(source *domain.Company, candidates []domain.Company) []domain.Company {
	kept := make([]domain.Company, 0, len(candidates))
	if IsLarge(source.AccountsCategory) {
		for _, c := range candidates {
			if IsLarge(c.AccountsCategory) {
				kept = append(kept, c)
			}
		}
		return kept
	}

	want := strings.TrimSpace(source.AccountsCategory)
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.AccountsCategory), want) {
			kept = append(kept, c)
		}
	}
	return kept
}

// PickSource chooses the source company among name matches: the first one
// with a code in a priority sector, otherwise the first match. The store
// does not guarantee the order of matches, so neither does the fallback.
func PickSource(matches []domain.Company, prioritySectors []string) *domain.Company {
	var first *domain.Company
	for i := range matches {
		c := &matches[i]
		if !IsEligible(c) {
			continue
		}
		if first == nil {
			first = c
		}
		for _, code := range IndustryCodes(c) {
			for _, sector := range prioritySectors {
				if sector != "" && strings.HasPrefix(code, sector) {
					return c
				}
			}
		}
	}
	return first
}
