package similarity

import (
	"fmt"
	"strings"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// IndustryLabel names the primary industry of a code list: full code first,
// then the 4-digit group, then the first digit.
func IndustryLabel(codes []string) string {
	if len(codes) == 0 {
		return defaultIndustryLabel
	}
	code := codes[0]
	if label, ok := sicLabels[code]; ok {
		return label
	}
	if len(code) >= 4 {
		if label, ok := sicGroupLabels[code[:4]]; ok {
			return label
		}
	}
	if len(code) >= 1 {
		if label, ok := sicSectionLabels[code[:1]]; ok {
			return label
		}
	}
	return defaultIndustryLabel
}

// SizeLabel describes company size from the accounts category, falling back
// to the number of registered charges.
func SizeLabel(category string, charges int) string {
	up := strings.ToUpper(category)
	switch {
	case strings.Contains(up, "GROUP"):
		return "Large (Group)"
	case strings.Contains(up, "FULL"):
		return "Medium-Large"
	case strings.Contains(up, "MEDIUM"):
		return "Medium"
	case strings.Contains(up, "SMALL"):
		return "Small"
	case strings.Contains(up, "MICRO"):
		return "Micro"
	}

	switch {
	case charges >= 10:
		return "Large"
	case charges >= 5:
		return "Medium-Large"
	case charges >= 2:
		return "Medium"
	default:
		return "Small-Medium"
	}
}

// Location joins town and country, defaulting to "UK".
func Location(town, country string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{town, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "UK"
	}
	return strings.Join(parts, ", ")
}

// Reasoning explains in plain words why candidate matched source.
func Reasoning(source, candidate *domain.Company, b Breakdown) string {
	var parts []string

	switch {
	case len(b.MatchingCodes) > 0:
		labels := make([]string, 0, len(b.MatchingCodes))
		for _, code := range b.MatchingCodes {
			labels = append(labels, fmt.Sprintf("%s (%s)", code, IndustryLabel([]string{code})))
		}
		noun := "code"
		if len(labels) > 1 {
			noun = "codes"
		}
		parts = append(parts, fmt.Sprintf("Shares industry %s %s with %s", noun, strings.Join(labels, ", "), source.Name))
	case b.SectorMatch:
		parts = append(parts, fmt.Sprintf("Operates in the same broad sector as %s (%s)",
			source.Name, IndustryLabel(IndustryCodes(candidate))))
	default:
		parts = append(parts, "Different industry")
	}

	switch b.SizeMatch {
	case SizeMatchExact:
		parts = append(parts, fmt.Sprintf("same size category (%s)", strings.ToUpper(strings.TrimSpace(candidate.AccountsCategory))))
	case SizeMatchGroupFull:
		parts = append(parts, "comparable size (full vs group accounts)")
	case SizeMatchTrading:
		parts = append(parts, "actively trading company of a different size")
	default:
		parts = append(parts, "size does not match")
	}

	if b.Bonus > 0 {
		parts = append(parts, "both have 5+ registered charges")
	}
	return strings.Join(parts, "; ")
}

// Format renders one scored candidate for the API.
func Format(source *domain.Company, s Scored) domain.SimilarCompany {
	c := s.Company
	return domain.SimilarCompany{
		Name:      c.Name,
		Industry:  IndustryLabel(IndustryCodes(&c)),
		Location:  Location(c.PostTown, c.Country),
		Size:      SizeLabel(c.AccountsCategory, c.MortgageCharges),
		Reasoning: Reasoning(source, &c, s.Breakdown),
	}
}
