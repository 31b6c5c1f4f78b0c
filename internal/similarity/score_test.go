package similarity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

func ptrString(v string) *string { return &v }

func company(number, name, category string, charges int, codes ...string) domain.Company {
	c := domain.Company{
		Number:           number,
		Name:             name,
		Status:           "Active",
		AccountsCategory: category,
		MortgageCharges:  charges,
	}
	slots := []**string{&c.SICCode1, &c.SICCode2, &c.SICCode3, &c.SICCode4}
	for i, code := range codes {
		if i >= len(slots) {
			break
		}
		*slots[i] = ptrString(code)
	}
	return c
}

func TestIndustryCodes(t *testing.T) {
	c := domain.Company{SICCode1: ptrString("47190"), SICCode3: ptrString(" 46900 "), SICCode4: ptrString("")}
	assert.Equal(t, []string{"47190", "46900"}, IndustryCodes(&c))
}

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Company
		want bool
	}{
		{"active with code", company("1", "A", "FULL", 0, "47190"), true},
		{"active lower case", domain.Company{Status: "active", SICCode2: ptrString("62020")}, true},
		{"no codes", company("1", "A", "FULL", 0), false},
		{"dissolved", domain.Company{Status: "Dissolved", SICCode1: ptrString("47190")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEligible(&tt.c))
		})
	}
}

func TestIsLarge(t *testing.T) {
	assert.True(t, IsLarge("FULL"))
	assert.True(t, IsLarge("group"))
	assert.True(t, IsLarge("TOTAL EXEMPTION FULL"))
	assert.False(t, IsLarge("SMALL"))
	assert.False(t, IsLarge(""))
}

func TestScore_Components(t *testing.T) {
	tests := []struct {
		name         string
		source       domain.Company
		candidate    domain.Company
		wantIndustry float64
		wantSize     float64
		wantBonus    float64
	}{
		{
			name:         "exact code and group/full cross match",
			source:       company("1", "Acme Retail Ltd", "FULL", 0, "47190"),
			candidate:    company("2", "Acme Wholesale Ltd", "GROUP", 0, "47190"),
			wantIndustry: 0.6, wantSize: 0.35,
		},
		{
			name:         "sector prefix only and micro candidate",
			source:       company("1", "Acme Retail Ltd", "FULL", 0, "47190"),
			candidate:    company("2", "Tiny Shop Ltd", "MICRO", 0, "47110"),
			wantIndustry: 0.3, wantSize: 0,
		},
		{
			name:         "exact size match is case-insensitive",
			source:       company("1", "A", "small", 0, "62020"),
			candidate:    company("2", "B", "SMALL", 0, "62020"),
			wantIndustry: 0.6, wantSize: 0.4,
		},
		{
			name:         "two empty categories are not an exact match",
			source:       company("1", "A", "", 0, "62020"),
			candidate:    company("2", "B", " ", 0, "62020"),
			wantIndustry: 0.6, wantSize: 0.2,
		},
		{
			name:         "empty source against micro candidate",
			source:       company("1", "A", "", 0, "62020"),
			candidate:    company("2", "B", "MICRO", 0, "62020"),
			wantIndustry: 0.6, wantSize: 0,
		},
		{
			name:         "trading candidate of different size",
			source:       company("1", "A", "FULL", 0, "62020"),
			candidate:    company("2", "B", "MEDIUM", 0, "99999"),
			wantIndustry: 0, wantSize: 0.2,
		},
		{
			name:         "dormant candidate",
			source:       company("1", "A", "FULL", 0, "62020"),
			candidate:    company("2", "B", "DORMANT", 0, "62020"),
			wantIndustry: 0.6, wantSize: 0,
		},
		{
			name:         "charges bonus needs both sides",
			source:       company("1", "A", "FULL", 5, "62020"),
			candidate:    company("2", "B", "FULL", 7, "62020"),
			wantIndustry: 0.6, wantSize: 0.4, wantBonus: 0.05,
		},
		{
			name:         "no bonus when one side below five",
			source:       company("1", "A", "FULL", 4, "62020"),
			candidate:    company("2", "B", "FULL", 12, "62020"),
			wantIndustry: 0.6, wantSize: 0.4,
		},
		{
			name:         "code order does not matter",
			source:       company("1", "A", "SMALL", 0, "10710", "47190"),
			candidate:    company("2", "B", "SMALL", 0, "47190", "10710"),
			wantIndustry: 0.6, wantSize: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Score(&tt.source, &tt.candidate)
			assert.InDelta(t, tt.wantIndustry, b.Industry, 1e-9)
			assert.InDelta(t, tt.wantSize, b.Size, 1e-9)
			assert.InDelta(t, tt.wantBonus, b.Bonus, 1e-9)
		})
	}
}

func TestScore_ExampleScenarios(t *testing.T) {
	source := company("1", "Acme Retail Ltd", "FULL", 0, "47190")

	wholesale := company("2", "Acme Wholesale Ltd", "GROUP", 0, "47190")
	b := Score(&source, &wholesale)
	assert.InDelta(t, 0.95, b.Total(), 1e-9)

	micro := company("3", "Tiny Shop Ltd", "MICRO", 0, "47110")
	b = Score(&source, &micro)
	assert.InDelta(t, 0.3, b.Total(), 1e-9)

	ranked := Evaluate(&source, []domain.Company{wholesale, micro})
	require.Len(t, ranked, 1)
	assert.Equal(t, "Acme Wholesale Ltd", ranked[0].Company.Name)
}

func TestEvaluate_ScoreBounds(t *testing.T) {
	categories := []string{"", "MICRO", "SMALL", "MEDIUM", "FULL", "GROUP", "DORMANT", "TOTAL EXEMPTION FULL"}
	codeSets := [][]string{{"47190"}, {"47110"}, {"62020"}, {"47190", "62020"}, {"46900", "10710", "47190", "62012"}}
	chargeCounts := []int{0, 5, 11}

	var candidates []domain.Company
	n := 0
	for _, cat := range categories {
		for _, codes := range codeSets {
			for _, charges := range chargeCounts {
				n++
				candidates = append(candidates, company(fmt.Sprintf("C%03d", n), fmt.Sprintf("Candidate %03d", n), cat, charges, codes...))
			}
		}
	}

	for _, cat := range categories {
		for _, codes := range codeSets {
			source := company("SRC", "Source", cat, 6, codes...)
			for _, s := range Evaluate(&source, candidates) {
				total := s.Breakdown.Total()
				assert.LessOrEqual(t, total, MaxScore+1e-9)
				assert.Greater(t, total, Threshold)
			}
		}
	}
}

func TestEvaluate_SkipsSourceAndIneligible(t *testing.T) {
	source := company("1", "Acme", "SMALL", 0, "47190")
	dissolved := company("3", "Gone Ltd", "SMALL", 0, "47190")
	dissolved.Status = "Dissolved"

	got := Evaluate(&source, []domain.Company{source, dissolved, company("2", "Peer", "SMALL", 0, "47190")})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Company.Number)
}

func TestRank_Deterministic(t *testing.T) {
	scored := []Scored{
		{Company: domain.Company{Name: "Zeta"}, Breakdown: Breakdown{Industry: 0.6, Size: 0.2, MatchingCodes: []string{"1"}}},
		{Company: domain.Company{Name: "alpha"}, Breakdown: Breakdown{Industry: 0.6, Size: 0.2, MatchingCodes: []string{"1"}}},
		{Company: domain.Company{Name: "Beta"}, Breakdown: Breakdown{Industry: 0.6, Size: 0.2, MatchingCodes: []string{"1", "2"}}},
		{Company: domain.Company{Name: "Gamma"}, Breakdown: Breakdown{Industry: 0.6, Size: 0.4}},
	}
	Rank(scored)

	names := make([]string, len(scored))
	for i, s := range scored {
		names[i] = s.Company.Name
	}
	assert.Equal(t, []string{"Gamma", "Beta", "alpha", "Zeta"}, names)
}
