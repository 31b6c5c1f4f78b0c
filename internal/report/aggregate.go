// Package report turns raw calculation rows into the per-client and
// company-wide statistics of a brokerage's periodic report.
package report

import (
	"math"
	"slices"
	"strings"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// NormalizeClientName is the grouping key for client names.
func NormalizeClientName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type clientAcc struct {
	name  string
	key   string
	calcs []domain.Calculation
}

// Aggregate groups rows by normalized client name and reduces each group.
// Row order matters: the first row of a group names it, and the last
// non-null trades-per-year seen wins.
func Aggregate(rows []domain.Calculation) *domain.Report {
	groups := make(map[string]*clientAcc)
	order := make([]*clientAcc, 0)

	for _, row := range rows {
		key := NormalizeClientName(row.ClientName)
		acc, ok := groups[key]
		if !ok {
			acc = &clientAcc{name: strings.TrimSpace(row.ClientName), key: key}
			groups[key] = acc
			order = append(order, acc)
		}
		acc.calcs = append(acc.calcs, row)
	}

	clients := make([]domain.ClientReport, 0, len(order))
	for _, acc := range order {
		clients = append(clients, domain.ClientReport{
			ClientName: acc.name,
			Broker:     firstBroker(acc.calcs),
			Stats:      clientStats(acc.calcs),
		})
	}

	slices.SortStableFunc(clients, func(a, b domain.ClientReport) int {
		return b.Stats.TotalCalculations - a.Stats.TotalCalculations
	})

	return &domain.Report{
		Summary: summarize(clients),
		Clients: clients,
	}
}

func firstBroker(calcs []domain.Calculation) string {
	for _, c := range calcs {
		if b := strings.TrimSpace(c.Broker); b != "" {
			return b
		}
	}
	return ""
}

func clientStats(calcs []domain.Calculation) domain.ClientStats {
	n := float64(len(calcs))
	stats := domain.ClientStats{
		TotalCalculations: len(calcs),
		CurrencyPairs:     make(map[string]int),
	}

	var tradesPerYear *float64
	var tradeValue, savingsPerTrade, pctSavings, pips float64

	for _, c := range calcs {
		if pair := strings.TrimSpace(c.CurrencyPair); pair != "" {
			stats.CurrencyPairs[pair]++
		}
		if c.TradesPerYear != nil {
			tradesPerYear = c.TradesPerYear
		}
		tradeValue += firstOf(c.AmountToBuy, c.Amount)
		savingsPerTrade += value(c.SavingsPerTrade)
		stats.CombinedAnnualSavings += value(c.AnnualSavings)
		pctSavings += value(c.PercentageSavings)
		pips += firstOf(c.PaymentAmount, c.PipsDifference)
	}

	if tradesPerYear != nil {
		stats.TradesPerYear = *tradesPerYear
		stats.TradesPerMonth = round1(*tradesPerYear / 12)
	}
	if n > 0 {
		stats.AvgTradeValue = tradeValue / n
		stats.AvgSavingsPerTrade = savingsPerTrade / n
		stats.AvgPercentageSavings = pctSavings / n
		stats.AvgPips = pips / n
	}
	stats.MonthlyTradeVolume = stats.AvgTradeValue * stats.TradesPerMonth
	return stats
}

func summarize(clients []domain.ClientReport) domain.ReportSummary {
	s := domain.ReportSummary{
		TotalClients:             len(clients),
		CurrencyPairDistribution: make(map[string]int),
	}
	for _, c := range clients {
		s.TotalCalculations += c.Stats.TotalCalculations
		s.CombinedAnnualSavings += c.Stats.CombinedAnnualSavings
		for pair, count := range c.Stats.CurrencyPairs {
			s.CurrencyPairDistribution[pair] += count
		}
	}
	s.CombinedMonthlySavings = s.CombinedAnnualSavings / 12
	return s
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func firstOf(primary, fallback *float64) float64 {
	if primary != nil {
		return *primary
	}
	return value(fallback)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
