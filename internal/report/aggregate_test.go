package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

func ptrFloat64(v float64) *float64 { return &v }

func calc(client, pair string, amount, annual float64) domain.Calculation {
	return domain.Calculation{
		ClientName:    client,
		CurrencyPair:  pair,
		AmountToBuy:   ptrFloat64(amount),
		AnnualSavings: ptrFloat64(annual),
		CreatedAt:     time.Date(2026, 9, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestAggregate_Empty(t *testing.T) {
	r := Aggregate(nil)
	require.NotNil(t, r)
	assert.Empty(t, r.Clients)
	assert.NotNil(t, r.Clients)
	assert.Equal(t, 0, r.Summary.TotalClients)
	assert.Equal(t, 0, r.Summary.TotalCalculations)
	assert.Zero(t, r.Summary.CombinedAnnualSavings)
	assert.Zero(t, r.Summary.CombinedMonthlySavings)
	assert.NotNil(t, r.Summary.CurrencyPairDistribution)
}

func TestAggregate_GroupsNormalizedNames(t *testing.T) {
	rows := []domain.Calculation{
		calc("Beta Corp", "GBP/EUR", 1000, 120),
		calc("beta corp ", "GBP/USD", 3000, 240),
	}
	r := Aggregate(rows)

	require.Len(t, r.Clients, 1)
	assert.Equal(t, "Beta Corp", r.Clients[0].ClientName)
	assert.Equal(t, 2, r.Clients[0].Stats.TotalCalculations)

	r = Aggregate([]domain.Calculation{rows[1], rows[0]})
	require.Len(t, r.Clients, 1)
	assert.Equal(t, "beta corp", r.Clients[0].ClientName)
}

func TestAggregate_ClientStats(t *testing.T) {
	rows := []domain.Calculation{
		{
			ClientName: "Acme", CurrencyPair: "GBP/EUR", Broker: "Jane Broker",
			AmountToBuy: ptrFloat64(10000), SavingsPerTrade: ptrFloat64(50),
			AnnualSavings: ptrFloat64(1200), PercentageSavings: ptrFloat64(0.5),
			PaymentAmount: ptrFloat64(30), TradesPerYear: ptrFloat64(24),
		},
		{
			ClientName: "Acme", CurrencyPair: "GBP/EUR", Broker: "Other Broker",
			Amount: ptrFloat64(20000), SavingsPerTrade: ptrFloat64(150),
			AnnualSavings: ptrFloat64(3600), PercentageSavings: ptrFloat64(1.5),
			PipsDifference: ptrFloat64(50), TradesPerYear: ptrFloat64(36),
		},
		{
			ClientName: "Acme", CurrencyPair: "GBP/USD",
			AmountToBuy: ptrFloat64(30000), SavingsPerTrade: ptrFloat64(100),
			AnnualSavings: ptrFloat64(2400), PercentageSavings: ptrFloat64(1),
			PaymentAmount: ptrFloat64(40),
		},
	}

	r := Aggregate(rows)
	require.Len(t, r.Clients, 1)
	c := r.Clients[0]
	s := c.Stats

	assert.Equal(t, "Jane Broker", c.Broker)
	assert.Equal(t, 3, s.TotalCalculations)
	assert.Equal(t, map[string]int{"GBP/EUR": 2, "GBP/USD": 1}, s.CurrencyPairs)
	// last non-null value wins, not max
	assert.InDelta(t, 36, s.TradesPerYear, 1e-9)
	assert.InDelta(t, 3, s.TradesPerMonth, 1e-9)
	assert.InDelta(t, 20000, s.AvgTradeValue, 1e-9)
	assert.InDelta(t, 100, s.AvgSavingsPerTrade, 1e-9)
	assert.InDelta(t, 7200, s.CombinedAnnualSavings, 1e-9)
	assert.InDelta(t, 1, s.AvgPercentageSavings, 1e-9)
	assert.InDelta(t, 40, s.AvgPips, 1e-9)
	assert.InDelta(t, 60000, s.MonthlyTradeVolume, 1e-9)
}

func TestAggregate_TradesPerYearLastValueWins(t *testing.T) {
	rows := []domain.Calculation{
		{ClientName: "A", TradesPerYear: ptrFloat64(100)},
		{ClientName: "A", TradesPerYear: ptrFloat64(10)},
		{ClientName: "A"},
	}
	s := Aggregate(rows).Clients[0].Stats
	assert.InDelta(t, 10, s.TradesPerYear, 1e-9)
	assert.InDelta(t, 0.8, s.TradesPerMonth, 1e-9)
}

func TestAggregate_NoTradesPerYear(t *testing.T) {
	s := Aggregate([]domain.Calculation{calc("A", "EUR/USD", 500, 0)}).Clients[0].Stats
	assert.Zero(t, s.TradesPerYear)
	assert.Zero(t, s.TradesPerMonth)
	assert.Zero(t, s.MonthlyTradeVolume)
}

func TestAggregate_SummaryInvariants(t *testing.T) {
	rows := []domain.Calculation{
		calc("Alpha", "GBP/EUR", 1000, 100),
		calc("Beta", "GBP/USD", 2000, 250.5),
		calc("beta", "GBP/USD", 2000, 13.25),
		calc("Gamma", "EUR/USD", 500, 7),
		calc("gamma ", "GBP/EUR", 500, 1),
		calc(" GAMMA", "GBP/EUR", 500, 2),
	}
	r := Aggregate(rows)

	sum := 0
	for _, c := range r.Clients {
		sum += c.Stats.TotalCalculations
	}
	assert.Equal(t, r.Summary.TotalCalculations, sum)
	assert.Equal(t, len(rows), r.Summary.TotalCalculations)
	assert.Equal(t, 3, r.Summary.TotalClients)
	assert.Equal(t, r.Summary.CombinedAnnualSavings/12, r.Summary.CombinedMonthlySavings)
	assert.Equal(t, map[string]int{"GBP/EUR": 3, "GBP/USD": 2, "EUR/USD": 1}, r.Summary.CurrencyPairDistribution)

	counts := make([]int, len(r.Clients))
	for i, c := range r.Clients {
		counts[i] = c.Stats.TotalCalculations
	}
	assert.Equal(t, []int{3, 2, 1}, counts)
}

func TestAggregate_Idempotent(t *testing.T) {
	rows := []domain.Calculation{
		calc("Alpha", "GBP/EUR", 1000, 100.1),
		calc("Beta", "GBP/USD", 2000, 250.7),
		calc("alpha", "USD/JPY", 1500, 33.3),
	}
	first, err := json.Marshal(Aggregate(rows))
	require.NoError(t, err)
	second, err := json.Marshal(Aggregate(rows))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}
