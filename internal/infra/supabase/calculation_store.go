package supabase

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// ============================================================
// Activity log store (implements port.CalculationStore)
// ============================================================

// calculationRow maps the calculations table joined to users(display_name).
type calculationRow struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CompanyID         string    `json:"company_id"`
	ClientName        *string   `json:"client_name"`
	CurrencyPair      *string   `json:"currency_pair"`
	AmountToBuy       *float64  `json:"amount_to_buy"`
	Amount            *float64  `json:"amount"`
	SavingsPerTrade   *float64  `json:"savings_per_trade"`
	AnnualSavings     *float64  `json:"annual_savings"`
	PercentageSavings *float64  `json:"percentage_savings"`
	PaymentAmount     *float64  `json:"payment_amount"`
	PipsDifference    *float64  `json:"pips_difference"`
	TradesPerYear     *float64  `json:"trades_per_year"`
	CreatedAt         time.Time `json:"created_at"`
	Users             *struct {
		DisplayName *string `json:"display_name"`
	} `json:"users"`
}

// ListCalculations returns every calculation a brokerage created in
// [start, end], ordered by client name then creation time ascending. Rows
// are read in pages of c.pageSize until a short page comes back.
func (c *Client) ListCalculations(ctx context.Context, companyID string, start, end time.Time) ([]domain.Calculation, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCalculations")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", companyID),
		attribute.String("period.start", start.Format(time.RFC3339)),
		attribute.String("period.end", end.Format(time.RFC3339)),
	)

	q := url.Values{}
	q.Set("select", "*,users(display_name)")
	q.Set("company_id", "eq."+companyID)
	q.Add("created_at", "gte."+start.UTC().Format(time.RFC3339Nano))
	q.Add("created_at", "lte."+end.UTC().Format(time.RFC3339Nano))
	q.Set("order", "client_name.asc,created_at.asc,id.asc")
	q.Set("limit", strconv.Itoa(c.pageSize))

	var rows []calculationRow
	pages := 0
	for {
		q.Set("offset", strconv.Itoa(len(rows)))
		var page []calculationRow
		if err := c.selectRows(ctx, tableCalculations, q, &page); err != nil {
			return nil, err
		}
		pages++
		rows = append(rows, page...)
		if len(page) < c.pageSize {
			break
		}
	}
	span.SetAttributes(attribute.Int("pages", pages))

	out := make([]domain.Calculation, 0, len(rows))
	for _, r := range rows {
		calc := domain.Calculation{
			ID:                r.ID,
			UserID:            r.UserID,
			CompanyID:         r.CompanyID,
			ClientName:        deref(r.ClientName),
			CurrencyPair:      deref(r.CurrencyPair),
			AmountToBuy:       r.AmountToBuy,
			Amount:            r.Amount,
			SavingsPerTrade:   r.SavingsPerTrade,
			AnnualSavings:     r.AnnualSavings,
			PercentageSavings: r.PercentageSavings,
			PaymentAmount:     r.PaymentAmount,
			PipsDifference:    r.PipsDifference,
			TradesPerYear:     r.TradesPerYear,
			CreatedAt:         r.CreatedAt,
		}
		if r.Users != nil {
			calc.Broker = deref(r.Users.DisplayName)
		}
		out = append(out, calc)
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return out, nil
}
