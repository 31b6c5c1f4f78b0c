package domain

import "time"

// ============================================================
// Tenants (brokerages) and their users
// ============================================================

// Brokerage is a subscribing FX brokerage (tenant).
type Brokerage struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	SubscriptionStatus string `json:"subscription_status"`
}

// User is a dashboard user belonging to one brokerage.
type User struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// ============================================================
// Activity log ("calculations")
// ============================================================

// Calculation is one rate calculation performed by a broker. Immutable.
// Optional figures are pointers so missing values stay distinguishable
// from zero.
type Calculation struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CompanyID         string    `json:"company_id"`
	ClientName        string    `json:"client_name"`
	CurrencyPair      string    `json:"currency_pair"`
	AmountToBuy       *float64  `json:"amount_to_buy"`
	Amount            *float64  `json:"amount"`
	SavingsPerTrade   *float64  `json:"savings_per_trade"`
	AnnualSavings     *float64  `json:"annual_savings"`
	PercentageSavings *float64  `json:"percentage_savings"`
	PaymentAmount     *float64  `json:"payment_amount"`
	PipsDifference    *float64  `json:"pips_difference"`
	TradesPerYear     *float64  `json:"trades_per_year"`
	Broker            string    `json:"broker"`
	CreatedAt         time.Time `json:"created_at"`
}

// ============================================================
// Report aggregate: the {summary, clients} contract
// ============================================================

// ClientStats are the per-client reductions of a report period.
type ClientStats struct {
	TotalCalculations     int            `json:"totalCalculations"`
	CurrencyPairs         map[string]int `json:"currencyPairs"`
	TradesPerYear         float64        `json:"tradesPerYear"`
	TradesPerMonth        float64        `json:"tradesPerMonth"`
	AvgTradeValue         float64        `json:"avgTradeValue"`
	AvgSavingsPerTrade    float64        `json:"avgSavingsPerTrade"`
	CombinedAnnualSavings float64        `json:"combinedAnnualSavings"`
	AvgPercentageSavings  float64        `json:"avgPercentageSavings"`
	AvgPips               float64        `json:"avgPips"`
	MonthlyTradeVolume    float64        `json:"monthlyTradeVolume"`
}

// ClientReport groups the calculations of one normalized client name.
type ClientReport struct {
	ClientName string      `json:"clientName"`
	Broker     string      `json:"broker"`
	Stats      ClientStats `json:"stats"`
}

// ReportSummary is the company-wide aggregate across clients.
type ReportSummary struct {
	TotalClients             int            `json:"totalClients"`
	TotalCalculations        int            `json:"totalCalculations"`
	CombinedMonthlySavings   float64        `json:"combinedMonthlySavings"`
	CombinedAnnualSavings    float64        `json:"combinedAnnualSavings"`
	CurrencyPairDistribution map[string]int `json:"currencyPairDistribution"`
}

// Report is handed to the presentation layer (renderer + mailer).
type Report struct {
	Summary ReportSummary  `json:"summary"`
	Clients []ClientReport `json:"clients"`
}

// ReportPeriod is an inclusive date window.
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AggregateRequest is the body of POST /v1/reports/aggregate.
type AggregateRequest struct {
	CompanyID    string `json:"companyId"`
	StartDateISO string `json:"startDateISO"`
	EndDateISO   string `json:"endDateISO"`
}

// ============================================================
// Report runs (batch orchestration)
// ============================================================

// Report run statuses.
const (
	ReportStatusSent    = "sent"
	ReportStatusPartial = "partial"
	ReportStatusSkipped = "skipped"
	ReportStatusFailed  = "failed"
	ReportStatusDryRun  = "dry_run"
)

// CompanyReportResult records the outcome for one brokerage in a run.
type CompanyReportResult struct {
	CompanyID   string `json:"companyId"`
	CompanyName string `json:"companyName"`
	Status      string `json:"status"`
	Recipients  int    `json:"recipients"`
	EmailsSent  int    `json:"emailsSent"`
	Clients     int    `json:"clients"`
	Error       string `json:"error,omitempty"`
}

// ReportRunResult is returned by the monthly and test report triggers.
type ReportRunResult struct {
	RunID       string                `json:"runId"`
	Mode        string                `json:"mode"`
	PeriodStart string                `json:"periodStart"`
	PeriodEnd   string                `json:"periodEnd"`
	Processed   int                   `json:"processed"`
	Sent        int                   `json:"sent"`
	Skipped     int                   `json:"skipped"`
	Failed      int                   `json:"failed"`
	Results     []CompanyReportResult `json:"results"`
}

// ReportRunRecord is persisted to the report_runs table, one row per company.
type ReportRunRecord struct {
	RunID       string
	CompanyID   string
	Mode        string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      string
	EmailsSent  int
	Error       string
}

// ReportDocument bundles everything the renderers need.
type ReportDocument struct {
	Company      Brokerage
	Period       ReportPeriod
	Report       *Report
	Calculations []Calculation
	GeneratedAt  time.Time
}

// Attachment is a rendered file sent alongside a report email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportEmail is one message to one admin.
type ReportEmail struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}
