package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/observability"
)

// --- Mocks ---

type stubCalculations struct {
	rows map[string][]domain.Calculation
	err  map[string]error

	mu     sync.Mutex
	starts []time.Time
	ends   []time.Time
}

func (s *stubCalculations) ListCalculations(_ context.Context, companyID string, start, end time.Time) ([]domain.Calculation, error) {
	s.mu.Lock()
	s.starts = append(s.starts, start)
	s.ends = append(s.ends, end)
	s.mu.Unlock()
	if err := s.err[companyID]; err != nil {
		return nil, err
	}
	return s.rows[companyID], nil
}

type stubTenants struct {
	brokerages []domain.Brokerage
	admins     map[string][]domain.User
	users      map[string]domain.User
	listErr    error
	recordErr  error

	mu      sync.Mutex
	records []domain.ReportRunRecord
}

func (s *stubTenants) GetBrokerage(_ context.Context, companyID string) (*domain.Brokerage, error) {
	for _, b := range s.brokerages {
		if b.ID == companyID {
			b := b
			return &b, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
}

func (s *stubTenants) ListReportBrokerages(_ context.Context) ([]domain.Brokerage, error) {
	return s.brokerages, s.listErr
}

func (s *stubTenants) ListBrokerageAdmins(_ context.Context, companyID string) ([]domain.User, error) {
	return s.admins[companyID], nil
}

func (s *stubTenants) GetUser(_ context.Context, userID string) (*domain.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &u, nil
}

func (s *stubTenants) RecordReportRun(_ context.Context, run *domain.ReportRunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *run)
	return s.recordErr
}

type stubRenderer struct {
	ext string
	err error

	mu    sync.Mutex
	calls int
}

func (s *stubRenderer) Render(_ context.Context, doc *domain.ReportDocument) (*domain.Attachment, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Attachment{
		Filename:    doc.Company.ID + "." + s.ext,
		ContentType: "application/octet-stream",
		Data:        []byte(s.ext),
	}, nil
}

type stubMailer struct {
	failFor map[string]bool
	sent    []*domain.ReportEmail
}

func (s *stubMailer) Send(_ context.Context, email *domain.ReportEmail) error {
	if s.failFor[email.To] {
		return &domain.ErrExternalService{Service: "mailgun", Err: errors.New("rejected")}
	}
	s.sent = append(s.sent, email)
	return nil
}

// --- Fixtures ---

var fixedNow = time.Date(2026, time.October, 3, 6, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func calc(client, pair string, savings float64) domain.Calculation {
	return domain.Calculation{
		ClientName:      client,
		CurrencyPair:    pair,
		AmountToBuy:     f(10000),
		SavingsPerTrade: f(savings),
		AnnualSavings:   f(savings * 12),
		TradesPerYear:   f(12),
		Broker:          "Sam",
		CreatedAt:       fixedNow.AddDate(0, -1, 0),
	}
}

type reportFixture struct {
	calcs   *stubCalculations
	tenants *stubTenants
	pdf     *stubRenderer
	xlsx    *stubRenderer
	mailer  *stubMailer
	metrics *observability.Metrics
	svc     *ReportService
}

func newReportFixture() *reportFixture {
	fx := &reportFixture{
		calcs: &stubCalculations{
			rows: map[string][]domain.Calculation{
				"co-1": {calc("Acme Ltd", "GBP/EUR", 100), calc("acme ltd ", "GBP/USD", 50), calc("Bolt Co", "GBP/EUR", 20)},
				"co-3": {calc("Zen Ltd", "GBP/JPY", 10)},
			},
			err: map[string]error{},
		},
		tenants: &stubTenants{
			brokerages: []domain.Brokerage{
				{ID: "co-1", Name: "Northside FX", SubscriptionStatus: "active"},
				{ID: "co-2", Name: "Quiet FX", SubscriptionStatus: "active"},
				{ID: "co-3", Name: "Orphan FX", SubscriptionStatus: "trialing"},
			},
			admins: map[string][]domain.User{
				"co-1": {
					{ID: "u-1", CompanyID: "co-1", Email: "dana@northside.test", DisplayName: "Dana", Role: "admin"},
					{ID: "u-2", CompanyID: "co-1", Email: "lee@northside.test", DisplayName: "Lee", Role: "admin"},
				},
				"co-2": {{ID: "u-3", CompanyID: "co-2", Email: "kim@quiet.test", Role: "admin"}},
				"co-3": {{ID: "u-4", CompanyID: "co-3", Email: " ", Role: "admin"}},
			},
			users: map[string]domain.User{
				"u-1": {ID: "u-1", CompanyID: "co-1", Email: "dana@northside.test"},
			},
		},
		pdf:     &stubRenderer{ext: "pdf"},
		xlsx:    &stubRenderer{ext: "xlsx"},
		mailer:  &stubMailer{failFor: map[string]bool{}},
		metrics: observability.NewMetrics(),
	}
	fx.svc = NewReportService(fx.calcs, fx.tenants, fx.pdf, fx.xlsx, fx.mailer,
		ReportConfig{Brand: "Spread Checker", MaxConcurrency: 2}, fx.metrics, zap.NewNop())
	fx.svc.now = func() time.Time { return fixedNow }
	fx.svc.newRunID = func() string { return "run-1" }
	return fx
}

func (fx *reportFixture) company(id string) domain.Brokerage {
	b, _ := fx.tenants.GetBrokerage(context.Background(), id)
	return *b
}

// --- Tests ---

func TestAuthorizeCompany(t *testing.T) {
	fx := newReportFixture()

	assert.NoError(t, fx.svc.AuthorizeCompany(context.Background(), "u-1", "co-1"))

	var forbidden *domain.ErrForbidden
	assert.True(t, errors.As(fx.svc.AuthorizeCompany(context.Background(), "u-1", "co-2"), &forbidden))
	assert.True(t, errors.As(fx.svc.AuthorizeCompany(context.Background(), "ghost", "co-1"), &forbidden))
}

func TestBuildReport_Aggregates(t *testing.T) {
	fx := newReportFixture()
	period := domain.ReportPeriod{Start: fixedNow.AddDate(0, -2, 0), End: fixedNow}

	rep, err := fx.svc.BuildReport(context.Background(), "co-1", period)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Summary.TotalClients)
	assert.Equal(t, 3, rep.Summary.TotalCalculations)
	require.Len(t, rep.Clients, 2)
	assert.Equal(t, "Acme Ltd", rep.Clients[0].ClientName)
	assert.Equal(t, 2, rep.Clients[0].Stats.TotalCalculations)
}

func TestBuildReport_EmptyPeriod(t *testing.T) {
	fx := newReportFixture()
	rep, err := fx.svc.BuildReport(context.Background(), "co-2", domain.ReportPeriod{Start: fixedNow, End: fixedNow})
	require.NoError(t, err)
	assert.Empty(t, rep.Clients)
	assert.Zero(t, rep.Summary.TotalCalculations)
}

func TestBuildReport_Validation(t *testing.T) {
	fx := newReportFixture()
	var ve *domain.ErrValidation

	_, err := fx.svc.BuildReport(context.Background(), " ", domain.ReportPeriod{})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "companyId", ve.Field)

	_, err = fx.svc.BuildReport(context.Background(), "co-1", domain.ReportPeriod{Start: fixedNow, End: fixedNow.Add(-time.Hour)})
	require.True(t, errors.As(err, &ve))
}

func TestBuildReport_StoreError(t *testing.T) {
	fx := newReportFixture()
	fx.calcs.err["co-1"] = &domain.ErrExternalService{Service: "supabase/calculations", Err: errors.New("down")}

	_, err := fx.svc.BuildReport(context.Background(), "co-1", domain.ReportPeriod{End: fixedNow})
	var ext *domain.ErrExternalService
	assert.True(t, errors.As(err, &ext))
	assert.Equal(t, float64(1), fx.metrics.CounterValue("external_errors", "calculations"))
}

func TestSendCompanyReport_Sent(t *testing.T) {
	fx := newReportFixture()
	period := domain.ReportPeriod{Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC)}

	res := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), period, "scheduled", false)

	assert.Equal(t, domain.ReportStatusSent, res.Status)
	assert.Equal(t, 2, res.Recipients)
	assert.Equal(t, 2, res.EmailsSent)
	assert.Equal(t, 2, res.Clients)
	assert.Empty(t, res.Error)

	require.Len(t, fx.mailer.sent, 2)
	email := fx.mailer.sent[0]
	assert.Equal(t, "dana@northside.test", email.To)
	assert.Equal(t, "Spread Checker report for Northside FX: September 2026", email.Subject)
	assert.Contains(t, email.HTML, "Acme Ltd")
	assert.Contains(t, email.Text, "Hi Dana,")
	require.Len(t, email.Attachments, 2)
	assert.Equal(t, "co-1.pdf", email.Attachments[0].Filename)
	assert.Equal(t, "co-1.xlsx", email.Attachments[1].Filename)

	assert.Equal(t, 1, fx.pdf.calls, "rendered once per company, not per admin")

	require.Len(t, fx.tenants.records, 1)
	rec := fx.tenants.records[0]
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, "co-1", rec.CompanyID)
	assert.Equal(t, domain.ReportStatusSent, rec.Status)
	assert.Equal(t, 2, rec.EmailsSent)
	assert.Equal(t, period.Start, rec.PeriodStart)

	assert.Equal(t, float64(1), fx.metrics.CounterValue("reports", "scheduled", "sent"))
	assert.Equal(t, float64(2), fx.metrics.CounterValue("report_emails", "sent"))
}

func TestSendCompanyReport_Partial(t *testing.T) {
	fx := newReportFixture()
	fx.mailer.failFor["lee@northside.test"] = true

	res := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)

	assert.Equal(t, domain.ReportStatusPartial, res.Status)
	assert.Equal(t, 1, res.EmailsSent)
	assert.Contains(t, res.Error, "lee@northside.test")
	assert.Equal(t, float64(1), fx.metrics.CounterValue("report_emails", "failed"))
}

func TestSendCompanyReport_AllSendsFail(t *testing.T) {
	fx := newReportFixture()
	fx.mailer.failFor["dana@northside.test"] = true
	fx.mailer.failFor["lee@northside.test"] = true

	res := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)
	assert.Equal(t, domain.ReportStatusFailed, res.Status)
	assert.Zero(t, res.EmailsSent)
}

func TestSendCompanyReport_Skipped(t *testing.T) {
	fx := newReportFixture()

	quiet := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-2"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)
	assert.Equal(t, domain.ReportStatusSkipped, quiet.Status)
	assert.Empty(t, quiet.Error)

	orphan := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-3"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)
	assert.Equal(t, domain.ReportStatusSkipped, orphan.Status)
	assert.Equal(t, "no admin recipients", orphan.Error)

	assert.Empty(t, fx.mailer.sent)
	assert.Zero(t, fx.pdf.calls)
	assert.Len(t, fx.tenants.records, 2)
}

func TestSendCompanyReport_FetchAndRenderFailures(t *testing.T) {
	fx := newReportFixture()
	fx.calcs.err["co-1"] = errors.New("connection reset")

	res := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)
	assert.Equal(t, domain.ReportStatusFailed, res.Status)
	assert.Contains(t, res.Error, "connection reset")

	fx = newReportFixture()
	fx.pdf.err = errors.New("font missing")
	res = fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)
	assert.Equal(t, domain.ReportStatusFailed, res.Status)
	assert.Contains(t, res.Error, "renderer")
	assert.Empty(t, fx.mailer.sent)
}

func TestSendCompanyReport_DryRun(t *testing.T) {
	fx := newReportFixture()

	res := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), domain.ReportPeriod{End: fixedNow}, "test", true)

	assert.Equal(t, domain.ReportStatusDryRun, res.Status)
	assert.Equal(t, 2, res.Recipients)
	assert.Zero(t, res.EmailsSent)
	assert.Empty(t, fx.mailer.sent)
	assert.Equal(t, 1, fx.pdf.calls)
	assert.Equal(t, 1, fx.xlsx.calls)
	assert.Empty(t, fx.tenants.records)
}

func TestSendCompanyReport_RecordFailureKeepsOutcome(t *testing.T) {
	fx := newReportFixture()
	fx.tenants.recordErr = errors.New("insert failed")

	res := fx.svc.SendCompanyReport(context.Background(), "run-1", fx.company("co-1"), domain.ReportPeriod{End: fixedNow}, "scheduled", false)
	assert.Equal(t, domain.ReportStatusSent, res.Status)
	assert.Equal(t, float64(1), fx.metrics.CounterValue("external_errors", "report_runs"))
}

func TestRunMonthly(t *testing.T) {
	fx := newReportFixture()
	fx.tenants.brokerages = append(fx.tenants.brokerages, domain.Brokerage{ID: "co-4", Name: "Broken FX"})
	fx.tenants.admins["co-4"] = []domain.User{{ID: "u-5", Email: "ops@broken.test"}}
	fx.calcs.err["co-4"] = errors.New("timeout")

	run, err := fx.svc.RunMonthly(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "scheduled", run.Mode)
	assert.Equal(t, "2026-09-01T00:00:00Z", run.PeriodStart)
	assert.Equal(t, 4, run.Processed)
	assert.Equal(t, 1, run.Sent)
	assert.Equal(t, 2, run.Skipped)
	assert.Equal(t, 1, run.Failed)
	require.Len(t, run.Results, 4)
	assert.Equal(t, "co-4", run.Results[3].CompanyID)

	for _, start := range fx.calcs.starts {
		assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), start)
	}
	assert.Len(t, fx.tenants.records, 4)
}

func TestRunMonthly_ListError(t *testing.T) {
	fx := newReportFixture()
	fx.tenants.listErr = &domain.ErrExternalService{Service: "supabase/companies", Err: errors.New("down")}

	_, err := fx.svc.RunMonthly(context.Background(), false)
	assert.Error(t, err)
}

func TestRunMonthly_Cancelled(t *testing.T) {
	fx := newReportFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := fx.svc.RunMonthly(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, run.Processed)
}

func TestRunTest(t *testing.T) {
	fx := newReportFixture()

	run, err := fx.svc.RunTest(context.Background(), "co-1", false)
	require.NoError(t, err)
	assert.Equal(t, "test", run.Mode)
	assert.Equal(t, 1, run.Processed)
	assert.Equal(t, 1, run.Sent)
	assert.Equal(t, fixedNow.AddDate(0, 0, -TestWindowDays), fx.calcs.starts[0])
	assert.Equal(t, fixedNow, fx.calcs.ends[0])

	_, err = fx.svc.RunTest(context.Background(), "missing", false)
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))

	_, err = fx.svc.RunTest(context.Background(), "", false)
	var ve *domain.ErrValidation
	assert.True(t, errors.As(err, &ve))
}

func TestExportCalculations(t *testing.T) {
	fx := newReportFixture()

	att, err := fx.svc.ExportCalculations(context.Background(), "co-1", domain.ReportPeriod{End: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, "co-1.xlsx", att.Filename)
	assert.Zero(t, fx.pdf.calls)

	_, err = fx.svc.ExportCalculations(context.Background(), "missing", domain.ReportPeriod{End: fixedNow})
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}
