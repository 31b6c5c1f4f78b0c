package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/observability"
	"github.com/boddenberg/spread-checker-go/internal/infra/resilience"
	"github.com/boddenberg/spread-checker-go/internal/port"
	"github.com/boddenberg/spread-checker-go/internal/report"
)

// TestWindowDays is the trailing window used by test report runs.
const TestWindowDays = 30

// ReportConfig tunes report generation.
type ReportConfig struct {
	Brand          string
	MaxConcurrency int
}

// ReportService aggregates activity into reports, renders them and emails
// them to brokerage admins.
type ReportService struct {
	calculations port.CalculationStore
	tenants      port.TenantStore
	pdf          port.DocumentRenderer
	xlsx         port.DocumentRenderer
	mailer       port.Mailer
	renderSlots  *resilience.Bulkhead
	brand        string
	metrics      *observability.Metrics
	logger       *zap.Logger

	now      func() time.Time
	newRunID func() string
}

// NewReportService creates the service with all dependencies injected.
func NewReportService(
	calculations port.CalculationStore,
	tenants port.TenantStore,
	pdf port.DocumentRenderer,
	xlsx port.DocumentRenderer,
	mailer port.Mailer,
	cfg ReportConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReportService {
	brand := cfg.Brand
	if brand == "" {
		brand = "Spread Checker"
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	return &ReportService{
		calculations: calculations,
		tenants:      tenants,
		pdf:          pdf,
		xlsx:         xlsx,
		mailer:       mailer,
		renderSlots:  resilience.NewBulkhead(cfg.MaxConcurrency),
		brand:        brand,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
		newRunID:     func() string { return uuid.NewString() },
	}
}

// AuthorizeCompany checks that userID belongs to companyID.
func (s *ReportService) AuthorizeCompany(ctx context.Context, userID, companyID string) error {
	ctx, span := tracer.Start(ctx, "ReportService.AuthorizeCompany")
	defer span.End()

	user, err := s.tenants.GetUser(ctx, userID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return &domain.ErrForbidden{Action: "access company " + companyID}
		}
		return fmt.Errorf("user lookup: %w", err)
	}
	if user.CompanyID != companyID {
		s.logger.Warn("cross-tenant report access denied",
			zap.String("user_id", userID),
			zap.String("company_id", companyID),
		)
		return &domain.ErrForbidden{Action: "access company " + companyID}
	}
	return nil
}

// BuildReport aggregates a company's activity over the period. An empty
// period yields an empty client list and a zero summary.
func (s *ReportService) BuildReport(ctx context.Context, companyID string, period domain.ReportPeriod) (*domain.Report, error) {
	ctx, span := tracer.Start(ctx, "ReportService.BuildReport")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if strings.TrimSpace(companyID) == "" {
		return nil, &domain.ErrValidation{Field: "companyId", Message: "companyId is required"}
	}
	if period.End.Before(period.Start) {
		return nil, &domain.ErrValidation{Field: "endDateISO", Message: "end date is before start date"}
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("report_aggregate", time.Since(start))
	}()

	rows, err := s.calculations.ListCalculations(ctx, companyID, period.Start, period.End)
	if err != nil {
		s.metrics.IncrExternalError("calculations")
		return nil, fmt.Errorf("calculations fetch: %w", err)
	}
	return report.Aggregate(rows), nil
}

// ExportCalculations renders the period's raw activity and client summary
// as an XLSX workbook.
func (s *ReportService) ExportCalculations(ctx context.Context, companyID string, period domain.ReportPeriod) (*domain.Attachment, error) {
	ctx, span := tracer.Start(ctx, "ReportService.ExportCalculations")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if period.End.Before(period.Start) {
		return nil, &domain.ErrValidation{Field: "end", Message: "end date is before start date"}
	}

	var (
		company *domain.Brokerage
		rows    []domain.Calculation
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.tenants.GetBrokerage(gCtx, companyID)
		if err != nil {
			return fmt.Errorf("company fetch: %w", err)
		}
		company = c
		return nil
	})
	g.Go(func() error {
		r, err := s.calculations.ListCalculations(gCtx, companyID, period.Start, period.End)
		if err != nil {
			s.metrics.IncrExternalError("calculations")
			return fmt.Errorf("calculations fetch: %w", err)
		}
		rows = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := &domain.ReportDocument{
		Company:      *company,
		Period:       period,
		Report:       report.Aggregate(rows),
		Calculations: rows,
		GeneratedAt:  s.now().UTC(),
	}
	return s.render(ctx, s.xlsx, doc)
}

// RunMonthly sends the previous calendar month's report to every
// subscribed brokerage, one company at a time. A company's failure is
// recorded in the result and never stops the batch.
func (s *ReportService) RunMonthly(ctx context.Context, dryRun bool) (*domain.ReportRunResult, error) {
	ctx, span := tracer.Start(ctx, "ReportService.RunMonthly")
	defer span.End()

	period := report.PreviousMonth(s.now())
	run := s.newRun(report.ModeScheduled, period)
	span.SetAttributes(attribute.String("run.id", run.RunID), attribute.Bool("dry_run", dryRun))

	companies, err := s.tenants.ListReportBrokerages(ctx)
	if err != nil {
		s.metrics.IncrExternalError("companies")
		return nil, fmt.Errorf("list report companies: %w", err)
	}

	s.logger.Info("monthly report run started",
		zap.String("run_id", run.RunID),
		zap.String("period", report.Label(period)),
		zap.Int("companies", len(companies)),
		zap.Bool("dry_run", dryRun),
	)

	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("monthly report run cancelled",
				zap.String("run_id", run.RunID),
				zap.Int("processed", run.Processed),
			)
			return run, err
		}
		res := s.SendCompanyReport(ctx, run.RunID, company, period, report.ModeScheduled, dryRun)
		addResult(run, res)
	}

	s.logger.Info("monthly report run finished",
		zap.String("run_id", run.RunID),
		zap.Int("processed", run.Processed),
		zap.Int("sent", run.Sent),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)
	return run, nil
}

// RunTest sends a report covering the trailing TestWindowDays to one
// brokerage.
func (s *ReportService) RunTest(ctx context.Context, companyID string, dryRun bool) (*domain.ReportRunResult, error) {
	ctx, span := tracer.Start(ctx, "ReportService.RunTest")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	if strings.TrimSpace(companyID) == "" {
		return nil, &domain.ErrValidation{Field: "companyId", Message: "companyId is required"}
	}

	company, err := s.tenants.GetBrokerage(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("company fetch: %w", err)
	}

	period := report.TrailingDays(s.now(), TestWindowDays)
	run := s.newRun(report.ModeTest, period)
	addResult(run, s.SendCompanyReport(ctx, run.RunID, *company, period, report.ModeTest, dryRun))
	return run, nil
}

// SendCompanyReport produces and delivers one company's report. Every
// outcome, including failures, is returned as a result rather than an
// error. Admin sends are independent: some may fail while others succeed.
func (s *ReportService) SendCompanyReport(ctx context.Context, runID string, company domain.Brokerage, period domain.ReportPeriod, mode string, dryRun bool) (res domain.CompanyReportResult) {
	ctx, span := tracer.Start(ctx, "ReportService.SendCompanyReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("company.id", company.ID),
		attribute.String("run.mode", mode),
	)

	start := time.Now()
	res = domain.CompanyReportResult{CompanyID: company.ID, CompanyName: company.Name}
	log := s.logger.With(
		zap.String("run_id", runID),
		zap.String("company_id", company.ID),
		zap.String("company_name", company.Name),
	)

	defer func() {
		s.metrics.RecordDuration("report_company", time.Since(start))
		s.metrics.IncrReport(mode, res.Status)
		span.SetAttributes(attribute.String("report.status", res.Status))
		if dryRun {
			return
		}
		s.record(ctx, log, &domain.ReportRunRecord{
			RunID:       runID,
			CompanyID:   company.ID,
			Mode:        mode,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
			Status:      res.Status,
			EmailsSent:  res.EmailsSent,
			Error:       res.Error,
		})
	}()

	var (
		rows   []domain.Calculation
		admins []domain.User
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.calculations.ListCalculations(gCtx, company.ID, period.Start, period.End)
		if err != nil {
			s.metrics.IncrExternalError("calculations")
			return fmt.Errorf("calculations fetch: %w", err)
		}
		rows = r
		return nil
	})
	g.Go(func() error {
		a, err := s.tenants.ListBrokerageAdmins(gCtx, company.ID)
		if err != nil {
			s.metrics.IncrExternalError("admins")
			return fmt.Errorf("admins fetch: %w", err)
		}
		admins = a
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error("report fetch failed", zap.Error(err))
		return failed(res, err)
	}

	rep := report.Aggregate(rows)
	res.Clients = len(rep.Clients)
	if rep.Summary.TotalCalculations == 0 {
		log.Info("no activity in period, skipping report")
		res.Status = domain.ReportStatusSkipped
		return res
	}

	recipients := withEmail(admins)
	res.Recipients = len(recipients)
	if len(recipients) == 0 {
		log.Warn("company has no admin recipients, skipping report")
		res.Status = domain.ReportStatusSkipped
		res.Error = "no admin recipients"
		return res
	}

	doc := &domain.ReportDocument{
		Company:      company,
		Period:       period,
		Report:       rep,
		Calculations: rows,
		GeneratedAt:  s.now().UTC(),
	}
	pdf, err := s.render(ctx, s.pdf, doc)
	if err != nil {
		log.Error("pdf render failed", zap.Error(err))
		return failed(res, err)
	}
	sheet, err := s.render(ctx, s.xlsx, doc)
	if err != nil {
		log.Error("xlsx render failed", zap.Error(err))
		return failed(res, err)
	}

	if dryRun {
		log.Info("dry run, report not sent",
			zap.Int("clients", res.Clients),
			zap.Int("recipients", res.Recipients),
		)
		res.Status = domain.ReportStatusDryRun
		return res
	}

	var sendErrs []string
	for _, admin := range recipients {
		email, err := composeReportEmail(s.brand, admin, doc, []domain.Attachment{*pdf, *sheet})
		if err == nil {
			err = s.mailer.Send(ctx, email)
		}
		if err != nil {
			s.metrics.IncrReportEmail("failed")
			log.Error("report email failed", zap.String("to", admin.Email), zap.Error(err))
			sendErrs = append(sendErrs, fmt.Sprintf("%s: %v", admin.Email, err))
			continue
		}
		s.metrics.IncrReportEmail("sent")
		res.EmailsSent++
	}

	switch {
	case res.EmailsSent == len(recipients):
		res.Status = domain.ReportStatusSent
	case res.EmailsSent > 0:
		res.Status = domain.ReportStatusPartial
	default:
		res.Status = domain.ReportStatusFailed
	}
	if len(sendErrs) > 0 {
		res.Error = strings.Join(sendErrs, "; ")
	}

	log.Info("company report processed",
		zap.String("status", res.Status),
		zap.Int("emails_sent", res.EmailsSent),
		zap.Int("recipients", res.Recipients),
	)
	return res
}

// CheckStore probes the row store for the health endpoint. A missing
// probe row still proves the store answered.
func (s *ReportService) CheckStore(ctx context.Context) error {
	_, err := s.tenants.GetBrokerage(ctx, "00000000-0000-0000-0000-000000000000")
	var nf *domain.ErrNotFound
	if err != nil && !errors.As(err, &nf) {
		return err
	}
	return nil
}

func (s *ReportService) render(ctx context.Context, r port.DocumentRenderer, doc *domain.ReportDocument) (*domain.Attachment, error) {
	if err := s.renderSlots.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.renderSlots.Release()

	att, err := r.Render(ctx, doc)
	if err != nil {
		s.metrics.IncrExternalError("renderer")
		return nil, &domain.ErrExternalService{Service: "renderer", Err: err}
	}
	return att, nil
}

// record persists the per-company outcome. A failed insert is logged and
// does not change the outcome.
func (s *ReportService) record(ctx context.Context, log *zap.Logger, rec *domain.ReportRunRecord) {
	if err := s.tenants.RecordReportRun(context.WithoutCancel(ctx), rec); err != nil {
		s.metrics.IncrExternalError("report_runs")
		log.Warn("failed to record report run", zap.Error(err))
	}
}

func (s *ReportService) newRun(mode string, period domain.ReportPeriod) *domain.ReportRunResult {
	return &domain.ReportRunResult{
		RunID:       s.newRunID(),
		Mode:        mode,
		PeriodStart: period.Start.Format(time.RFC3339),
		PeriodEnd:   period.End.Format(time.RFC3339),
		Results:     []domain.CompanyReportResult{},
	}
}

func addResult(run *domain.ReportRunResult, res domain.CompanyReportResult) {
	run.Processed++
	switch res.Status {
	case domain.ReportStatusSent, domain.ReportStatusPartial, domain.ReportStatusDryRun:
		run.Sent++
	case domain.ReportStatusSkipped:
		run.Skipped++
	default:
		run.Failed++
	}
	run.Results = append(run.Results, res)
}

func failed(res domain.CompanyReportResult, err error) domain.CompanyReportResult {
	res.Status = domain.ReportStatusFailed
	res.Error = err.Error()
	return res
}

func withEmail(users []domain.User) []domain.User {
	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if strings.TrimSpace(u.Email) != "" {
			out = append(out, u)
		}
	}
	return out
}
