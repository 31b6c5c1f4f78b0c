package supabase

import (
	"context"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/resilience"
)

// ============================================================
// Tenant store (implements port.TenantStore)
// ============================================================

const roleAdmin = "admin"

// GetBrokerage fetches one tenant by id.
func (c *Client) GetBrokerage(ctx context.Context, companyID string) (*domain.Brokerage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBrokerage")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	q := url.Values{}
	q.Set("select", "id,name,subscription_status")
	q.Set("id", "eq."+companyID)
	q.Set("limit", "1")

	var rows []domain.Brokerage
	if err := c.selectRows(ctx, tableCompanies, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return &rows[0], nil
}

// ListReportBrokerages returns tenants with an active or trialing
// subscription, ordered by name.
func (c *Client) ListReportBrokerages(ctx context.Context) ([]domain.Brokerage, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListReportBrokerages")
	defer span.End()

	q := url.Values{}
	q.Set("select", "id,name,subscription_status")
	q.Set("subscription_status", inList("active", "trialing"))
	q.Set("order", "name.asc")

	var rows []domain.Brokerage
	if err := c.selectRows(ctx, tableCompanies, q, &rows); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("companies", len(rows)))
	return rows, nil
}

// ListBrokerageAdmins returns the admin users of a tenant.
func (c *Client) ListBrokerageAdmins(ctx context.Context, companyID string) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBrokerageAdmins")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	q := url.Values{}
	q.Set("select", "id,company_id,email,display_name,role")
	q.Set("company_id", "eq."+companyID)
	q.Set("role", "eq."+roleAdmin)

	var rows []domain.User
	if err := c.selectRows(ctx, tableUsers, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetUser fetches one dashboard user by id.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	q := url.Values{}
	q.Set("select", "id,company_id,email,display_name,role")
	q.Set("id", "eq."+userID)
	q.Set("limit", "1")

	var rows []domain.User
	if err := c.selectRows(ctx, tableUsers, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return &rows[0], nil
}

// RecordReportRun inserts one report_runs row. Inserts are not retried.
func (c *Client) RecordReportRun(ctx context.Context, run *domain.ReportRunRecord) error {
	ctx, span := tracer.Start(ctx, "Supabase.RecordReportRun")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", run.RunID),
		attribute.String("company.id", run.CompanyID),
		attribute.String("run.status", run.Status),
	)

	data := map[string]any{
		"run_id":       run.RunID,
		"company_id":   run.CompanyID,
		"mode":         run.Mode,
		"period_start": run.PeriodStart.UTC().Format(time.RFC3339),
		"period_end":   run.PeriodEnd.UTC().Format(time.RFC3339),
		"status":       run.Status,
		"emails_sent":  run.EmailsSent,
	}
	if run.Error != "" {
		data["error"] = run.Error
	}

	noRetry := c.cfg
	noRetry.MaxRetries = 0
	service := "supabase/" + tableReportRuns
	err := resilience.Call(ctx, c.cb, noRetry, service, func() error {
		return c.doPost(ctx, tableReportRuns, data)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: service, Err: err}
	}
	return nil
}
