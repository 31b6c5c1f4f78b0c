// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from the row store, renderers and mailer.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// CompanyRegistry queries the company registry dataset.
type CompanyRegistry interface {
	// SearchCompanies returns up to limit active companies whose name
	// contains fragment (case-insensitive) and that have an industry code.
	SearchCompanies(ctx context.Context, fragment string, limit int) ([]domain.Company, error)

	// ListCompaniesByIndustryCodes returns up to limit active companies,
	// other than excludeNumber, with any code slot equal to any of codes.
	ListCompaniesByIndustryCodes(ctx context.Context, codes []string, excludeNumber string, limit int) ([]domain.Company, error)
}

// CalculationStore reads the activity log.
type CalculationStore interface {
	// ListCalculations returns a brokerage's calculations in [start, end],
	// joined to the broker display name, ordered by client name then by
	// creation time ascending.
	ListCalculations(ctx context.Context, companyID string, start, end time.Time) ([]domain.Calculation, error)
}

// TenantStore reads brokerages and their users and records report runs.
type TenantStore interface {
	GetBrokerage(ctx context.Context, companyID string) (*domain.Brokerage, error)
	ListReportBrokerages(ctx context.Context) ([]domain.Brokerage, error)
	ListBrokerageAdmins(ctx context.Context, companyID string) ([]domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	RecordReportRun(ctx context.Context, run *domain.ReportRunRecord) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
