package port

import (
	"context"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// DocumentRenderer turns a report aggregate into a file attachment.
// The PDF report and the spreadsheet export both implement it.
type DocumentRenderer interface {
	Render(ctx context.Context, doc *domain.ReportDocument) (*domain.Attachment, error)
}

// Mailer delivers one report email.
type Mailer interface {
	Send(ctx context.Context, email *domain.ReportEmail) error
}
