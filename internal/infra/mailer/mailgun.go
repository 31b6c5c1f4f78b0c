package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

const sendTimeout = 20 * time.Second

// Mailgun sends report emails through the Mailgun API, paced by a token
// bucket so a monthly run never bursts past the account's sending limit.
type Mailgun struct {
	mg      mailgun.Mailgun
	from    string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewMailgun creates a Mailgun mailer. A non-positive rate disables pacing.
func NewMailgun(cfg Config, logger *zap.Logger) *Mailgun {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	from := cfg.SenderEmail
	if cfg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.SenderName, cfg.SenderEmail)
	}

	logger.Info("mailgun client initialized", zap.String("domain", cfg.Domain))
	return &Mailgun{
		mg:      mg,
		from:    from,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Send implements port.Mailer.
func (m *Mailgun) Send(ctx context.Context, email *domain.ReportEmail) error {
	ctx, span := tracer.Start(ctx, "Mailer.Mailgun")
	defer span.End()
	span.SetAttributes(attribute.Int("attachments", len(email.Attachments)))

	if err := m.limiter.Wait(ctx); err != nil {
		return &domain.ErrExternalService{Service: "mailgun", Err: err}
	}

	to := email.To
	if email.ToName != "" {
		to = fmt.Sprintf("%s <%s>", email.ToName, email.To)
	}

	msg := m.mg.NewMessage(m.from, email.Subject, email.Text, to)
	if email.HTML != "" {
		msg.SetHtml(email.HTML)
	}
	for _, a := range email.Attachments {
		msg.AddBufferAttachment(a.Filename, a.Data)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, id, err := m.mg.Send(ctx, msg)
	if err != nil {
		m.logger.Error("failed to send report email via mailgun",
			zap.String("to", email.To),
			zap.String("mailgun_resp", resp),
			zap.Error(err),
		)
		return &domain.ErrExternalService{Service: "mailgun", Err: err}
	}

	m.logger.Info("report email sent via mailgun",
		zap.String("to", email.To),
		zap.String("id", id),
	)
	return nil
}
