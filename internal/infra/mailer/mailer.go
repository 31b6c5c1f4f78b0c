// Package mailer delivers report emails through Mailgun, or logs them when
// no provider is configured.
package mailer

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/port"
)

var tracer = otel.Tracer("mailer")

// Supported EMAIL_PROVIDER values.
const (
	ProviderMailgun = "mailgun"
	ProviderLog     = "log"
)

// Config selects and configures the email provider.
type Config struct {
	Provider      string
	Domain        string
	APIKey        string
	APIBase       string
	SenderEmail   string
	SenderName    string
	RatePerSecond float64
}

// New returns the configured mailer. An incomplete Mailgun configuration
// falls back to the log mailer with a warning.
func New(cfg Config, logger *zap.Logger) port.Mailer {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	logger.Info("initializing email provider", zap.String("provider", provider))

	switch provider {
	case ProviderMailgun:
		if cfg.Domain == "" || cfg.APIKey == "" || cfg.SenderEmail == "" {
			logger.Warn("mailgun configuration incomplete (domain, api key or sender missing), falling back to log mailer")
			return NewLogMailer(logger)
		}
		return NewMailgun(cfg, logger)
	default:
		return NewLogMailer(logger)
	}
}

// LogMailer logs report emails instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements port.Mailer.
func (m *LogMailer) Send(ctx context.Context, email *domain.ReportEmail) error {
	_, span := tracer.Start(ctx, "Mailer.Log")
	defer span.End()

	names := make([]string, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		names = append(names, a.Filename)
	}
	m.logger.Info("report email (not sent, log provider)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Strings("attachments", names),
	)
	return nil
}
