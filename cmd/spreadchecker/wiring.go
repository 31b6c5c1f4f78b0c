package main

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/config"
	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/handler"
	"github.com/boddenberg/spread-checker-go/internal/infra/cache"
	"github.com/boddenberg/spread-checker-go/internal/infra/mailer"
	"github.com/boddenberg/spread-checker-go/internal/infra/observability"
	"github.com/boddenberg/spread-checker-go/internal/infra/render"
	"github.com/boddenberg/spread-checker-go/internal/infra/resilience"
	"github.com/boddenberg/spread-checker-go/internal/infra/supabase"
	"github.com/boddenberg/spread-checker-go/internal/service"
	"github.com/boddenberg/spread-checker-go/internal/similarity"
)

var errSupabaseNotConfigured = errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")

// app is the wired dependency graph shared by the serve and reports commands.
type app struct {
	services handler.Services
	metrics  *observability.Metrics
	closers  []func(context.Context) error
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
}

// newApp builds services from configuration. Without Supabase the data
// routes stay unconfigured and answer 503.
func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("size_policy", cfg.SimilaritySizePolicy),
		zap.String("email_provider", cfg.EmailProvider),
	)

	a := &app{metrics: observability.NewMetrics()}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	policy, err := similarity.ParseSizePolicy(cfg.SimilaritySizePolicy)
	if err != nil {
		return nil, err
	}

	a.services.Auth = service.NewAuthService(cfg.SupabaseJWTSecret, cfg.CronSecretHash, logger)
	if cfg.SupabaseJWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set, dashboard routes will reject every token")
	}
	if cfg.CronSecretHash == "" {
		logger.Warn("CRON_SECRET_HASH not set, report triggers will reject every call")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		logger.Warn("Supabase not configured, similarity and report routes unavailable")
		return a, nil
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)
	logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))

	// --- Cache ---
	similarCache := cache.New[*domain.SimilarityResponse](cfg.CacheTTL)
	a.closers = append(a.closers, func(context.Context) error {
		similarCache.Close()
		return nil
	})

	// --- Services ---
	a.services.Similarity = service.NewSimilarityService(
		store,
		similarCache,
		service.SimilarityConfig{
			SizePolicy:      policy,
			SourceLimit:     cfg.SimilaritySourceLimit,
			CandidateLimit:  cfg.SimilarityCandidateLimit,
			PrioritySectors: cfg.PrioritySectors,
		},
		a.metrics,
		logger,
	)

	a.services.Reports = service.NewReportService(
		store,
		store,
		render.NewPDFRenderer(cfg.ReportBrand, logger),
		render.NewSpreadsheetExporter(logger),
		mailer.New(mailer.Config{
			Provider:      cfg.EmailProvider,
			Domain:        cfg.MailgunDomain,
			APIKey:        cfg.MailgunAPIKey,
			APIBase:       cfg.MailgunAPIBase,
			SenderEmail:   cfg.SenderEmail,
			SenderName:    cfg.SenderName,
			RatePerSecond: cfg.EmailRatePerSecond,
		}, logger),
		service.ReportConfig{
			Brand:          cfg.ReportBrand,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		a.metrics,
		logger,
	)

	return a, nil
}
