package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/observability"
	"github.com/boddenberg/spread-checker-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Services bundles what the router dispatches to. Nil services leave their
// routes answering 503, which keeps the operational endpoints testable alone.
type Services struct {
	Similarity *service.SimilarityService
	Reports    *service.ReportService
	Auth       *service.AuthService
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, allowedOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Reports))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// POST /v1/similar-companies
		r.Post("/similar-companies", similarCompaniesHandler(svcs.Similarity, logger))

		// Dashboard endpoints (Supabase session required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svcs.Auth, logger))

			r.Post("/reports/aggregate", aggregateReportHandler(svcs.Reports, logger))
			r.Get("/companies/{companyId}/calculations/export", exportCalculationsHandler(svcs.Reports, logger))
		})

		// Scheduled triggers (cron secret required)
		r.Group(func(r chi.Router) {
			r.Use(CronSecretMiddleware(svcs.Auth, logger))

			r.Post("/reports/monthly/run", monthlyRunHandler(svcs.Reports, logger))
			r.Post("/reports/test/{companyId}", testRunHandler(svcs.Reports, logger))
		})
	})

	return r
}

func healthzHandler(reports *service.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "spread-checker-api", Status: "healthy", LastChecked: now},
		}

		if reports != nil {
			start := time.Now()
			err := reports.CheckStore(r.Context())
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:        "supabase",
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overall = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
