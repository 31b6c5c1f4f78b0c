package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/report"
	"github.com/boddenberg/spread-checker-go/internal/service"
)

// ============================================================
// Reports (dashboard)
// ============================================================

func aggregateReportHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/aggregate")
		defer span.End()

		if svc == nil {
			serviceUnavailable(w)
			return
		}

		var req domain.AggregateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CompanyID == "" {
			writeError(w, http.StatusBadRequest, "companyId is required")
			return
		}
		span.SetAttributes(attribute.String("company.id", req.CompanyID))

		period, err := report.ParsePeriod(req.StartDateISO, req.EndDateISO)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.AuthorizeCompany(ctx, UserIDFromContext(ctx), req.CompanyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		rep, err := svc.BuildReport(ctx, req.CompanyID, period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, rep)
	}
}

// exportCalculationsHandler serves the XLSX export. Without start and end
// the previous calendar month is exported.
func exportCalculationsHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/companies/{companyId}/calculations/export")
		defer span.End()

		if svc == nil {
			serviceUnavailable(w)
			return
		}

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
		period := report.PreviousMonth(time.Now())
		if start != "" || end != "" {
			p, err := report.ParsePeriod(start, end)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			period = p
		}

		if err := svc.AuthorizeCompany(ctx, UserIDFromContext(ctx), companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		att, err := svc.ExportCalculations(ctx, companyID, period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeAttachment(w, att)
	}
}

// ============================================================
// Reports (scheduled triggers)
// ============================================================

func monthlyRunHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/monthly/run")
		defer span.End()

		if svc == nil {
			serviceUnavailable(w)
			return
		}

		dryRun, err := parseDryRun(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// The batch outlives a disconnected caller.
		run, err := svc.RunMonthly(context.WithoutCancel(ctx), dryRun)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

func testRunHandler(svc *service.ReportService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reports/test/{companyId}")
		defer span.End()

		if svc == nil {
			serviceUnavailable(w)
			return
		}

		dryRun, err := parseDryRun(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		run, err := svc.RunTest(ctx, chi.URLParam(r, "companyId"), dryRun)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}
