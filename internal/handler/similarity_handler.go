package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/service"
)

// ============================================================
// Similar companies
// ============================================================

func similarCompaniesHandler(svc *service.SimilarityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/similar-companies")
		defer span.End()

		if svc == nil {
			serviceUnavailable(w)
			return
		}

		var req domain.SimilarityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.FindSimilar(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
