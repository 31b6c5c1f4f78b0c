package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/observability"
	"github.com/boddenberg/spread-checker-go/internal/port"
	"github.com/boddenberg/spread-checker-go/internal/similarity"
)

var tracer = otel.Tracer("service")

// Page size bounds for similar-company lookups.
const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Zero-result messages. These are successful responses, not errors.
const (
	MsgSourceNotFound  = "No company matching that name was found in the registry."
	MsgNoIndustryCodes = "The matched company has no industry classification codes, so similar companies cannot be determined."
	MsgNoCandidates    = "No other active companies share this company's industry codes."
	MsgNoMatches       = "No sufficiently similar companies were found."
	MsgAllExcluded     = "All similar companies have already been shown."
)

// SimilarityConfig tunes the lookup.
type SimilarityConfig struct {
	SizePolicy      similarity.SizePolicy
	SourceLimit     int
	CandidateLimit  int
	PrioritySectors []string
}

// SimilarityService finds registry companies similar to a named one.
type SimilarityService struct {
	registry port.CompanyRegistry
	cache    port.Cache[*domain.SimilarityResponse]
	cfg      SimilarityConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSimilarityService creates the service with all dependencies injected.
func NewSimilarityService(
	registry port.CompanyRegistry,
	cache port.Cache[*domain.SimilarityResponse],
	cfg SimilarityConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SimilarityService {
	if cfg.SizePolicy == "" {
		cfg.SizePolicy = similarity.WeightedSizeScore
	}
	if cfg.SourceLimit <= 0 {
		cfg.SourceLimit = 10
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 500
	}
	return &SimilarityService{
		registry: registry,
		cache:    cache,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

// FindSimilar resolves the source company, scores candidates sharing its
// industry codes and returns one page of formatted matches.
func (s *SimilarityService) FindSimilar(ctx context.Context, req *domain.SimilarityRequest) (*domain.SimilarityResponse, error) {
	ctx, span := tracer.Start(ctx, "SimilarityService.FindSimilar")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordDuration("similarity", time.Since(start))
	}()

	name, limit, offset, err := validateSimilarity(req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("company.name", name),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	key := s.cacheKey(name, req.ExcludeCompanies, limit, offset)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("similarity")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("similarity")

	resp, outcome, err := s.findSimilar(ctx, name, req.ExcludeCompanies, limit, offset)
	if err != nil {
		s.metrics.IncrSimilarity("error")
		s.metrics.IncrExternalError("registry")
		s.logger.Error("similar company lookup failed",
			zap.String("company_name", name),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.IncrSimilarity(outcome)
	s.cache.Set(key, resp)
	return resp, nil
}

func (s *SimilarityService) findSimilar(ctx context.Context, name string, exclude []string, limit, offset int) (*domain.SimilarityResponse, string, error) {
	matches, err := s.registry.SearchCompanies(ctx, name, s.cfg.SourceLimit)
	if err != nil {
		return nil, "", fmt.Errorf("source lookup: %w", err)
	}
	if len(matches) == 0 {
		return emptyResponse(MsgSourceNotFound), "no_source", nil
	}

	source := similarity.PickSource(matches, s.cfg.PrioritySectors)
	if source == nil {
		return emptyResponse(MsgNoIndustryCodes), "no_codes", nil
	}
	codes := similarity.IndustryCodes(source)
	if len(codes) == 0 {
		return emptyResponse(MsgNoIndustryCodes), "no_codes", nil
	}

	s.logger.Debug("similarity source resolved",
		zap.String("query", name),
		zap.String("company_number", source.Number),
		zap.String("company_name", source.Name),
		zap.Strings("sic_codes", codes),
	)

	candidates, err := s.registry.ListCompaniesByIndustryCodes(ctx, codes, source.Number, s.cfg.CandidateLimit)
	if err != nil {
		return nil, "", fmt.Errorf("candidate lookup: %w", err)
	}
	if len(candidates) == 0 {
		return emptyResponse(MsgNoCandidates), "no_candidates", nil
	}

	candidates = s.cfg.SizePolicy.Apply(source, candidates)
	scored := similarity.Evaluate(source, candidates)
	if len(scored) == 0 {
		return emptyResponse(MsgNoMatches), "no_matches", nil
	}

	remaining := similarity.Exclude(scored, exclude)
	total := len(remaining)
	page, hasMore := similarity.Paginate(remaining, offset, limit)

	resp := &domain.SimilarityResponse{
		SimilarCompanies: make([]domain.SimilarCompany, 0, len(page)),
		TotalMatches:     &total,
		HasMore:          &hasMore,
	}
	for _, sc := range page {
		resp.SimilarCompanies = append(resp.SimilarCompanies, similarity.Format(source, sc))
	}
	if total == 0 {
		resp.Message = MsgAllExcluded
		return resp, "all_excluded", nil
	}
	return resp, "matched", nil
}

func validateSimilarity(req *domain.SimilarityRequest) (string, int, int, error) {
	if req == nil {
		return "", 0, 0, &domain.ErrValidation{Field: "body", Message: "request body is required"}
	}
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return "", 0, 0, &domain.ErrValidation{Field: "companyName", Message: "companyName is required"}
	}

	limit := DefaultPageSize
	if req.Limit != nil {
		if *req.Limit < 1 {
			return "", 0, 0, &domain.ErrValidation{Field: "limit", Message: "limit must be at least 1"}
		}
		limit = min(*req.Limit, MaxPageSize)
	}

	offset := 0
	if req.Offset != nil {
		if *req.Offset < 0 {
			return "", 0, 0, &domain.ErrValidation{Field: "offset", Message: "offset must not be negative"}
		}
		offset = *req.Offset
	}
	return name, limit, offset, nil
}

// cacheKey is insensitive to the case and punctuation of the name and to
// the order of the exclusion list.
func (s *SimilarityService) cacheKey(name string, exclude []string, limit, offset int) string {
	ex := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if n := similarity.NormalizeName(e); n != "" {
			ex = append(ex, n)
		}
	}
	slices.Sort(ex)
	ex = slices.Compact(ex)

	return strings.Join([]string{
		string(s.cfg.SizePolicy),
		strings.ToLower(name),
		strings.Join(ex, ","),
		strconv.Itoa(limit),
		strconv.Itoa(offset),
	}, "|")
}

func emptyResponse(msg string) *domain.SimilarityResponse {
	return &domain.SimilarityResponse{
		SimilarCompanies: []domain.SimilarCompany{},
		Message:          msg,
	}
}
