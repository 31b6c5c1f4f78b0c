// Package supabase provides the row-store adapter over Supabase PostgREST.
// It implements the registry, calculation and tenant ports.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/resilience"
)

var tracer = otel.Tracer("supabase")

// PostgREST table names.
const (
	tableRegistry     = "registry_companies"
	tableCompanies    = "companies"
	tableUsers        = "users"
	tableCalculations = "calculations"
	tableReportRuns   = "report_runs"
)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	pageSize       int
	logger         *zap.Logger
}

// DefaultPageSize matches the Supabase max-rows default. A page shorter
// than this ends a paged read.
const DefaultPageSize = 1000

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		pageSize:       DefaultPageSize,
		logger:         logger,
	}
}

// statusError is a non-2xx PostgREST response. The body carries the
// upstream message surfaced to API callers.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

// doRequest executes an authenticated GET-style request to PostgREST.
// 4xx responses are marked permanent so they are not retried.
func (c *Client) doRequest(ctx context.Context, method, table string, query url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("table", table),
			zap.Error(err),
		)
		return nil, &resilience.Permanent{Err: err}
	}
	c.setHeaders(req, "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("table", table),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("table", table),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("table", table),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		serr := &statusError{Status: resp.StatusCode, Body: upstreamMessage(body)}
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, &resilience.Permanent{Err: serr}
		}
		return nil, serr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("table", table),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// selectRows runs a GET through the breaker and retry policy and decodes
// the JSON array into out. Failures are reported as ErrExternalService.
func (c *Client) selectRows(ctx context.Context, table string, query url.Values, out any) error {
	service := "supabase/" + table
	err := resilience.Call(ctx, c.cb, c.cfg, service, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, table, query)
		if err != nil {
			return err
		}
		if len(body) == 0 {
			body = []byte("[]")
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &resilience.Permanent{Err: fmt.Errorf("decode %s: %w", table, err)}
		}
		return nil
	})
	if err != nil {
		var open *domain.ErrCircuitOpen
		if errors.As(err, &open) {
			return err
		}
		return &domain.ErrExternalService{Service: service, Err: err}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// upstreamMessage extracts the "message" field of a PostgREST error body,
// falling back to the raw body.
func upstreamMessage(body []byte) string {
	var pgErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &pgErr); err == nil && pgErr.Message != "" {
		return pgErr.Message
	}
	return string(body)
}
