package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/spread-checker-go/internal/domain"
	"github.com/boddenberg/spread-checker-go/internal/infra/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return NewClient(
		srv.Client(), srv.URL, "anon", "service-role",
		resilience.NewCircuitBreaker("supabase-test-"+t.Name()),
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestSearchCompanies_BuildsFilters(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = io.WriteString(w, `[{"company_number":"01","company_name":"ACME RETAIL LTD","company_status":"Active",
			"sic_code_1":"47190","sic_code_2":null,"accounts_category":"FULL","num_mort_charges":6,
			"reg_address_post_town":"LEEDS","reg_address_country":"ENGLAND","incorporation_date":"2001-05-12"}]`)
	})

	companies, err := c.SearchCompanies(context.Background(), "acme", 10)
	require.NoError(t, err)
	require.Len(t, companies, 1)

	assert.Equal(t, "/rest/v1/registry_companies", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "ilike.*acme*", q.Get("company_name"))
	assert.Equal(t, "eq.Active", q.Get("company_status"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Contains(t, q.Get("or"), "sic_code_4.not.is.null")
	assert.Equal(t, "anon", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer service-role", got.Header.Get("Authorization"))

	acme := companies[0]
	assert.Equal(t, "ACME RETAIL LTD", acme.Name)
	require.NotNil(t, acme.SICCode1)
	assert.Equal(t, "47190", *acme.SICCode1)
	assert.Nil(t, acme.SICCode2)
	assert.Equal(t, 6, acme.MortgageCharges)
	require.NotNil(t, acme.IncorporationDate)
	assert.Equal(t, 2001, acme.IncorporationDate.Year())
}

func TestListCompaniesByIndustryCodes_OrClauses(t *testing.T) {
	var q map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = io.WriteString(w, `[]`)
	})

	companies, err := c.ListCompaniesByIndustryCodes(context.Background(), []string{"47190", "46900"}, "01", 500)
	require.NoError(t, err)
	assert.Empty(t, companies)

	or := q["or"][0]
	assert.Equal(t, 8, strings.Count(or, ".eq."))
	assert.Contains(t, or, "sic_code_3.eq.46900")
	assert.Equal(t, "neq.01", q["company_number"][0])
	assert.Equal(t, "500", q["limit"][0])
}

func TestListCompaniesByIndustryCodes_NoCodesSkipsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	companies, err := c.ListCompaniesByIndustryCodes(context.Background(), nil, "01", 500)
	require.NoError(t, err)
	assert.Empty(t, companies)
}

func TestIndustryCodeClauses_AtMostSixteen(t *testing.T) {
	clauses := industryCodeClauses([]string{"1", "2", "3", "4"})
	assert.Equal(t, 16, strings.Count(clauses, ".eq."))
}

func TestListCalculations_JoinsBrokerName(t *testing.T) {
	var q map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = io.WriteString(w, `[{"id":"c1","user_id":"u1","company_id":"b1","client_name":"Beta Corp",
			"currency_pair":"GBP/EUR","amount_to_buy":1000,"trades_per_year":null,
			"created_at":"2026-09-03T10:00:00Z","users":{"display_name":"Sam"}}]`)
	})

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC)
	rows, err := c.ListCalculations(context.Background(), "b1", start, end)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Sam", rows[0].Broker)
	assert.Equal(t, "Beta Corp", rows[0].ClientName)
	require.NotNil(t, rows[0].AmountToBuy)
	assert.Nil(t, rows[0].TradesPerYear)

	assert.Equal(t, "client_name.asc,created_at.asc,id.asc", q["order"][0])
	assert.Equal(t, "*,users(display_name)", q["select"][0])
	assert.Equal(t, "0", q["offset"][0])
	assert.Len(t, q["created_at"], 2)
}

func TestListCalculations_ReadsEveryPage(t *testing.T) {
	const total = 1500
	var (
		calls   int32
		offsets []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, r.URL.Query().Get("offset"))

		// PostgREST caps every response at max-rows.
		n := min(DefaultPageSize, total-offset)
		page := make([]map[string]any, 0, n)
		for i := offset; i < offset+n; i++ {
			page = append(page, map[string]any{
				"id":          fmt.Sprintf("c%04d", i),
				"company_id":  "b1",
				"client_name": "Client " + strconv.Itoa(i/100),
				"created_at":  "2026-09-03T10:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC)
	rows, err := c.ListCalculations(context.Background(), "b1", start, end)
	require.NoError(t, err)

	assert.Len(t, rows, total)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"0", "1000"}, offsets)
	assert.Equal(t, "c0000", rows[0].ID)
	assert.Equal(t, "c1499", rows[total-1].ID)
}

func TestListCalculations_ExactPageBoundaryEndsOnEmptyPage(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("offset") != "0" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"c1","company_id":"b1","client_name":"A","created_at":"2026-09-03T10:00:00Z"},
			{"id":"c2","company_id":"b1","client_name":"B","created_at":"2026-09-04T10:00:00Z"}]`)
	})
	c.pageSize = 2

	rows, err := c.ListCalculations(context.Background(), "b1", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSelectRows_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"b1","name":"Brokerage One","subscription_status":"active"}]`)
	})

	b, err := c.GetBrokerage(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Brokerage One", b.Name)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSelectRows_ClientErrorSurfacesUpstreamMessage(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": `column "sic_code_9" does not exist`})
	})

	_, err := c.SearchCompanies(context.Background(), "acme", 10)
	require.Error(t, err)

	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "supabase/registry_companies", ext.Service)
	assert.Contains(t, err.Error(), `column "sic_code_9" does not exist`)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestSelectRows_ClientErrorsDoNotOpenBreaker(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": `invalid input syntax for type uuid: "not-a-uuid"`})
	})

	for i := 0; i < 6; i++ {
		_, err := c.GetBrokerage(context.Background(), "not-a-uuid")
		require.Error(t, err)

		var open *domain.ErrCircuitOpen
		require.False(t, errors.As(err, &open), "call %d hit an open breaker", i)
		var ext *domain.ErrExternalService
		require.True(t, errors.As(err, &ext))
	}
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestGetUser_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.GetUser(context.Background(), "missing")
	var nf *domain.ErrNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "user", nf.Resource)
}

func TestListReportBrokerages_SubscriptionFilter(t *testing.T) {
	var q map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = io.WriteString(w, `[{"id":"b1","name":"A"},{"id":"b2","name":"B"}]`)
	})

	rows, err := c.ListReportBrokerages(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, `in.("active","trialing")`, q["subscription_status"][0])
}

func TestRecordReportRun_PostsRow(t *testing.T) {
	var body map[string]any
	var method, prefer string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		prefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
	})

	err := c.RecordReportRun(context.Background(), &domain.ReportRunRecord{
		RunID:       "run-1",
		CompanyID:   "b1",
		Mode:        "scheduled",
		PeriodStart: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC),
		Status:      domain.ReportStatusPartial,
		EmailsSent:  1,
		Error:       "send to b@x.test: boom",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "return=minimal", prefer)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "partial", body["status"])
	assert.Equal(t, float64(1), body["emails_sent"])
	assert.Equal(t, "2026-09-01T00:00:00Z", body["period_start"])
}

func TestIlikeContains_MatchesLiterally(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" acme retail ", "ilike.*acme retail*"},
		{"acme* retail", "ilike.*acme retail*"},
		{"a_c", `ilike.*a\_c*`},
		{"100% retail", `ilike.*100\% retail*`},
		{`back\slash`, `ilike.*back\\slash*`},
		{"acme (uk), ltd", "ilike.*acme  uk   ltd*"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ilikeContains(tt.in))
		})
	}
}
