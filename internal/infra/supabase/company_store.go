package supabase

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// ============================================================
// Company registry store (implements port.CompanyRegistry)
// ============================================================

const registryColumns = "company_number,company_name,company_status," +
	"sic_code_1,sic_code_2,sic_code_3,sic_code_4," +
	"accounts_category,num_mort_charges," +
	"reg_address_post_town,reg_address_country,reg_address_postcode,incorporation_date"

const statusActive = "Active"

// registryRow maps registry table columns. Dates arrive as plain
// yyyy-mm-dd strings, which time.Time cannot decode directly.
type registryRow struct {
	Number            string  `json:"company_number"`
	Name              string  `json:"company_name"`
	Status            string  `json:"company_status"`
	SICCode1          *string `json:"sic_code_1"`
	SICCode2          *string `json:"sic_code_2"`
	SICCode3          *string `json:"sic_code_3"`
	SICCode4          *string `json:"sic_code_4"`
	AccountsCategory  *string `json:"accounts_category"`
	MortgageCharges   *int    `json:"num_mort_charges"`
	PostTown          *string `json:"reg_address_post_town"`
	Country           *string `json:"reg_address_country"`
	Postcode          *string `json:"reg_address_postcode"`
	IncorporationDate *string `json:"incorporation_date"`
}

func (r registryRow) toDomain() domain.Company {
	c := domain.Company{
		Number:           r.Number,
		Name:             r.Name,
		Status:           r.Status,
		SICCode1:         r.SICCode1,
		SICCode2:         r.SICCode2,
		SICCode3:         r.SICCode3,
		SICCode4:         r.SICCode4,
		AccountsCategory: deref(r.AccountsCategory),
		PostTown:         deref(r.PostTown),
		Country:          deref(r.Country),
		Postcode:         deref(r.Postcode),
	}
	if r.MortgageCharges != nil {
		c.MortgageCharges = *r.MortgageCharges
	}
	if r.IncorporationDate != nil {
		if t, err := time.Parse("2006-01-02", *r.IncorporationDate); err == nil {
			c.IncorporationDate = &t
		}
	}
	return c
}

// SearchCompanies returns up to limit active companies whose name contains
// fragment and that carry at least one industry code.
func (c *Client) SearchCompanies(ctx context.Context, fragment string, limit int) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SearchCompanies")
	defer span.End()
	span.SetAttributes(attribute.String("company.fragment", fragment), attribute.Int("limit", limit))

	q := url.Values{}
	q.Set("select", registryColumns)
	q.Set("company_name", ilikeContains(fragment))
	q.Set("company_status", "eq."+statusActive)
	q.Set("or", "(sic_code_1.not.is.null,sic_code_2.not.is.null,sic_code_3.not.is.null,sic_code_4.not.is.null)")
	q.Set("limit", strconv.Itoa(limit))

	var rows []registryRow
	if err := c.selectRows(ctx, tableRegistry, q, &rows); err != nil {
		return nil, err
	}
	return toCompanies(rows), nil
}

// ListCompaniesByIndustryCodes returns up to limit active companies other
// than excludeNumber with any code slot equal to any of codes.
func (c *Client) ListCompaniesByIndustryCodes(ctx context.Context, codes []string, excludeNumber string, limit int) ([]domain.Company, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCompaniesByIndustryCodes")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("sic.codes", codes), attribute.Int("limit", limit))

	if len(codes) == 0 {
		return []domain.Company{}, nil
	}

	q := url.Values{}
	q.Set("select", registryColumns)
	q.Set("company_status", "eq."+statusActive)
	if excludeNumber != "" {
		q.Set("company_number", "neq."+excludeNumber)
	}
	q.Set("or", industryCodeClauses(codes))
	q.Set("limit", strconv.Itoa(limit))

	var rows []registryRow
	if err := c.selectRows(ctx, tableRegistry, q, &rows); err != nil {
		return nil, err
	}
	return toCompanies(rows), nil
}

// industryCodeClauses builds the OR of slot-equals-code clauses, one per
// (slot, code) pair: at most 4 x 4.
func industryCodeClauses(codes []string) string {
	clauses := make([]string, 0, 4*len(codes))
	for slot := 1; slot <= 4; slot++ {
		for _, code := range codes {
			clauses = append(clauses, "sic_code_"+strconv.Itoa(slot)+".eq."+code)
		}
	}
	return "(" + strings.Join(clauses, ",") + ")"
}

func toCompanies(rows []registryRow) []domain.Company {
	out := make([]domain.Company, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
