package domain

import "time"

// ============================================================
// Company registry (similarity dataset)
// ============================================================

// Company is one row of the national company registry extract.
// Rows are bulk-loaded by the registry import and never edited by users.
type Company struct {
	Number            string     `json:"company_number"`
	Name              string     `json:"company_name"`
	Status            string     `json:"company_status"`
	SICCode1          *string    `json:"sic_code_1"`
	SICCode2          *string    `json:"sic_code_2"`
	SICCode3          *string    `json:"sic_code_3"`
	SICCode4          *string    `json:"sic_code_4"`
	AccountsCategory  string     `json:"accounts_category"`
	MortgageCharges   int        `json:"num_mort_charges"`
	PostTown          string     `json:"reg_address_post_town"`
	Country           string     `json:"reg_address_country"`
	Postcode          string     `json:"reg_address_postcode"`
	IncorporationDate *time.Time `json:"incorporation_date,omitempty"`
}

// SICSlots returns the four industry code slots in column order.
func (c *Company) SICSlots() [4]*string {
	return [4]*string{c.SICCode1, c.SICCode2, c.SICCode3, c.SICCode4}
}

// ============================================================
// Similar companies API: POST /v1/similar-companies
// ============================================================

// SimilarityRequest is the body of POST /v1/similar-companies.
type SimilarityRequest struct {
	CompanyName      string   `json:"companyName"`
	ExcludeCompanies []string `json:"excludeCompanies,omitempty"`
	Limit            *int     `json:"limit,omitempty"`
	Offset           *int     `json:"offset,omitempty"`
}

// SimilarCompany is one formatted match.
type SimilarCompany struct {
	Name      string `json:"name"`
	Industry  string `json:"industry"`
	Location  string `json:"location"`
	Size      string `json:"size"`
	Reasoning string `json:"reasoning"`
}

// SimilarityResponse is returned by POST /v1/similar-companies.
// Zero-result outcomes carry Message and an empty list, never an error.
type SimilarityResponse struct {
	SimilarCompanies []SimilarCompany `json:"similarCompanies"`
	TotalMatches     *int             `json:"totalMatches,omitempty"`
	HasMore          *bool            `json:"hasMore,omitempty"`
	Message          string           `json:"message,omitempty"`
}
