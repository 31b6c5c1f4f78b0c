// Package registry loads the national company registry bulk extract
// (Companies House "BasicCompanyData" CSV) into Postgres.
package registry

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// Extract column headers. The published files pad some headers with a
// leading space, so lookups go through mapColumns.
const (
	colName         = "CompanyName"
	colNumber       = "CompanyNumber"
	colStatus       = "CompanyStatus"
	colPostTown     = "RegAddress.PostTown"
	colCountry      = "RegAddress.Country"
	colPostcode     = "RegAddress.PostCode"
	colIncorporated = "IncorporationDate"
	colAccounts     = "Accounts.AccountCategory"
	colCharges      = "Mortgages.NumMortCharges"
	colSICPrefix    = "SICCode.SicText_"
)

const noneSupplied = "None Supplied"

// Reader streams companies from a registry CSV.
type Reader struct {
	csv    *csv.Reader
	colIdx map[string]int
	line   int
}

// NewReader reads the header row and validates the required columns.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "registry: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	colIdx := mapColumns(header)
	for _, required := range []string{colName, colNumber, colStatus} {
		if _, ok := colIdx[strings.ToLower(required)]; !ok {
			return nil, eris.Errorf("registry: missing required column %q", required)
		}
	}

	return &Reader{csv: cr, colIdx: colIdx, line: 1}, nil
}

// Next returns the next company, or io.EOF when the file is exhausted.
// Rows without a company number are skipped.
func (r *Reader) Next() (*domain.Company, error) {
	for {
		record, err := r.csv.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		r.line++
		if err != nil {
			return nil, eris.Wrapf(err, "registry: read line %d", r.line)
		}

		number := strings.TrimSpace(getCol(record, r.colIdx, colNumber))
		if number == "" {
			continue
		}

		c := &domain.Company{
			Number:            number,
			Name:              strings.TrimSpace(getCol(record, r.colIdx, colName)),
			Status:            strings.TrimSpace(getCol(record, r.colIdx, colStatus)),
			AccountsCategory:  strings.TrimSpace(getCol(record, r.colIdx, colAccounts)),
			MortgageCharges:   parseIntOr(getCol(record, r.colIdx, colCharges), 0),
			PostTown:          strings.TrimSpace(getCol(record, r.colIdx, colPostTown)),
			Country:           strings.TrimSpace(getCol(record, r.colIdx, colCountry)),
			Postcode:          strings.TrimSpace(getCol(record, r.colIdx, colPostcode)),
			IncorporationDate: parseDate(getCol(record, r.colIdx, colIncorporated)),
		}
		c.SICCode1 = ParseSIC(getCol(record, r.colIdx, colSICPrefix+"1"))
		c.SICCode2 = ParseSIC(getCol(record, r.colIdx, colSICPrefix+"2"))
		c.SICCode3 = ParseSIC(getCol(record, r.colIdx, colSICPrefix+"3"))
		c.SICCode4 = ParseSIC(getCol(record, r.colIdx, colSICPrefix+"4"))
		return c, nil
	}
}

// ParseSIC extracts the 5-digit code from a "47190 - Other retail sale ..."
// cell. Empty, "None Supplied" and malformed cells yield nil.
func ParseSIC(text string) *string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, noneSupplied) {
		return nil
	}
	code, _, _ := strings.Cut(text, " ")
	code = strings.TrimSpace(strings.TrimSuffix(code, "-"))
	if len(code) != 5 {
		return nil
	}
	for _, ch := range code {
		if ch < '0' || ch > '9' {
			return nil
		}
	}
	return &code
}

// mapColumns builds a case-insensitive column name to index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name, returning "" if not present.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseIntOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

// parseDate reads the extract's dd/mm/yyyy dates, accepting ISO as well.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"02/01/2006", "2/1/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
