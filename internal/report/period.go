package report

import (
	"fmt"
	"time"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// Report modes.
const (
	ModeScheduled = "scheduled"
	ModeTest      = "test"
)

// PreviousMonth returns the calendar month before now, from the first day at
// 00:00:00 to the last day at 23:59:59.999, in UTC.
func PreviousMonth(now time.Time) domain.ReportPeriod {
	now = now.UTC()
	firstOfThisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfThisMonth.AddDate(0, -1, 0)
	end := firstOfThisMonth.Add(-time.Millisecond)
	return domain.ReportPeriod{Start: start, End: end}
}

// TrailingDays returns the window of the last days days ending at now.
func TrailingDays(now time.Time, days int) domain.ReportPeriod {
	now = now.UTC()
	return domain.ReportPeriod{Start: now.AddDate(0, 0, -days), End: now}
}

// ParsePeriod parses an explicit ISO-8601 range. Plain dates are accepted;
// a plain end date covers the whole day.
func ParsePeriod(startISO, endISO string) (domain.ReportPeriod, error) {
	start, _, err := parseISO(startISO)
	if err != nil {
		return domain.ReportPeriod{}, &domain.ErrValidation{Field: "startDateISO", Message: err.Error()}
	}
	end, dateOnly, err := parseISO(endISO)
	if err != nil {
		return domain.ReportPeriod{}, &domain.ErrValidation{Field: "endDateISO", Message: err.Error()}
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Millisecond)
	}
	if end.Before(start) {
		return domain.ReportPeriod{}, &domain.ErrValidation{Field: "endDateISO", Message: "must not be before startDateISO"}
	}
	return domain.ReportPeriod{Start: start, End: end}, nil
}

func parseISO(s string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, fmt.Errorf("is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid ISO-8601 date %q", s)
}

// Label is a human-readable name for a period, e.g. "September 2026".
func Label(p domain.ReportPeriod) string {
	if p.Start.Year() == p.End.Year() && p.Start.Month() == p.End.Month() {
		return p.Start.Format("January 2006")
	}
	return fmt.Sprintf("%s to %s", p.Start.Format("2 Jan 2006"), p.End.Format("2 Jan 2006"))
}
