// Package fiscal answers whether a date may receive postings.
package fiscal

import (
	"context"
	"fmt"
	"time"
)

// Calendar is the financial-year collaborator consulted before posting.
type Calendar interface {
	IsDateOpenForPosting(ctx context.Context, tenantID string, date time.Time) (bool, error)
}

// Window is an inclusive range of dates open for posting.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether date falls within the window, by calendar day.
func (w Window) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(Day(w.Start)) && !d.After(Day(w.End))
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseYearStart parses a "MM-DD" year start.
func ParseYearStart(s string) (time.Month, int, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing year start %q: %w", s, err)
	}
	return t.Month(), t.Day(), nil
}

// FinancialYear returns the financial year containing date for a year that
// starts on month/day.
func FinancialYear(date time.Time, month time.Month, day int) Window {
	d := Day(date)
	start := time.Date(d.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if d.Before(start) {
		start = start.AddDate(-1, 0, 0)
	}
	return Window{Start: start, End: start.AddDate(1, 0, -1)}
}

// Static is a Calendar backed by fixed windows. Tenants without their own
// windows use the default set. An empty default set means every date is
// open. Closed months ("2025-04") are rejected even inside a window.
type Static struct {
	defaults []Window
	byTenant map[string][]Window
	closed   map[string]bool
}

// NewStatic builds a Static calendar.
func NewStatic(defaults []Window, byTenant map[string][]Window, closedMonths []string) *Static {
	closed := make(map[string]bool, len(closedMonths))
	for _, m := range closedMonths {
		closed[m] = true
	}
	return &Static{defaults: defaults, byTenant: byTenant, closed: closed}
}

// AlwaysOpen returns a Calendar that accepts every date.
func AlwaysOpen() *Static {
	return NewStatic(nil, nil, nil)
}

// IsDateOpenForPosting implements Calendar.
func (s *Static) IsDateOpenForPosting(_ context.Context, tenantID string, date time.Time) (bool, error) {
	if s.closed[date.Format("2006-01")] {
		return false, nil
	}
	windows, ok := s.byTenant[tenantID]
	if !ok {
		windows = s.defaults
	}
	if len(windows) == 0 {
		return true, nil
	}
	for _, w := range windows {
		if w.Contains(date) {
			return true, nil
		}
	}
	return false, nil
}
