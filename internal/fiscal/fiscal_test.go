package fiscal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFinancialYear(t *testing.T) {
	tests := []struct {
		date      time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{date(2025, 6, 15), date(2025, 4, 1), date(2026, 3, 31)},
		{date(2025, 3, 31), date(2024, 4, 1), date(2025, 3, 31)},
		{date(2025, 4, 1), date(2025, 4, 1), date(2026, 3, 31)},
	}
	for _, tt := range tests {
		w := FinancialYear(tt.date, time.April, 1)
		assert.Equal(t, tt.wantStart, w.Start, "start for %s", tt.date)
		assert.Equal(t, tt.wantEnd, w.End, "end for %s", tt.date)
	}
}

func TestParseYearStart(t *testing.T) {
	m, d, err := ParseYearStart("04-01")
	require.NoError(t, err)
	assert.Equal(t, time.April, m)
	assert.Equal(t, 1, d)

	_, _, err = ParseYearStart("13-01")
	assert.Error(t, err)
}

func TestStaticCalendar(t *testing.T) {
	ctx := context.Background()
	fy := FinancialYear(date(2025, 6, 1), time.April, 1)
	cal := NewStatic([]Window{fy}, map[string][]Window{
		"T2": {{Start: date(2024, 1, 1), End: date(2024, 12, 31)}},
	}, []string{"2025-05"})

	tests := []struct {
		tenant string
		date   time.Time
		want   bool
	}{
		{"T1", date(2025, 6, 1), true},
		{"T1", date(2025, 3, 31), false},
		{"T1", date(2025, 5, 10), false}, // closed month
		{"T1", date(2026, 3, 31).Add(23 * time.Hour), true},
		{"T2", date(2024, 7, 1), true},
		{"T2", date(2025, 6, 1), false},
	}
	for _, tt := range tests {
		got, err := cal.IsDateOpenForPosting(ctx, tt.tenant, tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s", tt.tenant, tt.date.Format("2006-01-02"))
	}
}

func TestAlwaysOpen(t *testing.T) {
	ok, err := AlwaysOpen().IsDateOpenForPosting(context.Background(), "any", date(1999, 1, 1))
	require.NoError(t, err)
	assert.True(t, ok)
}
