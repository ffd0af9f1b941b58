package id

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, "202501", Period(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "202512", Period(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestFormatVoucherNumber(t *testing.T) {
	tests := []struct {
		vtype, tenant, period string
		seq                   int64
		want                  string
	}{
		{"PAYMENT", "T1", "202501", 1, "PAYMENT-T1-202501-0001"},
		{"JOURNAL", "station-9", "202512", 99, "JOURNAL-station-9-202512-0099"},
		{"SALES", "T1", "202501", 12345, "SALES-T1-202501-12345"},
	}
	for _, tt := range tests {
		got := FormatVoucherNumber(tt.vtype, tt.tenant, tt.period, tt.seq)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseVoucherNumber(t *testing.T) {
	tests := []struct {
		input      string
		wantType   string
		wantTenant string
		wantPeriod string
		wantSeq    int64
	}{
		{"PAYMENT-T1-202501-0001", "PAYMENT", "T1", "202501", 1},
		{"JOURNAL-station-9-202512-0099", "JOURNAL", "station-9", "202512", 99},
		{"CHEQUE_RETURN-T1-202403-0007", "CHEQUE_RETURN", "T1", "202403", 7},
	}
	for _, tt := range tests {
		vtype, tenant, period, seq, err := ParseVoucherNumber(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.wantType, vtype)
		assert.Equal(t, tt.wantTenant, tenant)
		assert.Equal(t, tt.wantPeriod, period)
		assert.Equal(t, tt.wantSeq, seq)
	}
}

func TestParseVoucherNumber_Errors(t *testing.T) {
	badInputs := []string{
		"",
		"not-valid",
		"PAYMENT-T1-2025-0001",
		"PAYMENT-T1-202513-0001",
		"PAYMENT-T1-202501-xxxx",
		"PAYMENT--202501-0001",
	}
	for _, input := range badInputs {
		_, _, _, _, err := ParseVoucherNumber(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}
