package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New returns a fresh entity id.
func New() string {
	return uuid.NewString()
}

// Period returns the numbering period of a voucher date, e.g. "202501".
func Period(date time.Time) string {
	return date.Format("200601")
}

// SequenceKey returns the key under which voucher sequences are allocated.
func SequenceKey(voucherType, tenantID, period string) string {
	return voucherType + "|" + tenantID + "|" + period
}

// FormatVoucherNumber returns a voucher number like "PAYMENT-T1-202501-0001".
func FormatVoucherNumber(voucherType, tenantID, period string, seq int64) string {
	return fmt.Sprintf("%s-%s-%s-%04d", voucherType, tenantID, period, seq)
}

// ParseVoucherNumber parses "PAYMENT-T1-202501-0001" into its parts. The
// tenant id may itself contain hyphens.
func ParseVoucherNumber(number string) (voucherType, tenantID, period string, seq int64, err error) {
	parts := strings.Split(number, "-")
	if len(parts) < 4 {
		return "", "", "", 0, fmt.Errorf("invalid voucher number format: %q", number)
	}

	voucherType = parts[0]
	period = parts[len(parts)-2]
	tenantID = strings.Join(parts[1:len(parts)-2], "-")

	if voucherType == "" || tenantID == "" {
		return "", "", "", 0, fmt.Errorf("invalid voucher number format: %q", number)
	}

	if _, err := time.Parse("200601", period); err != nil {
		return "", "", "", 0, fmt.Errorf("invalid period in voucher number %q: %w", number, err)
	}

	seq, err = strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return "", "", "", 0, fmt.Errorf("invalid sequence in voucher number %q: %w", number, err)
	}

	return voucherType, tenantID, period, seq, nil
}
