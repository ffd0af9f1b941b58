package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a posted movement against one account.
type LedgerEntry struct {
	ID             string
	Seq            int64 // insertion order, assigned by the store
	TenantID       string
	AccountID      string
	VoucherID      string
	VoucherNumber  string
	VoucherType    VoucherType
	Line           int
	Date           time.Time
	Side           Side
	Debit          decimal.Decimal // zero if credit side
	Credit         decimal.Decimal // zero if debit side
	RunningBalance decimal.Decimal
	Narration      string
	Party          string
	Reference      string
	ChequeNumber   string
	Reconciled     bool
	ReconciledBy   string
	ReconciledAt   time.Time
	CreatedAt      time.Time
}

// Amount returns the non-zero side of the entry.
func (e LedgerEntry) Amount() decimal.Decimal {
	if e.Side == SideDebit {
		return e.Debit
	}
	return e.Credit
}

// Before reports whether e sorts before o in ledger order: by date, then by
// insertion sequence.
func (e LedgerEntry) Before(o LedgerEntry) bool {
	if !e.Date.Equal(o.Date) {
		return e.Date.Before(o.Date)
	}
	return e.Seq < o.Seq
}
