package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherType tags the business transaction a voucher records.
type VoucherType string

const (
	VoucherPayment      VoucherType = "PAYMENT"
	VoucherReceipt      VoucherType = "RECEIPT"
	VoucherJournal      VoucherType = "JOURNAL"
	VoucherContra       VoucherType = "CONTRA"
	VoucherSales        VoucherType = "SALES"
	VoucherPurchase     VoucherType = "PURCHASE"
	VoucherCreditNote   VoucherType = "CREDIT_NOTE"
	VoucherDebitNote    VoucherType = "DEBIT_NOTE"
	VoucherChequeReturn VoucherType = "CHEQUE_RETURN"
	VoucherReversal     VoucherType = "REVERSAL"
)

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	switch t {
	case VoucherPayment, VoucherReceipt, VoucherJournal, VoucherContra, VoucherSales,
		VoucherPurchase, VoucherCreditNote, VoucherDebitNote, VoucherChequeReturn, VoucherReversal:
		return true
	}
	return false
}

// VoucherStatus represents the lifecycle state of a voucher.
type VoucherStatus string

const (
	StatusDraft     VoucherStatus = "DRAFT"
	StatusPosted    VoucherStatus = "POSTED"
	StatusCancelled VoucherStatus = "CANCELLED"
)

// VoucherEntry is one debit or credit line of a voucher.
type VoucherEntry struct {
	AccountID    string
	Side         Side
	Amount       decimal.Decimal
	Narration    string
	Party        string
	Reference    string
	ChequeNumber string
}

// Voucher is a balanced set of entries recording one business transaction.
type Voucher struct {
	ID           string
	TenantID     string
	Number       string // TYPE-TENANT-PERIOD-SEQ
	Type         VoucherType
	Date         time.Time
	Narration    string
	TotalAmount  decimal.Decimal
	Status       VoucherStatus
	Entries      []VoucherEntry
	CreatedBy    string
	CreatedAt    time.Time
	PostedBy     string
	PostedAt     time.Time
	CancelledBy  string
	CancelledAt  time.Time
	CancelReason string
	ReversalOf   string // id of the voucher this one reverses
	ReversedBy   string // id of the reversing voucher
}

// Totals returns the debit and credit sums of the voucher's entries.
func (v Voucher) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range v.Entries {
		switch e.Side {
		case SideDebit:
			debit = debit.Add(e.Amount)
		case SideCredit:
			credit = credit.Add(e.Amount)
		}
	}
	return debit, credit
}

// AccountIDs returns the distinct account ids referenced by the voucher,
// in first-seen order.
func (v Voucher) AccountIDs() []string {
	seen := make(map[string]bool, len(v.Entries))
	var ids []string
	for _, e := range v.Entries {
		if seen[e.AccountID] {
			continue
		}
		seen[e.AccountID] = true
		ids = append(ids, e.AccountID)
	}
	return ids
}

// Clone returns a deep copy of v.
func (v Voucher) Clone() Voucher {
	c := v
	c.Entries = append([]VoucherEntry(nil), v.Entries...)
	return c
}
