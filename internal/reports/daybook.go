package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// DayBookLine is one ledger entry within a day book voucher.
type DayBookLine struct {
	EntryID     string
	AccountID   string
	AccountCode string
	AccountName string
	Narration   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// DayBookVoucher groups the entries one voucher posted.
type DayBookVoucher struct {
	VoucherID   string
	Number      string
	Type        model.VoucherType
	Date        time.Time
	Lines       []DayBookLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// DayBook lists every posting of a period grouped by voucher.
type DayBook struct {
	TenantID     string
	From         time.Time
	To           time.Time
	Vouchers     []DayBookVoucher
	VoucherCount int
	EntryCount   int
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
	IsBalanced   bool
	Warnings     []ConsistencyWarning
}

// DayBook reports the ledger entries dated within [from, to]. A zero to
// means the single day from. Vouchers appear in the order of their first
// entry.
func (e *Engine) DayBook(ctx context.Context, tenantID string, from, to time.Time) (DayBook, error) {
	from, to = day(from), day(to)
	if from.IsZero() {
		return DayBook{}, bookerr.Validation(bookerr.CodeInvalidInput, "from", "day book needs a date")
	}
	if to.IsZero() {
		to = from
	}
	if to.Before(from) {
		return DayBook{}, bookerr.Validation(bookerr.CodeInvalidInput, "to", "period ends %s before it starts %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	var (
		accounts []model.Account
		entries  []model.LedgerEntry
	)
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		if accounts, err = r.ListAccounts(ctx, store.AccountFilter{TenantID: tenantID}); err != nil {
			return err
		}
		entries, err = r.ListEntries(ctx, store.EntryFilter{TenantID: tenantID, From: from, To: to})
		return err
	})
	if err != nil {
		return DayBook{}, fmt.Errorf("day book: %w", err)
	}
	byID := make(map[string]model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	db := DayBook{TenantID: tenantID, From: from, To: to, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	index := make(map[string]int)
	for _, le := range entries {
		i, ok := index[le.VoucherID]
		if !ok {
			i = len(db.Vouchers)
			index[le.VoucherID] = i
			db.Vouchers = append(db.Vouchers, DayBookVoucher{
				VoucherID:   le.VoucherID,
				Number:      le.VoucherNumber,
				Type:        le.VoucherType,
				Date:        le.Date,
				TotalDebit:  decimal.Zero,
				TotalCredit: decimal.Zero,
			})
		}
		v := &db.Vouchers[i]
		a := byID[le.AccountID]
		v.Lines = append(v.Lines, DayBookLine{
			EntryID:     le.ID,
			AccountID:   le.AccountID,
			AccountCode: a.Code,
			AccountName: a.Name,
			Narration:   le.Narration,
			Debit:       le.Debit,
			Credit:      le.Credit,
		})
		v.TotalDebit = v.TotalDebit.Add(le.Debit)
		v.TotalCredit = v.TotalCredit.Add(le.Credit)
		db.TotalDebit = db.TotalDebit.Add(le.Debit)
		db.TotalCredit = db.TotalCredit.Add(le.Credit)
	}
	db.VoucherCount = len(db.Vouchers)
	db.EntryCount = len(entries)
	db.IsBalanced = db.TotalDebit.Equal(db.TotalCredit)

	for _, v := range db.Vouchers {
		if v.TotalDebit.Equal(v.TotalCredit) {
			continue
		}
		db.Warnings = append(db.Warnings, ConsistencyWarning{
			Kind:       WarnUnbalancedVoucher,
			VoucherID:  v.VoucherID,
			Difference: v.TotalDebit.Sub(v.TotalCredit),
			Message:    fmt.Sprintf("voucher %s posts debits %s against credits %s", v.Number, fixed(v.TotalDebit), fixed(v.TotalCredit)),
		})
	}
	return db, nil
}
