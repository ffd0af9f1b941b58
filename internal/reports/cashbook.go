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

// CashBookLine is one entry of a cash book. Receipts are debits, payments
// are credits.
type CashBookLine struct {
	EntryID       string
	Date          time.Time
	VoucherNumber string
	VoucherType   model.VoucherType
	Narration     string
	Party         string
	ChequeNumber  string
	Receipt       decimal.Decimal
	Payment       decimal.Decimal
	Balance       decimal.Decimal
	Reconciled    bool
}

// CashBook is the chronological statement of one account over a period.
type CashBook struct {
	AccountID     string
	Code          string
	Name          string
	From          time.Time
	To            time.Time
	Opening       decimal.Decimal
	Lines         []CashBookLine
	TotalReceipts decimal.Decimal
	TotalPayments decimal.Decimal
	Closing       decimal.Decimal
}

// CashBook lists the entries of one account dated within [from, to] in
// ledger order. Opening replays everything dated before from, and each
// line's Balance continues from it, so Closing equals the trial balance
// closing as of to.
func (e *Engine) CashBook(ctx context.Context, accountID string, from, to time.Time) (CashBook, error) {
	from, to = day(from), day(to)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return CashBook{}, bookerr.Validation(bookerr.CodeInvalidInput, "to", "period ends %s before it starts %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	var (
		a       model.Account
		entries []model.LedgerEntry
	)
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		if a, err = r.GetAccount(ctx, accountID); err != nil {
			return err
		}
		entries, err = r.ListEntries(ctx, store.EntryFilter{AccountID: accountID, To: to})
		return err
	})
	if err != nil {
		return CashBook{}, fmt.Errorf("cash book for account %s: %w", accountID, err)
	}

	cb := CashBook{
		AccountID:     a.ID,
		Code:          a.Code,
		Name:          a.Name,
		From:          from,
		To:            to,
		Opening:       a.OpeningBalance,
		TotalReceipts: decimal.Zero,
		TotalPayments: decimal.Zero,
	}
	bal := a.OpeningBalance
	for _, le := range entries {
		bal = a.Apply(bal, le.Side, le.Amount())
		if le.Date.Before(from) {
			cb.Opening = bal
			continue
		}
		cb.Lines = append(cb.Lines, CashBookLine{
			EntryID:       le.ID,
			Date:          le.Date,
			VoucherNumber: le.VoucherNumber,
			VoucherType:   le.VoucherType,
			Narration:     le.Narration,
			Party:         le.Party,
			ChequeNumber:  le.ChequeNumber,
			Receipt:       le.Debit,
			Payment:       le.Credit,
			Balance:       bal,
			Reconciled:    le.Reconciled,
		})
		cb.TotalReceipts = cb.TotalReceipts.Add(le.Debit)
		cb.TotalPayments = cb.TotalPayments.Add(le.Credit)
	}
	cb.Closing = bal
	return cb, nil
}
