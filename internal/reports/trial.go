package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/model"
)

// TrialBalanceRow is one account's closing balance split into debit and
// credit columns.
type TrialBalanceRow struct {
	AccountID string
	Code      string
	Name      string
	Type      model.AccountType
	Group     model.AccountGroup
	Opening   decimal.Decimal
	Closing   decimal.Decimal
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// TrialBalance lists every account's closing balance as of a date.
type TrialBalance struct {
	TenantID    string
	AsOf        time.Time
	Rows        []TrialBalanceRow
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
	Warnings    []ConsistencyWarning
}

// TrialBalance computes closing = opening + net entries dated on or before
// asOf for each account. Accounts with no opening balance and no entries
// are left out. IsBalanced compares the column totals exactly.
func (e *Engine) TrialBalance(ctx context.Context, tenantID string, asOf time.Time) (TrialBalance, error) {
	asOf = day(asOf)
	snap, err := e.load(ctx, tenantID)
	if err != nil {
		return TrialBalance{}, fmt.Errorf("trial balance: %w", err)
	}

	tb := TrialBalance{TenantID: tenantID, AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	openDebit, openCredit := decimal.Zero, decimal.Zero
	for _, a := range snap.accounts {
		entries := snap.entries[a.ID]
		if a.OpeningBalance.IsZero() && (len(entries) == 0 || entries[0].Date.After(asOf)) {
			continue
		}
		row := TrialBalanceRow{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			Group:     a.Group,
			Opening:   a.OpeningBalance,
			Closing:   closing(a, entries, asOf),
		}
		row.Debit, row.Credit = a.DebitCredit(row.Closing)
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)

		od, oc := a.DebitCredit(a.OpeningBalance)
		openDebit, openCredit = openDebit.Add(od), openCredit.Add(oc)

		tb.Warnings = append(tb.Warnings, driftWarnings(a, entries)...)
	}
	tb.IsBalanced = tb.TotalDebit.Equal(tb.TotalCredit)

	if !tb.IsBalanced {
		tb.Warnings = append(tb.Warnings, ConsistencyWarning{
			Kind:       WarnTotalsDiffer,
			Difference: tb.TotalDebit.Sub(tb.TotalCredit),
			Message:    fmt.Sprintf("debit total %s differs from credit total %s", fixed(tb.TotalDebit), fixed(tb.TotalCredit)),
		})
		if !openDebit.Equal(openCredit) {
			tb.Warnings = append(tb.Warnings, ConsistencyWarning{
				Kind:       WarnOpeningImbalance,
				Difference: openDebit.Sub(openCredit),
				Message:    fmt.Sprintf("opening balances put %s on the debit side and %s on the credit side", fixed(openDebit), fixed(openCredit)),
			})
		}
		tb.Warnings = append(tb.Warnings, voucherImbalances(snap.entries, asOf)...)
	}
	sortWarnings(tb.Warnings)
	return tb, nil
}

// driftWarnings compares the stored running balances and the cached
// current balance of an account with a replay of its full history. At most
// the first running-balance drift is reported.
func driftWarnings(a model.Account, entries []model.LedgerEntry) []ConsistencyWarning {
	var out []ConsistencyWarning
	bal := a.OpeningBalance
	for _, le := range entries {
		bal = a.Apply(bal, le.Side, le.Amount())
		if len(out) == 0 && !le.RunningBalance.Equal(bal) {
			out = append(out, ConsistencyWarning{
				Kind:       WarnRunningDrift,
				AccountID:  a.ID,
				Difference: le.RunningBalance.Sub(bal),
				Message:    fmt.Sprintf("account %s entry %s stores running balance %s, replay gives %s", a.Code, le.ID, fixed(le.RunningBalance), fixed(bal)),
			})
		}
	}
	if !a.CurrentBalance.Equal(bal) {
		out = append(out, ConsistencyWarning{
			Kind:       WarnBalanceDrift,
			AccountID:  a.ID,
			Difference: a.CurrentBalance.Sub(bal),
			Message:    fmt.Sprintf("account %s caches balance %s, replay gives %s", a.Code, fixed(a.CurrentBalance), fixed(bal)),
		})
	}
	return out
}
