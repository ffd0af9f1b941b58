package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/model"
)

// BalanceSheet partitions asset, liability and equity balances as of a
// date.
type BalanceSheet struct {
	TenantID string
	AsOf     time.Time

	CurrentAssets       []Line // CURRENT_ASSET, BANK, CASH
	FixedAssets         []Line
	OtherAssets         []Line
	CurrentLiabilities  []Line
	LongTermLiabilities []Line
	Equity              []Line
	RetainedEarnings    decimal.Decimal // income less expenses to date
	TotalAssets         decimal.Decimal
	TotalLiabilities    decimal.Decimal
	TotalEquity         decimal.Decimal // includes RetainedEarnings
	IsBalanced          bool
	Warnings            []ConsistencyWarning
}

// BalanceSheet reports closing balances as of asOf. Assets are stated on
// the debit side, liabilities and equity on the credit side, so a contra
// balance shows as a negative line. Income and expense balances roll into
// RetainedEarnings, which makes a balanced ledger produce a balanced sheet.
func (e *Engine) BalanceSheet(ctx context.Context, tenantID string, asOf time.Time) (BalanceSheet, error) {
	asOf = day(asOf)
	snap, err := e.load(ctx, tenantID)
	if err != nil {
		return BalanceSheet{}, fmt.Errorf("balance sheet: %w", err)
	}

	bs := BalanceSheet{TenantID: tenantID, AsOf: asOf, RetainedEarnings: decimal.Zero}
	for _, a := range snap.accounts {
		entries := snap.entries[a.ID]
		bal := closing(a, entries, asOf)
		switch a.Type {
		case model.AccountTypeIncome, model.AccountTypeExpense:
			bs.RetainedEarnings = bs.RetainedEarnings.Add(toSide(a, bal, model.SideCredit))
			continue
		}
		if bal.IsZero() {
			continue
		}

		switch a.Type {
		case model.AccountTypeAsset:
			l := lineFor(a, toSide(a, bal, model.SideDebit))
			switch a.Group {
			case model.GroupFixedAsset:
				bs.FixedAssets = append(bs.FixedAssets, l)
			case model.GroupOtherAsset:
				bs.OtherAssets = append(bs.OtherAssets, l)
			default:
				bs.CurrentAssets = append(bs.CurrentAssets, l)
			}
		case model.AccountTypeLiability:
			l := lineFor(a, toSide(a, bal, model.SideCredit))
			if a.Group == model.GroupLongTermLiability {
				bs.LongTermLiabilities = append(bs.LongTermLiabilities, l)
			} else {
				bs.CurrentLiabilities = append(bs.CurrentLiabilities, l)
			}
		case model.AccountTypeEquity:
			bs.Equity = append(bs.Equity, lineFor(a, toSide(a, bal, model.SideCredit)))
		}
	}

	bs.TotalAssets = Total(bs.CurrentAssets).Add(Total(bs.FixedAssets)).Add(Total(bs.OtherAssets))
	bs.TotalLiabilities = Total(bs.CurrentLiabilities).Add(Total(bs.LongTermLiabilities))
	bs.TotalEquity = Total(bs.Equity).Add(bs.RetainedEarnings)
	claims := bs.TotalLiabilities.Add(bs.TotalEquity)
	bs.IsBalanced = bs.TotalAssets.Equal(claims)

	if !bs.IsBalanced {
		bs.Warnings = append(bs.Warnings, ConsistencyWarning{
			Kind:       WarnTotalsDiffer,
			Difference: bs.TotalAssets.Sub(claims),
			Message:    fmt.Sprintf("assets %s differ from liabilities and equity %s", fixed(bs.TotalAssets), fixed(claims)),
		})
		bs.Warnings = append(bs.Warnings, voucherImbalances(snap.entries, asOf)...)
		sortWarnings(bs.Warnings)
	}
	return bs, nil
}
