package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
)

// ProfitAndLoss partitions income and expense movements of a period.
type ProfitAndLoss struct {
	TenantID string
	From     time.Time
	To       time.Time

	Income           []Line
	OtherIncome      []Line
	DirectExpenses   []Line
	IndirectExpenses []Line
	TaxExpenses      []Line

	TotalIncome           decimal.Decimal
	TotalOtherIncome      decimal.Decimal
	TotalDirectExpenses   decimal.Decimal
	TotalIndirectExpenses decimal.Decimal

	GrossProfit        decimal.Decimal // income - direct expenses
	NetProfitBeforeTax decimal.Decimal // gross profit + other income - indirect expenses
	TaxExpense         decimal.Decimal // supplied tax + TAX_EXPENSE accounts
	NetProfitAfterTax  decimal.Decimal
}

// ProfitAndLoss reports movements of INCOME and EXPENSE accounts dated
// within [from, to]. taxExpense is added to any movement on TAX_EXPENSE
// accounts. Accounts without movement in the period are left out.
func (e *Engine) ProfitAndLoss(ctx context.Context, tenantID string, from, to time.Time, taxExpense decimal.Decimal) (ProfitAndLoss, error) {
	from, to = day(from), day(to)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return ProfitAndLoss{}, bookerr.Validation(bookerr.CodeInvalidInput, "to", "period ends %s before it starts %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	if to.IsZero() {
		to = farFuture
	}
	snap, err := e.load(ctx, tenantID)
	if err != nil {
		return ProfitAndLoss{}, fmt.Errorf("profit and loss: %w", err)
	}

	pl := ProfitAndLoss{TenantID: tenantID, From: from, To: to}
	for _, a := range snap.accounts {
		if a.Type != model.AccountTypeIncome && a.Type != model.AccountTypeExpense {
			continue
		}
		entries := snap.entries[a.ID]
		if !inRange(entries, from, to) {
			continue
		}
		side := model.SideCredit
		if a.Type == model.AccountTypeExpense {
			side = model.SideDebit
		}
		l := lineFor(a, toSide(a, movement(a, entries, from, to), side))

		switch a.Group {
		case model.GroupIndirectIncome:
			pl.OtherIncome = append(pl.OtherIncome, l)
		case model.GroupDirectExpense:
			pl.DirectExpenses = append(pl.DirectExpenses, l)
		case model.GroupTaxExpense:
			pl.TaxExpenses = append(pl.TaxExpenses, l)
		default:
			if a.Type == model.AccountTypeIncome {
				pl.Income = append(pl.Income, l)
			} else {
				pl.IndirectExpenses = append(pl.IndirectExpenses, l)
			}
		}
	}

	pl.TotalIncome = Total(pl.Income)
	pl.TotalOtherIncome = Total(pl.OtherIncome)
	pl.TotalDirectExpenses = Total(pl.DirectExpenses)
	pl.TotalIndirectExpenses = Total(pl.IndirectExpenses)
	pl.GrossProfit = pl.TotalIncome.Sub(pl.TotalDirectExpenses)
	pl.NetProfitBeforeTax = pl.GrossProfit.Add(pl.TotalOtherIncome).Sub(pl.TotalIndirectExpenses)
	pl.TaxExpense = taxExpense.Add(Total(pl.TaxExpenses))
	pl.NetProfitAfterTax = pl.NetProfitBeforeTax.Sub(pl.TaxExpense)
	return pl, nil
}

// farFuture stands in for an open-ended period end.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func inRange(entries []model.LedgerEntry, from, to time.Time) bool {
	for _, le := range entries {
		if !le.Date.Before(from) && !le.Date.After(to) {
			return true
		}
	}
	return false
}
