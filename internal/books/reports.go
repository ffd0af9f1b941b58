package books

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/reports"
)

// TrialBalance lists closing balances as of a date.
func (b *Books) TrialBalance(ctx context.Context, tenantID string, asOf time.Time) (reports.TrialBalance, error) {
	return b.reports.TrialBalance(ctx, tenantID, asOf)
}

// ProfitAndLoss reports income and expenses of a period.
func (b *Books) ProfitAndLoss(ctx context.Context, tenantID string, from, to time.Time, taxExpense decimal.Decimal) (reports.ProfitAndLoss, error) {
	return b.reports.ProfitAndLoss(ctx, tenantID, from, to, taxExpense)
}

// BalanceSheet reports assets, liabilities and equity as of a date.
func (b *Books) BalanceSheet(ctx context.Context, tenantID string, asOf time.Time) (reports.BalanceSheet, error) {
	return b.reports.BalanceSheet(ctx, tenantID, asOf)
}

// CashBook lists one account's entries over a period.
func (b *Books) CashBook(ctx context.Context, accountID string, from, to time.Time) (reports.CashBook, error) {
	return b.reports.CashBook(ctx, accountID, from, to)
}

// DayBook lists every posting of a period grouped by voucher.
func (b *Books) DayBook(ctx context.Context, tenantID string, from, to time.Time) (reports.DayBook, error) {
	return b.reports.DayBook(ctx, tenantID, from, to)
}
