package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/fiscal"
	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
	"github.com/cleared-dev/forecourt/internal/store/memory"
	"github.com/cleared-dev/forecourt/internal/vouchers"
)

const tenant = "STN01"

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    store.Store
	vouchers *vouchers.Engine
	reports  *Engine
	acct     map[string]model.Account // by code
}

// newFixture opens books whose opening balances tie out: bank 1000 and
// cash 200 against capital 1200.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })

	clock := func() time.Time { return time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC) }
	locks := lock.NewManager()
	registry := accounts.NewRegistry(s, locks, accounts.WithClock(clock))
	poster := ledger.NewPoster(s, locks, ledger.WithClock(clock))

	f := &fixture{
		store:    s,
		vouchers: vouchers.NewEngine(s, locks, poster, fiscal.AlwaysOpen(), vouchers.WithClock(clock)),
		reports:  NewEngine(s),
		acct:     make(map[string]model.Account),
	}
	chart := []accounts.NewAccount{
		{Code: "A100", Name: "Bank", Type: model.AccountTypeAsset, Group: model.GroupBank, OpeningBalance: dec("1000")},
		{Code: "A200", Name: "Cash", Type: model.AccountTypeAsset, Group: model.GroupCash, OpeningBalance: dec("200")},
		{Code: "A300", Name: "Tanker", Type: model.AccountTypeAsset, Group: model.GroupFixedAsset},
		{Code: "L100", Name: "Supplier", Type: model.AccountTypeLiability, Group: model.GroupCurrentLiability},
		{Code: "L200", Name: "Term Loan", Type: model.AccountTypeLiability, Group: model.GroupLongTermLiability},
		{Code: "E100", Name: "Capital", Type: model.AccountTypeEquity, Group: model.GroupCapital, OpeningBalance: dec("1200")},
		{Code: "I100", Name: "Fuel Sales", Type: model.AccountTypeIncome, Group: model.GroupDirectIncome},
		{Code: "I200", Name: "Interest", Type: model.AccountTypeIncome, Group: model.GroupIndirectIncome},
		{Code: "X100", Name: "Fuel Purchases", Type: model.AccountTypeExpense, Group: model.GroupDirectExpense},
		{Code: "X200", Name: "Electricity", Type: model.AccountTypeExpense, Group: model.GroupIndirectExpense},
		{Code: "X300", Name: "Income Tax", Type: model.AccountTypeExpense, Group: model.GroupTaxExpense},
	}
	for _, in := range chart {
		in.TenantID = tenant
		a, err := registry.Create(ctx, in)
		require.NoError(t, err)
		f.acct[a.Code] = a
	}
	return f
}

func (f *fixture) id(code string) string { return f.acct[code].ID }

func (f *fixture) post(t *testing.T, nv vouchers.NewVoucher) model.Voucher {
	t.Helper()
	v, err := f.vouchers.CreateAndPost(context.Background(), nv)
	require.NoError(t, err)
	return v
}

func (f *fixture) transfer(amount string, on time.Time) vouchers.Transfer {
	return vouchers.Transfer{TenantID: tenant, Date: on, Amount: dec(amount), Narration: "test", CreatedBy: "clerk"}
}

// trade posts a month of activity:
//
//	bank +500 and cash +100 fuel sales, 40 interest into bank,
//	300 fuel bought on credit, 60 electricity from cash, 20 tax from bank.
func (f *fixture) trade(t *testing.T) {
	t.Helper()
	f.post(t, vouchers.CustomerReceipt(f.transfer("500", date(2025, 6, 2)), f.id("A100"), f.id("I100")))
	f.post(t, vouchers.CustomerReceipt(f.transfer("100", date(2025, 6, 3)), f.id("A200"), f.id("I100")))
	f.post(t, vouchers.CustomerReceipt(f.transfer("40", date(2025, 6, 4)), f.id("A100"), f.id("I200")))
	f.post(t, vouchers.Purchase(f.transfer("300", date(2025, 6, 5)), f.id("X100"), f.id("L100")))
	f.post(t, vouchers.Payment(f.transfer("60", date(2025, 6, 6)), f.id("X200"), f.id("A200")))
	f.post(t, vouchers.Payment(f.transfer("20", date(2025, 6, 7)), f.id("X300"), f.id("A100")))
}

func row(tb TrialBalance, id string) (TrialBalanceRow, bool) {
	for _, r := range tb.Rows {
		if r.AccountID == id {
			return r, true
		}
	}
	return TrialBalanceRow{}, false
}

func TestTrialBalanceTiesOutExactly(t *testing.T) {
	f := newFixture(t)
	f.post(t, vouchers.CustomerReceipt(f.transfer("500", date(2025, 6, 2)), f.id("A100"), f.id("I100")))
	f.post(t, vouchers.CustomerReceipt(f.transfer("100", date(2025, 6, 3)), f.id("A200"), f.id("I100")))

	tb, err := f.reports.TrialBalance(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)

	bank, ok := row(tb, f.id("A100"))
	require.True(t, ok)
	assert.Equal(t, "1500.00", bank.Debit.StringFixed(2))
	cash, _ := row(tb, f.id("A200"))
	assert.Equal(t, "300.00", cash.Debit.StringFixed(2))
	capital, _ := row(tb, f.id("E100"))
	assert.Equal(t, "1200.00", capital.Credit.StringFixed(2))
	sales, _ := row(tb, f.id("I100"))
	assert.Equal(t, "600.00", sales.Credit.StringFixed(2))
	assert.True(t, sales.Debit.IsZero())

	assert.Equal(t, "1800.00", tb.TotalDebit.StringFixed(2))
	assert.Equal(t, "1800.00", tb.TotalCredit.StringFixed(2))
	assert.True(t, tb.IsBalanced)
	assert.Empty(t, tb.Warnings)

	// Accounts without opening balance or activity are left out.
	_, ok = row(tb, f.id("L200"))
	assert.False(t, ok)
}

func TestTrialBalanceDecimalExact(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.post(t, vouchers.CustomerReceipt(f.transfer("0.10", date(2025, 6, 2)), f.id("A100"), f.id("I100")))
	}
	f.post(t, vouchers.Payment(f.transfer("0.20", date(2025, 6, 3)), f.id("X200"), f.id("A100")))

	tb, err := f.reports.TrialBalance(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	bank, _ := row(tb, f.id("A100"))
	assert.True(t, bank.Closing.Equal(dec("1000.80")))
}

func TestTrialBalanceAsOf(t *testing.T) {
	f := newFixture(t)
	f.trade(t)

	tb, err := f.reports.TrialBalance(context.Background(), tenant, date(2025, 6, 3))
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	bank, _ := row(tb, f.id("A100"))
	assert.True(t, bank.Closing.Equal(dec("1500")))
	_, ok := row(tb, f.id("X100"))
	assert.False(t, ok, "purchase dated after asOf")

	tb, err = f.reports.TrialBalance(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	assert.Equal(t, "2140.00", tb.TotalDebit.StringFixed(2))
}

func TestTrialBalanceStaysBalancedAfterCancel(t *testing.T) {
	f := newFixture(t)
	v := f.post(t, vouchers.CustomerReceipt(f.transfer("500", date(2025, 6, 2)), f.id("A100"), f.id("I100")))
	_, err := f.vouchers.Cancel(context.Background(), v.ID, "wrong batch", "manager")
	require.NoError(t, err)

	tb, err := f.reports.TrialBalance(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	bank, _ := row(tb, f.id("A100"))
	assert.True(t, bank.Closing.Equal(dec("1000")))
}

func TestTrialBalanceReportsOpeningImbalance(t *testing.T) {
	f := newFixture(t)
	registry := accounts.NewRegistry(f.store, lock.NewManager())
	_, err := registry.Create(context.Background(), accounts.NewAccount{
		TenantID: tenant, Code: "A400", Name: "Float", Type: model.AccountTypeAsset, OpeningBalance: dec("50"),
	})
	require.NoError(t, err)

	tb, err := f.reports.TrialBalance(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)
	assert.False(t, tb.IsBalanced)

	kinds := map[WarningKind]ConsistencyWarning{}
	for _, w := range tb.Warnings {
		kinds[w.Kind] = w
	}
	require.Contains(t, kinds, WarnTotalsDiffer)
	assert.True(t, kinds[WarnTotalsDiffer].Difference.Equal(dec("50")))
	require.Contains(t, kinds, WarnOpeningImbalance)
	assert.NotContains(t, kinds, WarnUnbalancedVoucher)
}

func TestTrialBalanceReportsOrphanEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bank := f.acct["A100"]
	err := f.store.Update(ctx, func(tx store.Tx) error {
		_, err := tx.InsertEntry(ctx, model.LedgerEntry{
			ID:             "orphan",
			TenantID:       tenant,
			AccountID:      bank.ID,
			VoucherID:      "half-written",
			VoucherNumber:  "JOURNAL-STN01-202506-0099",
			VoucherType:    model.VoucherJournal,
			Date:           date(2025, 6, 5),
			Side:           model.SideDebit,
			Debit:          dec("75"),
			Credit:         decimal.Zero,
			RunningBalance: dec("1075"),
		})
		return err
	})
	require.NoError(t, err)

	tb, err := f.reports.TrialBalance(ctx, tenant, date(2025, 6, 30))
	require.NoError(t, err)
	assert.False(t, tb.IsBalanced)

	var kinds []WarningKind
	for _, w := range tb.Warnings {
		kinds = append(kinds, w.Kind)
		if w.Kind == WarnUnbalancedVoucher {
			assert.Equal(t, "half-written", w.VoucherID)
			assert.True(t, w.Difference.Equal(dec("75")))
		}
		if w.Kind == WarnBalanceDrift {
			assert.Equal(t, bank.ID, w.AccountID)
			assert.True(t, w.Difference.Equal(dec("-75")))
		}
	}
	assert.ElementsMatch(t, []WarningKind{WarnBalanceDrift, WarnTotalsDiffer, WarnUnbalancedVoucher}, kinds)
}

func TestProfitAndLoss(t *testing.T) {
	f := newFixture(t)
	f.trade(t)

	pl, err := f.reports.ProfitAndLoss(context.Background(), tenant, date(2025, 6, 1), date(2025, 6, 30), dec("10"))
	require.NoError(t, err)

	assert.Equal(t, "600.00", pl.TotalIncome.StringFixed(2))
	assert.Equal(t, "40.00", pl.TotalOtherIncome.StringFixed(2))
	assert.Equal(t, "300.00", pl.TotalDirectExpenses.StringFixed(2))
	assert.Equal(t, "60.00", pl.TotalIndirectExpenses.StringFixed(2))
	assert.Equal(t, "300.00", pl.GrossProfit.StringFixed(2))
	assert.Equal(t, "280.00", pl.NetProfitBeforeTax.StringFixed(2))
	assert.Equal(t, "30.00", pl.TaxExpense.StringFixed(2))
	assert.Equal(t, "250.00", pl.NetProfitAfterTax.StringFixed(2))
	require.Len(t, pl.Income, 1)
	assert.Equal(t, "I100", pl.Income[0].Code)
	require.Len(t, pl.TaxExpenses, 1)
}

func TestProfitAndLossPeriod(t *testing.T) {
	f := newFixture(t)
	f.trade(t)
	ctx := context.Background()

	pl, err := f.reports.ProfitAndLoss(ctx, tenant, date(2025, 6, 3), date(2025, 6, 5), decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "100.00", pl.TotalIncome.StringFixed(2))
	assert.Equal(t, "40.00", pl.TotalOtherIncome.StringFixed(2))
	assert.Equal(t, "300.00", pl.TotalDirectExpenses.StringFixed(2))
	assert.Empty(t, pl.IndirectExpenses)
	assert.Equal(t, "-160.00", pl.NetProfitAfterTax.StringFixed(2))

	_, err = f.reports.ProfitAndLoss(ctx, tenant, date(2025, 6, 5), date(2025, 6, 3), decimal.Zero)
	assert.True(t, bookerr.IsValidation(err))
}

func TestBalanceSheetBalancesWithRetainedEarnings(t *testing.T) {
	f := newFixture(t)
	f.trade(t)
	f.post(t, vouchers.Purchase(f.transfer("250", date(2025, 6, 8)), f.id("A300"), f.id("L200")))

	bs, err := f.reports.BalanceSheet(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)

	// bank 1000+500+40-20, cash 200+100-60
	assert.Equal(t, "1760.00", Total(bs.CurrentAssets).StringFixed(2))
	assert.Equal(t, "250.00", Total(bs.FixedAssets).StringFixed(2))
	assert.Equal(t, "300.00", Total(bs.CurrentLiabilities).StringFixed(2))
	assert.Equal(t, "250.00", Total(bs.LongTermLiabilities).StringFixed(2))
	assert.Equal(t, "260.00", bs.RetainedEarnings.StringFixed(2))
	assert.Equal(t, "1460.00", bs.TotalEquity.StringFixed(2))
	assert.Equal(t, "2010.00", bs.TotalAssets.StringFixed(2))
	assert.True(t, bs.IsBalanced)
	assert.Empty(t, bs.Warnings)
}

func TestBalanceSheetReportsImbalance(t *testing.T) {
	f := newFixture(t)
	registry := accounts.NewRegistry(f.store, lock.NewManager())
	_, err := registry.Create(context.Background(), accounts.NewAccount{
		TenantID: tenant, Code: "L300", Name: "Deposit", Type: model.AccountTypeLiability, OpeningBalance: dec("30"),
	})
	require.NoError(t, err)

	bs, err := f.reports.BalanceSheet(context.Background(), tenant, date(2025, 6, 30))
	require.NoError(t, err)
	assert.False(t, bs.IsBalanced)
	require.Len(t, bs.Warnings, 1)
	assert.Equal(t, WarnTotalsDiffer, bs.Warnings[0].Kind)
	assert.True(t, bs.Warnings[0].Difference.Equal(dec("-30")))
}

func TestCashBook(t *testing.T) {
	f := newFixture(t)
	f.trade(t)

	cb, err := f.reports.CashBook(context.Background(), f.id("A100"), date(2025, 6, 3), date(2025, 6, 30))
	require.NoError(t, err)

	assert.Equal(t, "A100", cb.Code)
	assert.Equal(t, "1500.00", cb.Opening.StringFixed(2))
	require.Len(t, cb.Lines, 2)
	assert.True(t, cb.Lines[0].Receipt.Equal(dec("40")))
	assert.Equal(t, "1540.00", cb.Lines[0].Balance.StringFixed(2))
	assert.True(t, cb.Lines[1].Payment.Equal(dec("20")))
	assert.Equal(t, "1520.00", cb.Lines[1].Balance.StringFixed(2))
	assert.Equal(t, "40.00", cb.TotalReceipts.StringFixed(2))
	assert.Equal(t, "20.00", cb.TotalPayments.StringFixed(2))
	assert.Equal(t, "1520.00", cb.Closing.StringFixed(2))
	assert.True(t, cb.Closing.Equal(cb.Opening.Add(cb.TotalReceipts).Sub(cb.TotalPayments)))
}

func TestCashBookUnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.reports.CashBook(context.Background(), "nope", time.Time{}, time.Time{})
	assert.True(t, bookerr.IsNotFound(err))
}

func TestDayBook(t *testing.T) {
	f := newFixture(t)
	f.trade(t)
	ctx := context.Background()

	db, err := f.reports.DayBook(ctx, tenant, date(2025, 6, 2), date(2025, 6, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, db.VoucherCount)
	assert.Equal(t, 6, db.EntryCount)
	assert.Equal(t, "640.00", db.TotalDebit.StringFixed(2))
	assert.True(t, db.IsBalanced)
	assert.Empty(t, db.Warnings)

	first := db.Vouchers[0]
	assert.Equal(t, "RECEIPT-STN01-202506-0001", first.Number)
	require.Len(t, first.Lines, 2)
	assert.True(t, first.TotalDebit.Equal(first.TotalCredit))

	single, err := f.reports.DayBook(ctx, tenant, date(2025, 6, 5), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, single.VoucherCount)
	assert.Equal(t, model.VoucherPurchase, single.Vouchers[0].Type)

	_, err = f.reports.DayBook(ctx, tenant, time.Time{}, time.Time{})
	assert.True(t, bookerr.IsValidation(err))
}
