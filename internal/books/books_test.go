package books

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/auditlog"
	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/config"
	"github.com/cleared-dev/forecourt/internal/fiscal"
	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
	"github.com/cleared-dev/forecourt/internal/store/memory"
	"github.com/cleared-dev/forecourt/internal/store/sqlite"
	"github.com/cleared-dev/forecourt/internal/vouchers"
)

const tenant = "STN01"

var clock = time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memAuditor collects audit entries in memory.
type memAuditor struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (m *memAuditor) Append(entries ...auditlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memAuditor) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Action
	}
	return out
}

type fixture struct {
	*Books
	audit *memAuditor
	store store.Store
	a100  model.Account // bank, DEBIT-normal, opening 1000
	a200  model.Account // sales
	e100  model.Account // capital, opening 1000
}

var stores = map[string]func(t *testing.T) store.Store{
	"memory": func(t *testing.T) store.Store { return memory.New() },
	"sqlite": func(t *testing.T) store.Store {
		s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "books.db"))
		require.NoError(t, err)
		return s
	},
}

// eachStore runs fn against fresh books on every store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			audit := &memAuditor{}
			cal := fiscal.NewStatic([]fiscal.Window{fiscal.FinancialYear(clock, time.April, 1)}, nil, nil)
			b := New(s, cal, WithClock(func() time.Time { return clock }), WithAuditor(audit))
			t.Cleanup(func() { _ = b.Close() })

			f := &fixture{Books: b, audit: audit, store: s}
			var err error
			f.a100, err = b.CreateAccount(ctx, accounts.NewAccount{TenantID: tenant, Code: "A100", Name: "Bank", Type: model.AccountTypeAsset, Group: model.GroupBank, OpeningBalance: dec("1000.00")}, "owner")
			require.NoError(t, err)
			f.a200, err = b.CreateAccount(ctx, accounts.NewAccount{TenantID: tenant, Code: "A200", Name: "Fuel Sales", Type: model.AccountTypeIncome}, "owner")
			require.NoError(t, err)
			f.e100, err = b.CreateAccount(ctx, accounts.NewAccount{TenantID: tenant, Code: "E100", Name: "Capital", Type: model.AccountTypeEquity, OpeningBalance: dec("1000.00")}, "owner")
			require.NoError(t, err)
			fn(t, f)
		})
	}
}

func (f *fixture) receipt(amount string, on time.Time) vouchers.NewVoucher {
	return vouchers.CustomerReceipt(vouchers.Transfer{TenantID: tenant, Date: on, Amount: dec(amount), Narration: "card batch", CreatedBy: "clerk"}, f.a100.ID, f.a200.ID)
}

func (f *fixture) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	a, err := f.Account(context.Background(), accountID)
	require.NoError(t, err)
	return a.CurrentBalance
}

func TestPostThenCancelRestoresBalance(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		v, err := f.CreateVoucher(ctx, f.receipt("500.00", date(2025, 6, 10)))
		require.NoError(t, err)

		v, err = f.PostVoucher(ctx, v.ID, "manager")
		require.NoError(t, err)
		assert.Equal(t, model.StatusPosted, v.Status)
		assert.Equal(t, "1500.00", f.balance(t, f.a100.ID).StringFixed(2))

		cancelled, err := f.CancelVoucher(ctx, v.ID, "duplicate batch", "manager")
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, cancelled.Status)
		assert.Equal(t, "1000.00", f.balance(t, f.a100.ID).StringFixed(2))
		assert.True(t, f.balance(t, f.a200.ID).IsZero())

		reversal, err := f.Voucher(ctx, cancelled.ReversedBy)
		require.NoError(t, err)
		assert.Equal(t, model.VoucherReversal, reversal.Type)
		assert.Equal(t, v.ID, reversal.ReversalOf)
		assert.True(t, reversal.Date.Equal(date(2025, 6, 20)))

		_, err = f.CancelVoucher(ctx, v.ID, "again", "manager")
		assert.True(t, bookerr.IsState(err))
		_, err = f.PostVoucher(ctx, v.ID, "manager")
		assert.True(t, bookerr.IsState(err))

		// The history stays: two entries for the original, two for the
		// reversal.
		entries, err := f.Entries(ctx, store.EntryFilter{AccountID: f.a100.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		assert.Equal(t, []string{
			"account.create", "account.create", "account.create",
			"voucher.create", "voucher.post", "voucher.cancel",
		}, f.audit.actions())
	})
}

func TestLedgerInvariants(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		for _, d := range []int{12, 3, 15, 7} {
			_, err := f.CreateAndPostVoucher(ctx, f.receipt("125.25", date(2025, 6, d)))
			require.NoError(t, err)
		}
		j, err := f.CreateAndPostVoucher(ctx, vouchers.Journal(tenant, date(2025, 6, 5), "owner drawings", "clerk",
			model.VoucherEntry{AccountID: f.e100.ID, Side: model.SideDebit, Amount: dec("100")},
			model.VoucherEntry{AccountID: f.a100.ID, Side: model.SideCredit, Amount: dec("100")},
		))
		require.NoError(t, err)
		_, err = f.CancelVoucher(ctx, j.ID, "posted to wrong account", "manager")
		require.NoError(t, err)

		// Every posted voucher nets to zero.
		db, err := f.DayBook(ctx, tenant, date(2025, 6, 1), date(2025, 6, 30))
		require.NoError(t, err)
		assert.Equal(t, 6, db.VoucherCount)
		for _, v := range db.Vouchers {
			assert.True(t, v.TotalDebit.Equal(v.TotalCredit), v.Number)
		}
		assert.True(t, db.IsBalanced)

		// Cached balances equal opening plus signed entries.
		accts, err := f.Accounts(ctx, tenant)
		require.NoError(t, err)
		for _, a := range accts {
			ver, err := f.VerifyAccount(ctx, a.ID)
			require.NoError(t, err)
			assert.True(t, ver.Consistent(), a.Code)
		}
		assert.Equal(t, "1501.00", f.balance(t, f.a100.ID).StringFixed(2))

		// Incremental postings already match a full replay.
		results, err := f.RecalculateAll(ctx, tenant, "auditor")
		require.NoError(t, err)
		for _, r := range results {
			assert.Zero(t, r.Rewritten, r.AccountID)
		}

		tb, err := f.TrialBalance(ctx, tenant, date(2025, 6, 30))
		require.NoError(t, err)
		assert.True(t, tb.IsBalanced)
		assert.Empty(t, tb.Warnings)

		bs, err := f.BalanceSheet(ctx, tenant, date(2025, 6, 30))
		require.NoError(t, err)
		assert.True(t, bs.IsBalanced)
		assert.Equal(t, "501.00", bs.RetainedEarnings.StringFixed(2))
	})
}

func TestRecalculateRecordsRepairedAccount(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		_, err := f.CreateAndPostVoucher(ctx, f.receipt("40", date(2025, 6, 2)))
		require.NoError(t, err)
		entries, err := f.Entries(ctx, store.EntryFilter{AccountID: f.a100.ID})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NoError(t, f.store.Update(ctx, func(tx store.Tx) error {
			return tx.SetRunningBalance(ctx, entries[0].ID, dec("1.00"))
		}))

		res, err := f.RecalculateRunningBalances(ctx, f.a100.ID, "auditor")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Rewritten)
		assert.Equal(t, "A100", res.Code)

		last := f.audit.entries[len(f.audit.entries)-1]
		assert.Equal(t, "ledger.recalculate", last.Action)
		assert.Equal(t, tenant, last.TenantID)
		assert.Equal(t, "A100", last.Subject)

		recorded := len(f.audit.entries)
		_, err = f.RecalculateRunningBalances(ctx, "no-such-account", "auditor")
		require.Error(t, err)
		assert.Len(t, f.audit.entries, recorded)
	})
}

func TestRunningBalancesFollowLedgerOrder(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		_, err := f.CreateAndPostVoucher(ctx, f.receipt("10", date(2025, 6, 10)))
		require.NoError(t, err)
		_, err = f.CreateAndPostVoucher(ctx, f.receipt("20", date(2025, 6, 1)))
		require.NoError(t, err)

		cb, err := f.CashBook(ctx, f.a100.ID, time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, cb.Lines, 2)
		assert.Equal(t, "1020.00", cb.Lines[0].Balance.StringFixed(2))
		assert.Equal(t, "1030.00", cb.Lines[1].Balance.StringFixed(2))

		entries, err := f.Entries(ctx, store.EntryFilter{AccountID: f.a100.ID})
		require.NoError(t, err)
		for i, e := range entries {
			assert.True(t, e.RunningBalance.Equal(cb.Lines[i].Balance), "entry %d", i)
		}
	})
}

func TestReconcileRoundTripKeepsBalances(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		_, err := f.CreateAndPostVoucher(ctx, f.receipt("500", date(2025, 6, 10)))
		require.NoError(t, err)
		entries, err := f.Entries(ctx, store.EntryFilter{AccountID: f.a100.ID})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		id := entries[0].ID

		e, err := f.ReconcileEntry(ctx, id, "auditor")
		require.NoError(t, err)
		assert.True(t, e.Reconciled)
		assert.Equal(t, "auditor", e.ReconciledBy)
		a, err := f.Account(ctx, f.a100.ID)
		require.NoError(t, err)
		assert.Equal(t, "1500.00", a.ReconciledBalance.StringFixed(2))

		e, err = f.UnreconcileEntry(ctx, id, "auditor")
		require.NoError(t, err)
		assert.False(t, e.Reconciled)
		assert.Empty(t, e.ReconciledBy)
		assert.True(t, e.RunningBalance.Equal(dec("1500")))

		a, err = f.Account(ctx, f.a100.ID)
		require.NoError(t, err)
		assert.Equal(t, "1500.00", a.CurrentBalance.StringFixed(2))
		assert.Equal(t, "1000.00", a.ReconciledBalance.StringFixed(2))

		results := f.ReconcileEntries(ctx, []string{id, "missing"}, "auditor")
		require.Len(t, results, 2)
		assert.NoError(t, results[0].Err)
		assert.True(t, bookerr.IsNotFound(results[1].Err))
	})
}

func TestLockedAccountRejectsPosting(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		v, err := f.CreateVoucher(ctx, f.receipt("500", date(2025, 6, 10)))
		require.NoError(t, err)

		_, err = f.LockAccount(ctx, f.a100.ID, "owner")
		require.NoError(t, err)
		_, err = f.PostVoucher(ctx, v.ID, "manager")
		assert.True(t, bookerr.IsConflict(err))
		assert.Equal(t, bookerr.CodeAccountLocked, bookerr.CodeOf(err))
		assert.Equal(t, "1000.00", f.balance(t, f.a100.ID).StringFixed(2))

		_, err = f.UnlockAccount(ctx, f.a100.ID, "owner")
		require.NoError(t, err)
		_, err = f.PostVoucher(ctx, v.ID, "manager")
		require.NoError(t, err)
	})
}

func TestConcurrentPostingsStayBalanced(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		var ids []string
		for i := 0; i < 12; i++ {
			v, err := f.CreateVoucher(ctx, f.receipt("10.01", date(2025, 6, 1+i)))
			require.NoError(t, err)
			ids = append(ids, v.ID)
		}

		var g errgroup.Group
		for _, id := range ids {
			id := id
			g.Go(func() error {
				_, err := f.PostVoucher(ctx, id, "manager")
				return err
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, "1120.12", f.balance(t, f.a100.ID).StringFixed(2))
		ver, err := f.VerifyAccount(ctx, f.a100.ID)
		require.NoError(t, err)
		assert.True(t, ver.Consistent())
		tb, err := f.TrialBalance(ctx, tenant, date(2025, 6, 30))
		require.NoError(t, err)
		assert.True(t, tb.IsBalanced)
	})
}

func TestImportStatement(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		v1, err := f.CreateAndPostVoucher(ctx, f.receipt("1250.50", date(2025, 6, 1)))
		require.NoError(t, err)
		_, err = f.CreateAndPostVoucher(ctx, f.receipt("99.00", date(2025, 6, 1)))
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "june.csv")
		csv := "date,description,amount,cheque_number,reference\n" +
			"2025-06-02,CARD SETTLEMENT BATCH 118,\"1,250.50\",,BATCH118\n" +
			"2025-06-09,BANK CHARGES,-35.40,,\n"
		require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

		res, err := f.ImportStatement(ctx, f.a100.ID, "signed", path, 3, "auditor")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Lines)
		require.Len(t, res.Matches, 1)
		assert.Equal(t, v1.ID, res.Matches[0].Entry.VoucherID)
		require.Len(t, res.Unmatched, 1)
		assert.Equal(t, "BANK CHARGES", res.Unmatched[0].Description)
		require.Len(t, res.Reconciled, 1)
		assert.True(t, res.Reconciled[0].Entry.Reconciled)

		a, err := f.Account(ctx, f.a100.ID)
		require.NoError(t, err)
		assert.Equal(t, "2250.50", a.ReconciledBalance.StringFixed(2))

		_, err = f.ImportStatement(ctx, f.a100.ID, "mt940", path, 3, "auditor")
		assert.Error(t, err)
	})
}

func TestExport(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		_, err := f.CreateAndPostVoucher(ctx, f.receipt("500", date(2025, 6, 10)))
		require.NoError(t, err)

		dir := t.TempDir()
		paths, err := f.Export(ctx, tenant, dir)
		require.NoError(t, err)
		require.Len(t, paths, 2)

		chart, err := accounts.LoadChart(paths[0])
		require.NoError(t, err)
		assert.Len(t, chart, 3)

		file, err := os.Open(filepath.Join(dir, tenant, LedgerFile))
		require.NoError(t, err)
		defer file.Close()
		entries, err := ledger.ReadEntries(file)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].Debit.Add(entries[1].Debit).Equal(dec("500")))

		diff, err := f.VerifyExport(ctx, tenant, dir)
		require.NoError(t, err)
		assert.True(t, diff.Current())
		assert.Equal(t, 2, diff.Live)

		// Reconciling an exported entry and posting another make the export stale.
		_, err = f.ReconcileEntry(ctx, entries[0].ID, "auditor")
		require.NoError(t, err)
		_, err = f.CreateAndPostVoucher(ctx, f.receipt("75", date(2025, 6, 11)))
		require.NoError(t, err)

		diff, err = f.VerifyExport(ctx, tenant, dir)
		require.NoError(t, err)
		assert.False(t, diff.Current())
		assert.Equal(t, 2, diff.Exported)
		assert.Equal(t, 4, diff.Live)
		assert.Equal(t, []string{entries[0].ID}, diff.Changed)
		assert.Len(t, diff.Missing, 2)
		assert.Empty(t, diff.Unknown)

		_, err = f.VerifyExport(ctx, tenant, t.TempDir())
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestAuditTrail(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		_, err := f.AuditTrail(AuditFilter{})
		assert.ErrorIs(t, err, ErrNoAuditLog)
	})

	ctx := context.Background()
	log := auditlog.Open(filepath.Join(t.TempDir(), "audit-log.csv"))
	cal := fiscal.NewStatic([]fiscal.Window{fiscal.FinancialYear(clock, time.April, 1)}, nil, nil)
	b := New(memory.New(), cal, WithClock(func() time.Time { return clock }), WithAuditor(log))
	defer b.Close()

	bank, err := b.CreateAccount(ctx, accounts.NewAccount{TenantID: tenant, Code: "A100", Name: "Bank", Type: model.AccountTypeAsset, Group: model.GroupBank}, "owner")
	require.NoError(t, err)
	sales, err := b.CreateAccount(ctx, accounts.NewAccount{TenantID: tenant, Code: "A200", Name: "Fuel Sales", Type: model.AccountTypeIncome}, "owner")
	require.NoError(t, err)
	v, err := b.CreateAndPostVoucher(ctx, vouchers.CustomerReceipt(vouchers.Transfer{TenantID: tenant, Date: date(2025, 6, 3), Amount: dec("80"), CreatedBy: "clerk"}, bank.ID, sales.ID))
	require.NoError(t, err)
	_, err = b.CreateAccount(ctx, accounts.NewAccount{TenantID: "STN02", Code: "A100", Name: "Bank", Type: model.AccountTypeAsset}, "owner")
	require.NoError(t, err)

	all, err := b.AuditTrail(AuditFilter{TenantID: tenant})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byClerk, err := b.AuditTrail(AuditFilter{TenantID: tenant, Actor: "clerk"})
	require.NoError(t, err)
	require.NotEmpty(t, byClerk)
	for _, e := range byClerk {
		assert.Equal(t, v.Number, e.Subject)
	}

	last, err := b.AuditTrail(AuditFilter{TenantID: tenant, Last: 1})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "voucher.post", last[0].Action)
}

func TestOpenFromConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := config.Default("Highway Fuels", tenant)
	cfg.Fiscal.Open = []config.WindowConfig{{Start: "2025-04-01", End: "2026-03-31"}}

	b, err := Open(ctx, dir, cfg, WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	created, err := b.ImportChart(ctx, tenant, accounts.DefaultChart(tenant), "owner")
	require.NoError(t, err)
	assert.NotEmpty(t, created)
	require.NoError(t, b.Close())

	// Reopening finds the accounts in the sqlite file and the audit trail
	// on disk.
	b, err = Open(ctx, dir, cfg)
	require.NoError(t, err)
	defer b.Close()
	accts, err := b.Accounts(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, accts, len(created))

	entries, err := b.AuditTrail(AuditFilter{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "account.import", entries[0].Action)

	cfg.Store.Driver = "bolt"
	_, err = Open(ctx, dir, cfg)
	assert.Error(t, err)
}
