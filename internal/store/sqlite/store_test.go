package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	acct := model.Account{
		ID: "a1", TenantID: "T1", Code: "A100", Name: "Cash", Type: model.AccountTypeAsset,
		Group: model.GroupCash, NormalSide: model.SideDebit, OpeningBalance: dec("1000.00"),
		CurrentBalance: dec("1000.00"), IsActive: true, IsSystem: true, CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateAccount(ctx, acct) }))

	require.NoError(t, s.View(ctx, func(r store.Reader) error {
		got, err := r.GetAccountByCode(ctx, "T1", "A100")
		require.NoError(t, err)
		assert.Equal(t, "Cash", got.Name)
		assert.Equal(t, model.GroupCash, got.Group)
		assert.True(t, got.OpeningBalance.Equal(dec("1000")))
		assert.True(t, got.IsActive)
		assert.True(t, got.IsSystem)
		assert.False(t, got.IsLocked)
		assert.True(t, got.CreatedAt.Equal(created))

		list, err := r.ListAccounts(ctx, store.AccountFilter{TenantID: "T1", Type: model.AccountTypeAsset})
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	}))

	err := s.Update(ctx, func(tx store.Tx) error {
		dup := acct
		dup.ID = "a2"
		return tx.CreateAccount(ctx, dup)
	})
	assert.Equal(t, bookerr.CodeDuplicateCode, bookerr.CodeOf(err))
}

func TestUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.CreateAccount(ctx, model.Account{ID: "a1", TenantID: "T1", Code: "A100", Type: model.AccountTypeAsset, NormalSide: model.SideDebit}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(ctx, func(r store.Reader) error {
		_, err := r.GetAccount(ctx, "a1")
		return err
	})
	assert.True(t, bookerr.IsNotFound(err))
}

func TestVoucherAndEntries(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	v := model.Voucher{
		ID: "v1", TenantID: "T1", Number: "JOURNAL-T1-202501-0001", Type: model.VoucherJournal,
		Date: day, TotalAmount: dec("500.00"), Status: model.StatusDraft,
		Entries: []model.VoucherEntry{
			{AccountID: "a1", Side: model.SideDebit, Amount: dec("500.00"), ChequeNumber: "000123"},
			{AccountID: "a2", Side: model.SideCredit, Amount: dec("500.00")},
		},
	}
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.CreateVoucher(ctx, v) }))

	var first model.LedgerEntry
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		v.Status = model.StatusPosted
		v.PostedBy = "manager"
		v.PostedAt = day.Add(time.Hour)
		if err := tx.UpdateVoucher(ctx, v); err != nil {
			return err
		}
		var err error
		first, err = tx.InsertEntry(ctx, model.LedgerEntry{
			ID: "e1", TenantID: "T1", AccountID: "a1", VoucherID: "v1", Date: day,
			Side: model.SideDebit, Debit: dec("500.00"), RunningBalance: dec("1500.00"),
		})
		if err != nil {
			return err
		}
		second, err := tx.InsertEntry(ctx, model.LedgerEntry{
			ID: "e2", TenantID: "T1", AccountID: "a1", VoucherID: "v1", Date: day.AddDate(0, 0, -3),
			Side: model.SideCredit, Credit: dec("20.00"),
		})
		if err != nil {
			return err
		}
		assert.Greater(t, second.Seq, first.Seq)
		return tx.SetReconciled(ctx, "e1", true, "clerk", day)
	}))

	require.NoError(t, s.View(ctx, func(r store.Reader) error {
		got, err := r.GetVoucherByNumber(ctx, "T1", "JOURNAL-T1-202501-0001")
		require.NoError(t, err)
		assert.Equal(t, model.StatusPosted, got.Status)
		assert.Equal(t, "manager", got.PostedBy)
		require.Len(t, got.Entries, 2)
		assert.Equal(t, "000123", got.Entries[0].ChequeNumber)
		assert.Equal(t, model.SideCredit, got.Entries[1].Side)

		es, err := r.ListEntries(ctx, store.EntryFilter{AccountID: "a1"})
		require.NoError(t, err)
		require.Len(t, es, 2)
		assert.Equal(t, "e2", es[0].ID, "ordered by date before seq")
		assert.True(t, es[1].Reconciled)
		assert.Equal(t, "clerk", es[1].ReconciledBy)
		assert.True(t, es[1].RunningBalance.Equal(dec("1500")))
		return nil
	}))

	err := s.Update(ctx, func(tx store.Tx) error {
		dup := v
		dup.ID = "v2"
		return tx.CreateVoucher(ctx, dup)
	})
	assert.True(t, bookerr.IsConflict(err))
}

func TestNextSequence(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, "SALES|T1|202501")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.CreateAccount(ctx, model.Account{ID: "a1", TenantID: "T1", Code: "A100", Type: model.AccountTypeAsset, NormalSide: model.SideDebit})
	}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.View(ctx, func(r store.Reader) error {
		_, err := r.GetAccount(ctx, "a1")
		return err
	}))
}
