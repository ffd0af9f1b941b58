// Package store defines the transactional persistence boundary of the
// bookkeeping core.
//
// Update runs a read-write unit that either commits entirely or not at all.
// View runs against a consistent snapshot that never observes a partially
// applied Update. Implementations do not lock accounts themselves; callers
// serialise conflicting writers with the lock package before calling Update.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/model"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Store is a transactional store for accounts, vouchers and ledger entries.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(r Reader) error) error
	// NextSequence allocates the next value of a named counter. Allocation is
	// committed immediately and never rolled back, so sequences are
	// monotonic but may have gaps.
	NextSequence(ctx context.Context, key string) (int64, error)
	Close() error
}

// Reader is the read side shared by snapshots and transactions. Missing
// rows are reported with bookerr.ErrNotFound.
type Reader interface {
	GetAccount(ctx context.Context, id string) (model.Account, error)
	GetAccountByCode(ctx context.Context, tenantID, code string) (model.Account, error)
	ListAccounts(ctx context.Context, f AccountFilter) ([]model.Account, error)

	GetVoucher(ctx context.Context, id string) (model.Voucher, error)
	GetVoucherByNumber(ctx context.Context, tenantID, number string) (model.Voucher, error)
	ListVouchers(ctx context.Context, f VoucherFilter) ([]model.Voucher, error)

	GetEntry(ctx context.Context, id string) (model.LedgerEntry, error)
	// ListEntries returns entries ordered by (Date, Seq) ascending.
	ListEntries(ctx context.Context, f EntryFilter) ([]model.LedgerEntry, error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	CreateAccount(ctx context.Context, a model.Account) error
	UpdateAccount(ctx context.Context, a model.Account) error
	SetAccountBalance(ctx context.Context, id string, current decimal.Decimal) error
	SetReconciledBalance(ctx context.Context, id string, reconciled decimal.Decimal) error

	CreateVoucher(ctx context.Context, v model.Voucher) error
	UpdateVoucher(ctx context.Context, v model.Voucher) error

	// InsertEntry stores e and returns it with Seq assigned.
	InsertEntry(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error)
	SetRunningBalance(ctx context.Context, entryID string, balance decimal.Decimal) error
	SetReconciled(ctx context.Context, entryID string, reconciled bool, by string, at time.Time) error
}

// AccountFilter selects accounts. Zero fields match everything.
type AccountFilter struct {
	TenantID   string
	Type       model.AccountType
	Group      model.AccountGroup
	ParentCode string
	ActiveOnly bool
}

// Match reports whether a satisfies the filter.
func (f AccountFilter) Match(a model.Account) bool {
	switch {
	case f.TenantID != "" && a.TenantID != f.TenantID:
		return false
	case f.Type != "" && a.Type != f.Type:
		return false
	case f.Group != "" && a.Group != f.Group:
		return false
	case f.ParentCode != "" && a.ParentCode != f.ParentCode:
		return false
	case f.ActiveOnly && !a.IsActive:
		return false
	}
	return true
}

// VoucherFilter selects vouchers. Zero fields match everything; From and To
// are inclusive dates.
type VoucherFilter struct {
	TenantID string
	Type     model.VoucherType
	Status   model.VoucherStatus
	From     time.Time
	To       time.Time
}

// Match reports whether v satisfies the filter.
func (f VoucherFilter) Match(v model.Voucher) bool {
	switch {
	case f.TenantID != "" && v.TenantID != f.TenantID:
		return false
	case f.Type != "" && v.Type != f.Type:
		return false
	case f.Status != "" && v.Status != f.Status:
		return false
	case !f.From.IsZero() && v.Date.Before(f.From):
		return false
	case !f.To.IsZero() && v.Date.After(f.To):
		return false
	}
	return true
}

// EntryFilter selects ledger entries. Zero fields match everything; From
// and To are inclusive dates.
type EntryFilter struct {
	TenantID  string
	AccountID string
	VoucherID string
	From      time.Time
	To        time.Time
}

// Match reports whether e satisfies the filter.
func (f EntryFilter) Match(e model.LedgerEntry) bool {
	switch {
	case f.TenantID != "" && e.TenantID != f.TenantID:
		return false
	case f.AccountID != "" && e.AccountID != f.AccountID:
		return false
	case f.VoucherID != "" && e.VoucherID != f.VoucherID:
		return false
	case !f.From.IsZero() && e.Date.Before(f.From):
		return false
	case !f.To.IsZero() && e.Date.After(f.To):
		return false
	}
	return true
}
