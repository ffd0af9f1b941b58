package books

import (
	"context"
	"fmt"

	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
	"github.com/cleared-dev/forecourt/internal/vouchers"
)

// CreateVoucher stores a validated DRAFT voucher.
func (b *Books) CreateVoucher(ctx context.Context, in vouchers.NewVoucher) (model.Voucher, error) {
	v, err := b.vouchers.Create(ctx, in)
	if err != nil {
		return model.Voucher{}, err
	}
	b.record(v.CreatedBy, "voucher.create", v.TenantID, v.Number, amountDetails(v))
	return v, nil
}

// PostVoucher writes a DRAFT voucher to the ledger.
func (b *Books) PostVoucher(ctx context.Context, voucherID, by string) (model.Voucher, error) {
	v, err := b.vouchers.Post(ctx, voucherID, by)
	if err != nil {
		return model.Voucher{}, err
	}
	b.record(by, "voucher.post", v.TenantID, v.Number, amountDetails(v))
	return v, nil
}

// CreateAndPostVoucher creates a voucher and posts it straight away. When
// posting fails the draft is kept and returned with the error.
func (b *Books) CreateAndPostVoucher(ctx context.Context, in vouchers.NewVoucher) (model.Voucher, error) {
	v, err := b.vouchers.CreateAndPost(ctx, in)
	if v.ID != "" {
		b.record(v.CreatedBy, "voucher.create", v.TenantID, v.Number, amountDetails(v))
	}
	if err != nil {
		return v, err
	}
	b.record(v.PostedBy, "voucher.post", v.TenantID, v.Number, amountDetails(v))
	return v, nil
}

// CancelVoucher voids a draft or reverses a posted voucher. It returns the
// cancelled voucher; ReversedBy names the reversal for posted ones.
func (b *Books) CancelVoucher(ctx context.Context, voucherID, reason, by string) (model.Voucher, error) {
	v, err := b.vouchers.Cancel(ctx, voucherID, reason, by)
	if err != nil {
		return model.Voucher{}, err
	}
	details := reason
	if v.ReversedBy != "" {
		if rev, err := b.vouchers.Get(ctx, v.ReversedBy); err == nil {
			details = reason + "; reversed by " + rev.Number
		}
	}
	b.record(by, "voucher.cancel", v.TenantID, v.Number, details)
	return v, nil
}

// Voucher returns a voucher by id.
func (b *Books) Voucher(ctx context.Context, voucherID string) (model.Voucher, error) {
	return b.vouchers.Get(ctx, voucherID)
}

// VoucherByNumber returns a tenant's voucher by its number.
func (b *Books) VoucherByNumber(ctx context.Context, tenantID, number string) (model.Voucher, error) {
	return b.vouchers.GetByNumber(ctx, tenantID, number)
}

// Vouchers lists vouchers matching f.
func (b *Books) Vouchers(ctx context.Context, f store.VoucherFilter) ([]model.Voucher, error) {
	return b.vouchers.List(ctx, f)
}

// Entries lists ledger entries matching f in ledger order.
func (b *Books) Entries(ctx context.Context, f store.EntryFilter) ([]model.LedgerEntry, error) {
	return b.ledger.Entries(ctx, f)
}

// RecalculateRunningBalances replays one account's ledger and repairs its
// running and current balances.
func (b *Books) RecalculateRunningBalances(ctx context.Context, accountID, by string) (ledger.Result, error) {
	res, err := b.ledger.Recalculate(ctx, accountID)
	if err != nil {
		return ledger.Result{}, err
	}
	if res.Rewritten > 0 {
		b.record(by, "ledger.recalculate", res.TenantID, res.Code, fmt.Sprintf("rewrote %d running balances", res.Rewritten))
	}
	return res, nil
}

// RecalculateAll recalculates every account of a tenant, one account lock
// at a time.
func (b *Books) RecalculateAll(ctx context.Context, tenantID, by string) ([]ledger.Result, error) {
	accts, err := b.accounts.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Result, 0, len(accts))
	for _, a := range accts {
		res, err := b.RecalculateRunningBalances(ctx, a.ID, by)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// VerifyAccount compares an account's cached balances with a replay of its
// ledger without changing anything.
func (b *Books) VerifyAccount(ctx context.Context, accountID string) (ledger.Verification, error) {
	return b.ledger.Verify(ctx, accountID)
}

func amountDetails(v model.Voucher) string {
	return string(v.Type) + " " + v.TotalAmount.StringFixed(model.AmountScale)
}
