package books

import (
	"context"
	"fmt"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/model"
)

// CreateAccount adds an account to the chart.
func (b *Books) CreateAccount(ctx context.Context, in accounts.NewAccount, by string) (model.Account, error) {
	a, err := b.accounts.Create(ctx, in)
	if err != nil {
		return model.Account{}, err
	}
	b.record(by, "account.create", a.TenantID, a.Code, fmt.Sprintf("%s %s opening %s", a.Type, a.Name, a.OpeningBalance.StringFixed(model.AmountScale)))
	return a, nil
}

// ImportChart creates a batch of accounts in one atomic unit.
func (b *Books) ImportChart(ctx context.Context, tenantID string, batch []accounts.NewAccount, by string) ([]model.Account, error) {
	created, err := b.accounts.Import(ctx, tenantID, batch)
	if err != nil {
		return nil, err
	}
	b.record(by, "account.import", tenantID, "", fmt.Sprintf("%d accounts", len(created)))
	return created, nil
}

// UpdateAccount edits the descriptive fields of an account.
func (b *Books) UpdateAccount(ctx context.Context, accountID string, u accounts.AccountUpdate, by string) (model.Account, error) {
	a, err := b.accounts.Update(ctx, accountID, u)
	if err != nil {
		return model.Account{}, err
	}
	b.record(by, "account.update", a.TenantID, a.Code, "")
	return a, nil
}

// LockAccount blocks postings to an account.
func (b *Books) LockAccount(ctx context.Context, accountID, by string) (model.Account, error) {
	a, err := b.accounts.Lock(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	b.record(by, "account.lock", a.TenantID, a.Code, "")
	return a, nil
}

// UnlockAccount allows postings to an account again.
func (b *Books) UnlockAccount(ctx context.Context, accountID, by string) (model.Account, error) {
	a, err := b.accounts.Unlock(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	b.record(by, "account.unlock", a.TenantID, a.Code, "")
	return a, nil
}

// DeactivateAccount retires an account from new postings.
func (b *Books) DeactivateAccount(ctx context.Context, accountID, by string) (model.Account, error) {
	a, err := b.accounts.Deactivate(ctx, accountID)
	if err != nil {
		return model.Account{}, err
	}
	b.record(by, "account.deactivate", a.TenantID, a.Code, "")
	return a, nil
}

// Account returns an account by id.
func (b *Books) Account(ctx context.Context, accountID string) (model.Account, error) {
	return b.accounts.Get(ctx, accountID)
}

// AccountByCode returns a tenant's account by its code.
func (b *Books) AccountByCode(ctx context.Context, tenantID, code string) (model.Account, error) {
	return b.accounts.GetByCode(ctx, tenantID, code)
}

// Accounts lists a tenant's chart of accounts ordered by code.
func (b *Books) Accounts(ctx context.Context, tenantID string) ([]model.Account, error) {
	return b.accounts.List(ctx, tenantID)
}
