// Package accounts maintains the chart of accounts: codes, hierarchy,
// locking and the validation rules every account must satisfy.
package accounts

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/id"
	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,31}$`)

// NewAccount describes an account to create. Zero Group and NormalSide are
// derived from Type.
type NewAccount struct {
	TenantID       string
	Code           string
	Name           string
	Type           model.AccountType
	Group          model.AccountGroup
	NormalSide     model.Side
	OpeningBalance decimal.Decimal
	ParentCode     string
	IsSystem       bool
}

// AccountUpdate lists the mutable attributes of an account. Nil fields are
// left unchanged. Balances are never written through an update.
type AccountUpdate struct {
	Code           *string
	Name           *string
	Group          *model.AccountGroup
	ParentCode     *string
	OpeningBalance *decimal.Decimal
}

// Registry is the chart-of-accounts service.
type Registry struct {
	store store.Store
	locks *lock.Manager
	log   *zap.Logger
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a Registry over s. The lock manager must be the one
// shared with the voucher and ledger services.
func NewRegistry(s store.Store, locks *lock.Manager, opts ...Option) *Registry {
	r := &Registry{store: s, locks: locks, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create validates and stores a new active account. Its current and
// reconciled balances start at the opening balance.
func (r *Registry) Create(ctx context.Context, in NewAccount) (model.Account, error) {
	release, err := r.locks.Acquire(ctx, lock.ChartKey(in.TenantID))
	if err != nil {
		return model.Account{}, fmt.Errorf("creating account %s: %w", in.Code, err)
	}
	defer release()

	var created model.Account
	err = r.store.Update(ctx, func(tx store.Tx) error {
		a, err := r.create(ctx, tx, in)
		created = a
		return err
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("creating account %s: %w", in.Code, err)
	}
	r.log.Info("account created",
		zap.String("tenant", created.TenantID),
		zap.String("account", created.ID),
		zap.String("code", created.Code))
	return created, nil
}

// Import creates a batch of accounts atomically. Parents may appear
// anywhere in the batch; they are created before their children.
func (r *Registry) Import(ctx context.Context, tenantID string, batch []NewAccount) ([]model.Account, error) {
	for i := range batch {
		batch[i].TenantID = tenantID
	}
	ordered, err := parentsFirst(batch)
	if err != nil {
		return nil, fmt.Errorf("importing chart: %w", err)
	}

	release, err := r.locks.Acquire(ctx, lock.ChartKey(tenantID))
	if err != nil {
		return nil, fmt.Errorf("importing chart: %w", err)
	}
	defer release()

	var created []model.Account
	err = r.store.Update(ctx, func(tx store.Tx) error {
		created = created[:0]
		for _, in := range ordered {
			a, err := r.create(ctx, tx, in)
			if err != nil {
				return fmt.Errorf("account %s: %w", in.Code, err)
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importing chart: %w", err)
	}
	r.log.Info("chart imported", zap.String("tenant", tenantID), zap.Int("accounts", len(created)))
	return created, nil
}

func (r *Registry) create(ctx context.Context, tx store.Tx, in NewAccount) (model.Account, error) {
	if in.Group == "" {
		in.Group = in.Type.DefaultGroup()
	}
	if in.NormalSide == "" {
		in.NormalSide = in.Type.DefaultSide()
	}
	if err := validateNew(in); err != nil {
		return model.Account{}, err
	}
	if in.ParentCode != "" {
		if _, err := r.parent(ctx, tx, in.TenantID, in.ParentCode); err != nil {
			return model.Account{}, err
		}
	}

	now := r.now().UTC()
	a := model.Account{
		ID:                id.New(),
		TenantID:          in.TenantID,
		Code:              in.Code,
		Name:              in.Name,
		Type:              in.Type,
		Group:             in.Group,
		NormalSide:        in.NormalSide,
		OpeningBalance:    in.OpeningBalance,
		CurrentBalance:    in.OpeningBalance,
		ReconciledBalance: in.OpeningBalance,
		ParentCode:        in.ParentCode,
		IsSystem:          in.IsSystem,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := tx.CreateAccount(ctx, a); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func (r *Registry) parent(ctx context.Context, rd store.Reader, tenantID, code string) (model.Account, error) {
	p, err := rd.GetAccountByCode(ctx, tenantID, code)
	if bookerr.IsNotFound(err) {
		return model.Account{}, bookerr.Validation(bookerr.CodeUnknownParent, "parentCode", "parent account %q does not exist", code)
	}
	return p, err
}

// Update applies the non-nil fields of u. The opening balance may only
// change while the account has no ledger entries; the code may only change
// while no account names it as parent. System accounts keep their code.
//
// Code and parent changes also hold the tenant's chart key, so the cycle
// and child checks see a hierarchy no other writer is changing.
func (r *Registry) Update(ctx context.Context, accountID string, u AccountUpdate) (model.Account, error) {
	keys := []string{lock.AccountKey(accountID)}
	if u.Code != nil || u.ParentCode != nil {
		a, err := r.Get(ctx, accountID)
		if err != nil {
			return model.Account{}, fmt.Errorf("updating account %s: %w", accountID, err)
		}
		keys = append(keys, lock.ChartKey(a.TenantID))
	}
	release, err := r.locks.Acquire(ctx, keys...)
	if err != nil {
		return model.Account{}, err
	}
	defer release()

	var updated model.Account
	err = r.store.Update(ctx, func(tx store.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		next, err := r.applyUpdate(ctx, tx, a, u)
		if err != nil {
			return err
		}
		next.UpdatedAt = r.now().UTC()
		if err := tx.UpdateAccount(ctx, next); err != nil {
			return err
		}
		if !next.OpeningBalance.Equal(a.OpeningBalance) {
			// No entries exist, so both balances equal the opening balance.
			if err := tx.SetAccountBalance(ctx, a.ID, next.OpeningBalance); err != nil {
				return err
			}
			if err := tx.SetReconciledBalance(ctx, a.ID, next.OpeningBalance); err != nil {
				return err
			}
			next.CurrentBalance = next.OpeningBalance
			next.ReconciledBalance = next.OpeningBalance
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("updating account %s: %w", accountID, err)
	}
	r.log.Info("account updated", zap.String("tenant", updated.TenantID), zap.String("account", updated.ID))
	return updated, nil
}

func (r *Registry) applyUpdate(ctx context.Context, tx store.Tx, a model.Account, u AccountUpdate) (model.Account, error) {
	next := a
	if u.Name != nil {
		if *u.Name == "" {
			return a, bookerr.Validation(bookerr.CodeInvalidInput, "name", "name is required")
		}
		next.Name = *u.Name
	}
	if u.Group != nil {
		if u.Group.Type() != a.Type {
			return a, bookerr.Validation(bookerr.CodeInvalidInput, "group", "group %q does not belong to type %s", *u.Group, a.Type)
		}
		next.Group = *u.Group
	}
	if u.Code != nil && *u.Code != a.Code {
		if !codePattern.MatchString(*u.Code) {
			return a, bookerr.Validation(bookerr.CodeInvalidCode, "code", "code %q does not match %s", *u.Code, codePattern)
		}
		if a.IsSystem {
			return a, bookerr.Conflict(bookerr.CodeAccountInUse, "code", "system account %s cannot be renamed", a.Code)
		}
		children, err := tx.ListAccounts(ctx, store.AccountFilter{TenantID: a.TenantID, ParentCode: a.Code})
		if err != nil {
			return a, err
		}
		if len(children) > 0 {
			return a, bookerr.Conflict(bookerr.CodeAccountInUse, "code", "account %s has %d child accounts", a.Code, len(children))
		}
		next.Code = *u.Code
	}
	if u.ParentCode != nil && *u.ParentCode != a.ParentCode {
		if err := r.checkParent(ctx, tx, next, *u.ParentCode); err != nil {
			return a, err
		}
		next.ParentCode = *u.ParentCode
	}
	if u.OpeningBalance != nil && !u.OpeningBalance.Equal(a.OpeningBalance) {
		if !model.FitsScale(*u.OpeningBalance) {
			return a, bookerr.Validation(bookerr.CodePrecision, "openingBalance", "opening balance %s has more than 2 decimal places", u.OpeningBalance)
		}
		entries, err := tx.ListEntries(ctx, store.EntryFilter{AccountID: a.ID})
		if err != nil {
			return a, err
		}
		if len(entries) > 0 {
			return a, bookerr.Conflict(bookerr.CodeAccountInUse, "openingBalance", "account %s already carries %d ledger entries", a.Code, len(entries))
		}
		next.OpeningBalance = *u.OpeningBalance
	}
	return next, nil
}

// checkParent walks up from the proposed parent and rejects the change if
// it reaches a itself.
func (r *Registry) checkParent(ctx context.Context, rd store.Reader, a model.Account, parentCode string) error {
	if parentCode == "" {
		return nil
	}
	seen := map[string]bool{a.Code: true}
	code := parentCode
	for code != "" {
		if seen[code] {
			return bookerr.Validation(bookerr.CodeCyclicHierarchy, "parentCode", "making %s the parent of %s creates a cycle", parentCode, a.Code)
		}
		seen[code] = true
		p, err := r.parent(ctx, rd, a.TenantID, code)
		if err != nil {
			return err
		}
		code = p.ParentCode
	}
	return nil
}

// Lock blocks postings to an account.
func (r *Registry) Lock(ctx context.Context, accountID string) (model.Account, error) {
	return r.setFlag(ctx, accountID, "locked", func(a *model.Account) error {
		a.IsLocked = true
		return nil
	})
}

// Unlock allows postings to an account again.
func (r *Registry) Unlock(ctx context.Context, accountID string) (model.Account, error) {
	return r.setFlag(ctx, accountID, "unlocked", func(a *model.Account) error {
		a.IsLocked = false
		return nil
	})
}

// Activate marks an account active.
func (r *Registry) Activate(ctx context.Context, accountID string) (model.Account, error) {
	return r.setFlag(ctx, accountID, "activated", func(a *model.Account) error {
		a.IsActive = true
		return nil
	})
}

// Deactivate marks an account inactive. System accounts stay active.
func (r *Registry) Deactivate(ctx context.Context, accountID string) (model.Account, error) {
	return r.setFlag(ctx, accountID, "deactivated", func(a *model.Account) error {
		if a.IsSystem {
			return bookerr.Conflict(bookerr.CodeAccountInUse, "isActive", "system account %s cannot be deactivated", a.Code)
		}
		a.IsActive = false
		return nil
	})
}

func (r *Registry) setFlag(ctx context.Context, accountID, verb string, fn func(a *model.Account) error) (model.Account, error) {
	release, err := r.locks.Acquire(ctx, lock.AccountKey(accountID))
	if err != nil {
		return model.Account{}, err
	}
	defer release()

	var updated model.Account
	err = r.store.Update(ctx, func(tx store.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := fn(&a); err != nil {
			return err
		}
		a.UpdatedAt = r.now().UTC()
		updated = a
		return tx.UpdateAccount(ctx, a)
	})
	if err != nil {
		return model.Account{}, fmt.Errorf("account %s not %s: %w", accountID, verb, err)
	}
	r.log.Info("account "+verb, zap.String("tenant", updated.TenantID), zap.String("account", updated.ID))
	return updated, nil
}

// Get returns an account by id.
func (r *Registry) Get(ctx context.Context, accountID string) (model.Account, error) {
	var a model.Account
	err := r.store.View(ctx, func(rd store.Reader) error {
		var err error
		a, err = rd.GetAccount(ctx, accountID)
		return err
	})
	return a, err
}

// GetByCode returns an account by its tenant-scoped code.
func (r *Registry) GetByCode(ctx context.Context, tenantID, code string) (model.Account, error) {
	var a model.Account
	err := r.store.View(ctx, func(rd store.Reader) error {
		var err error
		a, err = rd.GetAccountByCode(ctx, tenantID, code)
		return err
	})
	return a, err
}

// List returns all accounts of a tenant ordered by code.
func (r *Registry) List(ctx context.Context, tenantID string) ([]model.Account, error) {
	return r.list(ctx, store.AccountFilter{TenantID: tenantID})
}

// ByType returns the tenant's accounts of one type.
func (r *Registry) ByType(ctx context.Context, tenantID string, t model.AccountType) ([]model.Account, error) {
	return r.list(ctx, store.AccountFilter{TenantID: tenantID, Type: t})
}

// ByGroup returns the tenant's accounts of one group.
func (r *Registry) ByGroup(ctx context.Context, tenantID string, g model.AccountGroup) ([]model.Account, error) {
	return r.list(ctx, store.AccountFilter{TenantID: tenantID, Group: g})
}

// Children returns the direct children of the account with the given code.
func (r *Registry) Children(ctx context.Context, tenantID, code string) ([]model.Account, error) {
	return r.list(ctx, store.AccountFilter{TenantID: tenantID, ParentCode: code})
}

func (r *Registry) list(ctx context.Context, f store.AccountFilter) ([]model.Account, error) {
	var out []model.Account
	err := r.store.View(ctx, func(rd store.Reader) error {
		var err error
		out, err = rd.ListAccounts(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return out, nil
}
