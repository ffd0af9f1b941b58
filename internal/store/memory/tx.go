package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// op is one buffered write. check runs against the committed state before
// any apply, so a failing check leaves the store untouched.
type op struct {
	check func(st *state) error
	apply func(st *state)
}

// tx overlays its own writes on top of the live committed state. Field-level
// setters replay as patches on commit so that concurrent transactions
// touching different fields of the same row do not overwrite each other.
type tx struct {
	s        *Store
	accounts map[string]model.Account
	vouchers map[string]model.Voucher
	entries  map[string]model.LedgerEntry
	ops      []op
}

func newTx(s *Store) *tx {
	return &tx{
		s:        s,
		accounts: make(map[string]model.Account),
		vouchers: make(map[string]model.Voucher),
		entries:  make(map[string]model.LedgerEntry),
	}
}

func (t *tx) base(fn func(st *state)) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	fn(t.s.st)
}

func (t *tx) GetAccount(_ context.Context, id string) (model.Account, error) {
	if a, ok := t.accounts[id]; ok {
		return a, nil
	}
	var (
		a  model.Account
		ok bool
	)
	t.base(func(st *state) { a, ok = st.accounts[id] })
	if !ok {
		return model.Account{}, bookerr.NotFound("account", id)
	}
	return a, nil
}

func (t *tx) GetAccountByCode(ctx context.Context, tenantID, code string) (model.Account, error) {
	for _, a := range t.accounts {
		if a.TenantID == tenantID && a.Code == code {
			return a, nil
		}
	}
	var (
		a  model.Account
		ok bool
	)
	t.base(func(st *state) { a, ok = st.accountByCode(tenantID, code) })
	if ok {
		if _, shadowed := t.accounts[a.ID]; !shadowed {
			return a, nil
		}
	}
	return model.Account{}, bookerr.NotFound("account", code)
}

func (t *tx) ListAccounts(_ context.Context, f store.AccountFilter) ([]model.Account, error) {
	var committed []model.Account
	t.base(func(st *state) { committed = st.listAccounts(store.AccountFilter{TenantID: f.TenantID}) })

	var out []model.Account
	for _, a := range committed {
		if _, shadowed := t.accounts[a.ID]; shadowed {
			continue
		}
		if f.Match(a) {
			out = append(out, a)
		}
	}
	for _, a := range t.accounts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (t *tx) GetVoucher(_ context.Context, id string) (model.Voucher, error) {
	if v, ok := t.vouchers[id]; ok {
		return v.Clone(), nil
	}
	var (
		v  model.Voucher
		ok bool
	)
	t.base(func(st *state) { v, ok = st.vouchers[id] })
	if !ok {
		return model.Voucher{}, bookerr.NotFound("voucher", id)
	}
	return v.Clone(), nil
}

func (t *tx) GetVoucherByNumber(_ context.Context, tenantID, number string) (model.Voucher, error) {
	for _, v := range t.vouchers {
		if v.TenantID == tenantID && v.Number == number {
			return v.Clone(), nil
		}
	}
	var (
		v  model.Voucher
		ok bool
	)
	t.base(func(st *state) { v, ok = st.voucherByNumber(tenantID, number) })
	if !ok {
		return model.Voucher{}, bookerr.NotFound("voucher", number)
	}
	return v, nil
}

func (t *tx) ListVouchers(_ context.Context, f store.VoucherFilter) ([]model.Voucher, error) {
	var committed []model.Voucher
	t.base(func(st *state) { committed = st.listVouchers(f) })

	var out []model.Voucher
	for _, v := range committed {
		if _, shadowed := t.vouchers[v.ID]; !shadowed {
			out = append(out, v)
		}
	}
	for _, v := range t.vouchers {
		if f.Match(v) {
			out = append(out, v.Clone())
		}
	}
	sortVouchers(out)
	return out, nil
}

func (t *tx) GetEntry(_ context.Context, id string) (model.LedgerEntry, error) {
	if e, ok := t.entries[id]; ok {
		return e, nil
	}
	var (
		e  model.LedgerEntry
		ok bool
	)
	t.base(func(st *state) { e, ok = st.entries[id] })
	if !ok {
		return model.LedgerEntry{}, bookerr.NotFound("ledger entry", id)
	}
	return e, nil
}

func (t *tx) ListEntries(_ context.Context, f store.EntryFilter) ([]model.LedgerEntry, error) {
	var committed []model.LedgerEntry
	t.base(func(st *state) { committed = st.listEntries(f) })

	var out []model.LedgerEntry
	for _, e := range committed {
		if _, shadowed := t.entries[e.ID]; !shadowed {
			out = append(out, e)
		}
	}
	for _, e := range t.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (t *tx) CreateAccount(ctx context.Context, a model.Account) error {
	if _, err := t.GetAccount(ctx, a.ID); err == nil {
		return bookerr.Conflict(bookerr.CodeInvalidInput, "id", "account id %q already exists", a.ID)
	}
	if _, err := t.GetAccountByCode(ctx, a.TenantID, a.Code); err == nil {
		return duplicateCode(a)
	}
	t.accounts[a.ID] = a
	t.ops = append(t.ops, op{
		check: func(st *state) error {
			if _, exists := st.accountCodes[key(a.TenantID, a.Code)]; exists {
				return duplicateCode(a)
			}
			return nil
		},
		apply: func(st *state) {
			st.accounts[a.ID] = a
			st.accountCodes[key(a.TenantID, a.Code)] = a.ID
		},
	})
	return nil
}

// UpdateAccount writes every field except CurrentBalance and
// ReconciledBalance, which only move through their dedicated setters.
func (t *tx) UpdateAccount(ctx context.Context, a model.Account) error {
	prev, err := t.GetAccount(ctx, a.ID)
	if err != nil {
		return err
	}
	if prev.Code != a.Code {
		if _, err := t.GetAccountByCode(ctx, a.TenantID, a.Code); err == nil {
			return duplicateCode(a)
		}
	}
	a.CurrentBalance = prev.CurrentBalance
	a.ReconciledBalance = prev.ReconciledBalance
	t.accounts[a.ID] = a
	t.ops = append(t.ops, op{
		check: func(st *state) error {
			if id, exists := st.accountCodes[key(a.TenantID, a.Code)]; exists && id != a.ID {
				return duplicateCode(a)
			}
			return nil
		},
		apply: func(st *state) {
			cur := st.accounts[a.ID]
			delete(st.accountCodes, key(cur.TenantID, cur.Code))
			next := a
			next.CurrentBalance = cur.CurrentBalance
			next.ReconciledBalance = cur.ReconciledBalance
			st.accounts[a.ID] = next
			st.accountCodes[key(a.TenantID, a.Code)] = a.ID
		},
	})
	return nil
}

func (t *tx) SetAccountBalance(ctx context.Context, id string, current decimal.Decimal) error {
	a, err := t.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	a.CurrentBalance = current
	t.accounts[id] = a
	t.ops = append(t.ops, op{apply: func(st *state) {
		cur := st.accounts[id]
		cur.CurrentBalance = current
		st.accounts[id] = cur
	}})
	return nil
}

func (t *tx) SetReconciledBalance(ctx context.Context, id string, reconciled decimal.Decimal) error {
	a, err := t.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	a.ReconciledBalance = reconciled
	t.accounts[id] = a
	t.ops = append(t.ops, op{apply: func(st *state) {
		cur := st.accounts[id]
		cur.ReconciledBalance = reconciled
		st.accounts[id] = cur
	}})
	return nil
}

func (t *tx) CreateVoucher(ctx context.Context, v model.Voucher) error {
	if _, err := t.GetVoucher(ctx, v.ID); err == nil {
		return bookerr.Conflict(bookerr.CodeInvalidInput, "id", "voucher id %q already exists", v.ID)
	}
	if _, err := t.GetVoucherByNumber(ctx, v.TenantID, v.Number); err == nil {
		return duplicateNumber(v)
	}
	v = v.Clone()
	t.vouchers[v.ID] = v
	t.ops = append(t.ops, op{
		check: func(st *state) error {
			if _, exists := st.voucherNumbers[key(v.TenantID, v.Number)]; exists {
				return duplicateNumber(v)
			}
			return nil
		},
		apply: func(st *state) {
			st.vouchers[v.ID] = v
			st.voucherNumbers[key(v.TenantID, v.Number)] = v.ID
		},
	})
	return nil
}

// UpdateVoucher replaces a voucher. The number is immutable.
func (t *tx) UpdateVoucher(ctx context.Context, v model.Voucher) error {
	prev, err := t.GetVoucher(ctx, v.ID)
	if err != nil {
		return err
	}
	if prev.Number != v.Number || prev.TenantID != v.TenantID {
		return bookerr.Validation(bookerr.CodeInvalidInput, "number", "voucher number is immutable")
	}
	v = v.Clone()
	t.vouchers[v.ID] = v
	t.ops = append(t.ops, op{apply: func(st *state) { st.vouchers[v.ID] = v }})
	return nil
}

func (t *tx) InsertEntry(_ context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	e.Seq = t.s.nextEntrySeq()
	t.entries[e.ID] = e
	t.ops = append(t.ops, op{apply: func(st *state) { st.entries[e.ID] = e }})
	return e, nil
}

func (t *tx) SetRunningBalance(ctx context.Context, entryID string, balance decimal.Decimal) error {
	e, err := t.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	e.RunningBalance = balance
	t.entries[entryID] = e
	t.ops = append(t.ops, op{apply: func(st *state) {
		cur := st.entries[entryID]
		cur.RunningBalance = balance
		st.entries[entryID] = cur
	}})
	return nil
}

func (t *tx) SetReconciled(ctx context.Context, entryID string, reconciled bool, by string, at time.Time) error {
	e, err := t.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	e.Reconciled, e.ReconciledBy, e.ReconciledAt = reconciled, by, at
	t.entries[entryID] = e
	t.ops = append(t.ops, op{apply: func(st *state) {
		cur := st.entries[entryID]
		cur.Reconciled, cur.ReconciledBy, cur.ReconciledAt = reconciled, by, at
		st.entries[entryID] = cur
	}})
	return nil
}

func duplicateCode(a model.Account) error {
	return bookerr.Validation(bookerr.CodeDuplicateCode, "code", "account code %q already exists in tenant %q", a.Code, a.TenantID)
}

func duplicateNumber(v model.Voucher) error {
	return bookerr.Conflict(bookerr.CodeDuplicateNumber, "number", "voucher number %q already exists", v.Number)
}
