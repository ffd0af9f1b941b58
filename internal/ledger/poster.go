// Package ledger turns posted vouchers into ledger entries and keeps each
// account's running and current balances consistent with them.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/id"
	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// Poster writes ledger entries and maintains running balances.
type Poster struct {
	store store.Store
	locks *lock.Manager
	log   *zap.Logger
	now   func() time.Time
}

// Option configures a Poster.
type Option func(*Poster)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poster) { p.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Poster) { p.now = now }
}

// NewPoster creates a Poster.
func NewPoster(s store.Store, locks *lock.Manager, opts ...Option) *Poster {
	p := &Poster{store: s, locks: locks, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// PostEntries records one ledger entry per voucher line inside tx and moves
// the current balance of every touched account. The caller must hold the
// locks of all accounts in v. An entry dated before an account's latest
// entry triggers a replay of that account so running balances stay in
// ledger order.
func (p *Poster) PostEntries(ctx context.Context, tx store.Tx, v model.Voucher) ([]model.LedgerEntry, error) {
	accounts := make(map[string]model.Account, len(v.Entries))
	balances := make(map[string]decimal.Decimal, len(v.Entries))
	backdated := make(map[string]bool)

	for _, accountID := range v.AccountIDs() {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("loading account %s: %w", accountID, err)
		}
		if a.TenantID != v.TenantID {
			return nil, bookerr.Validation(bookerr.CodeUnknownAccount, "accountId", "account %s does not belong to tenant %s", accountID, v.TenantID)
		}
		later, err := tx.ListEntries(ctx, store.EntryFilter{AccountID: accountID, From: v.Date.AddDate(0, 0, 1)})
		if err != nil {
			return nil, fmt.Errorf("checking later entries of %s: %w", accountID, err)
		}
		accounts[accountID] = a
		balances[accountID] = a.CurrentBalance
		backdated[accountID] = len(later) > 0
	}

	now := p.now().UTC()
	posted := make([]model.LedgerEntry, 0, len(v.Entries))
	for i, ve := range v.Entries {
		a := accounts[ve.AccountID]
		balances[a.ID] = a.Apply(balances[a.ID], ve.Side, ve.Amount)

		e := model.LedgerEntry{
			ID:             id.New(),
			TenantID:       v.TenantID,
			AccountID:      a.ID,
			VoucherID:      v.ID,
			VoucherNumber:  v.Number,
			VoucherType:    v.Type,
			Line:           i + 1,
			Date:           v.Date,
			Side:           ve.Side,
			Debit:          decimal.Zero,
			Credit:         decimal.Zero,
			RunningBalance: balances[a.ID],
			Narration:      ve.Narration,
			Party:          ve.Party,
			Reference:      ve.Reference,
			ChequeNumber:   ve.ChequeNumber,
			CreatedAt:      now,
		}
		if e.Narration == "" {
			e.Narration = v.Narration
		}
		if ve.Side == model.SideDebit {
			e.Debit = ve.Amount
		} else {
			e.Credit = ve.Amount
		}

		inserted, err := tx.InsertEntry(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("inserting entry %d of %s: %w", i+1, v.Number, err)
		}
		posted = append(posted, inserted)
	}

	for accountID, bal := range balances {
		if backdated[accountID] {
			a := accounts[accountID]
			res, err := p.replay(ctx, tx, a)
			if err != nil {
				return nil, err
			}
			p.log.Debug("backdated posting replayed",
				zap.String("account", accountID),
				zap.String("voucher", v.Number),
				zap.Int("rewritten", res.Rewritten))
			continue
		}
		if err := tx.SetAccountBalance(ctx, accountID, bal); err != nil {
			return nil, fmt.Errorf("updating balance of %s: %w", accountID, err)
		}
	}

	// Replays may have rewritten the running balances just inserted.
	for i := range posted {
		if backdated[posted[i].AccountID] {
			e, err := tx.GetEntry(ctx, posted[i].ID)
			if err != nil {
				return nil, err
			}
			posted[i] = e
		}
	}
	return posted, nil
}

// Result summarises a running-balance replay of one account.
type Result struct {
	AccountID string
	TenantID  string
	Code      string
	Entries   int
	Rewritten int
	Balance   decimal.Decimal
}

// Recalculate replays the opening balance of an account over its entries in
// ledger order, rewriting running balances and the current balance where
// they differ. Running it twice changes nothing the second time.
func (p *Poster) Recalculate(ctx context.Context, accountID string) (Result, error) {
	release, err := p.locks.Acquire(ctx, lock.AccountKey(accountID))
	if err != nil {
		return Result{}, err
	}
	defer release()

	var res Result
	err = p.store.Update(ctx, func(tx store.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		res, err = p.replay(ctx, tx, a)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("recalculating %s: %w", accountID, err)
	}
	p.log.Info("running balances recalculated",
		zap.String("account", accountID),
		zap.Int("entries", res.Entries),
		zap.Int("rewritten", res.Rewritten),
		zap.String("balance", res.Balance.StringFixed(model.AmountScale)))
	return res, nil
}

func (p *Poster) replay(ctx context.Context, tx store.Tx, a model.Account) (Result, error) {
	entries, err := tx.ListEntries(ctx, store.EntryFilter{AccountID: a.ID})
	if err != nil {
		return Result{}, fmt.Errorf("listing entries of %s: %w", a.ID, err)
	}

	res := Result{AccountID: a.ID, TenantID: a.TenantID, Code: a.Code, Entries: len(entries), Balance: a.OpeningBalance}
	for _, e := range entries {
		res.Balance = a.Apply(res.Balance, e.Side, e.Amount())
		if e.RunningBalance.Equal(res.Balance) {
			continue
		}
		if err := tx.SetRunningBalance(ctx, e.ID, res.Balance); err != nil {
			return Result{}, fmt.Errorf("rewriting entry %s: %w", e.ID, err)
		}
		res.Rewritten++
	}
	if !a.CurrentBalance.Equal(res.Balance) {
		if err := tx.SetAccountBalance(ctx, a.ID, res.Balance); err != nil {
			return Result{}, fmt.Errorf("updating balance of %s: %w", a.ID, err)
		}
	}
	return res, nil
}

// Entries returns ledger entries in ledger order.
func (p *Poster) Entries(ctx context.Context, f store.EntryFilter) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	err := p.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.ListEntries(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return out, nil
}

// Verification compares an account's cached balances with a replay.
type Verification struct {
	AccountID string
	Cached    decimal.Decimal
	Replayed  decimal.Decimal
	// FirstDrift is the first entry whose stored running balance differs
	// from the replay, or "" when all match.
	FirstDrift string
}

// Consistent reports whether nothing drifted.
func (v Verification) Consistent() bool {
	return v.Cached.Equal(v.Replayed) && v.FirstDrift == ""
}

// Verify replays an account in a read snapshot without changing anything.
func (p *Poster) Verify(ctx context.Context, accountID string) (Verification, error) {
	var out Verification
	err := p.store.View(ctx, func(r store.Reader) error {
		a, err := r.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		entries, err := r.ListEntries(ctx, store.EntryFilter{AccountID: a.ID})
		if err != nil {
			return err
		}
		out = Verification{AccountID: a.ID, Cached: a.CurrentBalance, Replayed: a.OpeningBalance}
		for _, e := range entries {
			out.Replayed = a.Apply(out.Replayed, e.Side, e.Amount())
			if out.FirstDrift == "" && !e.RunningBalance.Equal(out.Replayed) {
				out.FirstDrift = e.ID
			}
		}
		return nil
	})
	if err != nil {
		return Verification{}, fmt.Errorf("verifying %s: %w", accountID, err)
	}
	return out, nil
}
