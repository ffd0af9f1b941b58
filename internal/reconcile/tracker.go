// Package reconcile marks ledger entries as verified against an external
// record such as a bank statement.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/statement"
	"github.com/cleared-dev/forecourt/internal/store"
)

// Tracker toggles the reconciled state of ledger entries. Amounts and
// running balances are never touched; the owning account's reconciled
// balance follows the flag.
type Tracker struct {
	store store.Store
	locks *lock.Manager
	log   *zap.Logger
	now   func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker.
func NewTracker(s store.Store, locks *lock.Manager, opts ...Option) *Tracker {
	t := &Tracker{store: s, locks: locks, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Reconcile marks an entry reconciled by the given identity. Reconciling an
// entry that already is leaves it untouched.
func (t *Tracker) Reconcile(ctx context.Context, entryID, by string) (model.LedgerEntry, error) {
	return t.toggle(ctx, entryID, true, by)
}

// Unreconcile clears an entry's reconciled flag and identity. Entries that
// are not reconciled are left untouched.
func (t *Tracker) Unreconcile(ctx context.Context, entryID string) (model.LedgerEntry, error) {
	return t.toggle(ctx, entryID, false, "")
}

func (t *Tracker) toggle(ctx context.Context, entryID string, reconciled bool, by string) (model.LedgerEntry, error) {
	verb := "reconciling"
	if !reconciled {
		verb = "unreconciling"
	}

	var e model.LedgerEntry
	err := t.store.View(ctx, func(r store.Reader) error {
		var err error
		e, err = r.GetEntry(ctx, entryID)
		return err
	})
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("%s entry %s: %w", verb, entryID, err)
	}

	release, err := t.locks.Acquire(ctx, lock.AccountKey(e.AccountID), lock.EntryKey(entryID))
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("%s entry %s: %w", verb, entryID, err)
	}
	defer release()

	changed := false
	err = t.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		e = cur
		if cur.Reconciled == reconciled {
			return nil
		}
		a, err := tx.GetAccount(ctx, cur.AccountID)
		if err != nil {
			return err
		}

		side := cur.Side
		if !reconciled {
			side = side.Opposite()
		}
		if err := tx.SetReconciledBalance(ctx, a.ID, a.Apply(a.ReconciledBalance, side, cur.Amount())); err != nil {
			return err
		}

		var at time.Time
		if reconciled {
			at = t.now().UTC()
		}
		if err := tx.SetReconciled(ctx, entryID, reconciled, by, at); err != nil {
			return err
		}
		e.Reconciled, e.ReconciledBy, e.ReconciledAt = reconciled, by, at
		changed = true
		return nil
	})
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("%s entry %s: %w", verb, entryID, err)
	}
	if changed {
		t.log.Info("entry reconciliation changed",
			zap.String("entry", entryID),
			zap.String("account", e.AccountID),
			zap.Bool("reconciled", reconciled),
			zap.String("by", by))
	}
	return e, nil
}

// Result reports the outcome for one id of a bulk operation.
type Result struct {
	EntryID string
	Entry   model.LedgerEntry
	Err     error
}

// ReconcileAll reconciles each id independently. A failure on one id does
// not undo the others.
func (t *Tracker) ReconcileAll(ctx context.Context, entryIDs []string, by string) []Result {
	return t.each(entryIDs, func(id string) (model.LedgerEntry, error) {
		return t.Reconcile(ctx, id, by)
	})
}

// UnreconcileAll unreconciles each id independently.
func (t *Tracker) UnreconcileAll(ctx context.Context, entryIDs []string) []Result {
	return t.each(entryIDs, func(id string) (model.LedgerEntry, error) {
		return t.Unreconcile(ctx, id)
	})
}

func (t *Tracker) each(ids []string, fn func(id string) (model.LedgerEntry, error)) []Result {
	out := make([]Result, len(ids))
	for i, id := range ids {
		e, err := fn(id)
		out[i] = Result{EntryID: id, Entry: e, Err: err}
	}
	return out
}

// Failed counts the results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// MatchStatement pairs statement lines with the account's unreconciled
// entries. Nothing is reconciled; feed the matched entry ids to
// ReconcileAll to apply the result.
func (t *Tracker) MatchStatement(ctx context.Context, accountID string, lines []statement.Line, windowDays int) (statement.Result, error) {
	var entries []model.LedgerEntry
	err := t.store.View(ctx, func(r store.Reader) error {
		if _, err := r.GetAccount(ctx, accountID); err != nil {
			return err
		}
		var err error
		entries, err = r.ListEntries(ctx, store.EntryFilter{AccountID: accountID})
		return err
	})
	if err != nil {
		return statement.Result{}, fmt.Errorf("matching statement for %s: %w", accountID, err)
	}
	return statement.MatchLines(lines, entries, windowDays), nil
}
