package books

import (
	"context"
	"fmt"

	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/reconcile"
	"github.com/cleared-dev/forecourt/internal/statement"
)

// ReconcileEntry marks a ledger entry as verified.
func (b *Books) ReconcileEntry(ctx context.Context, entryID, by string) (model.LedgerEntry, error) {
	e, err := b.reconciler.Reconcile(ctx, entryID, by)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	b.record(by, "entry.reconcile", e.TenantID, e.ID, e.VoucherNumber)
	return e, nil
}

// UnreconcileEntry clears an entry's reconciled flag.
func (b *Books) UnreconcileEntry(ctx context.Context, entryID, by string) (model.LedgerEntry, error) {
	e, err := b.reconciler.Unreconcile(ctx, entryID)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	b.record(by, "entry.unreconcile", e.TenantID, e.ID, e.VoucherNumber)
	return e, nil
}

// ReconcileEntries reconciles each id independently and reports per id.
func (b *Books) ReconcileEntries(ctx context.Context, entryIDs []string, by string) []reconcile.Result {
	results := b.reconciler.ReconcileAll(ctx, entryIDs, by)
	b.recordBulk(by, "entry.reconcile", results)
	return results
}

// UnreconcileEntries unreconciles each id independently and reports per id.
func (b *Books) UnreconcileEntries(ctx context.Context, entryIDs []string, by string) []reconcile.Result {
	results := b.reconciler.UnreconcileAll(ctx, entryIDs)
	b.recordBulk(by, "entry.unreconcile", results)
	return results
}

func (b *Books) recordBulk(by, action string, results []reconcile.Result) {
	for _, r := range results {
		if r.Err == nil {
			b.record(by, action, r.Entry.TenantID, r.EntryID, r.Entry.VoucherNumber)
		}
	}
}

// StatementImport is the outcome of reconciling a bank statement.
type StatementImport struct {
	Lines      int
	Matches    []statement.Match
	Unmatched  []statement.Line
	Reconciled []reconcile.Result
}

// ImportStatement parses a bank statement file, pairs its lines with the
// account's unreconciled entries dated within windowDays, and reconciles
// every pair. Unmatched lines are returned for manual review.
func (b *Books) ImportStatement(ctx context.Context, accountID, format, path string, windowDays int, by string) (StatementImport, error) {
	lines, err := b.statements.ParseFile(format, path)
	if err != nil {
		return StatementImport{}, err
	}
	matched, err := b.reconciler.MatchStatement(ctx, accountID, lines, windowDays)
	if err != nil {
		return StatementImport{}, err
	}

	ids := make([]string, len(matched.Matches))
	for i, m := range matched.Matches {
		ids[i] = m.Entry.ID
	}
	out := StatementImport{
		Lines:      len(lines),
		Matches:    matched.Matches,
		Unmatched:  matched.Unmatched,
		Reconciled: b.ReconcileEntries(ctx, ids, by),
	}
	if n := reconcile.Failed(out.Reconciled); n > 0 {
		return out, fmt.Errorf("importing statement: %d of %d matched entries failed to reconcile", n, len(ids))
	}
	return out, nil
}
