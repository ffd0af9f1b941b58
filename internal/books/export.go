package books

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// LedgerFile is the name of the exported ledger.
const LedgerFile = "ledger.csv"

// Export writes a tenant's chart of accounts and full ledger as CSV under
// dir/<tenant>. Both files come from one read snapshot. It returns the
// written paths.
func (b *Books) Export(ctx context.Context, tenantID, dir string) ([]string, error) {
	var (
		accts   []model.Account
		entries []model.LedgerEntry
	)
	err := b.store.View(ctx, func(r store.Reader) error {
		var err error
		if accts, err = r.ListAccounts(ctx, store.AccountFilter{TenantID: tenantID}); err != nil {
			return err
		}
		entries, err = r.ListEntries(ctx, store.EntryFilter{TenantID: tenantID})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("exporting %s: %w", tenantID, err)
	}

	out := filepath.Join(dir, tenantID)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	chart, err := accounts.SaveChart(out, accts)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(out, LedgerFile)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating ledger file: %w", err)
	}
	if err := ledger.WriteEntries(f, entries); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing ledger file: %w", err)
	}
	return []string{chart, path}, nil
}

// ExportDiff compares a ledger export on disk with the live ledger.
type ExportDiff struct {
	Path     string
	Exported int
	Live     int
	Missing  []string // live entry ids absent from the export
	Unknown  []string // exported entry ids the ledger does not have
	Changed  []string // entry ids whose amounts, balance or reconcile state differ
}

// Current reports whether the export matches the ledger exactly.
func (d ExportDiff) Current() bool {
	return d.Exported == d.Live && len(d.Missing) == 0 && len(d.Unknown) == 0 && len(d.Changed) == 0
}

// VerifyExport reads dir/<tenant>/ledger.csv back and ties every row to the
// tenant's ledger.
func (b *Books) VerifyExport(ctx context.Context, tenantID, dir string) (ExportDiff, error) {
	diff := ExportDiff{Path: filepath.Join(dir, tenantID, LedgerFile)}

	f, err := os.Open(diff.Path)
	if err != nil {
		return diff, fmt.Errorf("opening ledger export: %w", err)
	}
	exported, err := ledger.ReadEntries(f)
	f.Close()
	if err != nil {
		return diff, fmt.Errorf("reading %s: %w", diff.Path, err)
	}

	live, err := b.ledger.Entries(ctx, store.EntryFilter{TenantID: tenantID})
	if err != nil {
		return diff, fmt.Errorf("verifying export: %w", err)
	}
	diff.Exported, diff.Live = len(exported), len(live)

	byID := make(map[string]model.LedgerEntry, len(live))
	for _, e := range live {
		byID[e.ID] = e
	}
	seen := make(map[string]bool, len(exported))
	for _, x := range exported {
		seen[x.ID] = true
		e, ok := byID[x.ID]
		if !ok {
			diff.Unknown = append(diff.Unknown, x.ID)
			continue
		}
		if !sameEntry(e, x) {
			diff.Changed = append(diff.Changed, x.ID)
		}
	}
	for _, e := range live {
		if !seen[e.ID] {
			diff.Missing = append(diff.Missing, e.ID)
		}
	}
	return diff, nil
}

func sameEntry(a, b model.LedgerEntry) bool {
	return a.AccountID == b.AccountID &&
		a.VoucherNumber == b.VoucherNumber &&
		a.Date.Format(time.DateOnly) == b.Date.Format(time.DateOnly) &&
		a.Debit.Equal(b.Debit) &&
		a.Credit.Equal(b.Credit) &&
		a.RunningBalance.Equal(b.RunningBalance) &&
		a.Reconciled == b.Reconciled
}
