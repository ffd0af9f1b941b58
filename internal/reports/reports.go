// Package reports builds the read-only statements of the books: trial
// balance, profit and loss, balance sheet, cash book and day book.
//
// Every report reads one store snapshot and never writes. An imbalance is
// reported as data through ConsistencyWarning values, never corrected.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/fiscal"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// WarningKind classifies a consistency diagnostic.
type WarningKind string

const (
	WarnTotalsDiffer      WarningKind = "TOTALS_DIFFER"
	WarnOpeningImbalance  WarningKind = "OPENING_IMBALANCE"
	WarnUnbalancedVoucher WarningKind = "UNBALANCED_VOUCHER"
	WarnBalanceDrift      WarningKind = "BALANCE_DRIFT"
	WarnRunningDrift      WarningKind = "RUNNING_BALANCE_DRIFT"
)

// ConsistencyWarning is an itemised finding for human review.
type ConsistencyWarning struct {
	Kind       WarningKind
	AccountID  string
	VoucherID  string
	Difference decimal.Decimal
	Message    string
}

// Line is one account's amount within a report section.
type Line struct {
	AccountID string
	Code      string
	Name      string
	Group     model.AccountGroup
	Amount    decimal.Decimal
}

// Engine builds reports from a store.
type Engine struct {
	store store.Store
}

// NewEngine creates a report Engine.
func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// snapshot is the data one report works on: all accounts of a tenant and
// their full entry history.
type snapshot struct {
	accounts []model.Account
	entries  map[string][]model.LedgerEntry // by account, ledger order
}

func (e *Engine) load(ctx context.Context, tenantID string) (snapshot, error) {
	var snap snapshot
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		snap.accounts, err = r.ListAccounts(ctx, store.AccountFilter{TenantID: tenantID})
		if err != nil {
			return err
		}
		entries, err := r.ListEntries(ctx, store.EntryFilter{TenantID: tenantID})
		if err != nil {
			return err
		}
		snap.entries = make(map[string][]model.LedgerEntry)
		for _, le := range entries {
			snap.entries[le.AccountID] = append(snap.entries[le.AccountID], le)
		}
		return nil
	})
	if err != nil {
		return snapshot{}, fmt.Errorf("loading tenant %s: %w", tenantID, err)
	}
	return snap, nil
}

// closing replays an account's opening balance over its entries dated on
// or before asOf.
func closing(a model.Account, entries []model.LedgerEntry, asOf time.Time) decimal.Decimal {
	bal := a.OpeningBalance
	for _, le := range entries {
		if le.Date.After(asOf) {
			break
		}
		bal = a.Apply(bal, le.Side, le.Amount())
	}
	return bal
}

// movement nets an account's entries dated within [from, to] on its normal
// side.
func movement(a model.Account, entries []model.LedgerEntry, from, to time.Time) decimal.Decimal {
	net := decimal.Zero
	for _, le := range entries {
		if le.Date.Before(from) || le.Date.After(to) {
			continue
		}
		net = a.Apply(net, le.Side, le.Amount())
	}
	return net
}

// toSide expresses a balance held on a's normal side as a value on side.
func toSide(a model.Account, balance decimal.Decimal, side model.Side) decimal.Decimal {
	if a.NormalSide == side {
		return balance
	}
	return balance.Neg()
}

// voucherImbalances reports every voucher whose entries dated on or before
// asOf do not net to zero.
func voucherImbalances(entries map[string][]model.LedgerEntry, asOf time.Time) []ConsistencyWarning {
	type sums struct {
		number        string
		debit, credit decimal.Decimal
		first         model.LedgerEntry
	}
	byVoucher := make(map[string]*sums)
	for _, list := range entries {
		for _, le := range list {
			if le.Date.After(asOf) {
				break
			}
			s, ok := byVoucher[le.VoucherID]
			if !ok {
				s = &sums{number: le.VoucherNumber, debit: decimal.Zero, credit: decimal.Zero, first: le}
				byVoucher[le.VoucherID] = s
			}
			s.debit = s.debit.Add(le.Debit)
			s.credit = s.credit.Add(le.Credit)
			if le.Before(s.first) {
				s.first = le
			}
		}
	}

	var out []ConsistencyWarning
	for id, s := range byVoucher {
		if s.debit.Equal(s.credit) {
			continue
		}
		out = append(out, ConsistencyWarning{
			Kind:       WarnUnbalancedVoucher,
			VoucherID:  id,
			Difference: s.debit.Sub(s.credit),
			Message:    fmt.Sprintf("voucher %s posts debits %s against credits %s", s.number, fixed(s.debit), fixed(s.credit)),
		})
	}
	sortWarnings(out)
	return out
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return fiscal.Day(t)
}

func fixed(d decimal.Decimal) string {
	return d.StringFixed(model.AmountScale)
}

// Total adds up the amounts of lines.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}

func lineFor(a model.Account, amount decimal.Decimal) Line {
	return Line{AccountID: a.ID, Code: a.Code, Name: a.Name, Group: a.Group, Amount: amount}
}

func sortWarnings(ws []ConsistencyWarning) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].Kind != ws[j].Kind {
			return ws[i].Kind < ws[j].Kind
		}
		if ws[i].AccountID != ws[j].AccountID {
			return ws[i].AccountID < ws[j].AccountID
		}
		return ws[i].VoucherID < ws[j].VoucherID
	})
}
