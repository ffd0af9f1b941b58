// Package memory is an in-process implementation of store.Store.
package memory

import (
	"context"
	"sync"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps all data in maps guarded by one RWMutex. Transactions buffer
// their writes and apply them in a single critical section on commit.
type Store struct {
	mu        sync.RWMutex
	st        *state
	entrySeq  int64
	sequences map[string]int64
	closed    bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		st:        newState(),
		sequences: make(map[string]int64),
	}
}

// Update runs fn in a transaction and commits its writes atomically when fn
// returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

// View runs fn against the committed state as of the call. The state is
// pinned rather than copied: a commit that overlaps an open View writes to a
// fresh clone, so point reads cost nothing and long reports never hold up
// writers.
func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return store.ErrClosed
	}
	snap := s.st
	snap.views.Add(1)
	s.mu.RUnlock()
	defer snap.views.Add(-1)
	return fn(&reader{st: snap})
}

// NextSequence increments and returns the counter named key.
func (s *Store) NextSequence(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, store.ErrClosed
	}
	s.sequences[key]++
	return s.sequences[key], nil
}

// Close marks the store closed. Data is discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) nextEntrySeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entrySeq++
	return s.entrySeq
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	for _, op := range t.ops {
		if op.check == nil {
			continue
		}
		if err := op.check(s.st); err != nil {
			return err
		}
	}
	if s.st.views.Load() > 0 {
		s.st = s.st.clone()
	}
	for _, op := range t.ops {
		op.apply(s.st)
	}
	return nil
}

// reader serves reads from a pinned state.
type reader struct {
	st *state
}

func (r *reader) GetAccount(_ context.Context, id string) (model.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return model.Account{}, bookerr.NotFound("account", id)
	}
	return a, nil
}

func (r *reader) GetAccountByCode(_ context.Context, tenantID, code string) (model.Account, error) {
	a, ok := r.st.accountByCode(tenantID, code)
	if !ok {
		return model.Account{}, bookerr.NotFound("account", code)
	}
	return a, nil
}

func (r *reader) ListAccounts(_ context.Context, f store.AccountFilter) ([]model.Account, error) {
	return r.st.listAccounts(f), nil
}

func (r *reader) GetVoucher(_ context.Context, id string) (model.Voucher, error) {
	v, ok := r.st.vouchers[id]
	if !ok {
		return model.Voucher{}, bookerr.NotFound("voucher", id)
	}
	return v.Clone(), nil
}

func (r *reader) GetVoucherByNumber(_ context.Context, tenantID, number string) (model.Voucher, error) {
	v, ok := r.st.voucherByNumber(tenantID, number)
	if !ok {
		return model.Voucher{}, bookerr.NotFound("voucher", number)
	}
	return v, nil
}

func (r *reader) ListVouchers(_ context.Context, f store.VoucherFilter) ([]model.Voucher, error) {
	return r.st.listVouchers(f), nil
}

func (r *reader) GetEntry(_ context.Context, id string) (model.LedgerEntry, error) {
	e, ok := r.st.entries[id]
	if !ok {
		return model.LedgerEntry{}, bookerr.NotFound("ledger entry", id)
	}
	return e, nil
}

func (r *reader) ListEntries(_ context.Context, f store.EntryFilter) ([]model.LedgerEntry, error) {
	return r.st.listEntries(f), nil
}
