package memory

import (
	"sort"
	"sync/atomic"

	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// state is the committed data set. Values are stored by copy; vouchers are
// cloned on the way in and out so callers never alias stored entry slices.
type state struct {
	accounts       map[string]model.Account
	accountCodes   map[string]string // tenant|code -> account id
	vouchers       map[string]model.Voucher
	voucherNumbers map[string]string // tenant|number -> voucher id
	entries        map[string]model.LedgerEntry

	// views counts open View calls reading this state. A commit that finds
	// it non-zero applies its writes to a clone instead.
	views atomic.Int32
}

func newState() *state {
	return &state{
		accounts:       make(map[string]model.Account),
		accountCodes:   make(map[string]string),
		vouchers:       make(map[string]model.Voucher),
		voucherNumbers: make(map[string]string),
		entries:        make(map[string]model.LedgerEntry),
	}
}

func (st *state) clone() *state {
	c := &state{
		accounts:       make(map[string]model.Account, len(st.accounts)),
		accountCodes:   make(map[string]string, len(st.accountCodes)),
		vouchers:       make(map[string]model.Voucher, len(st.vouchers)),
		voucherNumbers: make(map[string]string, len(st.voucherNumbers)),
		entries:        make(map[string]model.LedgerEntry, len(st.entries)),
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.accountCodes {
		c.accountCodes[k] = v
	}
	for k, v := range st.vouchers {
		c.vouchers[k] = v
	}
	for k, v := range st.voucherNumbers {
		c.voucherNumbers[k] = v
	}
	for k, v := range st.entries {
		c.entries[k] = v
	}
	return c
}

func key(tenantID, s string) string {
	return tenantID + "|" + s
}

func (st *state) accountByCode(tenantID, code string) (model.Account, bool) {
	id, ok := st.accountCodes[key(tenantID, code)]
	if !ok {
		return model.Account{}, false
	}
	a, ok := st.accounts[id]
	return a, ok
}

func (st *state) voucherByNumber(tenantID, number string) (model.Voucher, bool) {
	id, ok := st.voucherNumbers[key(tenantID, number)]
	if !ok {
		return model.Voucher{}, false
	}
	v, ok := st.vouchers[id]
	return v.Clone(), ok
}

func (st *state) listAccounts(f store.AccountFilter) []model.Account {
	var out []model.Account
	for _, a := range st.accounts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	sortAccounts(out)
	return out
}

func (st *state) listVouchers(f store.VoucherFilter) []model.Voucher {
	var out []model.Voucher
	for _, v := range st.vouchers {
		if f.Match(v) {
			out = append(out, v.Clone())
		}
	}
	sortVouchers(out)
	return out
}

func (st *state) listEntries(f store.EntryFilter) []model.LedgerEntry {
	var out []model.LedgerEntry
	for _, e := range st.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

func sortAccounts(accts []model.Account) {
	sort.Slice(accts, func(i, j int) bool {
		if accts[i].TenantID != accts[j].TenantID {
			return accts[i].TenantID < accts[j].TenantID
		}
		return accts[i].Code < accts[j].Code
	})
}

func sortVouchers(vs []model.Voucher) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].Date.Equal(vs[j].Date) {
			return vs[i].Date.Before(vs[j].Date)
		}
		return vs[i].Number < vs[j].Number
	})
}

func sortEntries(es []model.LedgerEntry) {
	sort.Slice(es, func(i, j int) bool { return es[i].Before(es[j]) })
}
