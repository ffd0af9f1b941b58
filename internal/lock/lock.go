// Package lock provides named exclusive sections acquired in a fixed global
// order.
//
// Keys sort by tier first (tenant charts, vouchers, accounts, then ledger
// entries) and by id within a tier. Acquire always takes a set of keys in that order, so
// two callers locking overlapping sets can never deadlock.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ChartKey names the exclusive section of a tenant's account hierarchy.
// It guards account codes and parent links across the whole chart.
func ChartKey(tenantID string) string { return "0/chart/" + tenantID }

// VoucherKey names the exclusive section of a voucher.
func VoucherKey(id string) string { return "1/voucher/" + id }

// AccountKey names the exclusive section of an account.
func AccountKey(id string) string { return "2/account/" + id }

// EntryKey names the exclusive section of a ledger entry.
func EntryKey(id string) string { return "3/entry/" + id }

// Manager hands out exclusive sections by key. The zero value is not
// usable; call NewManager.
type Manager struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{} // holds one token while locked
	refs int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{slots: make(map[string]*slot)}
}

// Acquire blocks until every key is held, taking them in sorted order.
// Duplicate keys are ignored. If ctx ends while waiting, the keys already
// taken are released and the context error is returned.
func (m *Manager) Acquire(ctx context.Context, keys ...string) (release func(), err error) {
	ordered := normalize(keys)
	held := make([]string, 0, len(ordered))

	unlockAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			m.unlock(held[i])
		}
	}

	for _, k := range ordered {
		if err := m.lock(ctx, k); err != nil {
			unlockAll()
			return nil, fmt.Errorf("acquiring lock %s: %w", k, err)
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() { once.Do(unlockAll) }, nil
}

// Held reports how many keys currently have a holder or waiter.
func (m *Manager) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}

func (m *Manager) lock(ctx context.Context, key string) error {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.release(key, s)
		return ctx.Err()
	}
}

func (m *Manager) unlock(key string) {
	m.mu.Lock()
	s := m.slots[key]
	m.mu.Unlock()
	<-s.ch
	m.release(key, s)
}

func (m *Manager) release(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

func normalize(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[i-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}
