package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
	"github.com/cleared-dev/forecourt/internal/store/memory"
)

const tenant = "STN01"

func newTestRegistry(t *testing.T) (*Registry, store.Store) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { _ = s.Close() })
	clock := func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return NewRegistry(s, lock.NewManager(), WithClock(clock)), s
}

func cash(code string) NewAccount {
	return NewAccount{TenantID: tenant, Code: code, Name: "Cash " + code, Type: model.AccountTypeAsset, Group: model.GroupCash}
}

func TestCreateDefaults(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Create(ctx, NewAccount{
		TenantID:       tenant,
		Code:           "4000",
		Name:           "Fuel Sales",
		Type:           model.AccountTypeIncome,
		OpeningBalance: decimal.RequireFromString("100.00"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, model.GroupDirectIncome, a.Group)
	assert.Equal(t, model.SideCredit, a.NormalSide)
	assert.True(t, a.IsActive)
	assert.False(t, a.IsLocked)
	assert.True(t, a.CurrentBalance.Equal(a.OpeningBalance))
	assert.True(t, a.ReconciledBalance.Equal(a.OpeningBalance))

	got, err := reg.GetByCode(ctx, tenant, "4000")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestCreateValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewAccount
		code bookerr.Code
	}{
		{"lowercase code", NewAccount{TenantID: tenant, Code: "cash", Name: "Cash", Type: model.AccountTypeAsset}, bookerr.CodeInvalidCode},
		{"code too long", NewAccount{TenantID: tenant, Code: "A123456789012345678901234567890123", Name: "Cash", Type: model.AccountTypeAsset}, bookerr.CodeInvalidCode},
		{"missing name", NewAccount{TenantID: tenant, Code: "1000", Type: model.AccountTypeAsset}, bookerr.CodeInvalidInput},
		{"group from other type", NewAccount{TenantID: tenant, Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, Group: model.GroupCapital}, bookerr.CodeInvalidInput},
		{"three decimals", NewAccount{TenantID: tenant, Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, OpeningBalance: decimal.RequireFromString("1.005")}, bookerr.CodePrecision},
		{"self parent", NewAccount{TenantID: tenant, Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, ParentCode: "1000"}, bookerr.CodeCyclicHierarchy},
		{"unknown parent", NewAccount{TenantID: tenant, Code: "1000", Name: "Cash", Type: model.AccountTypeAsset, ParentCode: "9999"}, bookerr.CodeUnknownParent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Create(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, bookerr.IsValidation(err))
			assert.Equal(t, tt.code, bookerr.CodeOf(err))
		})
	}
}

func TestCreateDuplicateCode(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, cash("1000"))
	require.NoError(t, err)

	_, err = reg.Create(ctx, cash("1000"))
	require.Error(t, err)
	assert.True(t, bookerr.IsValidation(err))
	assert.Equal(t, bookerr.CodeDuplicateCode, bookerr.CodeOf(err))

	// Same code under another tenant is fine.
	other := cash("1000")
	other.TenantID = "STN02"
	_, err = reg.Create(ctx, other)
	assert.NoError(t, err)
}

func TestUpdateRejectsCycle(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Create(ctx, cash("A"))
	require.NoError(t, err)
	b := cash("B")
	b.ParentCode = "A"
	_, err = reg.Create(ctx, b)
	require.NoError(t, err)
	c := cash("C")
	c.ParentCode = "B"
	_, err = reg.Create(ctx, c)
	require.NoError(t, err)

	parent := "C"
	_, err = reg.Update(ctx, a.ID, AccountUpdate{ParentCode: &parent})
	require.Error(t, err)
	assert.Equal(t, bookerr.CodeCyclicHierarchy, bookerr.CodeOf(err))

	children, err := reg.Children(ctx, tenant, "A")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "B", children[0].Code)
}

func TestUpdateNeverWritesBalances(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Create(ctx, cash("1000"))
	require.NoError(t, err)

	name := "Petty Cash"
	got, err := reg.Update(ctx, a.ID, AccountUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Petty Cash", got.Name)
	assert.True(t, got.CurrentBalance.IsZero())
}

func TestUpdateOpeningBalance(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Create(ctx, cash("1000"))
	require.NoError(t, err)

	opening := decimal.RequireFromString("500.00")
	got, err := reg.Update(ctx, a.ID, AccountUpdate{OpeningBalance: &opening})
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(opening))

	stored, err := reg.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.OpeningBalance.Equal(opening))
	assert.True(t, stored.CurrentBalance.Equal(opening))
	assert.True(t, stored.ReconciledBalance.Equal(opening))

	// Once the account carries an entry the opening balance is frozen.
	err = s.Update(ctx, func(tx store.Tx) error {
		_, err := tx.InsertEntry(ctx, model.LedgerEntry{ID: "e1", TenantID: tenant, AccountID: a.ID, Side: model.SideDebit, Debit: decimal.NewFromInt(1), Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
		return err
	})
	require.NoError(t, err)

	opening = decimal.RequireFromString("600.00")
	_, err = reg.Update(ctx, a.ID, AccountUpdate{OpeningBalance: &opening})
	require.Error(t, err)
	assert.True(t, bookerr.IsConflict(err))
	assert.Equal(t, bookerr.CodeAccountInUse, bookerr.CodeOf(err))
}

func TestUpdateCodeWithChildren(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	parent, err := reg.Create(ctx, cash("A"))
	require.NoError(t, err)
	child := cash("B")
	child.ParentCode = "A"
	_, err = reg.Create(ctx, child)
	require.NoError(t, err)

	code := "Z"
	_, err = reg.Update(ctx, parent.ID, AccountUpdate{Code: &code})
	assert.Equal(t, bookerr.CodeAccountInUse, bookerr.CodeOf(err))
}

func TestLockAndDeactivate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := reg.Create(ctx, cash("1000"))
	require.NoError(t, err)

	locked, err := reg.Lock(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)

	unlocked, err := reg.Unlock(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.IsLocked)

	inactive, err := reg.Deactivate(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)

	active, err := reg.Activate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)

	sys := cash("9000")
	sys.IsSystem = true
	s, err := reg.Create(ctx, sys)
	require.NoError(t, err)
	_, err = reg.Deactivate(ctx, s.ID)
	assert.True(t, bookerr.IsConflict(err))

	_, err = reg.Lock(ctx, "missing")
	assert.True(t, bookerr.IsNotFound(err))
}

func TestImportDefaultChart(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	chart := DefaultChart(tenant)
	// Put a child ahead of its parent.
	chart[1], chart[2] = chart[2], chart[1]

	created, err := reg.Import(ctx, tenant, chart)
	require.NoError(t, err)
	assert.Len(t, created, len(chart))

	all, err := reg.List(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, all, len(chart))

	banks, err := reg.ByGroup(ctx, tenant, model.GroupBank)
	require.NoError(t, err)
	assert.Len(t, banks, 2)

	expenses, err := reg.ByType(ctx, tenant, model.AccountTypeExpense)
	require.NoError(t, err)
	for _, e := range expenses {
		assert.Equal(t, model.AccountTypeExpense, e.Type)
	}
}

func TestImportIsAtomic(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	batch := []NewAccount{cash("1000"), {Code: "bad", Name: "Bad", Type: model.AccountTypeAsset}}
	_, err := reg.Import(ctx, tenant, batch)
	require.Error(t, err)

	all, err := reg.List(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestParentsFirstCycle(t *testing.T) {
	_, err := parentsFirst([]NewAccount{
		{Code: "A", ParentCode: "B"},
		{Code: "B", ParentCode: "A"},
	})
	assert.Equal(t, bookerr.CodeCyclicHierarchy, bookerr.CodeOf(err))

	_, err = parentsFirst([]NewAccount{{Code: "A"}, {Code: "A"}})
	assert.Equal(t, bookerr.CodeDuplicateCode, bookerr.CodeOf(err))
}

// gatedStore holds every successful Update body at a two-writer rendezvous
// before commit, the widest window two racing writers can have.
type gatedStore struct {
	store.Store

	mu      sync.Mutex
	arrived int
	both    chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{Store: memory.New(), both: make(chan struct{})}
}

func (g *gatedStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return g.Store.Update(ctx, func(tx store.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		g.mu.Lock()
		g.arrived++
		if g.arrived == 2 {
			close(g.both)
		}
		g.mu.Unlock()
		select {
		case <-g.both:
		case <-time.After(100 * time.Millisecond):
		}
		return nil
	})
}

func runBoth(first, second func() error) (error, error) {
	var (
		wg         sync.WaitGroup
		err1, err2 error
	)
	wg.Add(2)
	go func() { defer wg.Done(); err1 = first() }()
	go func() { defer wg.Done(); err2 = second() }()
	wg.Wait()
	return err1, err2
}

func TestConcurrentCrossedParentsRejectCycle(t *testing.T) {
	ctx := context.Background()
	s := newGatedStore()
	reg := NewRegistry(s, lock.NewManager())

	a, err := reg.Create(ctx, cash("A"))
	require.NoError(t, err)
	b, err := reg.Create(ctx, cash("B"))
	require.NoError(t, err)
	s.mu.Lock()
	s.arrived = 0
	s.both = make(chan struct{})
	s.mu.Unlock()

	toB, toA := "B", "A"
	errA, errB := runBoth(
		func() error { _, err := reg.Update(ctx, a.ID, AccountUpdate{ParentCode: &toB}); return err },
		func() error { _, err := reg.Update(ctx, b.ID, AccountUpdate{ParentCode: &toA}); return err },
	)

	failed := errA
	if failed == nil {
		failed = errB
	}
	require.Error(t, failed, "one of the crossed updates must be rejected")
	assert.False(t, errA != nil && errB != nil, "only one update may fail")
	assert.Equal(t, bookerr.CodeCyclicHierarchy, bookerr.CodeOf(failed))

	gotA, err := reg.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := reg.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, gotA.ParentCode == "B" && gotB.ParentCode == "A", "cycle A<->B committed")
}

func TestCreateChildRacingParentRename(t *testing.T) {
	ctx := context.Background()
	s := newGatedStore()
	reg := NewRegistry(s, lock.NewManager())

	p, err := reg.Create(ctx, cash("P"))
	require.NoError(t, err)
	s.mu.Lock()
	s.arrived = 0
	s.both = make(chan struct{})
	s.mu.Unlock()

	renamed := "Q"
	child := cash("C")
	child.ParentCode = "P"
	errCreate, errRename := runBoth(
		func() error { _, err := reg.Create(ctx, child); return err },
		func() error { _, err := reg.Update(ctx, p.ID, AccountUpdate{Code: &renamed}); return err },
	)
	require.True(t, (errCreate == nil) != (errRename == nil), "exactly one of create and rename succeeds")

	accts, err := reg.List(ctx, tenant)
	require.NoError(t, err)
	codes := map[string]bool{}
	for _, a := range accts {
		codes[a.Code] = true
	}
	for _, a := range accts {
		if a.ParentCode != "" {
			assert.True(t, codes[a.ParentCode], "account %s names missing parent %s", a.Code, a.ParentCode)
		}
	}
}
