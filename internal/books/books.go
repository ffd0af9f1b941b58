// Package books wires the bookkeeping services into the single entry point
// used by the command line: accounts, vouchers, ledger, reconciliation and
// reports over one store, one lock manager and one posting calendar.
package books

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/auditlog"
	"github.com/cleared-dev/forecourt/internal/config"
	"github.com/cleared-dev/forecourt/internal/fiscal"
	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/reconcile"
	"github.com/cleared-dev/forecourt/internal/reports"
	"github.com/cleared-dev/forecourt/internal/statement"
	"github.com/cleared-dev/forecourt/internal/store"
	"github.com/cleared-dev/forecourt/internal/store/memory"
	"github.com/cleared-dev/forecourt/internal/store/sqlite"
	"github.com/cleared-dev/forecourt/internal/vouchers"
)

// Auditor records changes to the books. *auditlog.Log implements it.
type Auditor interface {
	Append(entries ...auditlog.Entry) error
}

// Books is the bookkeeping core of one station.
type Books struct {
	store      store.Store
	accounts   *accounts.Registry
	vouchers   *vouchers.Engine
	ledger     *ledger.Poster
	reconciler *reconcile.Tracker
	reports    *reports.Engine
	statements *statement.Registry

	audit Auditor
	log   *zap.Logger
	now   func() time.Time
}

// Option configures Books.
type Option func(*Books)

// WithLogger sets the logger shared by every service.
func WithLogger(l *zap.Logger) Option {
	return func(b *Books) { b.log = l }
}

// WithClock overrides the time source shared by every service.
func WithClock(now func() time.Time) Option {
	return func(b *Books) { b.now = now }
}

// WithAuditor records every committed change.
func WithAuditor(a Auditor) Option {
	return func(b *Books) { b.audit = a }
}

// WithStatementFormats replaces the bank statement parsers.
func WithStatementFormats(r *statement.Registry) Option {
	return func(b *Books) { b.statements = r }
}

// New builds Books over s, consulting cal before every posting.
func New(s store.Store, cal fiscal.Calendar, opts ...Option) *Books {
	b := &Books{
		store:      s,
		statements: statement.DefaultRegistry(),
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(b)
	}

	locks := lock.NewManager()
	b.ledger = ledger.NewPoster(s, locks, ledger.WithLogger(b.log), ledger.WithClock(b.now))
	b.accounts = accounts.NewRegistry(s, locks, accounts.WithLogger(b.log), accounts.WithClock(b.now))
	b.vouchers = vouchers.NewEngine(s, locks, b.ledger, cal, vouchers.WithLogger(b.log), vouchers.WithClock(b.now))
	b.reconciler = reconcile.NewTracker(s, locks, reconcile.WithLogger(b.log), reconcile.WithClock(b.now))
	b.reports = reports.NewEngine(s)
	return b
}

// Open builds Books from forecourt.yaml. Relative store and audit paths are
// resolved against dir.
func Open(ctx context.Context, dir string, cfg *config.Config, opts ...Option) (*Books, error) {
	var s store.Store
	switch cfg.Store.Driver {
	case "memory":
		s = memory.New()
	case "sqlite":
		db, err := sqlite.Open(ctx, resolve(dir, cfg.Store.Path))
		if err != nil {
			return nil, fmt.Errorf("opening books: %w", err)
		}
		s = db
	default:
		return nil, fmt.Errorf("opening books: unknown store driver %q", cfg.Store.Driver)
	}

	cal, err := cfg.Calendar(time.Now())
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("opening books: %w", err)
	}
	if cfg.Audit.Path != "" {
		opts = append([]Option{WithAuditor(auditlog.Open(resolve(dir, cfg.Audit.Path)))}, opts...)
	}
	return New(s, cal, opts...), nil
}

// Close releases the store.
func (b *Books) Close() error {
	return b.store.Close()
}

// Statements returns the registered bank statement parsers.
func (b *Books) Statements() *statement.Registry {
	return b.statements
}

// record appends to the audit trail. The change it describes has already
// committed, so a failure is logged rather than returned.
func (b *Books) record(actor, action, tenantID, subject, details string) {
	if b.audit == nil {
		return
	}
	err := b.audit.Append(auditlog.Entry{
		Timestamp: b.now(),
		Actor:     actor,
		Action:    action,
		TenantID:  tenantID,
		Subject:   subject,
		Details:   details,
	})
	if err != nil {
		b.log.Warn("audit log write failed", zap.String("action", action), zap.String("subject", subject), zap.Error(err))
	}
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
