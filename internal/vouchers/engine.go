// Package vouchers implements the voucher lifecycle: validation, numbering,
// posting through the ledger and cancellation by reversal.
//
//	DRAFT --post--> POSTED --cancel--> CANCELLED (reversed)
//	DRAFT --cancel--> CANCELLED (voided)
package vouchers

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/fiscal"
	"github.com/cleared-dev/forecourt/internal/id"
	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/lock"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// NewVoucher describes a voucher to create. A zero TotalAmount defaults to
// the sum of the debit lines.
type NewVoucher struct {
	TenantID    string
	Type        model.VoucherType
	Date        time.Time
	Narration   string
	TotalAmount decimal.Decimal
	Entries     []model.VoucherEntry
	CreatedBy   string
}

// Engine drives vouchers through their lifecycle.
type Engine struct {
	store    store.Store
	locks    *lock.Manager
	poster   *ledger.Poster
	calendar fiscal.Calendar
	log      *zap.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides the time source used for timestamps and reversal
// dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine. The lock manager must be shared with every
// other writer of the same store.
func NewEngine(s store.Store, locks *lock.Manager, poster *ledger.Poster, cal fiscal.Calendar, opts ...Option) *Engine {
	e := &Engine{store: s, locks: locks, poster: poster, calendar: cal, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Create validates in and stores it as a DRAFT with a freshly allocated
// number. Reversal vouchers cannot be created directly.
func (e *Engine) Create(ctx context.Context, in NewVoucher) (model.Voucher, error) {
	v := model.Voucher{
		ID:          id.New(),
		TenantID:    in.TenantID,
		Type:        in.Type,
		Date:        fiscal.Day(in.Date),
		Narration:   in.Narration,
		TotalAmount: in.TotalAmount,
		Status:      model.StatusDraft,
		Entries:     append([]model.VoucherEntry(nil), in.Entries...),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   e.now().UTC(),
	}
	if v.TotalAmount.IsZero() {
		v.TotalAmount, _ = v.Totals()
	}
	if v.Type == model.VoucherReversal {
		return model.Voucher{}, bookerr.Validation(bookerr.CodeInvalidInput, "type", "reversal vouchers are created by cancellation only")
	}
	if err := ValidateStructure(v); err != nil {
		return model.Voucher{}, fmt.Errorf("creating voucher: %w", err)
	}
	err := e.store.View(ctx, func(r store.Reader) error {
		return checkAccounts(ctx, r, v, false)
	})
	if err != nil {
		return model.Voucher{}, fmt.Errorf("creating voucher: %w", err)
	}

	v.Number, err = e.allocateNumber(ctx, v.Type, v.TenantID, v.Date)
	if err != nil {
		return model.Voucher{}, err
	}

	err = e.store.Update(ctx, func(tx store.Tx) error {
		if err := checkAccounts(ctx, tx, v, false); err != nil {
			return err
		}
		return tx.CreateVoucher(ctx, v)
	})
	if err != nil {
		return model.Voucher{}, fmt.Errorf("creating voucher %s: %w", v.Number, err)
	}
	e.log.Info("voucher created",
		zap.String("tenant", v.TenantID),
		zap.String("voucher", v.Number),
		zap.String("total", v.TotalAmount.StringFixed(model.AmountScale)))
	return v, nil
}

// allocateNumber takes the next sequence value for type+tenant+period. The
// value is committed even if the voucher never is, leaving a gap.
func (e *Engine) allocateNumber(ctx context.Context, typ model.VoucherType, tenantID string, date time.Time) (string, error) {
	period := id.Period(date)
	seq, err := e.store.NextSequence(ctx, id.SequenceKey(string(typ), tenantID, period))
	if err != nil {
		return "", fmt.Errorf("allocating voucher number: %w", err)
	}
	return id.FormatVoucherNumber(string(typ), tenantID, period, seq), nil
}

// Post moves a DRAFT voucher to POSTED and writes its ledger entries in the
// same atomic unit.
func (e *Engine) Post(ctx context.Context, voucherID, by string) (model.Voucher, error) {
	release, v, err := e.lockVoucher(ctx, voucherID)
	if err != nil {
		return model.Voucher{}, fmt.Errorf("posting voucher %s: %w", voucherID, err)
	}
	defer release()

	if err := postable(v); err != nil {
		return model.Voucher{}, fmt.Errorf("posting voucher %s: %w", v.Number, err)
	}
	if err := e.checkOpen(ctx, v.TenantID, v.Date); err != nil {
		return model.Voucher{}, fmt.Errorf("posting voucher %s: %w", v.Number, err)
	}

	var posted model.Voucher
	err = e.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.GetVoucher(ctx, voucherID)
		if err != nil {
			return err
		}
		if err := postable(cur); err != nil {
			return err
		}
		if err := checkAccounts(ctx, tx, cur, true); err != nil {
			return err
		}
		if _, err := e.poster.PostEntries(ctx, tx, cur); err != nil {
			return err
		}
		cur.Status = model.StatusPosted
		cur.PostedBy = by
		cur.PostedAt = e.now().UTC()
		posted = cur
		return tx.UpdateVoucher(ctx, cur)
	})
	if err != nil {
		return model.Voucher{}, fmt.Errorf("posting voucher %s: %w", v.Number, err)
	}
	e.log.Info("voucher posted",
		zap.String("tenant", posted.TenantID),
		zap.String("voucher", posted.Number),
		zap.String("by", by))
	return posted, nil
}

func postable(v model.Voucher) error {
	if v.Status != model.StatusDraft {
		return bookerr.State("voucher %s is %s, only DRAFT vouchers can be posted", v.Number, v.Status)
	}
	return ValidateStructure(v)
}

// CreateAndPost creates a voucher and posts it straight away. If posting
// fails the voucher stays behind as a DRAFT and is returned with the error.
func (e *Engine) CreateAndPost(ctx context.Context, in NewVoucher) (model.Voucher, error) {
	v, err := e.Create(ctx, in)
	if err != nil {
		return model.Voucher{}, err
	}
	posted, err := e.Post(ctx, v.ID, in.CreatedBy)
	if err != nil {
		return v, err
	}
	return posted, nil
}

// Cancel voids a DRAFT voucher, or reverses a POSTED one: a REVERSAL voucher
// dated at the cancellation day with every line's side swapped is posted and
// the original is marked CANCELLED, all in one atomic unit. The returned
// voucher is the cancelled original; ReversedBy names the reversal.
func (e *Engine) Cancel(ctx context.Context, voucherID, reason, by string) (model.Voucher, error) {
	if reason == "" {
		return model.Voucher{}, bookerr.Validation(bookerr.CodeInvalidInput, "reason", "cancellation reason is required")
	}

	release, v, err := e.lockVoucher(ctx, voucherID)
	if err != nil {
		return model.Voucher{}, fmt.Errorf("cancelling voucher %s: %w", voucherID, err)
	}
	defer release()

	now := e.now().UTC()
	var reversal model.Voucher
	switch v.Status {
	case model.StatusCancelled:
		return model.Voucher{}, bookerr.State("voucher %s is already CANCELLED", v.Number)
	case model.StatusPosted:
		reversal, err = e.prepareReversal(ctx, v, reason, by, now)
		if err != nil {
			return model.Voucher{}, fmt.Errorf("cancelling voucher %s: %w", v.Number, err)
		}
	}

	var cancelled model.Voucher
	err = e.store.Update(ctx, func(tx store.Tx) error {
		cur, err := tx.GetVoucher(ctx, voucherID)
		if err != nil {
			return err
		}
		if cur.Status != v.Status {
			return bookerr.State("voucher %s changed to %s during cancellation", cur.Number, cur.Status)
		}
		if cur.Status == model.StatusPosted {
			if err := checkAccounts(ctx, tx, reversal, true); err != nil {
				return err
			}
			if err := tx.CreateVoucher(ctx, reversal); err != nil {
				return err
			}
			if _, err := e.poster.PostEntries(ctx, tx, reversal); err != nil {
				return err
			}
			cur.ReversedBy = reversal.ID
		}
		cur.Status = model.StatusCancelled
		cur.CancelledBy = by
		cur.CancelledAt = now
		cur.CancelReason = reason
		cancelled = cur
		return tx.UpdateVoucher(ctx, cur)
	})
	if err != nil {
		return model.Voucher{}, fmt.Errorf("cancelling voucher %s: %w", v.Number, err)
	}

	fields := []zap.Field{
		zap.String("tenant", cancelled.TenantID),
		zap.String("voucher", cancelled.Number),
		zap.String("by", by),
	}
	if reversal.ID != "" {
		fields = append(fields, zap.String("reversal", reversal.Number))
	}
	e.log.Info("voucher cancelled", fields...)
	return cancelled, nil
}

// prepareReversal builds the posted REVERSAL voucher for v. Its date must be
// open for posting.
func (e *Engine) prepareReversal(ctx context.Context, v model.Voucher, reason, by string, now time.Time) (model.Voucher, error) {
	date := fiscal.Day(now)
	if err := e.checkOpen(ctx, v.TenantID, date); err != nil {
		return model.Voucher{}, err
	}
	number, err := e.allocateNumber(ctx, model.VoucherReversal, v.TenantID, date)
	if err != nil {
		return model.Voucher{}, err
	}

	entries := make([]model.VoucherEntry, len(v.Entries))
	for i, ve := range v.Entries {
		ve.Side = ve.Side.Opposite()
		entries[i] = ve
	}
	return model.Voucher{
		ID:          id.New(),
		TenantID:    v.TenantID,
		Number:      number,
		Type:        model.VoucherReversal,
		Date:        date,
		Narration:   fmt.Sprintf("Reversal of %s: %s", v.Number, reason),
		TotalAmount: v.TotalAmount,
		Status:      model.StatusPosted,
		Entries:     entries,
		CreatedBy:   by,
		CreatedAt:   now,
		PostedBy:    by,
		PostedAt:    now,
		ReversalOf:  v.ID,
	}, nil
}

// lockVoucher takes the voucher's lock and the locks of all its accounts,
// then reads the voucher again so its status is current. Entries never
// change after creation, so the account set read before locking holds.
func (e *Engine) lockVoucher(ctx context.Context, voucherID string) (func(), model.Voucher, error) {
	v, err := e.Get(ctx, voucherID)
	if err != nil {
		return nil, model.Voucher{}, err
	}
	keys := []string{lock.VoucherKey(v.ID)}
	for _, accountID := range v.AccountIDs() {
		keys = append(keys, lock.AccountKey(accountID))
	}
	release, err := e.locks.Acquire(ctx, keys...)
	if err != nil {
		return nil, model.Voucher{}, err
	}
	v, err = e.Get(ctx, voucherID)
	if err != nil {
		release()
		return nil, model.Voucher{}, err
	}
	return release, v, nil
}

func (e *Engine) checkOpen(ctx context.Context, tenantID string, date time.Time) error {
	open, err := e.calendar.IsDateOpenForPosting(ctx, tenantID, date)
	if err != nil {
		return fmt.Errorf("checking financial year: %w", err)
	}
	if !open {
		return bookerr.Conflict(bookerr.CodePeriodClosed, "date", "%s is not open for posting in tenant %s", date.Format("2006-01-02"), tenantID)
	}
	return nil
}

// Get returns a voucher by id.
func (e *Engine) Get(ctx context.Context, voucherID string) (model.Voucher, error) {
	var v model.Voucher
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		v, err = r.GetVoucher(ctx, voucherID)
		return err
	})
	return v, err
}

// GetByNumber returns a voucher by its tenant-scoped number.
func (e *Engine) GetByNumber(ctx context.Context, tenantID, number string) (model.Voucher, error) {
	var v model.Voucher
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		v, err = r.GetVoucherByNumber(ctx, tenantID, number)
		return err
	})
	return v, err
}

// List returns vouchers matching f ordered by date and number.
func (e *Engine) List(ctx context.Context, f store.VoucherFilter) ([]model.Voucher, error) {
	var out []model.Voucher
	err := e.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.ListVouchers(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing vouchers: %w", err)
	}
	return out, nil
}
