package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// txn serves both store.Reader (in View) and store.Tx (in Update).
type txn struct {
	tx *sql.Tx
}

var _ store.Tx = (*txn)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

// ==================== Accounts ====================

const accountColumns = `id, tenant_id, code, name, type, grp, normal_side, opening_balance, current_balance,
reconciled_balance, parent_code, is_system, is_locked, is_active, created_at, updated_at`

func scanAccount(row rowScanner) (model.Account, error) {
	var (
		a                    model.Account
		typ, grp, side       string
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &typ, &grp, &side,
		&a.OpeningBalance, &a.CurrentBalance, &a.ReconciledBalance, &a.ParentCode,
		&a.IsSystem, &a.IsLocked, &a.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	a.Group = model.AccountGroup(grp)
	a.NormalSide = model.Side(side)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Account{}, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

func (t *txn) GetAccount(ctx context.Context, id string) (model.Account, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, bookerr.NotFound("account", id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("sqlite: get account %s: %w", id, err)
	}
	return a, nil
}

func (t *txn) GetAccountByCode(ctx context.Context, tenantID, code string) (model.Account, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id = ? AND code = ?`, tenantID, code)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, bookerr.NotFound("account", code)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("sqlite: get account %s: %w", code, err)
	}
	return a, nil
}

func (t *txn) ListAccounts(ctx context.Context, f store.AccountFilter) ([]model.Account, error) {
	var (
		where []string
		args  []any
	)
	if f.TenantID != "" {
		where, args = append(where, "tenant_id = ?"), append(args, f.TenantID)
	}
	if f.Type != "" {
		where, args = append(where, "type = ?"), append(args, string(f.Type))
	}
	if f.Group != "" {
		where, args = append(where, "grp = ?"), append(args, string(f.Group))
	}
	if f.ParentCode != "" {
		where, args = append(where, "parent_code = ?"), append(args, f.ParentCode)
	}
	if f.ActiveOnly {
		where = append(where, "is_active = 1")
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts`+whereClause(where)+` ORDER BY tenant_id, code`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list accounts: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *txn) CreateAccount(ctx context.Context, a model.Account) error {
	if _, err := t.GetAccountByCode(ctx, a.TenantID, a.Code); err == nil {
		return bookerr.Validation(bookerr.CodeDuplicateCode, "code", "account code %q already exists in tenant %q", a.Code, a.TenantID)
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TenantID, a.Code, a.Name, string(a.Type), string(a.Group), string(a.NormalSide),
		a.OpeningBalance.String(), a.CurrentBalance.String(), a.ReconciledBalance.String(), a.ParentCode,
		boolInt(a.IsSystem), boolInt(a.IsLocked), boolInt(a.IsActive), formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: insert account %s: %w", a.Code, err)
	}
	return nil
}

// UpdateAccount writes every field except the current and reconciled
// balances.
func (t *txn) UpdateAccount(ctx context.Context, a model.Account) error {
	if other, err := t.GetAccountByCode(ctx, a.TenantID, a.Code); err == nil && other.ID != a.ID {
		return bookerr.Validation(bookerr.CodeDuplicateCode, "code", "account code %q already exists in tenant %q", a.Code, a.TenantID)
	}
	res, err := t.tx.ExecContext(ctx, `
UPDATE accounts SET code = ?, name = ?, type = ?, grp = ?, normal_side = ?, opening_balance = ?,
    parent_code = ?, is_system = ?, is_locked = ?, is_active = ?, updated_at = ?
WHERE id = ?`,
		a.Code, a.Name, string(a.Type), string(a.Group), string(a.NormalSide), a.OpeningBalance.String(),
		a.ParentCode, boolInt(a.IsSystem), boolInt(a.IsLocked), boolInt(a.IsActive), formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update account %s: %w", a.ID, err)
	}
	return requireOne(res, "account", a.ID)
}

func (t *txn) SetAccountBalance(ctx context.Context, id string, current decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE accounts SET current_balance = ? WHERE id = ?`, current.String(), id)
	if err != nil {
		return fmt.Errorf("sqlite: set balance %s: %w", id, err)
	}
	return requireOne(res, "account", id)
}

func (t *txn) SetReconciledBalance(ctx context.Context, id string, reconciled decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE accounts SET reconciled_balance = ? WHERE id = ?`, reconciled.String(), id)
	if err != nil {
		return fmt.Errorf("sqlite: set reconciled balance %s: %w", id, err)
	}
	return requireOne(res, "account", id)
}

// ==================== Vouchers ====================

const voucherColumns = `id, tenant_id, number, type, date, narration, total_amount, status, created_by, created_at,
posted_by, posted_at, cancelled_by, cancelled_at, cancel_reason, reversal_of, reversed_by`

func scanVoucher(row rowScanner) (model.Voucher, error) {
	var (
		v                                model.Voucher
		typ, status, date                string
		createdAt, postedAt, cancelledAt string
	)
	err := row.Scan(&v.ID, &v.TenantID, &v.Number, &typ, &date, &v.Narration, &v.TotalAmount, &status,
		&v.CreatedBy, &createdAt, &v.PostedBy, &postedAt, &v.CancelledBy, &cancelledAt,
		&v.CancelReason, &v.ReversalOf, &v.ReversedBy)
	if err != nil {
		return model.Voucher{}, err
	}
	v.Type = model.VoucherType(typ)
	v.Status = model.VoucherStatus(status)
	if v.Date, err = parseDate(date); err != nil {
		return model.Voucher{}, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Voucher{}, err
	}
	if v.PostedAt, err = parseTime(postedAt); err != nil {
		return model.Voucher{}, err
	}
	if v.CancelledAt, err = parseTime(cancelledAt); err != nil {
		return model.Voucher{}, err
	}
	return v, nil
}

func (t *txn) loadVoucherEntries(ctx context.Context, v *model.Voucher) error {
	rows, err := t.tx.QueryContext(ctx, `
SELECT account_id, side, amount, narration, party, reference, cheque_number
FROM voucher_entries WHERE voucher_id = ? ORDER BY line`, v.ID)
	if err != nil {
		return fmt.Errorf("sqlite: load entries of %s: %w", v.ID, err)
	}
	defer rows.Close()

	v.Entries = nil
	for rows.Next() {
		var (
			e    model.VoucherEntry
			side string
		)
		if err := rows.Scan(&e.AccountID, &side, &e.Amount, &e.Narration, &e.Party, &e.Reference, &e.ChequeNumber); err != nil {
			return fmt.Errorf("sqlite: scan voucher entry: %w", err)
		}
		e.Side = model.Side(side)
		v.Entries = append(v.Entries, e)
	}
	return rows.Err()
}

func (t *txn) getVoucher(ctx context.Context, where string, args []any, label string) (model.Voucher, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE `+where, args...)
	v, err := scanVoucher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Voucher{}, bookerr.NotFound("voucher", label)
	}
	if err != nil {
		return model.Voucher{}, fmt.Errorf("sqlite: get voucher %s: %w", label, err)
	}
	if err := t.loadVoucherEntries(ctx, &v); err != nil {
		return model.Voucher{}, err
	}
	return v, nil
}

func (t *txn) GetVoucher(ctx context.Context, id string) (model.Voucher, error) {
	return t.getVoucher(ctx, "id = ?", []any{id}, id)
}

func (t *txn) GetVoucherByNumber(ctx context.Context, tenantID, number string) (model.Voucher, error) {
	return t.getVoucher(ctx, "tenant_id = ? AND number = ?", []any{tenantID, number}, number)
}

func (t *txn) ListVouchers(ctx context.Context, f store.VoucherFilter) ([]model.Voucher, error) {
	var (
		where []string
		args  []any
	)
	if f.TenantID != "" {
		where, args = append(where, "tenant_id = ?"), append(args, f.TenantID)
	}
	if f.Type != "" {
		where, args = append(where, "type = ?"), append(args, string(f.Type))
	}
	if f.Status != "" {
		where, args = append(where, "status = ?"), append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		where, args = append(where, "date >= ?"), append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		where, args = append(where, "date <= ?"), append(args, formatDate(f.To))
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT `+voucherColumns+` FROM vouchers`+whereClause(where)+` ORDER BY date, number`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list vouchers: %w", err)
	}
	var out []model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan voucher: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if err := t.loadVoucherEntries(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *txn) CreateVoucher(ctx context.Context, v model.Voucher) error {
	if _, err := t.GetVoucherByNumber(ctx, v.TenantID, v.Number); err == nil {
		return bookerr.Conflict(bookerr.CodeDuplicateNumber, "number", "voucher number %q already exists", v.Number)
	}
	_, err := t.tx.ExecContext(ctx, `INSERT INTO vouchers (`+voucherColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.TenantID, v.Number, string(v.Type), formatDate(v.Date), v.Narration, v.TotalAmount.String(),
		string(v.Status), v.CreatedBy, formatTime(v.CreatedAt), v.PostedBy, formatTime(v.PostedAt),
		v.CancelledBy, formatTime(v.CancelledAt), v.CancelReason, v.ReversalOf, v.ReversedBy)
	if err != nil {
		return fmt.Errorf("sqlite: insert voucher %s: %w", v.Number, err)
	}
	for i, e := range v.Entries {
		_, err := t.tx.ExecContext(ctx, `
INSERT INTO voucher_entries (voucher_id, line, account_id, side, amount, narration, party, reference, cheque_number)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, i, e.AccountID, string(e.Side), e.Amount.String(), e.Narration, e.Party, e.Reference, e.ChequeNumber)
		if err != nil {
			return fmt.Errorf("sqlite: insert voucher entry %s/%d: %w", v.Number, i, err)
		}
	}
	return nil
}

// UpdateVoucher rewrites the voucher header. Entries are immutable once
// stored, so only the header columns change.
func (t *txn) UpdateVoucher(ctx context.Context, v model.Voucher) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE vouchers SET narration = ?, status = ?, posted_by = ?, posted_at = ?, cancelled_by = ?,
    cancelled_at = ?, cancel_reason = ?, reversal_of = ?, reversed_by = ?
WHERE id = ? AND tenant_id = ? AND number = ?`,
		v.Narration, string(v.Status), v.PostedBy, formatTime(v.PostedAt), v.CancelledBy,
		formatTime(v.CancelledAt), v.CancelReason, v.ReversalOf, v.ReversedBy, v.ID, v.TenantID, v.Number)
	if err != nil {
		return fmt.Errorf("sqlite: update voucher %s: %w", v.ID, err)
	}
	return requireOne(res, "voucher", v.ID)
}

// ==================== Ledger entries ====================

const entryColumns = `seq, id, tenant_id, account_id, voucher_id, voucher_number, voucher_type, line, date, side,
debit, credit, running_balance, narration, party, reference, cheque_number, reconciled, reconciled_by,
reconciled_at, created_at`

func scanEntry(row rowScanner) (model.LedgerEntry, error) {
	var (
		e                       model.LedgerEntry
		vtype, date, side       string
		reconciledAt, createdAt string
	)
	err := row.Scan(&e.Seq, &e.ID, &e.TenantID, &e.AccountID, &e.VoucherID, &e.VoucherNumber, &vtype, &e.Line,
		&date, &side, &e.Debit, &e.Credit, &e.RunningBalance, &e.Narration, &e.Party, &e.Reference,
		&e.ChequeNumber, &e.Reconciled, &e.ReconciledBy, &reconciledAt, &createdAt)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	e.VoucherType = model.VoucherType(vtype)
	e.Side = model.Side(side)
	if e.Date, err = parseDate(date); err != nil {
		return model.LedgerEntry{}, err
	}
	if e.ReconciledAt, err = parseTime(reconciledAt); err != nil {
		return model.LedgerEntry{}, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.LedgerEntry{}, err
	}
	return e, nil
}

func (t *txn) GetEntry(ctx context.Context, id string) (model.LedgerEntry, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LedgerEntry{}, bookerr.NotFound("ledger entry", id)
	}
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("sqlite: get entry %s: %w", id, err)
	}
	return e, nil
}

func (t *txn) ListEntries(ctx context.Context, f store.EntryFilter) ([]model.LedgerEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.TenantID != "" {
		where, args = append(where, "tenant_id = ?"), append(args, f.TenantID)
	}
	if f.AccountID != "" {
		where, args = append(where, "account_id = ?"), append(args, f.AccountID)
	}
	if f.VoucherID != "" {
		where, args = append(where, "voucher_id = ?"), append(args, f.VoucherID)
	}
	if !f.From.IsZero() {
		where, args = append(where, "date >= ?"), append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		where, args = append(where, "date <= ?"), append(args, formatDate(f.To))
	}

	rows, err := t.tx.QueryContext(ctx, `SELECT `+entryColumns+` FROM ledger_entries`+whereClause(where)+` ORDER BY date, seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list entries: %w", err)
	}
	defer rows.Close()

	var out []model.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *txn) InsertEntry(ctx context.Context, e model.LedgerEntry) (model.LedgerEntry, error) {
	res, err := t.tx.ExecContext(ctx, `
INSERT INTO ledger_entries (id, tenant_id, account_id, voucher_id, voucher_number, voucher_type, line, date, side,
    debit, credit, running_balance, narration, party, reference, cheque_number, reconciled, reconciled_by,
    reconciled_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.AccountID, e.VoucherID, e.VoucherNumber, string(e.VoucherType), e.Line,
		formatDate(e.Date), string(e.Side), e.Debit.String(), e.Credit.String(), e.RunningBalance.String(),
		e.Narration, e.Party, e.Reference, e.ChequeNumber, boolInt(e.Reconciled), e.ReconciledBy,
		formatTime(e.ReconciledAt), formatTime(e.CreatedAt))
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("sqlite: insert entry %s: %w", e.ID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("sqlite: entry seq: %w", err)
	}
	e.Seq = seq
	return e, nil
}

func (t *txn) SetRunningBalance(ctx context.Context, entryID string, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE ledger_entries SET running_balance = ? WHERE id = ?`, balance.String(), entryID)
	if err != nil {
		return fmt.Errorf("sqlite: set running balance %s: %w", entryID, err)
	}
	return requireOne(res, "ledger entry", entryID)
}

func (t *txn) SetReconciled(ctx context.Context, entryID string, reconciled bool, by string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE ledger_entries SET reconciled = ?, reconciled_by = ?, reconciled_at = ? WHERE id = ?`,
		boolInt(reconciled), by, formatTime(at), entryID)
	if err != nil {
		return fmt.Errorf("sqlite: set reconciled %s: %w", entryID, err)
	}
	return requireOne(res, "ledger entry", entryID)
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func requireOne(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return bookerr.NotFound(entity, id)
	}
	return nil
}
