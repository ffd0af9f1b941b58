package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order on Open. Each statement is idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "create_accounts",
		sql: `
CREATE TABLE IF NOT EXISTS accounts (
    id                 TEXT PRIMARY KEY,
    tenant_id          TEXT NOT NULL,
    code               TEXT NOT NULL,
    name               TEXT NOT NULL DEFAULT '',
    type               TEXT NOT NULL,
    grp                TEXT NOT NULL DEFAULT '',
    normal_side        TEXT NOT NULL,
    opening_balance    TEXT NOT NULL DEFAULT '0',
    current_balance    TEXT NOT NULL DEFAULT '0',
    reconciled_balance TEXT NOT NULL DEFAULT '0',
    parent_code        TEXT NOT NULL DEFAULT '',
    is_system          INTEGER NOT NULL DEFAULT 0,
    is_locked          INTEGER NOT NULL DEFAULT 0,
    is_active          INTEGER NOT NULL DEFAULT 1,
    created_at         TEXT NOT NULL DEFAULT '',
    updated_at         TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_tenant_code ON accounts (tenant_id, code);
CREATE INDEX IF NOT EXISTS idx_accounts_tenant_type ON accounts (tenant_id, type);
`,
	},
	{
		name: "create_vouchers",
		sql: `
CREATE TABLE IF NOT EXISTS vouchers (
    id            TEXT PRIMARY KEY,
    tenant_id     TEXT NOT NULL,
    number        TEXT NOT NULL,
    type          TEXT NOT NULL,
    date          TEXT NOT NULL,
    narration     TEXT NOT NULL DEFAULT '',
    total_amount  TEXT NOT NULL DEFAULT '0',
    status        TEXT NOT NULL,
    created_by    TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL DEFAULT '',
    posted_by     TEXT NOT NULL DEFAULT '',
    posted_at     TEXT NOT NULL DEFAULT '',
    cancelled_by  TEXT NOT NULL DEFAULT '',
    cancelled_at  TEXT NOT NULL DEFAULT '',
    cancel_reason TEXT NOT NULL DEFAULT '',
    reversal_of   TEXT NOT NULL DEFAULT '',
    reversed_by   TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_vouchers_tenant_number ON vouchers (tenant_id, number);
CREATE INDEX IF NOT EXISTS idx_vouchers_tenant_date ON vouchers (tenant_id, date);

CREATE TABLE IF NOT EXISTS voucher_entries (
    voucher_id    TEXT NOT NULL REFERENCES vouchers (id),
    line          INTEGER NOT NULL,
    account_id    TEXT NOT NULL,
    side          TEXT NOT NULL,
    amount        TEXT NOT NULL,
    narration     TEXT NOT NULL DEFAULT '',
    party         TEXT NOT NULL DEFAULT '',
    reference     TEXT NOT NULL DEFAULT '',
    cheque_number TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (voucher_id, line)
);
`,
	},
	{
		name: "create_ledger_entries",
		sql: `
CREATE TABLE IF NOT EXISTS ledger_entries (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    id              TEXT NOT NULL UNIQUE,
    tenant_id       TEXT NOT NULL,
    account_id      TEXT NOT NULL,
    voucher_id      TEXT NOT NULL DEFAULT '',
    voucher_number  TEXT NOT NULL DEFAULT '',
    voucher_type    TEXT NOT NULL DEFAULT '',
    line            INTEGER NOT NULL DEFAULT 0,
    date            TEXT NOT NULL,
    side            TEXT NOT NULL,
    debit           TEXT NOT NULL DEFAULT '0',
    credit          TEXT NOT NULL DEFAULT '0',
    running_balance TEXT NOT NULL DEFAULT '0',
    narration       TEXT NOT NULL DEFAULT '',
    party           TEXT NOT NULL DEFAULT '',
    reference       TEXT NOT NULL DEFAULT '',
    cheque_number   TEXT NOT NULL DEFAULT '',
    reconciled      INTEGER NOT NULL DEFAULT 0,
    reconciled_by   TEXT NOT NULL DEFAULT '',
    reconciled_at   TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_account_date ON ledger_entries (account_id, date, seq);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_tenant_date ON ledger_entries (tenant_id, date, seq);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_voucher ON ledger_entries (voucher_id);
`,
	},
	{
		name: "create_sequences",
		sql: `
CREATE TABLE IF NOT EXISTS sequences (
    key   TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
`,
	},
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("sqlite: migration %s: %w", m.name, err)
		}
	}
	return nil
}
