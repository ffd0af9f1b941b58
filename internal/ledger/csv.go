package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/model"
)

// Header is the CSV header of a ledger export.
const Header = "entry_id,seq,date,account_id,voucher_id,voucher_number,voucher_type,line,debit,credit,running_balance,narration,party,reference,cheque_number,reconciled,reconciled_by,reconciled_at"

const (
	numFields     = 18
	dateFormat    = "2006-01-02"
	colEntryID    = 0
	colSeq        = 1
	colDate       = 2
	colAcctID     = 3
	colVoucherID  = 4
	colNumber     = 5
	colType       = 6
	colLine       = 7
	colDebit      = 8
	colCredit     = 9
	colRunning    = 10
	colNarration  = 11
	colParty      = 12
	colRef        = 13
	colCheque     = 14
	colReconciled = 15
	colReconBy    = 16
	colReconAt    = 17
)

// ReadEntries reads ledger entries from an export.
func ReadEntries(r io.Reader) ([]model.LedgerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var entries []model.LedgerEntry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries with a header row.
func WriteEntries(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts a LedgerEntry to a CSV row.
func MarshalEntry(e model.LedgerEntry) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID
	row[colSeq] = strconv.FormatInt(e.Seq, 10)
	row[colDate] = e.Date.Format(dateFormat)
	row[colAcctID] = e.AccountID
	row[colVoucherID] = e.VoucherID
	row[colNumber] = e.VoucherNumber
	row[colType] = string(e.VoucherType)
	row[colLine] = strconv.Itoa(e.Line)

	if !e.Debit.IsZero() {
		row[colDebit] = e.Debit.StringFixed(model.AmountScale)
	}
	if !e.Credit.IsZero() {
		row[colCredit] = e.Credit.StringFixed(model.AmountScale)
	}
	row[colRunning] = e.RunningBalance.StringFixed(model.AmountScale)

	row[colNarration] = e.Narration
	row[colParty] = e.Party
	row[colRef] = e.Reference
	row[colCheque] = e.ChequeNumber
	row[colReconciled] = strconv.FormatBool(e.Reconciled)
	row[colReconBy] = e.ReconciledBy
	if !e.ReconciledAt.IsZero() {
		row[colReconAt] = e.ReconciledAt.UTC().Format(time.RFC3339)
	}
	return row
}

// UnmarshalEntry converts a CSV row to a LedgerEntry. Side is inferred from
// the non-empty amount column.
func UnmarshalEntry(record []string) (model.LedgerEntry, error) {
	if len(record) != numFields {
		return model.LedgerEntry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	seq, err := strconv.ParseInt(record[colSeq], 10, 64)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing seq %q: %w", record[colSeq], err)
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	line, err := strconv.Atoi(record[colLine])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing line %q: %w", record[colLine], err)
	}

	debit, credit := decimal.Zero, decimal.Zero
	side := model.SideDebit
	switch {
	case record[colDebit] != "" && record[colCredit] != "":
		return model.LedgerEntry{}, fmt.Errorf("entry %s has both debit and credit", record[colEntryID])
	case record[colDebit] != "":
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	case record[colCredit] != "":
		side = model.SideCredit
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	default:
		return model.LedgerEntry{}, fmt.Errorf("entry %s has no amount", record[colEntryID])
	}

	running, err := decimal.NewFromString(record[colRunning])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing running_balance %q: %w", record[colRunning], err)
	}

	reconciled, err := strconv.ParseBool(record[colReconciled])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing reconciled %q: %w", record[colReconciled], err)
	}

	var reconAt time.Time
	if record[colReconAt] != "" {
		reconAt, err = time.Parse(time.RFC3339, record[colReconAt])
		if err != nil {
			return model.LedgerEntry{}, fmt.Errorf("parsing reconciled_at %q: %w", record[colReconAt], err)
		}
	}

	return model.LedgerEntry{
		ID:             record[colEntryID],
		Seq:            seq,
		Date:           date,
		AccountID:      record[colAcctID],
		VoucherID:      record[colVoucherID],
		VoucherNumber:  record[colNumber],
		VoucherType:    model.VoucherType(record[colType]),
		Line:           line,
		Side:           side,
		Debit:          debit,
		Credit:         credit,
		RunningBalance: running,
		Narration:      record[colNarration],
		Party:          record[colParty],
		Reference:      record[colRef],
		ChequeNumber:   record[colCheque],
		Reconciled:     reconciled,
		ReconciledBy:   record[colReconBy],
		ReconciledAt:   reconAt,
	}, nil
}
