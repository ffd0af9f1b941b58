package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/model"
)

const (
	numFields     = 9
	colCode       = 0
	colName       = 1
	colType       = 2
	colGroup      = 3
	colNormalSide = 4
	colParent     = 5
	colOpening    = 6
	colCurrent    = 7
	colSystem     = 8
)

var header = []string{"code", "name", "type", "group", "normal_side", "parent_code", "opening_balance", "current_balance", "is_system"}

// ReadAccounts reads a chart-of-accounts CSV into accounts to create. The
// current_balance column is informational and ignored.
func ReadAccounts(r io.Reader) ([]NewAccount, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []NewAccount
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes a chart-of-accounts CSV.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colGroup] = string(acct.Group)
	row[colNormalSide] = string(acct.NormalSide)
	row[colParent] = acct.ParentCode
	row[colOpening] = acct.OpeningBalance.StringFixed(model.AmountScale)
	row[colCurrent] = acct.CurrentBalance.StringFixed(model.AmountScale)
	row[colSystem] = strconv.FormatBool(acct.IsSystem)
	return row
}

// UnmarshalAccount converts a CSV row to a NewAccount. Empty group,
// normal_side, opening_balance and is_system columns take their defaults.
func UnmarshalAccount(record []string) (NewAccount, error) {
	if len(record) != numFields {
		return NewAccount{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	opening := decimal.Zero
	if record[colOpening] != "" {
		var err error
		opening, err = decimal.NewFromString(record[colOpening])
		if err != nil {
			return NewAccount{}, fmt.Errorf("parsing opening_balance %q: %w", record[colOpening], err)
		}
	}

	var system bool
	if record[colSystem] != "" {
		var err error
		system, err = strconv.ParseBool(record[colSystem])
		if err != nil {
			return NewAccount{}, fmt.Errorf("parsing is_system %q: %w", record[colSystem], err)
		}
	}

	return NewAccount{
		Code:           record[colCode],
		Name:           record[colName],
		Type:           model.AccountType(record[colType]),
		Group:          model.AccountGroup(record[colGroup]),
		NormalSide:     model.Side(record[colNormalSide]),
		ParentCode:     record[colParent],
		OpeningBalance: opening,
		IsSystem:       system,
	}, nil
}

// LoadChart reads a chart-of-accounts CSV file.
func LoadChart(path string) ([]NewAccount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return accts, nil
}

// SaveChart writes accounts to dir/chart-of-accounts.csv and returns the
// file path.
func SaveChart(dir string, accounts []model.Account) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating accounts dir: %w", err)
	}

	path := filepath.Join(dir, "chart-of-accounts.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, accounts); err != nil {
		return "", fmt.Errorf("writing chart of accounts: %w", err)
	}
	return path, nil
}
