package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SignedParser reads statements with one signed amount column:
//
//	date,description,amount,cheque_number,reference
//
// Dates are YYYY-MM-DD.
type SignedParser struct{}

const (
	signedDateFormat = "2006-01-02"
	signedNumFields  = 5
	signedColDate    = 0
	signedColDesc    = 1
	signedColAmount  = 2
	signedColCheque  = 3
	signedColRef     = 4
)

// Format returns the parser name.
func (p *SignedParser) Format() string { return "signed" }

// Parse reads a signed-amount CSV.
func (p *SignedParser) Parse(r io.Reader) ([]Line, error) {
	records, err := readAll(r, signedNumFields)
	if err != nil {
		return nil, err
	}

	var lines []Line
	for i, rec := range records {
		date, err := time.Parse(signedDateFormat, strings.TrimSpace(rec[signedColDate]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, rec[signedColDate], err)
		}
		amount, err := parseAmount(rec[signedColAmount])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, Line{
			Row:          i + 2,
			Date:         date,
			Description:  strings.TrimSpace(rec[signedColDesc]),
			Amount:       amount,
			ChequeNumber: strings.TrimSpace(rec[signedColCheque]),
			Reference:    strings.TrimSpace(rec[signedColRef]),
		})
	}
	return lines, nil
}

// SplitParser reads the common bank export with separate withdrawal and
// deposit columns:
//
//	Date,Narration,Chq./Ref.No.,Value Dt,Withdrawal Amt.,Deposit Amt.,Closing Balance
//
// Dates are DD/MM/YYYY. The closing balance column is ignored.
type SplitParser struct{}

const (
	splitDateFormat  = "02/01/2006"
	splitNumFields   = 7
	splitColDate     = 0
	splitColDesc     = 1
	splitColRef      = 2
	splitColWithdraw = 4
	splitColDeposit  = 5
)

// Format returns the parser name.
func (p *SplitParser) Format() string { return "split" }

// Parse reads a withdrawal/deposit CSV.
func (p *SplitParser) Parse(r io.Reader) ([]Line, error) {
	records, err := readAll(r, splitNumFields)
	if err != nil {
		return nil, err
	}

	var lines []Line
	for i, rec := range records {
		date, err := time.Parse(splitDateFormat, strings.TrimSpace(rec[splitColDate]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, rec[splitColDate], err)
		}

		withdrawal, deposit := strings.TrimSpace(rec[splitColWithdraw]), strings.TrimSpace(rec[splitColDeposit])
		var amount decimal.Decimal
		switch {
		case withdrawal != "" && deposit != "":
			return nil, fmt.Errorf("row %d: both withdrawal and deposit set", i+2)
		case withdrawal != "":
			amount, err = parseAmount(withdrawal)
			amount = amount.Neg()
		case deposit != "":
			amount, err = parseAmount(deposit)
		default:
			return nil, fmt.Errorf("row %d: no amount", i+2)
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		ref := strings.TrimSpace(rec[splitColRef])
		line := Line{
			Row:         i + 2,
			Date:        date,
			Description: strings.TrimSpace(rec[splitColDesc]),
			Amount:      amount,
			Reference:   ref,
		}
		if isChequeNumber(ref) {
			line.ChequeNumber = ref
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func readAll(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// isChequeNumber reports whether ref looks like a cheque number: six
// digits, possibly zero-padded.
func isChequeNumber(ref string) bool {
	if len(ref) != 6 {
		return false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
