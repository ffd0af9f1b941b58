package vouchers

import (
	"context"
	"fmt"

	"github.com/cleared-dev/forecourt/internal/bookerr"
	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/store"
)

// ValidateStructure checks the double-entry rules that need no store: every
// amount positive with at most two decimal places, at least one debit and
// one credit line, and debits equal to credits equal to the total.
func ValidateStructure(v model.Voucher) error {
	var errs bookerr.Violations
	if v.TenantID == "" {
		errs = append(errs, bookerr.Validation(bookerr.CodeInvalidInput, "tenantId", "tenant is required"))
	}
	if !v.Type.Valid() {
		errs = append(errs, bookerr.Validation(bookerr.CodeInvalidInput, "type", "unknown voucher type %q", v.Type))
	}
	if v.Date.IsZero() {
		errs = append(errs, bookerr.Validation(bookerr.CodeInvalidInput, "date", "date is required"))
	}

	var debits, credits int
	for i, e := range v.Entries {
		field := entryField(i)
		if e.AccountID == "" {
			errs = append(errs, bookerr.Validation(bookerr.CodeUnknownAccount, field+".accountId", "account is required"))
		}
		switch e.Side {
		case model.SideDebit:
			debits++
		case model.SideCredit:
			credits++
		default:
			errs = append(errs, bookerr.Validation(bookerr.CodeMissingSide, field+".side", "side must be DEBIT or CREDIT, got %q", e.Side))
		}
		if !e.Amount.IsPositive() {
			errs = append(errs, bookerr.Validation(bookerr.CodeNonPositiveAmount, field+".amount", "amount %s must be greater than zero", e.Amount))
		} else if !model.FitsScale(e.Amount) {
			errs = append(errs, bookerr.Validation(bookerr.CodePrecision, field+".amount", "amount %s has more than %d decimal places", e.Amount, model.AmountScale))
		}
	}
	if debits == 0 || credits == 0 {
		errs = append(errs, bookerr.Validation(bookerr.CodeMissingSide, "entries", "need at least one debit and one credit line, got %d and %d", debits, credits))
	}

	debit, credit := v.Totals()
	if !debit.Equal(credit) {
		errs = append(errs, bookerr.Validation(bookerr.CodeUnbalanced, "entries", "debits (%s) != credits (%s)", debit.StringFixed(model.AmountScale), credit.StringFixed(model.AmountScale)))
	} else if !debit.Equal(v.TotalAmount) {
		errs = append(errs, bookerr.Validation(bookerr.CodeUnbalanced, "totalAmount", "total %s != entry sum %s", v.TotalAmount.StringFixed(model.AmountScale), debit.StringFixed(model.AmountScale)))
	}
	return errs.Err()
}

// checkAccounts verifies every referenced account exists in the voucher's
// tenant. With forPosting it also requires them to be active and unlocked.
func checkAccounts(ctx context.Context, r store.Reader, v model.Voucher, forPosting bool) error {
	for _, accountID := range v.AccountIDs() {
		a, err := r.GetAccount(ctx, accountID)
		if bookerr.IsNotFound(err) || (err == nil && a.TenantID != v.TenantID) {
			return bookerr.Validation(bookerr.CodeUnknownAccount, "accountId", "account %s does not exist in tenant %s", accountID, v.TenantID)
		}
		if err != nil {
			return err
		}
		if !forPosting {
			continue
		}
		if !a.IsActive {
			return bookerr.Conflict(bookerr.CodeAccountInactive, "accountId", "account %s is inactive", a.Code)
		}
		if a.IsLocked {
			return bookerr.Conflict(bookerr.CodeAccountLocked, "accountId", "account %s is locked", a.Code)
		}
	}
	return nil
}

func entryField(i int) string {
	return fmt.Sprintf("entries[%d]", i)
}
