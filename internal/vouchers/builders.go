package vouchers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/forecourt/internal/model"
)

// Transfer holds the fields shared by the two-line voucher builders.
type Transfer struct {
	TenantID     string
	Date         time.Time
	Amount       decimal.Decimal
	Narration    string
	Party        string
	Reference    string
	ChequeNumber string
	CreatedBy    string
}

func (t Transfer) build(typ model.VoucherType, debitAccount, creditAccount string) NewVoucher {
	line := func(accountID string, side model.Side) model.VoucherEntry {
		return model.VoucherEntry{
			AccountID:    accountID,
			Side:         side,
			Amount:       t.Amount,
			Narration:    t.Narration,
			Party:        t.Party,
			Reference:    t.Reference,
			ChequeNumber: t.ChequeNumber,
		}
	}
	return NewVoucher{
		TenantID:    t.TenantID,
		Type:        typ,
		Date:        t.Date,
		Narration:   t.Narration,
		TotalAmount: t.Amount,
		Entries:     []model.VoucherEntry{line(debitAccount, model.SideDebit), line(creditAccount, model.SideCredit)},
		CreatedBy:   t.CreatedBy,
	}
}

// CustomerReceipt records money received from a customer into a cash or
// bank account.
func CustomerReceipt(t Transfer, depositAccount, customerAccount string) NewVoucher {
	return t.build(model.VoucherReceipt, depositAccount, customerAccount)
}

// Payment records money paid out of a cash or bank account.
func Payment(t Transfer, payeeAccount, sourceAccount string) NewVoucher {
	return t.build(model.VoucherPayment, payeeAccount, sourceAccount)
}

// Contra moves money between two cash or bank accounts, such as a cash
// deposit into the bank.
func Contra(t Transfer, toAccount, fromAccount string) NewVoucher {
	return t.build(model.VoucherContra, toAccount, fromAccount)
}

// ChequeReturn puts a bounced customer cheque back on the customer's
// account. Bank charges for the return belong on a separate payment.
func ChequeReturn(t Transfer, customerAccount, bankAccount string) NewVoucher {
	return t.build(model.VoucherChequeReturn, customerAccount, bankAccount)
}

// Sales records a sale against a customer, cash or card settlement account.
func Sales(t Transfer, receivableAccount, salesAccount string) NewVoucher {
	return t.build(model.VoucherSales, receivableAccount, salesAccount)
}

// Purchase records stock or expenses bought on credit from a supplier.
func Purchase(t Transfer, purchaseAccount, supplierAccount string) NewVoucher {
	return t.build(model.VoucherPurchase, purchaseAccount, supplierAccount)
}

// CreditNote reverses part of a sale in the customer's favour.
func CreditNote(t Transfer, salesAccount, customerAccount string) NewVoucher {
	return t.build(model.VoucherCreditNote, salesAccount, customerAccount)
}

// DebitNote returns goods to a supplier.
func DebitNote(t Transfer, supplierAccount, purchaseAccount string) NewVoucher {
	return t.build(model.VoucherDebitNote, supplierAccount, purchaseAccount)
}

// Journal builds a free-form JOURNAL voucher. The total is taken from the
// debit lines.
func Journal(tenantID string, date time.Time, narration, createdBy string, entries ...model.VoucherEntry) NewVoucher {
	return NewVoucher{
		TenantID:  tenantID,
		Type:      model.VoucherJournal,
		Date:      date,
		Narration: narration,
		Entries:   entries,
		CreatedBy: createdBy,
	}
}

// Adjustment corrects an account balance. A positive delta moves the
// account in the direction of its normal side; the offset account takes
// the other side. Balances are only ever corrected this way.
func Adjustment(t Transfer, account model.Account, offsetAccount string, delta decimal.Decimal) NewVoucher {
	side := account.NormalSide
	if delta.IsNegative() {
		side = side.Opposite()
		delta = delta.Neg()
	}
	t.Amount = delta
	if t.Narration == "" {
		t.Narration = "Balance adjustment of " + account.Code
	}
	if side == model.SideDebit {
		return t.build(model.VoucherJournal, account.ID, offsetAccount)
	}
	return t.build(model.VoucherJournal, offsetAccount, account.ID)
}
