package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeEquity    AccountType = "EQUITY"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeIncome, AccountTypeExpense, AccountTypeEquity:
		return true
	}
	return false
}

// DefaultSide returns the normal balance side conventionally used for t.
func (t AccountType) DefaultSide() Side {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return SideDebit
	}
	return SideCredit
}

// AccountGroup places an account in a reporting bucket.
type AccountGroup string

const (
	GroupCurrentAsset      AccountGroup = "CURRENT_ASSET"
	GroupFixedAsset        AccountGroup = "FIXED_ASSET"
	GroupOtherAsset        AccountGroup = "OTHER_ASSET"
	GroupBank              AccountGroup = "BANK"
	GroupCash              AccountGroup = "CASH"
	GroupCurrentLiability  AccountGroup = "CURRENT_LIABILITY"
	GroupLongTermLiability AccountGroup = "LONG_TERM_LIABILITY"
	GroupCapital           AccountGroup = "CAPITAL"
	GroupReserves          AccountGroup = "RESERVES"
	GroupDirectIncome      AccountGroup = "DIRECT_INCOME"
	GroupIndirectIncome    AccountGroup = "INDIRECT_INCOME"
	GroupDirectExpense     AccountGroup = "DIRECT_EXPENSE"
	GroupIndirectExpense   AccountGroup = "INDIRECT_EXPENSE"
	GroupTaxExpense        AccountGroup = "TAX_EXPENSE"
)

// Type returns the account type a group belongs to, or "" for an unknown
// group.
func (g AccountGroup) Type() AccountType {
	switch g {
	case GroupCurrentAsset, GroupFixedAsset, GroupOtherAsset, GroupBank, GroupCash:
		return AccountTypeAsset
	case GroupCurrentLiability, GroupLongTermLiability:
		return AccountTypeLiability
	case GroupCapital, GroupReserves:
		return AccountTypeEquity
	case GroupDirectIncome, GroupIndirectIncome:
		return AccountTypeIncome
	case GroupDirectExpense, GroupIndirectExpense, GroupTaxExpense:
		return AccountTypeExpense
	}
	return ""
}

// Valid reports whether g is a known group.
func (g AccountGroup) Valid() bool { return g.Type() != "" }

// DefaultGroup returns the group used when an account of type t is created
// without one.
func (t AccountType) DefaultGroup() AccountGroup {
	switch t {
	case AccountTypeAsset:
		return GroupCurrentAsset
	case AccountTypeLiability:
		return GroupCurrentLiability
	case AccountTypeEquity:
		return GroupCapital
	case AccountTypeIncome:
		return GroupDirectIncome
	case AccountTypeExpense:
		return GroupIndirectExpense
	}
	return ""
}

// Side is the debit or credit side of a double entry.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Valid reports whether s is DEBIT or CREDIT.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// Account is one row of the chart of accounts.
type Account struct {
	ID                string
	TenantID          string
	Code              string
	Name              string
	Type              AccountType
	Group             AccountGroup
	NormalSide        Side
	OpeningBalance    decimal.Decimal
	CurrentBalance    decimal.Decimal // derived from ledger entries
	ReconciledBalance decimal.Decimal
	ParentCode        string // "" = top-level
	IsSystem          bool
	IsLocked          bool
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Apply returns balance moved by amount on side, signed by the account's
// normal balance side.
func (a Account) Apply(balance decimal.Decimal, side Side, amount decimal.Decimal) decimal.Decimal {
	if side == a.NormalSide {
		return balance.Add(amount)
	}
	return balance.Sub(amount)
}

// BalanceSign is +1 for debit-normal accounts and -1 for credit-normal ones.
// It is derived from NormalSide and only meant for display.
func (a Account) BalanceSign() int {
	if a.NormalSide == SideCredit {
		return -1
	}
	return 1
}

// DebitCredit splits a balance held on the account's normal side into
// debit and credit columns. Negative balances flip to the opposite column.
func (a Account) DebitCredit(balance decimal.Decimal) (debit, credit decimal.Decimal) {
	side := a.NormalSide
	if balance.IsNegative() {
		side = side.Opposite()
		balance = balance.Neg()
	}
	if side == SideDebit {
		return balance, decimal.Zero
	}
	return decimal.Zero, balance
}
