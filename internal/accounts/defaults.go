package accounts

import "github.com/cleared-dev/forecourt/internal/model"

// DefaultChart returns the starter chart of accounts for a petrol station.
// Cash, bank and capital accounts are system accounts.
func DefaultChart(tenantID string) []NewAccount {
	chart := []NewAccount{
		{Code: "1000", Name: "Cash on Hand", Type: model.AccountTypeAsset, Group: model.GroupCash, IsSystem: true},
		{Code: "1100", Name: "Bank Accounts", Type: model.AccountTypeAsset, Group: model.GroupBank, IsSystem: true},
		{Code: "1110", Name: "Main Current Account", Type: model.AccountTypeAsset, Group: model.GroupBank, ParentCode: "1100"},
		{Code: "1200", Name: "Card Settlements Receivable", Type: model.AccountTypeAsset, Group: model.GroupCurrentAsset},
		{Code: "1210", Name: "Fleet Customer Receivables", Type: model.AccountTypeAsset, Group: model.GroupCurrentAsset},
		{Code: "1300", Name: "Fuel Inventory", Type: model.AccountTypeAsset, Group: model.GroupCurrentAsset},
		{Code: "1310", Name: "Lubricant Inventory", Type: model.AccountTypeAsset, Group: model.GroupCurrentAsset},
		{Code: "1500", Name: "Pumps and Dispensers", Type: model.AccountTypeAsset, Group: model.GroupFixedAsset},
		{Code: "1510", Name: "Underground Tanks", Type: model.AccountTypeAsset, Group: model.GroupFixedAsset},
		{Code: "1600", Name: "Dealer Security Deposit", Type: model.AccountTypeAsset, Group: model.GroupOtherAsset},
		{Code: "2000", Name: "Supplier Payables", Type: model.AccountTypeLiability, Group: model.GroupCurrentLiability},
		{Code: "2100", Name: "Duties and Levies Payable", Type: model.AccountTypeLiability, Group: model.GroupCurrentLiability},
		{Code: "2200", Name: "Salaries Payable", Type: model.AccountTypeLiability, Group: model.GroupCurrentLiability},
		{Code: "2500", Name: "Term Loan", Type: model.AccountTypeLiability, Group: model.GroupLongTermLiability},
		{Code: "3000", Name: "Owner's Capital", Type: model.AccountTypeEquity, Group: model.GroupCapital, IsSystem: true},
		{Code: "3100", Name: "General Reserve", Type: model.AccountTypeEquity, Group: model.GroupReserves},
		{Code: "4000", Name: "Fuel Sales", Type: model.AccountTypeIncome, Group: model.GroupDirectIncome},
		{Code: "4010", Name: "Lubricant Sales", Type: model.AccountTypeIncome, Group: model.GroupDirectIncome},
		{Code: "4500", Name: "Commission Income", Type: model.AccountTypeIncome, Group: model.GroupIndirectIncome},
		{Code: "4510", Name: "Interest Income", Type: model.AccountTypeIncome, Group: model.GroupIndirectIncome},
		{Code: "5000", Name: "Fuel Purchases", Type: model.AccountTypeExpense, Group: model.GroupDirectExpense},
		{Code: "5010", Name: "Lubricant Purchases", Type: model.AccountTypeExpense, Group: model.GroupDirectExpense},
		{Code: "5020", Name: "Evaporation and Shrinkage", Type: model.AccountTypeExpense, Group: model.GroupDirectExpense},
		{Code: "6000", Name: "Salaries and Wages", Type: model.AccountTypeExpense, Group: model.GroupIndirectExpense},
		{Code: "6010", Name: "Electricity", Type: model.AccountTypeExpense, Group: model.GroupIndirectExpense},
		{Code: "6020", Name: "Repairs and Maintenance", Type: model.AccountTypeExpense, Group: model.GroupIndirectExpense},
		{Code: "6030", Name: "Bank Charges", Type: model.AccountTypeExpense, Group: model.GroupIndirectExpense},
		{Code: "6900", Name: "Income Tax", Type: model.AccountTypeExpense, Group: model.GroupTaxExpense},
	}
	for i := range chart {
		chart[i].TenantID = tenantID
		chart[i].NormalSide = chart[i].Type.DefaultSide()
	}
	return chart
}
