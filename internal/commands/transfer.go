package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/model"
	"github.com/cleared-dev/forecourt/internal/vouchers"
)

// transferCommand describes a two-line voucher shortcut. The debit and
// credit accounts are given by code through the named flags.
type transferCommand struct {
	use, short string
	debitFlag  string
	debitHelp  string
	creditFlag string
	creditHelp string
	build      func(t vouchers.Transfer, debitAccount, creditAccount string) vouchers.NewVoucher
}

var transferCommands = []transferCommand{
	{"receipt", "Record money received into cash or bank", "into", "cash or bank account code", "from", "customer or income account code", vouchers.CustomerReceipt},
	{"payment", "Record money paid out of cash or bank", "to", "payee or expense account code", "from", "cash or bank account code", vouchers.Payment},
	{"contra", "Move money between cash and bank accounts", "to", "receiving account code", "from", "paying account code", vouchers.Contra},
	{"cheque-return", "Put a bounced cheque back on the customer", "customer", "customer account code", "bank", "bank account code", vouchers.ChequeReturn},
	{"sales", "Record a credit or card sale", "customer", "receivable or settlement account code", "sales", "sales account code", vouchers.Sales},
	{"purchase", "Record a purchase on credit", "purchase", "purchase or expense account code", "supplier", "supplier account code", vouchers.Purchase},
	{"credit-note", "Reverse part of a sale for a customer", "sales", "sales account code", "customer", "customer account code", vouchers.CreditNote},
	{"debit-note", "Return goods to a supplier", "supplier", "supplier account code", "purchase", "purchase account code", vouchers.DebitNote},
}

func newTransferCommand(g *globals, tc transferCommand) *cobra.Command {
	var on, debitCode, creditCode string
	var narration, party, reference, cheque string
	var post bool

	cmd := &cobra.Command{
		Use:   tc.use + " <amount>",
		Short: tc.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate("date", on)
			if err != nil {
				return err
			}
			if date.IsZero() {
				return fmt.Errorf("--date is required")
			}
			value, err := parseAmount("amount", args[0])
			if err != nil {
				return err
			}

			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				debit, err := s.AccountByCode(ctx, s.tenant, debitCode)
				if err != nil {
					return fmt.Errorf("--%s %s: %w", tc.debitFlag, debitCode, err)
				}
				credit, err := s.AccountByCode(ctx, s.tenant, creditCode)
				if err != nil {
					return fmt.Errorf("--%s %s: %w", tc.creditFlag, creditCode, err)
				}

				in := tc.build(vouchers.Transfer{
					TenantID:     s.tenant,
					Date:         date,
					Amount:       value,
					Narration:    narration,
					Party:        party,
					Reference:    reference,
					ChequeNumber: cheque,
					CreatedBy:    s.actor,
				}, debit.ID, credit.ID)

				var v model.Voucher
				if post {
					v, err = s.CreateAndPostVoucher(ctx, in)
				} else {
					v, err = s.CreateVoucher(ctx, in)
				}
				if v.ID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", v.Number, v.Status, money(v.TotalAmount))
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&on, "date", "", "voucher date, YYYY-MM-DD or today (required)")
	cmd.Flags().StringVar(&debitCode, tc.debitFlag, "", tc.debitHelp+" (debited)")
	cmd.Flags().StringVar(&creditCode, tc.creditFlag, "", tc.creditHelp+" (credited)")
	cmd.Flags().StringVar(&narration, "narration", "", "description")
	cmd.Flags().StringVar(&party, "party", "", "customer or supplier")
	cmd.Flags().StringVar(&reference, "reference", "", "external reference")
	cmd.Flags().StringVar(&cheque, "cheque", "", "cheque number")
	cmd.Flags().BoolVar(&post, "post", false, "post immediately")
	_ = cmd.MarkFlagRequired(tc.debitFlag)
	_ = cmd.MarkFlagRequired(tc.creditFlag)

	return cmd
}
