package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/model"
)

func newAccountCommand(g *globals) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	accountCmd.AddCommand(
		newAccountCreateCommand(g),
		newAccountListCommand(g),
		newAccountFlagCommand(g, "lock", "Block postings to an account"),
		newAccountFlagCommand(g, "unlock", "Allow postings to an account again"),
	)
	return accountCmd
}

func newAccountCreateCommand(g *globals) *cobra.Command {
	var in accounts.NewAccount
	var typ, group, opening string

	cmd := &cobra.Command{
		Use:   "create <code> <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bal, err := parseAmount("opening", opening)
			if err != nil {
				return err
			}
			in.Code = args[0]
			in.Name = args[1]
			in.Type = model.AccountType(strings.ToUpper(typ))
			in.Group = model.AccountGroup(strings.ToUpper(group))
			in.OpeningBalance = bal

			return g.withSession(cmd, func(s *session) error {
				in.TenantID = s.tenant
				a, err := s.CreateAccount(cmd.Context(), in, s.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (%s, %s) opening %s\n", a.Code, a.Name, a.Type, a.Group, money(a.OpeningBalance))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "ASSET, LIABILITY, EQUITY, INCOME or EXPENSE (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&group, "group", "", "reporting group, defaults by type")
	cmd.Flags().StringVar(&in.ParentCode, "parent", "", "parent account code")
	cmd.Flags().StringVar(&opening, "opening", "", "opening balance on the normal side")

	return cmd
}

func newAccountListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				accts, err := s.Accounts(cmd.Context(), s.tenant)
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "CODE\tNAME\tGROUP\tSIDE\tBALANCE\tRECONCILED\tFLAGS")
				for _, a := range accts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						a.Code, a.Name, a.Group, a.NormalSide, money(a.CurrentBalance), money(a.ReconciledBalance), flags(a))
				}
				return tw.Flush()
			})
		},
	}
}

func flags(a model.Account) string {
	var f []string
	if a.IsSystem {
		f = append(f, "system")
	}
	if a.IsLocked {
		f = append(f, "locked")
	}
	if !a.IsActive {
		f = append(f, "inactive")
	}
	return strings.Join(f, ",")
}

func newAccountFlagCommand(g *globals, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <code>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				a, err := s.AccountByCode(ctx, s.tenant, args[0])
				if err != nil {
					return err
				}
				if verb == "lock" {
					a, err = s.LockAccount(ctx, a.ID, s.actor)
				} else {
					a, err = s.UnlockAccount(ctx, a.ID, s.actor)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %sed\n", a.Code, verb)
				return nil
			})
		},
	}
}
