package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/ledger"
	"github.com/cleared-dev/forecourt/internal/model"
)

func newRecalcCommand(g *globals) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "recalc [account-code]",
		Short: "Recompute running balances from the ledger",
		Long: `Replays each account's opening balance over its entries in date order and
rewrites running and current balances that differ. With --verify nothing is
written; drifted accounts are reported and the command fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				accts, err := s.Accounts(ctx, s.tenant)
				if err != nil {
					return err
				}
				if len(args) == 1 {
					a, err := s.AccountByCode(ctx, s.tenant, args[0])
					if err != nil {
						return err
					}
					accts = []model.Account{a}
				}

				if verify {
					drifted := 0
					for _, a := range accts {
						v, err := s.VerifyAccount(ctx, a.ID)
						if err != nil {
							return err
						}
						if !v.Consistent() {
							drifted++
							fmt.Fprintf(out, "%s cached %s, ledger gives %s\n", a.Code, money(v.Cached), money(v.Replayed))
						}
					}
					if drifted > 0 {
						return fmt.Errorf("%d accounts drifted", drifted)
					}
					fmt.Fprintf(out, "%d accounts consistent\n", len(accts))
					return nil
				}

				tw := newTable(out)
				fmt.Fprintln(tw, "CODE\tENTRIES\tREWRITTEN\tBALANCE")
				for _, a := range accts {
					var res ledger.Result
					if res, err = s.RecalculateRunningBalances(ctx, a.ID, s.actor); err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", a.Code, res.Entries, res.Rewritten, money(res.Balance))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "only check, do not rewrite")

	return cmd
}
