package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/reconcile"
	"github.com/cleared-dev/forecourt/internal/store"
)

func newReconcileCommand(g *globals) *cobra.Command {
	var undo bool
	var account string

	cmd := &cobra.Command{
		Use:   "reconcile [entry-id...]",
		Short: "Mark ledger entries as verified, or list an account's open entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					if account == "" {
						return fmt.Errorf("give entry ids, or --account to list unreconciled entries")
					}
					a, err := s.AccountByCode(ctx, s.tenant, account)
					if err != nil {
						return err
					}
					entries, err := s.Entries(ctx, store.EntryFilter{AccountID: a.ID})
					if err != nil {
						return err
					}
					tw := newTable(out)
					fmt.Fprintln(tw, "ENTRY\tDATE\tVOUCHER\tDEBIT\tCREDIT\tCHEQUE")
					for _, e := range entries {
						if e.Reconciled {
							continue
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, formatDate(e.Date), e.VoucherNumber, blankZero(e.Debit), blankZero(e.Credit), e.ChequeNumber)
					}
					return tw.Flush()
				}

				var results []reconcile.Result
				if undo {
					results = s.UnreconcileEntries(ctx, args, s.actor)
				} else {
					results = s.ReconcileEntries(ctx, args, s.actor)
				}
				for _, r := range results {
					if r.Err != nil {
						fmt.Fprintf(out, "%s failed: %v\n", r.EntryID, r.Err)
						continue
					}
					fmt.Fprintf(out, "%s reconciled=%t\n", r.EntryID, r.Entry.Reconciled)
				}
				if n := reconcile.Failed(results); n > 0 {
					return fmt.Errorf("%d of %d entries failed", n, len(results))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "unreconcile instead")
	cmd.Flags().StringVar(&account, "account", "", "account code whose unreconciled entries to list")

	return cmd
}
