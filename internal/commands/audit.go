package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/books"
)

func newAuditCommand(g *globals) *cobra.Command {
	var f books.AuditFilter

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded changes to the books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				f.TenantID = s.tenant
				entries, err := s.AuditTrail(f)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "no matching audit entries")
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "TIME\tACTOR\tACTION\tSUBJECT\tDETAILS")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp.UTC().Format(time.RFC3339), e.Actor, e.Action, e.Subject, e.Details)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&f.Actor, "actor", "", "only changes made by this actor")
	cmd.Flags().StringVar(&f.Action, "action", "", "only this action, e.g. voucher.post")
	cmd.Flags().StringVar(&f.Subject, "subject", "", "only this voucher number, account code or entry id")
	cmd.Flags().IntVar(&f.Last, "last", 0, "show only the most recent N entries")
	return cmd
}
