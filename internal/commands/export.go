package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/gitops"
)

func newExportCommand(g *globals) *cobra.Command {
	var commit, verify bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts and ledger as CSV and commit them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				if verify {
					return verifyExport(cmd, s)
				}

				paths, err := s.Export(ctx, s.tenant, filepath.Join(s.dir, s.cfg.Export.Dir))
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintf(out, "wrote %s\n", relTo(s.dir, p))
				}

				if !commit || !gitops.IsRepo(s.dir) {
					return nil
				}
				committer := gitops.Committer{Dir: s.dir, AuthorName: s.cfg.Export.AuthorName, AuthorEmail: s.cfg.Export.AuthorEmail}
				rel := []string{filepath.Join(s.cfg.Export.Dir, s.tenant)}
				if s.cfg.Audit.Path != "" && !filepath.IsAbs(s.cfg.Audit.Path) {
					rel = append(rel, s.cfg.Audit.Path)
				}
				msg := fmt.Sprintf("export: %s as of %s", s.tenant, time.Now().UTC().Format(dateFormat))
				hash, err := committer.Commit(ctx, msg, rel...)
				if err != nil {
					return err
				}
				if hash == "" {
					fmt.Fprintln(out, "no changes since last export")
					return nil
				}
				fmt.Fprintf(out, "committed %s\n", hash)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&commit, "commit", true, "commit the export when the books directory is a git repository")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the existing export against the ledger instead of writing")
	return cmd
}

// verifyExport reports how the ledger export on disk differs from the books
// and fails when it is stale.
func verifyExport(cmd *cobra.Command, s *session) error {
	out := cmd.OutOrStdout()
	diff, err := s.VerifyExport(cmd.Context(), s.tenant, filepath.Join(s.dir, s.cfg.Export.Dir))
	if err != nil {
		return err
	}
	if diff.Current() {
		fmt.Fprintf(out, "%s is current (%d entries)\n", relTo(s.dir, diff.Path), diff.Live)
		return nil
	}
	fmt.Fprintf(out, "%s: %d exported, %d in ledger\n", relTo(s.dir, diff.Path), diff.Exported, diff.Live)
	for _, group := range []struct {
		label string
		ids   []string
	}{{"missing", diff.Missing}, {"unknown", diff.Unknown}, {"changed", diff.Changed}} {
		for _, id := range group.ids {
			fmt.Fprintf(out, "  %s %s\n", group.label, id)
		}
	}
	return fmt.Errorf("export is stale; run forecourt export")
}
