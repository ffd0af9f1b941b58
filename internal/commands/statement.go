package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/statement"
)

func newStatementCommand(g *globals) *cobra.Command {
	statementCmd := &cobra.Command{
		Use:   "statement",
		Short: "Reconcile bank statements",
	}
	statementCmd.AddCommand(newStatementImportCommand(g))
	return statementCmd
}

func newStatementImportCommand(g *globals) *cobra.Command {
	var format string
	var window int
	var keep bool

	cmd := &cobra.Command{
		Use:   "import <account-code> [file...]",
		Short: "Match statement lines to ledger entries and reconcile them",
		Long: `Parses each statement file, pairs its lines with the account's unreconciled
entries by amount, direction, cheque number and a date window, and marks the
pairs reconciled. Without files every CSV in import/ is processed and moved to
import/processed/ afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withSession(cmd, func(s *session) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				if s.Statements().Get(format) == nil {
					return fmt.Errorf("unknown format %q, want one of %s", format, strings.Join(s.Statements().Formats(), ", "))
				}
				a, err := s.AccountByCode(ctx, s.tenant, args[0])
				if err != nil {
					return err
				}

				importDir := filepath.Join(s.dir, "import")
				files := args[1:]
				scanned := len(files) == 0
				if scanned {
					found, err := statement.Scan(importDir)
					if err != nil {
						return err
					}
					for _, f := range found {
						files = append(files, f.Path)
					}
				}
				if len(files) == 0 {
					fmt.Fprintln(out, "no statements to import")
					return nil
				}

				for _, path := range files {
					res, err := s.ImportStatement(ctx, a.ID, format, path, window, s.actor)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s: %d lines, %d reconciled, %d unmatched\n",
						filepath.Base(path), res.Lines, len(res.Matches), len(res.Unmatched))
					for _, l := range res.Unmatched {
						fmt.Fprintf(out, "  row %d %s %s %s\n", l.Row, formatDate(l.Date), money(l.Amount), l.Description)
					}
					if scanned && !keep {
						if err := statement.MarkProcessed(importDir, filepath.Base(path)); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "signed", "statement layout")
	cmd.Flags().IntVar(&window, "window", 3, "days a statement date may differ from the entry date")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave scanned files in import/")

	return cmd
}
