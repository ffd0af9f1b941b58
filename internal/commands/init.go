package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/forecourt/internal/accounts"
	"github.com/cleared-dev/forecourt/internal/books"
	"github.com/cleared-dev/forecourt/internal/config"
	"github.com/cleared-dev/forecourt/internal/gitops"
)

func newInitCommand(g *globals) *cobra.Command {
	var name, tenant, chartPath string
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize books for a new station",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := g.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, name, tenant, chartPath, g.actor, git)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&tenant, "tenant", "", "station code used in voucher numbers (required)")
	_ = cmd.MarkFlagRequired("tenant")
	cmd.Flags().StringVar(&chartPath, "chart", "", "chart-of-accounts CSV to load instead of the default chart")
	cmd.Flags().BoolVar(&git, "git", true, "track the books directory in git")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir, name, tenant, chartPath, actor string, git bool) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	cfg := config.Default(name, tenant)
	cfg.Export.AutoCommit = git
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Create directory structure.
	dirs := []string{
		cfg.Export.Dir,
		filepath.Dir(cfg.Audit.Path),
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	chart := accounts.DefaultChart(tenant)
	if chartPath != "" {
		var err error
		if chart, err = accounts.LoadChart(chartPath); err != nil {
			return err
		}
	}

	b, err := books.Open(ctx, dir, cfg)
	if err != nil {
		return err
	}
	created, err := b.ImportChart(ctx, tenant, chart, actor)
	if err != nil {
		b.Close()
		return fmt.Errorf("loading chart of accounts: %w", err)
	}
	paths, err := b.Export(ctx, tenant, filepath.Join(dir, cfg.Export.Dir))
	if cerr := b.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	gitignore := "books.db\nbooks.db-*\nimport/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	fmt.Fprintf(out, "Loaded %d accounts for %s (%s)\n", len(created), name, tenant)
	for _, p := range paths {
		fmt.Fprintf(out, "  wrote %s\n", relTo(dir, p))
	}

	if !git {
		fmt.Fprintf(out, "Initialized books at %s\n", dir)
		return nil
	}
	committer := gitops.Committer{Dir: dir, AuthorName: cfg.Export.AuthorName, AuthorEmail: cfg.Export.AuthorEmail}
	if err := committer.EnsureRepo(ctx); err != nil {
		return err
	}
	hash, err := committer.Commit(ctx, "init: Initialize "+name)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}
	fmt.Fprintf(out, "Initialized books at %s (%s)\n", dir, hash)
	return nil
}

func relTo(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil {
		return rel
	}
	return path
}
