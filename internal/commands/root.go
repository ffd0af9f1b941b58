package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/forecourt/internal/books"
	"github.com/cleared-dev/forecourt/internal/buildinfo"
	"github.com/cleared-dev/forecourt/internal/config"
	"github.com/cleared-dev/forecourt/internal/logging"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	dir   string
	actor string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:     "forecourt",
		Short:   "Double-entry books for a fuel station",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.dir, "dir", ".", "books directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&g.actor, "as", defaultActor(), "identity recorded on postings and in the audit log")

	rootCmd.AddCommand(
		newInitCommand(g),
		newAccountCommand(g),
		newVoucherCommand(g),
		newReconcileCommand(g),
		newRecalcCommand(g),
		newReportCommand(g),
		newExportCommand(g),
		newStatementCommand(g),
		newAuditCommand(g),
	)

	return rootCmd
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// session is an open set of books plus the configuration it came from.
type session struct {
	*books.Books
	cfg    *config.Config
	dir    string
	tenant string
	actor  string
	log    *zap.Logger
}

// open loads forecourt.yaml from the books directory and opens the books.
func (g *globals) open(ctx context.Context) (*session, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	b, err := books.Open(ctx, dir, cfg, books.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{Books: b, cfg: cfg, dir: dir, tenant: cfg.Business.Tenant, actor: g.actor, log: logger}, nil
}

// Close closes the books and flushes the logger.
func (s *session) Close() error {
	err := s.Books.Close()
	_ = s.log.Sync()
	return err
}

// withSession opens the books for the duration of fn.
func (g *globals) withSession(cmd *cobra.Command, fn func(s *session) error) error {
	s, err := g.open(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
