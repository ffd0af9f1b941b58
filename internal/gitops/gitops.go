// Package gitops records exported books in a git history.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Committer commits changes under Dir with a fixed author.
type Committer struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// Init initializes a new git repository at dir.
func Init(ctx context.Context, dir string) error {
	if _, err := run(ctx, dir, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether dir is the root of a git repository.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// EnsureRepo initializes dir as a repository unless it already is one.
func (c Committer) EnsureRepo(ctx context.Context) error {
	if IsRepo(c.Dir) {
		return nil
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", c.Dir, err)
	}
	return Init(ctx, c.Dir)
}

// Commit stages paths (everything when none are given) and commits them.
// It returns the short hash of the new commit, or "" when nothing changed.
func (c Committer) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	add := []string{"add", "-A"}
	if len(paths) > 0 {
		add = append([]string{"add", "--"}, paths...)
	}
	if out, err := run(ctx, c.Dir, add...); err != nil {
		return "", fmt.Errorf("git add: %s: %w", out, err)
	}

	status, err := run(ctx, c.Dir, "diff", "--cached", "--name-only")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return "", nil
	}

	author := fmt.Sprintf("%s <%s>", c.AuthorName, c.AuthorEmail)
	if out, err := run(ctx, c.Dir,
		"-c", "user.name="+c.AuthorName,
		"-c", "user.email="+c.AuthorEmail,
		"commit", "--quiet", "-m", message, "--author", author,
	); err != nil {
		return "", fmt.Errorf("git commit: %s: %w", out, err)
	}

	hash, err := run(ctx, c.Dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}
