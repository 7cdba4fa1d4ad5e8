// Package publish exports an assembled tree into a git repository. It
// covers the Repository Publisher boundary locally: init, add, commit,
// optional remote wiring. Creating the remote host repository itself
// stays with the caller.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/agentic-research/loom/internal/tree"
)

// Config describes where and how to publish.
type Config struct {
	// Dir is the local directory the tree is exported into.
	Dir string
	// Remote, when set, is added as origin and reported as the
	// repository URL.
	Remote string
	// Branch defaults to main.
	Branch string
	// Message defaults to a generated commit message.
	Message string
}

// Publisher creates a repository from an assembled tree.
type Publisher interface {
	Create(ctx context.Context, cfg Config, store *tree.Store) (url string, err error)
}

// GitPublisher shells out to the git binary.
type GitPublisher struct {
	Log *slog.Logger
}

var _ Publisher = (*GitPublisher)(nil)

// NewGit returns a git publisher logging through log.
func NewGit(log *slog.Logger) *GitPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &GitPublisher{Log: log}
}

// Create exports the store into cfg.Dir and commits it on a fresh
// repository. A failed publish leaves the exported files in place, so
// the caller can retry without re-running the pipeline.
func (g *GitPublisher) Create(ctx context.Context, cfg Config, store *tree.Store) (string, error) {
	if cfg.Dir == "" {
		return "", fmt.Errorf("publish: target directory not set")
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	message := cfg.Message
	if message == "" {
		message = "Initial project assembly"
	}

	if err := tree.Export(store, cfg.Dir); err != nil {
		return "", fmt.Errorf("publish export: %w", err)
	}
	g.Log.Info("exported tree for publish", "dir", cfg.Dir)

	steps := [][]string{
		{"init", "-b", branch},
		{"add", "-A"},
		{"-c", "user.name=loom", "-c", "user.email=loom@localhost", "commit", "-m", message},
	}
	for _, args := range steps {
		if out, err := g.git(ctx, cfg.Dir, args...); err != nil {
			return "", fmt.Errorf("git %s: %w\n%s", args[len(args)-1], err, out)
		}
	}

	if cfg.Remote != "" {
		if out, err := g.git(ctx, cfg.Dir, "remote", "add", "origin", cfg.Remote); err != nil {
			return "", fmt.Errorf("git remote add: %w\n%s", err, out)
		}
		g.Log.Info("repository published", "remote", cfg.Remote, "branch", branch)
		return cfg.Remote, nil
	}
	g.Log.Info("repository initialized", "dir", cfg.Dir, "branch", branch)
	return "file://" + cfg.Dir, nil
}

func (g *GitPublisher) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}
