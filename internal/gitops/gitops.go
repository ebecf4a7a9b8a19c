// Package gitops keeps the data directory under version control so every
// change to the books is a commit.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNothingToCommit is returned when the working tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Repo is a git working tree.
type Repo struct {
	Dir         string
	AuthorName  string
	AuthorEmail string

	mu sync.Mutex
}

// New returns a Repo for dir committing as the given author.
func New(dir, authorName, authorEmail string) *Repo {
	return &Repo{Dir: dir, AuthorName: authorName, AuthorEmail: authorEmail}
}

// Init initializes a new git repository.
func (r *Repo) Init(ctx context.Context) error {
	if _, err := r.git(ctx, "init", "--quiet"); err != nil {
		return fmt.Errorf("git init: %w", err)
	}
	return nil
}

// IsRepo reports whether Dir is the root of a git repository.
func (r *Repo) IsRepo() bool {
	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// CommitAll stages all files and creates a commit. Returns the short commit
// hash, or ErrNothingToCommit when nothing changed.
func (r *Repo) CommitAll(ctx context.Context, message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.git(ctx, "add", "-A"); err != nil {
		return "", fmt.Errorf("git add: %w", err)
	}
	status, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(status) == "" {
		return "", ErrNothingToCommit
	}

	author := fmt.Sprintf("%s <%s>", r.AuthorName, r.AuthorEmail)
	if _, err := r.git(ctx, "commit", "--quiet", "-m", message, "--author", author); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	hash, err := r.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

// LastMessage returns the subject of the latest commit.
func (r *Repo) LastMessage(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "log", "-1", "--format=%s")
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	// committer identity is not guaranteed to be configured on the host
	cmd.Env = append(os.Environ(),
		"GIT_COMMITTER_NAME="+r.AuthorName,
		"GIT_COMMITTER_EMAIL="+r.AuthorEmail,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// Committer commits the data directory after each change when enabled.
type Committer struct {
	repo    *Repo
	enabled bool
}

// NewCommitter returns a Committer. A nil repo or enabled=false makes every
// Commit a no-op.
func NewCommitter(repo *Repo, enabled bool) *Committer {
	return &Committer{repo: repo, enabled: enabled && repo != nil && repo.IsRepo()}
}

// Commit records the current state with message. It returns the short hash,
// or "" when disabled or nothing changed.
func (c *Committer) Commit(ctx context.Context, message string) (string, error) {
	if c == nil || !c.enabled {
		return "", nil
	}
	hash, err := c.repo.CommitAll(ctx, message)
	if errors.Is(err, ErrNothingToCommit) {
		return "", nil
	}
	return hash, err
}
