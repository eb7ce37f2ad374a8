// Package gitrepo performs the one mutation the hosting service API cannot
// express: moving a guide directory while keeping its history. It shells out
// to git against a fresh shallow clone, renames, commits, and pushes.
package gitrepo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/remote"
)

// pushAttempts bounds retries when a push races another writer. Each retry
// rebases onto the remote head first.
const pushAttempts = 3

// Mover relocates guide directories on the default branch.
type Mover struct {
	owner  string
	repo   string
	token  string
	branch string
	logger *slog.Logger

	// run is swapped out by tests.
	run func(ctx context.Context, dir string, args ...string) (string, error)
}

// NewMover builds a Mover for the given repository. The token is embedded in
// the clone URL for pushes and scrubbed from anything logged or returned.
func NewMover(owner, repo, token, branch string, logger *slog.Logger) *Mover {
	m := &Mover{
		owner:  owner,
		repo:   repo,
		token:  token,
		branch: branch,
		logger: log.Or(logger),
	}
	m.run = m.git
	return m
}

func (m *Mover) cloneURL() string {
	u := url.URL{Scheme: "https", Host: "github.com", Path: fmt.Sprintf("/%s/%s.git", m.owner, m.repo)}
	if m.token != "" {
		u.User = url.UserPassword("x-access-token", m.token)
	}
	return u.String()
}

// scrub removes the token from command output before it reaches logs or
// errors.
func (m *Mover) scrub(s string) string {
	if m.token == "" {
		return s
	}
	return strings.ReplaceAll(s, m.token, "***")
}

func (m *Mover) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	text := m.scrub(strings.TrimSpace(string(out)))
	if err != nil {
		return text, fmt.Errorf("git %s: %w: %s", m.scrub(strings.Join(args, " ")), err, text)
	}
	return text, nil
}

// Move renames oldPath to newPath on the default branch and pushes the
// rename as a single commit from the given author.
func (m *Mover) Move(ctx context.Context, oldPath, newPath, message string, author remote.CommitAuthor) error {
	workdir, err := os.MkdirTemp("", "guides-move-")
	if err != nil {
		return fmt.Errorf("gitrepo: workdir: %w", err)
	}
	defer os.RemoveAll(workdir)

	start := time.Now()
	if _, err := m.run(ctx, workdir, "clone", "--depth", "1", "--branch", m.branch, m.cloneURL(), "repo"); err != nil {
		return err
	}
	repoDir := workdir + "/repo"

	// git mv needs the destination's parent directories to exist.
	if err := os.MkdirAll(repoDir+"/"+path.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("gitrepo: mkdir %s: %w", path.Dir(newPath), err)
	}
	if _, err := m.run(ctx, repoDir, "mv", oldPath, newPath); err != nil {
		return err
	}

	name, email := author.Name, author.Email
	if name == "" {
		name, email = m.owner, m.owner+"@users.noreply.github.com"
	}
	if _, err := m.run(ctx, repoDir,
		"-c", "user.name="+name,
		"-c", "user.email="+email,
		"commit", "-m", message); err != nil {
		return err
	}

	if err := m.push(ctx, repoDir); err != nil {
		return err
	}

	m.logger.Info("moved guide directory",
		slog.String("from", oldPath),
		slog.String("to", newPath),
		slog.Duration("took", time.Since(start)))
	return nil
}

// push retries a rejected push a bounded number of times, rebasing onto the
// remote head between attempts. API writers commit to the same branch so a
// rejection here is routine, not exceptional.
func (m *Mover) push(ctx context.Context, repoDir string) error {
	var err error
	for attempt := 1; attempt <= pushAttempts; attempt++ {
		if _, err = m.run(ctx, repoDir, "push", "origin", m.branch); err == nil {
			return nil
		}
		m.logger.Warn("push rejected, rebasing and retrying",
			slog.Int("attempt", attempt), slog.String("err", err.Error()))

		if _, rerr := m.run(ctx, repoDir, "pull", "--rebase", "origin", m.branch); rerr != nil {
			return rerr
		}
	}
	return fmt.Errorf("gitrepo: push failed after %d attempts: %w", pushAttempts, err)
}
