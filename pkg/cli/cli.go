// Package cli assembles the guides command line: a server hosting the JSON
// API and webhook endpoints, plus maintenance commands operators run by
// hand.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hackguides/guides/pkg/cache"
	"github.com/hackguides/guides/pkg/config"
	"github.com/hackguides/guides/pkg/gitrepo"
	"github.com/hackguides/guides/pkg/guides"
	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/queue"
	"github.com/hackguides/guides/pkg/remote"
)

// Run executes the CLI and returns the process exit code.
func Run(ctx context.Context, args []string) (int, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return 130, err
		}
		return 1, err
	}
	return 0, nil
}

// Deps carries everything a command needs, built once after flags parse.
type Deps struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   remote.Store
	Queue   *queue.Queue
	Service *guides.Service

	// Committer attributes system commits such as listing maintenance.
	Committer remote.CommitAuthor
}

// setup builds the dependency graph from configuration.
func setup(ctx context.Context, configFile string) (*Deps, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON || !stderrIsTerminal()})

	store := remote.NewGitHub(remote.GitHubConfig{
		Owner:  cfg.RepoOwner,
		Repo:   cfg.RepoName,
		Token:  cfg.RepoToken,
		Logger: logger,
	})

	q := queue.New(ctx, cfg.QueueCapacity, logger)
	mover := gitrepo.NewMover(cfg.RepoOwner, cfg.RepoName, cfg.RepoToken, guides.DefaultBranch, logger)

	svc, err := guides.NewService(guides.Config{
		Store:   store,
		Cache:   cache.NewRedis(cfg.RedisURL, logger),
		Queue:   q,
		Mover:   mover,
		SiteURL: cfg.SiteURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &Deps{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Queue:     q,
		Service:   svc,
		Committer: remote.CommitAuthor{Name: cfg.CommitterName, Email: cfg.CommitterEmail},
	}, nil
}
