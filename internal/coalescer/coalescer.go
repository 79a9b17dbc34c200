// Package coalescer turns file modification events into staging, immediate
// commits and deferred commits.
package coalescer

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Chifiwang/obsidian-git-integration/internal/clock"
	"github.com/Chifiwang/obsidian-git-integration/internal/config"
	"github.com/Chifiwang/obsidian-git-integration/internal/deferral"
	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
	"github.com/Chifiwang/obsidian-git-integration/internal/git"
	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
	"github.com/Chifiwang/obsidian-git-integration/internal/policy"
	"github.com/Chifiwang/obsidian-git-integration/internal/watcher"
)

// Options wire a Coalescer to its collaborators.
type Options struct {
	Store  *config.Store
	Runner *git.Runner
	Timer  *deferral.Timer
	Clock  clock.Clock
	Logger logger.Logger
}

// Stats counts what the coalescer did this session.
type Stats struct {
	Events           int64
	Stages           int64
	StageFailures    int64
	ImmediateCommits int64
	DeferredRequests int64
	DeferredCommits  int64
	SkippedRequests  int64
	CommitFailures   int64
	Blocked          int64
}

// Coalescer applies the commit policy to each save event. It enforces at
// most one commit+push per minimum commit interval: a commit that is due too
// early is handed to the deferral timer, which holds at most one pending
// commit.
type Coalescer struct {
	store  *config.Store
	runner *git.Runner
	timer  *deferral.Timer
	clock  clock.Clock
	logger logger.Logger

	events           atomic.Int64
	stages           atomic.Int64
	stageFailures    atomic.Int64
	immediateCommits atomic.Int64
	deferredRequests atomic.Int64
	deferredCommits  atomic.Int64
	skippedRequests  atomic.Int64
	commitFailures   atomic.Int64
	blocked          atomic.Int64
}

// New creates a Coalescer.
func New(opts Options) *Coalescer {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Timer == nil {
		opts.Timer = deferral.New(opts.Clock)
	}
	return &Coalescer{
		store:  opts.Store,
		runner: opts.Runner,
		timer:  opts.Timer,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

type outcome int

const (
	noCommit outcome = iota
	commitNow
	commitLater
	alreadyPending
)

// plan is what the bookkeeping step decided for one event.
type plan struct {
	vault   string
	message string
	strict  bool
	scope   policy.Scope
	outcome outcome

	delay    time.Duration
	reserved time.Time
	previous time.Time
}

// OnFileModified handles one modification of filePath, which may be
// absolute or relative to the vault. Git failures are logged and never
// returned; an invalid configuration is returned and nothing runs.
func (c *Coalescer) OnFileModified(ctx context.Context, filePath string) error {
	c.events.Add(1)
	now := c.clock.Now()

	var p plan
	_, err := c.store.Update(func(r *config.Record) error {
		if err := r.Validate(); err != nil {
			return err
		}

		rel, err := relativeTo(r.VaultPath, filePath)
		if err != nil {
			return err
		}

		d := policy.Decide(policy.Input{
			Schema:    r.SaveSchema,
			Depth:     r.SaveDepth,
			EditCount: r.EditCount,
			Threshold: r.MajorSaveThreshold,
			FilePath:  rel,
		})
		r.EditCount = d.EditCount

		p = plan{
			vault:   r.VaultPath,
			message: r.CommitMessage,
			strict:  r.StrictBookkeeping,
			scope:   d.Scope,
		}

		switch {
		case !d.Commit:
			p.outcome = noCommit
		case c.timer.Armed():
			p.outcome = alreadyPending
		default:
			elapsed := now.Sub(r.LastCommitTime)
			interval := r.MinCommitInterval.Duration
			if elapsed >= interval {
				p.outcome = commitNow
				p.previous = r.LastCommitTime
				p.reserved = now
				r.LastCommitTime = now
			} else {
				p.outcome = commitLater
				p.delay = interval - elapsed
				r.PendingDeferral = 1
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrInvalidConfiguration) {
			c.blocked.Add(1)
		}
		return err
	}

	dir := p.scope.Join(p.vault)
	c.stages.Add(1)
	if err := c.runner.Add(ctx, dir, p.scope.Pathspec); err != nil {
		c.stageFailures.Add(1)
		c.logger.Warning("staging %s in %s failed: %v", p.scope.Pathspec, dir, err)
	}

	switch p.outcome {
	case commitNow:
		c.commitNow(ctx, dir, p)
	case commitLater:
		c.deferredRequests.Add(1)
		if c.timer.Request(ctx, c.deferredCommit(dir, p.message), p.delay) {
			c.logger.Info("commit deferred by %s", p.delay)
		} else {
			c.skippedRequests.Add(1)
		}
	case alreadyPending:
		c.skippedRequests.Add(1)
		c.logger.Info("commit already pending, nothing to schedule")
	}
	return nil
}

func (c *Coalescer) commitNow(ctx context.Context, dir string, p plan) {
	c.immediateCommits.Add(1)

	err := c.runner.CommitAndPush(ctx, dir, p.message)
	if err == nil {
		c.logger.Success("Committed and pushed at %s", p.reserved.Format("15:04:05"))
		return
	}

	c.commitFailures.Add(1)
	c.logger.WarningToUser("Commit failed: %v", err)

	if !p.strict {
		return
	}
	_, uerr := c.store.Update(func(r *config.Record) error {
		if r.LastCommitTime.Equal(p.reserved) {
			r.LastCommitTime = p.previous
		}
		return nil
	})
	if uerr != nil {
		c.logger.Error("Failed to restore last commit time: %v", uerr)
	}
}

// deferredCommit is the action handed to the deferral timer. The commit
// covers whatever is staged when it fires. It claims the window before
// running git, so a save arriving while it runs is deferred to the next
// window instead of racing it.
func (c *Coalescer) deferredCommit(dir, message string) deferral.Action {
	return func(ctx context.Context) {
		c.deferredCommits.Add(1)

		firedAt := c.clock.Now()
		var previous time.Time
		_, uerr := c.store.Update(func(r *config.Record) error {
			previous = r.LastCommitTime
			r.LastCommitTime = firedAt
			r.PendingDeferral = 0
			return nil
		})
		if uerr != nil {
			c.logger.Error("Failed to record deferred commit: %v", uerr)
		}

		err := c.runner.CommitAndPush(ctx, dir, message)
		if err == nil {
			c.logger.Success("Deferred commit pushed at %s", firedAt.Format("15:04:05"))
			return
		}

		c.commitFailures.Add(1)
		c.logger.WarningToUser("Deferred commit failed: %v", err)

		_, uerr = c.store.Update(func(r *config.Record) error {
			if r.StrictBookkeeping && r.LastCommitTime.Equal(firedAt) {
				r.LastCommitTime = previous
			}
			return nil
		})
		if uerr != nil {
			c.logger.Error("Failed to restore last commit time: %v", uerr)
		}
	}
}

// Run feeds watcher events to OnFileModified one at a time until events is
// closed or ctx is done.
func (c *Coalescer) Run(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.OnFileModified(ctx, ev.Path); err != nil {
				c.logger.Error("Not scheduling %s: %v", ev.Path, err)
			}
		}
	}
}

// Stats returns a snapshot of the session counters.
func (c *Coalescer) Stats() Stats {
	return Stats{
		Events:           c.events.Load(),
		Stages:           c.stages.Load(),
		StageFailures:    c.stageFailures.Load(),
		ImmediateCommits: c.immediateCommits.Load(),
		DeferredRequests: c.deferredRequests.Load(),
		DeferredCommits:  c.deferredCommits.Load(),
		SkippedRequests:  c.skippedRequests.Load(),
		CommitFailures:   c.commitFailures.Load(),
		Blocked:          c.blocked.Load(),
	}
}

// relativeTo returns path relative to vault, rejecting paths outside it.
func relativeTo(vault, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(vault, path)
	}
	rel, err := filepath.Rel(vault, path)
	if err != nil {
		return "", errors.Wrapf(err, "%s is not inside %s", path, vault)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%s is not inside %s", path, vault)
	}
	return rel, nil
}
