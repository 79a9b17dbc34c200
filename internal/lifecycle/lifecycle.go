package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/Chifiwang/obsidian-git-integration/internal/clock"
	"github.com/Chifiwang/obsidian-git-integration/internal/coalescer"
	"github.com/Chifiwang/obsidian-git-integration/internal/config"
	"github.com/Chifiwang/obsidian-git-integration/internal/deferral"
	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
	"github.com/Chifiwang/obsidian-git-integration/internal/git"
	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
	"github.com/Chifiwang/obsidian-git-integration/internal/watcher"
)

// Source delivers modification events for the vault.
type Source interface {
	Events() <-chan watcher.Event
	Stats() watcher.Stats
	Close() error
}

// SourceFactory builds the event source for a vault.
type SourceFactory func(root string, filter func(path string) bool) (Source, error)

// Options wire a Controller.
type Options struct {
	Store     *config.Store
	Runner    *git.Runner
	Timer     *deferral.Timer
	Coalescer *coalescer.Coalescer
	Clock     clock.Clock
	Logger    logger.Logger

	// NewSource defaults to an fsnotify watcher.
	NewSource SourceFactory

	// IsRepository defaults to git.IsRepository.
	IsRepository func(path string) (bool, error)
}

// Controller runs the startup sync, feeds events to the coalescer while the
// daemon runs, and flushes everything on shutdown.
type Controller struct {
	opts Options

	mu        sync.Mutex
	started   bool
	startTime time.Time
	vault     string
	source    Source
	cancel    context.CancelFunc
	loopDone  chan struct{}
	stopOnce  sync.Once
	stopErr   error
}

// New creates a Controller.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.NewSource == nil {
		opts.NewSource = func(root string, filter func(string) bool) (Source, error) {
			return watcher.New(watcher.Options{Root: root, Filter: filter, Logger: opts.Logger})
		}
	}
	if opts.IsRepository == nil {
		opts.IsRepository = git.IsRepository
	}
	return &Controller{opts: opts}
}

// Start validates the configuration, synchronizes with the remote and
// subscribes the coalescer to file events. An invalid configuration or a
// vault that is not a git working tree is returned and nothing is
// scheduled; git failures during the sync are logged only.
func (c *Controller) Start(ctx context.Context) error {
	log := c.opts.Logger

	rec, err := c.opts.Store.Load()
	if err != nil {
		log.WarningToUser("Using default settings: %v", err)
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	ok, err := c.opts.IsRepository(rec.VaultPath)
	if err != nil {
		return errors.Wrapf(err, "check %s", rec.VaultPath)
	}
	if !ok {
		return errors.Wrap(errors.ErrNotGitRepository, rec.VaultPath)
	}

	if rec.PendingDeferral != 0 {
		log.Info("clearing pending deferral left by a previous run")
		if _, err := c.opts.Store.Update(func(r *config.Record) error {
			r.PendingDeferral = 0
			return nil
		}); err != nil {
			return err
		}
	}

	c.displayStartupInfo(rec)

	vault := rec.VaultPath
	if rec.PushOnStartup {
		if err := c.opts.Runner.Flush(ctx, vault, rec.CommitMessage); err != nil {
			log.WarningToUser("Startup push skipped: %v", err)
		} else {
			log.Success("Pushed local changes")
		}
	}
	if err := c.opts.Runner.Pull(ctx, vault); err != nil {
		log.WarningToUser("Pull failed: %v", err)
	} else {
		log.Success("Pulled from remote")
	}

	now := c.opts.Clock.Now()
	if _, err := c.opts.Store.Update(func(r *config.Record) error {
		r.LastCommitTime = now
		return nil
	}); err != nil {
		return err
	}

	source, err := c.opts.NewSource(vault, rec.HasExtension)
	if err != nil {
		return errors.Wrap(err, "watch vault")
	}

	// in-flight commits outlive a cancelled ctx until Stop has flushed
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	c.mu.Lock()
	c.started = true
	c.startTime = now
	c.vault = vault
	c.source = source
	c.cancel = cancel
	c.loopDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.opts.Coalescer.Run(runCtx, source.Events())
	}()

	return nil
}

// Stop unsubscribes from file events, cancels any pending deferred commit
// and flushes the whole tree with add, commit and push. The flush may take at
// most the configured shutdown grace; its failure is logged and returned but
// never retried. Stop is safe to call more than once.
func (c *Controller) Stop() error {
	c.stopOnce.Do(func() {
		c.stopErr = c.stop()
	})
	return c.stopErr
}

func (c *Controller) stop() error {
	log := c.opts.Logger

	c.mu.Lock()
	started, source, cancel, done := c.started, c.source, c.cancel, c.loopDone
	c.mu.Unlock()
	if !started {
		return nil
	}

	// cancelling runCtx kills whatever git the event loop or a deferred
	// commit is still running
	defer cancel()

	rec, err := c.opts.Store.Load()
	if err != nil {
		log.Warning("reading settings for shutdown: %v", err)
	}
	if rec.VaultPath == "" {
		rec.VaultPath = c.vault
	}
	grace := rec.ShutdownGrace.Duration
	if grace <= 0 {
		grace = config.DefaultShutdownGrace
	}

	ctx, cancelFlush := context.WithTimeout(context.Background(), grace)
	defer cancelFlush()

	if err := source.Close(); err != nil {
		log.Warning("closing watcher: %v", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		log.WarningToUser("Shutdown abandoned after %s: a commit was still running", grace)
		return errors.Wrapf(ctx.Err(), "waiting for the event loop exceeded %s", grace)
	}

	if c.opts.Timer.Stop() {
		log.Info("pending deferred commit superseded by the shutdown flush")
	}
	if _, err := c.opts.Store.Update(func(r *config.Record) error {
		r.PendingDeferral = 0
		return nil
	}); err != nil {
		log.Warning("clearing pending deferral: %v", err)
	}

	result := make(chan error, 1)
	go func() {
		// a deferred commit that already started finishes before the flush
		c.opts.Timer.Wait()
		result <- c.opts.Runner.Flush(ctx, rec.VaultPath, rec.CommitMessage)
	}()

	select {
	case err := <-result:
		if err != nil {
			log.WarningToUser("Shutdown flush failed: %v", err)
			return err
		}
		log.Success("Shutdown flush committed and pushed")
		return nil
	case <-ctx.Done():
		log.WarningToUser("Shutdown flush abandoned after %s", grace)
		return errors.Wrapf(ctx.Err(), "shutdown flush exceeded %s", grace)
	}
}

// Run starts the controller, blocks until ctx is done, then stops it.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	log := c.opts.Logger
	log.Info("Received cancellation signal, shutting down gracefully...")
	if err := c.Stop(); err != nil {
		log.Info("shutdown flush: %v", err)
	}
	return nil
}

func (c *Controller) displayStartupInfo(rec config.Record) {
	log := c.opts.Logger
	log.StatusMessage("🔄 vaultgit started at %s", c.opts.Clock.Now().Format("2006-01-02 15:04:05"))
	log.StatusMessage("📂 Vault: %s", rec.VaultPath)
	log.StatusMessage("💾 Save schema: %s (%s)", rec.SaveSchema, rec.SaveDepth)
	if rec.SaveSchema == config.MajorSave {
		log.StatusMessage("🔢 Major save threshold: %d", rec.MajorSaveThreshold)
	}
	log.StatusMessage("⏱️  Minimum commit interval: %s", rec.MinCommitInterval.Duration)
	log.StatusMessage("📝 Commit message: %s", rec.CommitMessage)
	log.StatusMessage("❓ Press Ctrl+C to stop and view session summary")
}

// PrintSummary prints the session counters.
func (c *Controller) PrintSummary() {
	c.mu.Lock()
	start, source := c.startTime, c.source
	c.mu.Unlock()

	duration := c.opts.Clock.Now().Sub(start)
	if start.IsZero() {
		duration = 0
	}
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	seconds := int(duration.Seconds()) % 60

	stats := c.opts.Coalescer.Stats()
	log := c.opts.Logger
	log.StatusMessage("")
	log.StatusMessage("---------------------------------------------")
	log.StatusMessage("📊 vaultgit Session Summary")
	log.StatusMessage("---------------------------------------------")
	log.StatusMessage("📥 Saves handled: %d", stats.Events)
	log.StatusMessage("✅ Immediate commits: %d", stats.ImmediateCommits)
	log.StatusMessage("⏳ Deferred commits: %d (requests %d, coalesced %d)",
		stats.DeferredCommits, stats.DeferredRequests, stats.SkippedRequests)
	if stats.CommitFailures > 0 || stats.StageFailures > 0 {
		log.StatusMessage("⚠️  Failures: %d commit, %d staging", stats.CommitFailures, stats.StageFailures)
	}
	if stats.Blocked > 0 {
		log.StatusMessage("🚫 Saves blocked by invalid settings: %d", stats.Blocked)
	}
	if source != nil {
		ws := source.Stats()
		log.StatusMessage("👀 Watched directories: %d (%d file events)", ws.WatchedDirs, ws.Events)
		if ws.Errors > 0 {
			log.StatusMessage("⚠️  Watcher errors: %d", ws.Errors)
		}
	}
	log.StatusMessage("⏱️  Session duration: %dh %dm %ds", hours, minutes, seconds)
	log.StatusMessage("---------------------------------------------")
}
