package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/google/uuid"

	"github.com/Chifiwang/obsidian-git-integration/internal/clock"
	"github.com/Chifiwang/obsidian-git-integration/internal/coalescer"
	"github.com/Chifiwang/obsidian-git-integration/internal/config"
	"github.com/Chifiwang/obsidian-git-integration/internal/deferral"
	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
	"github.com/Chifiwang/obsidian-git-integration/internal/git"
	"github.com/Chifiwang/obsidian-git-integration/internal/lifecycle"
	"github.com/Chifiwang/obsidian-git-integration/internal/lock"
	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
)

// Daemon is the long-running save watcher.
type Daemon interface {
	PrintSummary()
	Run(ctx context.Context) error
}

// Locker manages the per-vault daemon lock
type Locker interface {
	Acquire() error
	Release() error
	Holder() (pid int, held bool)
}

// AppOptions contains app settings and dependencies.
// Nil dependencies are built by Initialize from the settings.
type AppOptions struct {
	// Settings is required. NewApp panics if it is nil.
	Settings *config.Settings

	Logger     logger.Logger
	Locker     Locker
	Store      *config.Store
	Executor   git.CommandExecutor
	Interactor git.UserInteractor

	// NewDaemon builds the daemon for the run command.
	NewDaemon func(a *App) Daemon

	// I/O dependencies
	Stdout io.Writer
	Stderr io.Writer

	// System dependencies
	ExecLookPath func(file string) (string, error)
	IsRepository func(string) (bool, error)
	Describe     func(string) (git.RepoInfo, error)
}

// App is the vaultgit application shared by every subcommand.
type App struct {
	Settings   *config.Settings
	Logger     logger.Logger
	Locker     Locker
	Store      *config.Store
	Runner     *git.Runner
	Interactor git.UserInteractor
	Daemon     Daemon

	// I/O streams
	Stdout io.Writer
	Stderr io.Writer

	executor     git.CommandExecutor
	newDaemon    func(a *App) Daemon
	execLookPath func(file string) (string, error)
	isRepository func(string) (bool, error)
	describe     func(string) (git.RepoInfo, error)

	initialized bool
	locked      bool
	closeLog    func() error
}

// NewDefaultApp creates an App with standard dependencies
func NewDefaultApp(versionInfo config.VersionInfo) *App {
	settings := config.NewSettings()
	settings.VersionInfo = versionInfo
	settings.LoadFromEnvironment()

	return NewApp(AppOptions{
		Settings: settings,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	})
}

// NewApp creates an App with custom dependencies
func NewApp(opts AppOptions) *App {
	if opts.Settings == nil {
		panic("Settings is required in AppOptions")
	}

	app := &App{
		Settings:     opts.Settings,
		Logger:       opts.Logger,
		Locker:       opts.Locker,
		Store:        opts.Store,
		Interactor:   opts.Interactor,
		Stdout:       opts.Stdout,
		Stderr:       opts.Stderr,
		executor:     opts.Executor,
		newDaemon:    opts.NewDaemon,
		execLookPath: opts.ExecLookPath,
		isRepository: opts.IsRepository,
		describe:     opts.Describe,
	}

	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.execLookPath == nil {
		app.execLookPath = exec.LookPath
	}
	if app.isRepository == nil {
		app.isRepository = git.IsRepository
	}
	if app.describe == nil {
		app.describe = git.Describe
	}
	if app.newDaemon == nil {
		app.newDaemon = newLifecycleDaemon
	}

	return app
}

// Initialize resolves the settings and builds every component that was not
// injected. It also points the record at the resolved vault. Calling it
// again is a no-op.
func (a *App) Initialize() error {
	if a.initialized {
		return nil
	}

	if err := a.Settings.Finalize(); err != nil {
		if errors.Is(err, errors.ErrInvalidConfiguration) {
			return err
		}
		return errors.Wrap(errors.ErrInvalidConfiguration, err.Error())
	}

	if a.Logger == nil {
		l := logger.New(a.Settings.Debug, a.Settings.LogFile, a.Settings.Verbose)
		l.SetStdout(a.Stdout)
		l.SetStderr(a.Stderr)
		a.Logger = l.With("session", uuid.NewString())
		a.closeLog = l.Close
	}

	if a.Store == nil {
		a.Store = config.NewStore(a.Settings.ConfigFile)
	}

	if a.Locker == nil {
		locker, err := lock.New(a.Settings.VaultPath)
		if err != nil {
			return errors.Wrap(err, "failed to initialize lock")
		}
		a.Locker = locker
	}

	if a.executor == nil {
		a.executor = git.NewExecExecutor()
	}
	a.Runner = git.NewRunnerWithExecutor(a.executor, a.Logger)

	if a.Interactor == nil {
		a.Interactor = git.NewInteractor(a.Settings.NonInteractive, a.Logger)
	}

	if err := a.bindVault(); err != nil {
		return err
	}

	a.initialized = true
	return nil
}

// bindVault stores the resolved vault path in the record when it differs.
func (a *App) bindVault() error {
	vault := a.Settings.VaultPath
	_, err := a.Store.Update(func(r *config.Record) error {
		if r.VaultPath != vault {
			a.Logger.Info("binding settings %s to vault %s", a.Store.Path(), vault)
			r.VaultPath = vault
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to record vault path")
	}
	return nil
}

// RunDaemon verifies the vault, takes the daemon lock and runs the save
// watcher until ctx is cancelled.
func (a *App) RunDaemon(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	if err := a.checkRequiredCommands(); err != nil {
		_, _ = fmt.Fprintf(a.Stderr, "❌ Error: %v. Please install it and try again.\n", err)
		return err
	}

	isRepo, err := a.isRepository(a.Settings.VaultPath)
	if err != nil {
		a.Logger.Warning("Failed to check if path is a git repository: %v", err)
		return errors.Wrap(errors.ErrGitOperationFailed, err.Error())
	}
	if !isRepo {
		return errors.Wrap(errors.ErrNotGitRepository, a.Settings.VaultPath)
	}
	a.Logger.Info("Git repository verified")

	if err := a.Locker.Acquire(); err != nil {
		if errors.Is(err, errors.ErrAlreadyRunning) {
			return err
		}
		return errors.Wrap(errors.ErrLockAcquisitionFailure, err.Error())
	}
	a.locked = true

	if a.Daemon == nil {
		a.Daemon = a.newDaemon(a)
	}
	if err := a.Daemon.Run(ctx); err != nil {
		return err
	}
	a.Daemon.PrintSummary()
	return nil
}

// newLifecycleDaemon wires the scheduler for a real session.
func newLifecycleDaemon(a *App) Daemon {
	runner := a.Runner
	if ee, ok := a.executor.(*git.ExecExecutor); ok {
		// nobody is at the terminal to answer a credential prompt
		daemonExec := *ee
		daemonExec.Env = append(append([]string(nil), ee.Env...), "GIT_TERMINAL_PROMPT=0")
		runner = git.NewRunnerWithExecutor(&daemonExec, a.Logger)
	}

	clk := clock.New()
	timer := deferral.New(clk)
	co := coalescer.New(coalescer.Options{
		Store:  a.Store,
		Runner: runner,
		Timer:  timer,
		Clock:  clk,
		Logger: a.Logger,
	})
	return lifecycle.New(lifecycle.Options{
		Store:        a.Store,
		Runner:       runner,
		Timer:        timer,
		Coalescer:    co,
		Clock:        clk,
		Logger:       a.Logger,
		IsRepository: a.isRepository,
	})
}

// ShowVersion displays version information
func (a *App) ShowVersion() {
	_, _ = fmt.Fprintf(a.Stdout, "vaultgit %s (%s) built on %s\n",
		a.Settings.VersionInfo.Version,
		a.Settings.VersionInfo.Commit,
		a.Settings.VersionInfo.Date)
}

// checkRequiredCommands verifies git is available in PATH
func (a *App) checkRequiredCommands() error {
	if _, err := a.execLookPath("git"); err != nil {
		return fmt.Errorf("git is not found in PATH")
	}
	return nil
}

// Close releases the daemon lock and the log file.
func (a *App) Close() error {
	var errs []error

	if a.locked && a.Locker != nil {
		if err := a.Locker.Release(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Failed to release lock during cleanup: %v", err)
			} else {
				_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to release lock during cleanup: %v\n", err)
			}
			errs = append(errs, err)
		}
		a.locked = false
	}

	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			_, _ = fmt.Fprintf(a.Stderr, "❌ Failed to close logger: %v\n", err)
			errs = append(errs, err)
		}
		a.closeLog = nil
	}

	return errors.Join(errs...)
}
