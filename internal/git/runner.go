package git

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
)

// Runner issues the git commands vaultgit needs. Arguments are always passed
// as a vector; nothing is ever interpreted by a shell.
type Runner struct {
	executor CommandExecutor
	logger   logger.Logger
}

// NewRunner creates a Runner backed by the real git binary.
func NewRunner(log logger.Logger) *Runner {
	return NewRunnerWithExecutor(NewExecExecutor(), log)
}

// NewRunnerWithExecutor creates a Runner with a custom executor.
func NewRunnerWithExecutor(executor CommandExecutor, log logger.Logger) *Runner {
	return &Runner{executor: executor, logger: log}
}

// Run executes `git -C dir args...` and logs its output.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (Result, error) {
	r.logger.Info("git -C %s %s", dir, strings.Join(args, " "))

	res, err := r.executor.Execute(ctx, dir, args)
	if out := strings.TrimSpace(res.Stdout); out != "" {
		r.logger.Info("git %s stdout: %s", subcommand(args), out)
	}
	if out := strings.TrimSpace(res.Stderr); out != "" {
		r.logger.Info("git %s stderr: %s", subcommand(args), out)
	}
	if err != nil {
		var execErr *errors.ExecError
		if !errors.As(err, &execErr) {
			err = errors.NewExecError(subcommand(args), args, -1, res.Stderr,
				errors.Wrap(errors.ErrGitOperationFailed, err.Error()))
		}
		return res, err
	}
	return res, nil
}

// Add stages pathspec, relative to dir.
func (r *Runner) Add(ctx context.Context, dir, pathspec string) error {
	_, err := r.Run(ctx, dir, "add", "--", pathspec)
	return err
}

// AddFile stages a single file, running git in the file's directory.
func (r *Runner) AddFile(ctx context.Context, vault, file string) error {
	rel := filepath.Clean(file)
	if filepath.IsAbs(file) {
		var err error
		if rel, err = filepath.Rel(vault, file); err != nil {
			return errors.Wrapf(err, "%s is not inside %s", file, vault)
		}
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.Errorf("%s is not inside %s", file, vault)
	}
	return r.Add(ctx, filepath.Join(vault, filepath.Dir(rel)), filepath.Base(rel))
}

// Commit records the index with message as a single argument.
func (r *Runner) Commit(ctx context.Context, dir, message string) error {
	_, err := r.Run(ctx, dir, "commit", "-m", message)
	return err
}

// Push pushes the current branch to its upstream.
func (r *Runner) Push(ctx context.Context, dir string) error {
	_, err := r.Run(ctx, dir, "push")
	return err
}

// Pull fetches and integrates the upstream branch.
func (r *Runner) Pull(ctx context.Context, dir string) error {
	_, err := r.Run(ctx, dir, "pull")
	return err
}

// CommitAndPush commits and, only if that succeeded, pushes.
func (r *Runner) CommitAndPush(ctx context.Context, dir, message string) error {
	if err := r.Commit(ctx, dir, message); err != nil {
		return err
	}
	return r.Push(ctx, dir)
}

// Flush stages the whole tree, commits and pushes, stopping at the first
// failure.
func (r *Runner) Flush(ctx context.Context, dir, message string) error {
	if err := r.Add(ctx, dir, "."); err != nil {
		return err
	}
	return r.CommitAndPush(ctx, dir, message)
}

// Exec runs an arbitrary git command line given as a vector.
func (r *Runner) Exec(ctx context.Context, dir string, args []string) (Result, error) {
	if len(args) == 0 {
		return Result{}, errors.New("no git arguments given")
	}
	return r.Run(ctx, dir, args...)
}
