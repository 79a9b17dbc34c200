// Package git runs the version-control commands vaultgit issues.
//
// Every command is executed as `git -C <dir> <args...>` with the arguments
// passed as a vector, so commit messages and ad hoc arguments typed by the
// user reach git verbatim and are never seen by a shell.
//
// # Core Components
//
// - Runner: Add, Commit, Push, Pull, CommitAndPush, Flush and Exec on top
// of a CommandExecutor, logging what git printed
// - CommandExecutor: Interface for executing git; ExecExecutor uses os/exec
// and MockExecutor records calls for tests
// - UserInteractor: Interface for prompting the user for a line or a yes/no
// answer
// - IsRepository and Describe: read-only repository checks backed by go-git
//
// # Errors
//
// A failing command is reported as *errors.ExecError carrying the subcommand,
// its arguments, the exit code (-1 when git never ran) and captured stderr.
// It wraps errors.ErrGitOperationFailed.
//
// # Usage
//
//	r := git.NewRunner(log)
//	if err := r.Add(ctx, vault, "."); err != nil {
//		log.Warning("staging failed: %v", err)
//	}
//	if err := r.CommitAndPush(ctx, vault, "automated commit"); err != nil {
//		log.Warning("commit failed: %v", err)
//	}
package git
