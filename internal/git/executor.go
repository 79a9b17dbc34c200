package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// Result holds what a git invocation wrote to its output streams.
type Result struct {
	Stdout string
	Stderr string
}

// CommandExecutor runs `git -C dir args...`.
type CommandExecutor interface {
	// Execute runs git in dir. A non-zero exit or a spawn failure is
	// returned as *errors.ExecError; the result carries whatever output
	// was captured either way.
	Execute(ctx context.Context, dir string, args []string) (Result, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct {
	// GitPath is the git binary. Defaults to "git" looked up on PATH.
	GitPath string

	// Env is appended to the inherited environment.
	Env []string
}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{GitPath: "git"}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(ctx context.Context, dir string, args []string) (Result, error) {
	gitPath := e.GitPath
	if gitPath == "" {
		gitPath = "git"
	}

	argv := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, gitPath, argv...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	cause := errors.Wrap(errors.ErrGitOperationFailed, err.Error())
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause = errors.Join(cause, ctxErr)
	}
	return res, errors.NewExecError(subcommand(args), args, exitCode, res.Stderr, cause)
}

func subcommand(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
