package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
	"github.com/Chifiwang/obsidian-git-integration/internal/logger"
)

var testIdentity = []string{
	"GIT_AUTHOR_NAME=Test User",
	"GIT_AUTHOR_EMAIL=test@example.com",
	"GIT_COMMITTER_NAME=Test User",
	"GIT_COMMITTER_EMAIL=test@example.com",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_GLOBAL=/dev/null",
}

// setupTestRepo initializes an empty repository with go-git.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func TestRunnerPassesArgumentVectors(t *testing.T) {
	mock := NewMockExecutor()
	r := NewRunnerWithExecutor(mock, logger.Nop())
	ctx := context.Background()

	msg := `fix "quotes"; rm -rf / && echo $HOME`
	require.NoError(t, r.Add(ctx, "/vault", "."))
	require.NoError(t, r.Commit(ctx, "/vault", msg))
	require.NoError(t, r.Push(ctx, "/vault"))
	require.NoError(t, r.Pull(ctx, "/vault"))

	calls := mock.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, Call{Dir: "/vault", Args: []string{"add", "--", "."}}, calls[0])
	assert.Equal(t, Call{Dir: "/vault", Args: []string{"commit", "-m", msg}}, calls[1])
	assert.Equal(t, []string{"push"}, calls[2].Args)
	assert.Equal(t, []string{"pull"}, calls[3].Args)
}

func TestAddFileRunsInFileDirectory(t *testing.T) {
	mock := NewMockExecutor()
	r := NewRunnerWithExecutor(mock, logger.Nop())

	require.NoError(t, r.AddFile(context.Background(), "/vault", "a/b/notes.md"))
	require.NoError(t, r.AddFile(context.Background(), "/vault", "/vault/top.md"))

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, filepath.Join("/vault", "a", "b"), calls[0].Dir)
	assert.Equal(t, []string{"add", "--", "notes.md"}, calls[0].Args)
	assert.Equal(t, "/vault", calls[1].Dir)
	assert.Equal(t, []string{"add", "--", "top.md"}, calls[1].Args)
}

func TestAddFileRejectsPathsOutsideVault(t *testing.T) {
	mock := NewMockExecutor()
	r := NewRunnerWithExecutor(mock, logger.Nop())

	for _, file := range []string{"/elsewhere/x.md", "../x.md", "a/../../x.md"} {
		err := r.AddFile(context.Background(), "/vault", file)
		require.Error(t, err, file)
		assert.Contains(t, err.Error(), "is not inside /vault")
	}
	assert.Empty(t, mock.Calls(), "git must not run outside the vault")
}

func TestCommitAndPushSkipsPushWhenCommitFails(t *testing.T) {
	mock := NewMockExecutor()
	mock.ExecuteFn = FailSubcommands(1, "commit")
	r := NewRunnerWithExecutor(mock, logger.Nop())

	err := r.CommitAndPush(context.Background(), "/vault", "msg")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGitOperationFailed))

	var execErr *errors.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "commit", execErr.Command)
	assert.Equal(t, 1, execErr.ExitCode)
	assert.Contains(t, execErr.Stderr, "simulated commit failure")

	assert.Equal(t, []string{"commit"}, mock.Subcommands())
}

func TestFlushStopsAtFirstFailure(t *testing.T) {
	mock := NewMockExecutor()
	mock.ExecuteFn = FailSubcommands(128, "add")
	r := NewRunnerWithExecutor(mock, logger.Nop())

	require.Error(t, r.Flush(context.Background(), "/vault", "msg"))
	assert.Equal(t, []string{"add"}, mock.Subcommands())

	mock.Reset()
	mock.ExecuteFn = nil
	require.NoError(t, r.Flush(context.Background(), "/vault", "msg"))
	assert.Equal(t, []string{"add", "commit", "push"}, mock.Subcommands())
}

func TestExecRequiresArguments(t *testing.T) {
	r := NewRunnerWithExecutor(NewMockExecutor(), logger.Nop())

	_, err := r.Exec(context.Background(), "/vault", nil)
	assert.Error(t, err)
}

func TestRunnerWrapsForeignErrors(t *testing.T) {
	mock := NewMockExecutor()
	mock.ExecuteFn = func(context.Context, string, []string) (Result, error) {
		return Result{}, errors.New("boom")
	}
	r := NewRunnerWithExecutor(mock, logger.Nop())

	_, err := r.Run(context.Background(), "/vault", "status")
	var execErr *errors.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, -1, execErr.ExitCode)
	assert.True(t, errors.Is(err, errors.ErrGitOperationFailed))
}

func TestExecExecutorAgainstRealGit(t *testing.T) {
	requireGit(t)

	repo := setupTestRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "a", "b", "notes.md"), []byte("# notes\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "other.md"), []byte("other\n"), 0o644))

	exe := &ExecExecutor{GitPath: "git", Env: testIdentity}
	r := NewRunnerWithExecutor(exe, logger.Nop())
	ctx := context.Background()

	require.NoError(t, r.AddFile(ctx, repo, "a/b/notes.md"))

	res, err := r.Run(ctx, repo, "diff", "--cached", "--name-only")
	require.NoError(t, err)
	assert.Equal(t, "a/b/notes.md", strings.TrimSpace(res.Stdout))

	msg := `it's "quoted"; echo pwned`
	require.NoError(t, r.Commit(ctx, repo, msg))

	res, err = r.Run(ctx, repo, "log", "-1", "--format=%s")
	require.NoError(t, err)
	assert.Equal(t, msg, strings.TrimSpace(res.Stdout))

	// nothing staged
	err = r.Commit(ctx, repo, "again")
	var execErr *errors.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "commit", execErr.Command)
	assert.Equal(t, 1, execErr.ExitCode)

	// no remote configured
	err = r.Push(ctx, repo)
	require.Error(t, err)
	require.True(t, errors.As(err, &execErr))
	assert.NotEmpty(t, execErr.Stderr)
}

func TestExecExecutorSpawnFailure(t *testing.T) {
	exe := &ExecExecutor{GitPath: filepath.Join(t.TempDir(), "no-such-git")}

	_, err := exe.Execute(context.Background(), t.TempDir(), []string{"status"})
	var execErr *errors.ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, -1, execErr.ExitCode)
	assert.Equal(t, "status", execErr.Command)
}

func TestExecExecutorHonoursContext(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep binary not available")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-git")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 5\n"), 0o755))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := (&ExecExecutor{GitPath: script}).Execute(ctx, dir, []string{"push"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestIsRepository(t *testing.T) {
	repo := setupTestRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "sub"), 0o755))

	ok, err := IsRepository(repo)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsRepository(filepath.Join(repo, "sub"))
	require.NoError(t, err)
	assert.True(t, ok, "subdirectories of a working tree are accepted")

	ok, err = IsRepository(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)

	bare := t.TempDir()
	_, err = gogit.PlainInit(bare, true)
	require.NoError(t, err)
	ok, err = IsRepository(bare)
	require.NoError(t, err)
	assert.False(t, ok, "bare repositories have no working tree")
}

func TestDescribe(t *testing.T) {
	repo := setupTestRepo(t)

	info, err := Describe(repo)
	require.NoError(t, err)
	assert.Empty(t, info.Head, "unborn HEAD")
	assert.True(t, info.Clean)

	require.NoError(t, os.WriteFile(filepath.Join(repo, "notes.md"), []byte("x"), 0o644))
	info, err = Describe(repo)
	require.NoError(t, err)
	assert.False(t, info.Clean)

	_, err = Describe(t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrNotGitRepository))
}
