package git

import (
	"context"
	"strings"
	"sync"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// Call records one invocation seen by MockExecutor.
type Call struct {
	Dir  string
	Args []string
}

// Subcommand returns the git subcommand of the call.
func (c Call) Subcommand() string {
	return subcommand(c.Args)
}

func (c Call) String() string {
	return c.Dir + ": git " + strings.Join(c.Args, " ")
}

// MockExecutor is a CommandExecutor for tests. It records every call and
// answers through ExecuteFn, or succeeds with empty output when ExecuteFn
// is nil. Safe for concurrent use.
type MockExecutor struct {
	mu    sync.Mutex
	calls []Call

	// ExecuteFn customizes the result of each call.
	ExecuteFn func(ctx context.Context, dir string, args []string) (Result, error)
}

// NewMockExecutor creates a MockExecutor where every command succeeds.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// Execute implements CommandExecutor.
func (m *MockExecutor) Execute(ctx context.Context, dir string, args []string) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Dir: dir, Args: append([]string(nil), args...)})
	fn := m.ExecuteFn
	m.mu.Unlock()

	if fn == nil {
		return Result{}, nil
	}
	return fn(ctx, dir, args)
}

// Calls returns a copy of the recorded calls in order.
func (m *MockExecutor) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsFor returns the recorded calls whose subcommand is sub.
func (m *MockExecutor) CallsFor(sub string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Subcommand() == sub {
			out = append(out, c)
		}
	}
	return out
}

// Subcommands returns the subcommand of every recorded call, in order.
func (m *MockExecutor) Subcommands() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Subcommand()
	}
	return out
}

// Reset forgets all recorded calls.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// FailSubcommands returns an ExecuteFn that fails the named subcommands with
// the given exit code and succeeds everything else.
func FailSubcommands(exitCode int, subs ...string) func(context.Context, string, []string) (Result, error) {
	return func(_ context.Context, _ string, args []string) (Result, error) {
		for _, s := range subs {
			if subcommand(args) == s {
				stderr := "fatal: simulated " + s + " failure"
				return Result{Stderr: stderr}, errors.NewExecError(s, args, exitCode, stderr, errors.ErrGitOperationFailed)
			}
		}
		return Result{}, nil
	}
}
