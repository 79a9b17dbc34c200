package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap(t *testing.T) {
	originalErr := New("original error")
	wrappedErr := Wrap(originalErr, "wrapped message")

	if !Is(wrappedErr, originalErr) {
		t.Errorf("Expected wrapped error to match original, but it didn't")
	}

	expectedMsg := "wrapped message: original error"
	if wrappedErr.Error() != expectedMsg {
		t.Errorf("Expected message %q, got %q", expectedMsg, wrappedErr.Error())
	}
}

func TestWrapf(t *testing.T) {
	originalErr := New("original error")
	wrappedErr := Wrapf(originalErr, "wrapped message with %s", "format")

	if !Is(wrappedErr, originalErr) {
		t.Errorf("Expected wrapped error to match original, but it didn't")
	}

	expectedMsg := "wrapped message with format: original error"
	if wrappedErr.Error() != expectedMsg {
		t.Errorf("Expected message %q, got %q", expectedMsg, wrappedErr.Error())
	}
}

func TestExecError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ExecError
		expected string
	}{
		{
			name:     "exit code and stderr",
			err:      NewExecError("push", []string{"push"}, 128, "fatal: no upstream\n", ErrGitOperationFailed),
			expected: "git push failed (exit 128): fatal: no upstream: git operation failed",
		},
		{
			name:     "never started",
			err:      NewExecError("pull", nil, -1, "", ErrGitOperationFailed),
			expected: "git pull failed: git operation failed",
		},
		{
			name:     "no underlying error",
			err:      NewExecError("commit", nil, 1, "nothing to commit", nil),
			expected: "git commit failed (exit 1): nothing to commit",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Error() != tc.expected {
				t.Errorf("Expected message %q, got %q", tc.expected, tc.err.Error())
			}
		})
	}

	execErr := NewExecError("add", []string{"add", "."}, 1, "", ErrGitOperationFailed)
	if !errors.Is(execErr, ErrGitOperationFailed) {
		t.Errorf("Expected ExecError.Unwrap() to expose ErrGitOperationFailed")
	}
}

func TestLockError(t *testing.T) {
	err := errors.New("file not found")
	lockErr := NewLockError("/tmp/lock.file", 1234, err)

	expectedMsg := "lock error with file /tmp/lock.file (PID: 1234): file not found"
	if lockErr.Error() != expectedMsg {
		t.Errorf("Expected message %q, got %q", expectedMsg, lockErr.Error())
	}

	lockErr = NewLockError("/tmp/lock.file", 0, err)
	expectedMsg = "lock error with file /tmp/lock.file: file not found"
	if lockErr.Error() != expectedMsg {
		t.Errorf("Expected message %q, got %q", expectedMsg, lockErr.Error())
	}

	if !errors.Is(lockErr, err) {
		t.Errorf("Expected LockError.Unwrap() to return the original error")
	}
}

func TestConfigError(t *testing.T) {
	err := errors.New("invalid value")
	configErr := NewConfigError("major_save_threshold", 0, err)

	expectedMsg := "configuration error for major_save_threshold = 0: invalid value"
	if configErr.Error() != expectedMsg {
		t.Errorf("Expected message %q, got %q", expectedMsg, configErr.Error())
	}

	configErr = NewConfigError("vault_path", nil, err)
	expectedMsg = "configuration error for vault_path: invalid value"
	if configErr.Error() != expectedMsg {
		t.Errorf("Expected message %q, got %q", expectedMsg, configErr.Error())
	}

	if !errors.Is(configErr, err) {
		t.Errorf("Expected ConfigError.Unwrap() to return the original error")
	}
}

func TestConfigLoadError(t *testing.T) {
	cause := errors.New("toml: expected newline")
	loadErr := NewConfigLoadError("/tmp/vault.toml", cause)

	if !Is(loadErr, ErrConfigLoad) {
		t.Errorf("Expected ConfigLoadError to match ErrConfigLoad")
	}
	if !Is(loadErr, cause) {
		t.Errorf("Expected ConfigLoadError to unwrap to its cause")
	}
	if Is(loadErr, ErrInvalidConfiguration) {
		t.Errorf("ConfigLoadError must not match ErrInvalidConfiguration")
	}
}

func TestErrorMatching(t *testing.T) {
	execErr := NewExecError("status", nil, 128, "", ErrNotGitRepository)

	if !Is(execErr, ErrNotGitRepository) {
		t.Errorf("Expected execErr to match ErrNotGitRepository")
	}

	var ee *ExecError
	if !As(execErr, &ee) {
		t.Errorf("Expected execErr to match ExecError type")
	}

	wrappedErr := Wrap(execErr, "operation failed")

	if !Is(wrappedErr, ErrNotGitRepository) {
		t.Errorf("Expected wrappedErr to match ErrNotGitRepository")
	}

	if !As(wrappedErr, &ee) || ee.ExitCode != 128 {
		t.Errorf("Expected wrappedErr to match ExecError type with exit code 128")
	}
}

func ExampleWrap() {
	err := fmt.Errorf("original error")

	wrapped := Wrap(err, "context information")

	fmt.Println(wrapped)
	// Output: context information: original error
}

func ExampleNewExecError() {
	err := NewExecError("push", []string{"push"}, 1, "rejected", fmt.Errorf("exit status 1"))

	fmt.Println(err)
	// Output: git push failed (exit 1): rejected: exit status 1
}

func ExampleNewConfigError() {
	err := NewConfigError("major_save_threshold", -1, fmt.Errorf("must be at least 1"))

	fmt.Println(err)
	// Output: configuration error for major_save_threshold = -1: must be at least 1
}
