package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors that can be used with errors.Is() for error type checking
var (
	// ErrNotGitRepository indicates the vault path is not a git working tree
	ErrNotGitRepository = errors.New("not a git repository")

	// ErrLockAcquisitionFailure indicates a lock file could not be acquired
	ErrLockAcquisitionFailure = errors.New("failed to acquire lock")

	// ErrAlreadyRunning indicates another vaultgit daemon is running for this vault
	ErrAlreadyRunning = errors.New("another vaultgit instance is already running for this vault")

	// ErrGitOperationFailed indicates a git command returned an error
	ErrGitOperationFailed = errors.New("git operation failed")

	// ErrInvalidConfiguration indicates an invalid or conflicting user configuration.
	// It blocks scheduling but never crashes the process.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrConfigLoad indicates the persisted settings could not be read.
	// Callers recover by falling back to the defaults.
	ErrConfigLoad = errors.New("failed to load settings")

	// ErrInvalidFlag indicates a command-line flag could not be parsed
	ErrInvalidFlag = errors.New("invalid flag")
)

// New creates a new error with the given message.
// This is a convenience function that wraps errors.New.
func New(message string) error {
	return errors.New(message)
}

// Errorf creates a new formatted error.
// This is a convenience function that wraps fmt.Errorf.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
// This is a convenience function that wraps errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience function that wraps errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join combines errors. It wraps errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// ExecError represents a failed git invocation.
// It captures the subcommand, its arguments, the exit code (-1 when the
// process never started) and whatever the command wrote to stderr.
type ExecError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements the error interface with a detailed, user-friendly error message.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Command)
	if e.ExitCode >= 0 {
		msg = fmt.Sprintf("%s (exit %d)", msg, e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// NewExecError creates a new ExecError with the given parameters.
func NewExecError(command string, args []string, exitCode int, stderr string, err error) *ExecError {
	return &ExecError{
		Command:  command,
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      err,
	}
}

// LockError represents an error that occurred when interacting with file locks.
// It includes the lock file path, process ID if available, and underlying error.
type LockError struct {
	LockFile string
	PID      int
	Err      error
}

// Error implements the error interface with details about the lock file and process.
func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("lock error with file %s (PID: %d): %v", e.LockFile, e.PID, e.Err)
	}
	return fmt.Sprintf("lock error with file %s: %v", e.LockFile, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *LockError) Unwrap() error {
	return e.Err
}

// NewLockError creates a new LockError with the given parameters.
func NewLockError(lockFile string, pid int, err error) *LockError {
	return &LockError{
		LockFile: lockFile,
		PID:      pid,
		Err:      err,
	}
}

// ConfigError represents an invalid setting.
// It includes the parameter name, its value if available, and the underlying error.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

// Error implements the error interface with details about the invalid configuration.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("configuration error for %s = %v: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Parameter, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError with the given parameters.
func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Value:     value,
		Err:       err,
	}
}

// ConfigLoadError reports a settings file that exists but cannot be read or parsed.
type ConfigLoadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("failed to load settings from %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigLoadError match ErrConfigLoad.
func (e *ConfigLoadError) Is(target error) bool {
	return target == ErrConfigLoad
}

// NewConfigLoadError creates a new ConfigLoadError.
func NewConfigLoadError(path string, err error) *ConfigLoadError {
	return &ConfigLoadError{Path: path, Err: err}
}
