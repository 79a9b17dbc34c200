package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

// Locker keeps a second daemon from scheduling commits on the same vault.
type Locker struct {
	lockFile string
	lockFd   *os.File
	pid      int
}

// New creates a Locker for the vault, with its lock file in the temp dir.
func New(vaultPath string) (*Locker, error) {
	return NewInDir(vaultPath, os.TempDir())
}

// NewInDir creates a Locker whose lock file lives in dir.
func NewInDir(vaultPath, dir string) (*Locker, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.NewLockError("", 0,
			errors.Wrap(errors.ErrLockAcquisitionFailure, "vaultgit only supports Unix-like operating systems"))
	}

	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(vaultPath)))[:16]
	return &Locker{
		lockFile: filepath.Join(dir, fmt.Sprintf("vaultgit-%s.lock", hash)),
		pid:      os.Getpid(),
	}, nil
}

// Path returns the lock file location.
func (l *Locker) Path() string {
	return l.lockFile
}

// Acquire takes the lock. A lock file left behind by a dead process is
// reclaimed; a live holder yields a LockError wrapping ErrAlreadyRunning.
func (l *Locker) Acquire() error {
	if l.lockFd != nil {
		return nil
	}

	f, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errors.NewLockError(l.lockFile, 0, errors.Wrap(err, "failed to open lock file"))
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		// EWOULDBLOCK and EAGAIN are the same on Linux but not everywhere
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			pid, _ := readPid(l.lockFile)
			return errors.NewLockError(l.lockFile, pid, errors.ErrAlreadyRunning)
		}
		return errors.NewLockError(l.lockFile, 0,
			errors.Wrap(errors.ErrLockAcquisitionFailure, err.Error()))
	}

	// previous contents belong to a process that no longer holds the flock
	if err := f.Truncate(0); err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		return errors.NewLockError(l.lockFile, l.pid, errors.Wrap(err, "failed to truncate lock file"))
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(l.pid)), 0); err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		return errors.NewLockError(l.lockFile, l.pid, errors.Wrap(err, "failed to write PID to lock file"))
	}

	l.lockFd = f
	return nil
}

// Release unlocks and removes the lock file. It is a no-op when the lock is
// not held.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}

	var err error
	if flockErr := unix.Flock(int(l.lockFd.Fd()), unix.LOCK_UN); flockErr != nil {
		err = errors.NewLockError(l.lockFile, l.pid, errors.Wrap(flockErr, "failed to release lock"))
	}

	if removeErr := os.Remove(l.lockFile); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = errors.NewLockError(l.lockFile, l.pid, errors.Wrap(removeErr, "failed to remove lock file"))
	}

	if closeErr := l.lockFd.Close(); closeErr != nil && err == nil {
		err = errors.NewLockError(l.lockFile, l.pid, errors.Wrap(closeErr, "failed to close lock file"))
	}
	l.lockFd = nil
	return err
}

// Holder reports the PID of the process holding the lock, if any. It never
// takes the lock itself.
func (l *Locker) Holder() (pid int, held bool) {
	f, err := os.Open(l.lockFile)
	if err != nil {
		return 0, false
	}
	defer func() { _ = f.Close() }()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH|unix.LOCK_NB); err == nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		return 0, false
	}

	pid, _ = readPid(l.lockFile)
	return pid, true
}

func readPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read lock file")
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID in lock file")
	}
	return pid, nil
}
