package lock

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chifiwang/obsidian-git-integration/internal/errors"
)

func newTestLocker(t *testing.T, dir string) *Locker {
	t.Helper()
	l, err := NewInDir("/vaults/notes", dir)
	require.NoError(t, err)
	return l
}

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	l := newTestLocker(t, dir)

	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire(), "acquiring twice is a no-op")

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())

	_, err = os.Stat(l.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSecondLockerIsRejected(t *testing.T) {
	dir := t.TempDir()
	first := newTestLocker(t, dir)
	second := newTestLocker(t, dir)

	require.NoError(t, first.Acquire())
	t.Cleanup(func() { _ = first.Release() })

	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAlreadyRunning))

	var lockErr *errors.LockError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, os.Getpid(), lockErr.PID)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestStaleLockFileIsReclaimed(t *testing.T) {
	tests := map[string]string{
		"DeadPID":   "999999",
		"Garbage":   "not-a-pid",
		"Empty":     "",
		"LongerPID": "12345678901234",
	}

	for name, content := range tests {
		content := content
		t.Run(name, func(t *testing.T) {
			l := newTestLocker(t, t.TempDir())
			require.NoError(t, os.WriteFile(l.Path(), []byte(content), 0o644))

			require.NoError(t, l.Acquire())
			t.Cleanup(func() { _ = l.Release() })

			data, err := os.ReadFile(l.Path())
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
		})
	}
}

func TestHolder(t *testing.T) {
	dir := t.TempDir()
	l := newTestLocker(t, dir)
	probe := newTestLocker(t, dir)

	_, held := probe.Holder()
	assert.False(t, held)

	require.NoError(t, l.Acquire())
	pid, held := probe.Holder()
	assert.True(t, held)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, l.Release())
	_, held = probe.Holder()
	assert.False(t, held)
}

func TestDistinctVaultsDoNotConflict(t *testing.T) {
	dir := t.TempDir()
	a, err := NewInDir("/vaults/a", dir)
	require.NoError(t, err)
	b, err := NewInDir("/vaults/b", dir)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path(), b.Path())
	require.NoError(t, a.Acquire())
	require.NoError(t, b.Acquire())
	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
}
