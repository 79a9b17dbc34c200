package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 30 * time.Millisecond

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()

	w, err := New(Options{
		Root:     root,
		Debounce: testDebounce,
		Filter:   func(p string) bool { return strings.HasSuffix(p, ".md") },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func expectQuiet(t *testing.T, w *Watcher, d time.Duration) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(d):
	}
}

func TestReportsWrites(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	path := filepath.Join(root, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.False(t, ev.Time.IsZero())
}

func TestFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte("x"), 0o644))
	expectQuiet(t, w, 10*testDebounce)
}

func TestSkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".obsidian"), 0o755))

	w := newTestWatcher(t, root)
	assert.Equal(t, 1, w.Stats().WatchedDirs)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".obsidian", "workspace.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".swap.md"), []byte("x"), 0o644))
	expectQuiet(t, w, 10*testDebounce)
}

func TestCoalescesBursts(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	path := filepath.Join(root, "burst.md")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o644))
	}

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
	expectQuiet(t, w, 10*testDebounce)
	assert.Equal(t, int64(1), w.Stats().Events)
}

func TestWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.Eventually(t, func() bool { return w.Stats().WatchedDirs == 3 }, 3*time.Second, 10*time.Millisecond)

	path := filepath.Join(sub, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	ev := nextEvent(t, w)
	assert.Equal(t, path, ev.Path)
}

func TestCloseClosesEvents(t *testing.T) {
	w, err := New(Options{Root: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestNewRejectsMissingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.md")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Options{Root: file})
	assert.Error(t, err)
}
