package hotreload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// settle drains notifications until none arrive for quiet. A single save can
// raise more than one event.
func settle(t *testing.T, w *Watcher, quiet time.Duration) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	last := time.Now()
	for time.Since(last) < quiet {
		require.True(t, time.Now().Before(deadline), "watcher never went quiet")
		if w.Changed() {
			last = time.Now()
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatcherFlagsManagedFileWrites(t *testing.T) {
	dir := t.TempDir()
	draw := filepath.Join(dir, "draw.frag")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(draw, []byte("a"), 0o644))

	w, err := NewWatcher(Paths{RoleAccumulate: draw}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	assert.False(t, w.Changed())

	require.NoError(t, os.WriteFile(other, []byte("b"), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, w.Changed(), "unmanaged files are ignored")

	require.NoError(t, os.WriteFile(draw, []byte("c"), 0o644))
	assert.Eventually(t, w.Changed, 2*time.Second, 10*time.Millisecond)

	settle(t, w, 100*time.Millisecond)
	assert.False(t, w.Changed(), "Changed clears the flag")
}

func TestWatcherSkipsEmptyPaths(t *testing.T) {
	draw := filepath.Join(t.TempDir(), "draw.frag")
	require.NoError(t, os.WriteFile(draw, []byte("a"), 0o644))

	w, err := NewWatcher(Paths{RoleAccumulate: draw}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	assert.Len(t, w.files, 1)
}
