package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/vaultsite/internal/config"
)

func TestShouldIgnoreEvent(t *testing.T) {
	cases := map[string]bool{
		"/v/note.md":        false,
		"/v/img/pic.png":    false,
		"/v/.hidden.md":     true,
		"/v/note.md~":       true,
		"/v/.note.md.swp":   true,
		"/v/note.md.swx":    true,
		"/v/#note.md#":      true,
		"/v/Thumbs.db":      true,
		"/v/.obsidian/a.js": false,
	}
	for path, want := range cases {
		assert.Equal(t, want, shouldIgnoreEvent(path), path)
	}
}

func TestEventFilter(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Content = "/vault/content"
	cfg.Paths.Output = "/vault/public"
	cfg.Build.CacheFile = "/vault/content/cache.db"
	f := newEventFilter(cfg)

	assert.False(t, f.ignore("/vault/content/a.md"))
	assert.False(t, f.ignore("/vault/static/icon.png"))
	assert.True(t, f.ignore("/vault/public/a.html"))
	assert.True(t, f.ignore("/vault/content/cache.db-wal"))
	assert.True(t, f.ignore("/vault/content/private/secret.md"))
	assert.True(t, f.ignore("/vault/content/templates"))
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	for range 5 {
		d.trigger()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-d.C:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}
	select {
	case <-d.C:
		t.Fatal("burst produced more than one signal")
	case <-time.After(150 * time.Millisecond):
	}
}

// lockedBuffer is a bytes.Buffer safe for the watch goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatchRebuildsOnChange(t *testing.T) {
	cli := writeVault(t, testConfig, map[string]string{"a.md": "A.\n"})
	cfg, err := LoadConfig(cli)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := &lockedBuffer{}
	done := make(chan error, 1)
	go func() { done <- RunWatch(ctx, cfg, 20*time.Millisecond, out) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "documents=1")
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.Content, "b.md"), []byte("B.\n"), 0o644))
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.Paths.Output, "b.html"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
