package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/vaultsite/internal/build"
	"git.home.luguber.info/inful/vaultsite/internal/config"
	"git.home.luguber.info/inful/vaultsite/internal/discovery"
	ferrors "git.home.luguber.info/inful/vaultsite/internal/foundation/errors"
	"git.home.luguber.info/inful/vaultsite/internal/logfields"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period after the last change before rebuilding" default:"300ms"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	return RunWatch(ctx, cfg, w.Debounce, os.Stdout)
}

// RunWatch builds once, then rebuilds after every burst of changes in the
// content or static directory until ctx is canceled. Failed rebuilds are
// logged and the previous output stays in place.
func RunWatch(ctx context.Context, cfg *config.Config, debounce time.Duration, out io.Writer) error {
	builder := NewBuilder(cfg)
	defer builder.Close()

	rebuild := func() {
		report, err := builder.Run(ctx, cfg, build.BuildOptions{})
		if report != nil {
			_, _ = fmt.Fprintln(out, report.Summary())
		}
		if err != nil && ctx.Err() == nil {
			slog.Error("Rebuild failed", logfields.Error(err))
		}
	}

	watcher, err := setupFileWatcher(cfg)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to watch vault").Fatal().Build()
	}
	defer func() { _ = watcher.Close() }()

	rebuild()

	deb := newDebouncer(debounce)
	defer deb.stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-deb.C:
				rebuild()
			}
		}
	}()

	filter := newEventFilter(cfg)
	slog.Info("Watching for changes", logfields.Path(cfg.Paths.Content), slog.Duration("debounce", debounce))
	err = runWatchLoop(ctx, watcher, filter, deb.trigger)
	wg.Wait()
	return err
}

func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, filter *eventFilter, trigger func()) error {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watch")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			handleFileEvent(watcher, filter, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}

func setupFileWatcher(cfg *config.Config) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := addDirsRecursive(watcher, cfg.Paths.Content, cfg.Paths.Output); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if cfg.Paths.Static != "" {
		if fi, err := os.Stat(cfg.Paths.Static); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, cfg.Paths.Static, cfg.Paths.Output)
		}
	}
	return watcher, nil
}

// handleFileEvent triggers a rebuild for relevant events and starts watching
// newly created directories.
func handleFileEvent(watcher *fsnotify.Watcher, filter *eventFilter, ev fsnotify.Event, trigger func()) {
	if filter.ignore(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name, filter.output)
		}
	}
	slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
	trigger()
}

// addDirsRecursive watches root and every directory below it, except hidden
// directories and skip.
func addDirsRecursive(w *fsnotify.Watcher, root, skip string) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || path == skip) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("watch add failed", "dir", path, "error", err)
		}
		return nil
	})
}

// eventFilter drops events that cannot change the site or that the build
// itself causes.
type eventFilter struct {
	content string
	output  string
	owned   []string
	vault   *discovery.Discovery
}

func newEventFilter(cfg *config.Config) *eventFilter {
	f := &eventFilter{
		content: cfg.Paths.Content,
		output:  cfg.Paths.Output,
		vault:   discovery.New(cfg.Paths.Content, cfg.Site.IgnorePatterns),
	}
	for _, p := range []string{cfg.Build.CacheFile, cfg.Build.ReportFile, cfg.Metrics.Textfile} {
		if p != "" {
			f.owned = append(f.owned, p)
		}
	}
	return f
}

func (f *eventFilter) ignore(path string) bool {
	if shouldIgnoreEvent(path) {
		return true
	}
	if within(f.output, path) {
		return true
	}
	for _, p := range f.owned {
		// Covers sqlite -wal, -shm and -journal siblings.
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	if within(f.content, path) {
		rel, err := filepath.Rel(f.content, path)
		if err == nil && rel != "." && f.vault.Ignored(filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

func within(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && filepath.IsLocal(rel)
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Ignore hidden files
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Ignore editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}

// debouncer coalesces bursts of triggers into one signal on C, sent after
// delay has passed without another trigger. C holds at most one pending
// signal, so changes during a rebuild cause exactly one more rebuild.
type debouncer struct {
	mu    sync.Mutex
	timer *time.Timer
	delay time.Duration
	C     chan struct{}
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, C: make(chan struct{}, 1)}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		select {
		case d.C <- struct{}{}:
		default:
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
