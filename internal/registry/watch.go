package registry

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (e.g. an editor's
// write-then-rename save) into a single reload, mirroring the teacher
// loader's debounce timer.
const watchDebounce = 500 * time.Millisecond

// Watcher triggers Registry.Reload in response to filesystem changes
// under the registry's plugin directories (spec §4.B is reload-on-demand
// only; this is the convenience layer described in the domain stack
// notes — it calls the same Reload, it doesn't bypass it).
type Watcher struct {
	reg    *Registry
	logger *slog.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

// NewWatcher builds a Watcher for reg. logger defaults to slog.Default().
func NewWatcher(reg *Registry, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{reg: reg, logger: logger, debounce: make(map[string]*time.Timer)}
}

// Start begins watching every configured plugin directory (and its
// subdirectories) for changes, reloading the registry after each
// debounced burst. It returns once the watcher is established; events
// are processed on a background goroutine until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, dir := range w.reg.dirs {
		if dir == "" {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			continue // directory may not exist yet; watched lazily isn't supported by fsnotify
		}
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			fsw.Add(path)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel

	w.logger.Info("plugin directory watch enabled", "dirs", w.reg.dirs)
	go w.loop(ctx)
	return nil
}

// Stop tears down the filesystem watch.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsw != nil {
		w.fsw.Close()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("plugin watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.EqualFold(filepath.Ext(event.Name), pluginExt) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.debounce[event.Name]; ok {
		timer.Stop()
	}
	w.debounce[event.Name] = time.AfterFunc(watchDebounce, func() {
		if err := w.reg.Reload(); err != nil {
			w.logger.Warn("reload after file change failed", "path", event.Name, "error", err)
		}
	})
}
