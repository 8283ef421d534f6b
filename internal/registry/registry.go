package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bunnylol/bunnylol/internal/config"
	"github.com/bunnylol/bunnylol/internal/eventsink"
)

// pluginExt is the file extension recognized as a plugin candidate —
// goja runs ECMAScript, so plain ".js" files.
const pluginExt = ".js"

// DefaultContextPoolCap is the per-plugin execution-context pool cap
// (spec §5, default 4).
const DefaultContextPoolCap = 4

// DefaultCheckoutTimeout is how long Resolve waits for a free execution
// context before giving up (spec §5, default 100ms).
const DefaultCheckoutTimeout = 100 * time.Millisecond

// Registry discovers plugin scripts under the configured directories,
// loads them through the Script Host, and publishes an immutable
// RegistrySnapshot (spec §4.B). The zero value is not usable; build one
// with New.
type Registry struct {
	dirs            []string // in discovery precedence order
	timeout         time.Duration
	poolCap         int
	checkoutTimeout time.Duration
	sink            eventsink.Sink

	current atomic.Pointer[RegistrySnapshot]
	buildMu sync.Mutex // serializes concurrent Reload calls
}

// New builds a Registry from cfg but does not load anything yet — call
// Reload to perform the first build.
func New(cfg *config.Config, sink eventsink.Sink) *Registry {
	if sink == nil {
		sink = eventsink.Noop{}
	}
	timeout := time.Duration(cfg.PluginTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}

	dirs := []string{config.UserPluginDir(), config.SystemPluginDir()}
	dirs = append(dirs, cfg.PluginDirs...)

	return &Registry{
		dirs:            dirs,
		timeout:         timeout,
		poolCap:         DefaultContextPoolCap,
		checkoutTimeout: DefaultCheckoutTimeout,
		sink:            sink,
	}
}

// SetSink replaces the Registry's Event Sink. Safe to call before the
// first Reload; not safe to call concurrently with Reload.
func (r *Registry) SetSink(sink eventsink.Sink) {
	if sink == nil {
		sink = eventsink.Noop{}
	}
	r.sink = sink
}

// Snapshot returns the currently published snapshot, or nil if Reload has
// never succeeded.
func (r *Registry) Snapshot() *RegistrySnapshot {
	return r.current.Load()
}

// CheckoutTimeout returns how long a Plugin.Process call should wait for
// a free execution context before giving up.
func (r *Registry) CheckoutTimeout() time.Duration {
	return r.checkoutTimeout
}

// Resolve looks up binding (case-folded by the caller's Resolver) against
// the current snapshot.
func (r *Registry) Resolve(binding string) (*Plugin, bool) {
	snap := r.current.Load()
	if snap == nil {
		return nil, false
	}
	return snap.Resolve(binding)
}

// List returns the active plugins from the current snapshot.
func (r *Registry) List() []*Plugin {
	snap := r.current.Load()
	if snap == nil {
		return nil
	}
	return snap.List()
}

// Reload performs a complete rebuild from disk and, on success, publishes
// the new snapshot atomically (spec §4.B "Build protocol"). It never
// mutates the currently published snapshot in place; a build that fails
// catastrophically leaves it untouched.
func (r *Registry) Reload() error {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	candidates, hardErr := r.discoverCandidates()
	if len(candidates) == 0 && hardErr != nil {
		return fmt.Errorf("reload: %w", hardErr)
	}

	plugins := make([]*Plugin, 0, len(candidates))
	for _, path := range candidates {
		source, err := os.ReadFile(path)
		if err != nil {
			r.sink.PluginLoadError(eventsink.PluginLoadErrorEvent{Path: path, Err: err, At: time.Now()})
			continue
		}
		p, err := newPlugin(path, string(source), r.timeout, r.poolCap)
		if err != nil {
			r.sink.PluginLoadError(eventsink.PluginLoadErrorEvent{Path: path, Err: err, At: time.Now()})
			continue
		}
		plugins = append(plugins, p)
		r.sink.PluginLoaded(eventsink.PluginLoadedEvent{Path: path, Bindings: p.Bindings, At: time.Now()})
	}

	snapshot, shadows := buildSnapshot(plugins)
	for _, s := range shadows {
		r.sink.PluginShadowed(eventsink.PluginShadowedEvent{
			Binding:  s.Binding,
			Active:   s.Active,
			Shadowed: s.Shadowed,
			At:       time.Now(),
		})
	}

	r.current.Store(snapshot)
	return nil
}

// discoverCandidates enumerates plugin files across all configured
// directories, in discovery precedence order, and returns them sorted
// lexicographically by absolute path (spec §4.B step 1). A directory
// that doesn't exist is treated as empty, not an error — plugin
// directories are allowed to not exist yet. hardErr is non-nil when an
// existing directory, or a subdirectory under it, could not be read (e.g.
// permission denied); the files found in the readable parts are still
// returned, so hardErr does not by itself prevent a build from them.
func (r *Registry) discoverCandidates() ([]string, error) {
	var all []string
	var hardErr error

	for _, dir := range r.dirs {
		if dir == "" {
			continue
		}
		found, err := discoverDir(dir)
		if err != nil && !os.IsNotExist(err) {
			hardErr = fmt.Errorf("scan %s: %w", dir, err)
		}
		all = append(all, found...)
	}

	// Sorting the combined list by absolute path gives a single
	// deterministic order that also satisfies the "lexicographically
	// smaller source path wins" conflict rule (spec §8 testable
	// property 5) — distinct filesystem paths never literally tie, so
	// no further directory-precedence tie-break is needed on top of it.
	sort.Strings(all)
	return all, hardErr
}

// discoverDir recursively collects plugin candidate files under root,
// following symbolic links (spec §4.B "Symbolic links are followed"),
// guarding against symlink cycles via a visited-real-path set.
func discoverDir(root string) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	var out []string
	var subErr error // first unreadable subdirectory; the walk goes on past it
	visited := make(map[string]bool)

	var walk func(dir string) error
	walk = func(dir string) error {
		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return err
		}
		if visited[real] {
			return nil
		}
		visited[real] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			info, err := os.Stat(path) // follows symlinks
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := walk(path); err != nil && subErr == nil {
					subErr = err
				}
				continue
			}
			if !strings.EqualFold(filepath.Ext(path), pluginExt) {
				continue
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			out = append(out, abs)
		}
		return nil
	}

	if err := walk(root); err != nil {
		return nil, err
	}
	return out, subErr
}
