// Package eventsink defines the narrow pushable interface the core writes
// to. The core never reads events back — external collaborators (the
// menu-bar shell, a log file, a metrics exporter) decide what to do with
// them. This mirrors how GoatFlow's plugin.Manager never persists its own
// audit trail; it just calls out to whatever was wired in at startup.
package eventsink

import (
	"time"

	"github.com/bunnylol/bunnylol/internal/resolveerr"
)

// PluginLoadedEvent fires once a plugin is successfully loaded and its
// metadata parsed.
type PluginLoadedEvent struct {
	Path     string
	Bindings []string
	At       time.Time
}

// PluginLoadErrorEvent fires when a candidate script fails to load or
// fails info() validation. The plugin is skipped, not fatal to the build.
type PluginLoadErrorEvent struct {
	Path string
	Err  error
	At   time.Time
}

// PluginShadowedEvent fires when more than one plugin claims the same
// binding. Active is the plugin path that wins; Shadowed lists the rest
// in the same order they were discovered.
type PluginShadowedEvent struct {
	Binding  string
	Active   string
	Shadowed []string
	At       time.Time
}

// ResolveErrorEvent fires when a plugin invocation fails during
// resolution (load/info/process/timeout/bad_output). The Resolver always
// takes the fallback after emitting this.
type ResolveErrorEvent struct {
	Query string
	Err   *resolveerr.Error
	At    time.Time
}

// RequestTracedEvent fires once per HTTP request handled, after a
// response has been decided.
type RequestTracedEvent struct {
	RequestID  string
	Query      string
	Binding    string
	Outcome    string // "redirect", "index", "fallback", "bad_request"
	Location   string
	DurationMS int64
	At         time.Time
}

// Sink is the interface external collaborators implement to observe the
// core. All methods must return promptly; sinks that need to do I/O
// should buffer or dispatch asynchronously themselves.
type Sink interface {
	PluginLoaded(PluginLoadedEvent)
	PluginLoadError(PluginLoadErrorEvent)
	PluginShadowed(PluginShadowedEvent)
	ResolveError(ResolveErrorEvent)
	RequestTraced(RequestTracedEvent)
}

// Multi fans a single call out to every wired sink. Used to combine, e.g.,
// a slog sink with a Prometheus sink.
type Multi []Sink

func (m Multi) PluginLoaded(e PluginLoadedEvent) {
	for _, s := range m {
		s.PluginLoaded(e)
	}
}

func (m Multi) PluginLoadError(e PluginLoadErrorEvent) {
	for _, s := range m {
		s.PluginLoadError(e)
	}
}

func (m Multi) PluginShadowed(e PluginShadowedEvent) {
	for _, s := range m {
		s.PluginShadowed(e)
	}
}

func (m Multi) ResolveError(e ResolveErrorEvent) {
	for _, s := range m {
		s.ResolveError(e)
	}
}

func (m Multi) RequestTraced(e RequestTracedEvent) {
	for _, s := range m {
		s.RequestTraced(e)
	}
}

// Noop discards every event. Useful as a default in tests.
type Noop struct{}

func (Noop) PluginLoaded(PluginLoadedEvent)       {}
func (Noop) PluginLoadError(PluginLoadErrorEvent) {}
func (Noop) PluginShadowed(PluginShadowedEvent)   {}
func (Noop) ResolveError(ResolveErrorEvent)       {}
func (Noop) RequestTraced(RequestTracedEvent)     {}
