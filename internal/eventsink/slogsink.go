package eventsink

import "log/slog"

// SlogSink turns sink events into structured log lines. It's the default
// sink wired into cmd/bunnylol when run standalone — the spec keeps disk
// logging out of the core itself (see §1 Non-goals), but a CLI binary
// still needs somewhere to put diagnostics by default.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink builds a SlogSink, defaulting to slog.Default() when logger
// is nil (mirrors loader.NewLoader's nil-logger handling in the teacher).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

func (s *SlogSink) PluginLoaded(e PluginLoadedEvent) {
	s.Logger.Info("plugin loaded", "path", e.Path, "bindings", e.Bindings)
}

func (s *SlogSink) PluginLoadError(e PluginLoadErrorEvent) {
	s.Logger.Warn("plugin load error", "path", e.Path, "error", e.Err)
}

func (s *SlogSink) PluginShadowed(e PluginShadowedEvent) {
	s.Logger.Info("binding shadowed", "binding", e.Binding, "active", e.Active, "shadowed", e.Shadowed)
}

func (s *SlogSink) ResolveError(e ResolveErrorEvent) {
	s.Logger.Warn("resolve error", "query", e.Query, "kind", e.Err.Kind, "plugin", e.Err.PluginPath, "error", e.Err.Err)
}

func (s *SlogSink) RequestTraced(e RequestTracedEvent) {
	s.Logger.Debug("request traced",
		"request_id", e.RequestID,
		"query", e.Query,
		"binding", e.Binding,
		"outcome", e.Outcome,
		"location", e.Location,
		"duration_ms", e.DurationMS,
	)
}
