package eventsink

import "github.com/prometheus/client_golang/prometheus"

// MetricsSink is a concrete Event Sink implementation backed by
// Prometheus counters. The spec's Event Sink (§4.F) is deliberately just
// an interface external collaborators subscribe to; this is one such
// collaborator shipped in the box, exposed at GET /metrics.
type MetricsSink struct {
	pluginsLoaded    prometheus.Counter
	pluginLoadErrors prometheus.Counter
	pluginShadows    prometheus.Counter
	resolveErrors    *prometheus.CounterVec
	requests         *prometheus.CounterVec
}

// NewMetricsSink registers its collectors against reg and returns the sink.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	m := &MetricsSink{
		pluginsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bunnylol",
			Name:      "plugins_loaded_total",
			Help:      "Plugins successfully loaded, summed over all registry builds.",
		}),
		pluginLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bunnylol",
			Name:      "plugin_load_errors_total",
			Help:      "Plugin candidates that failed to load or validate.",
		}),
		pluginShadows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bunnylol",
			Name:      "plugin_bindings_shadowed_total",
			Help:      "Bindings found claimed by more than one plugin, summed over all registry builds.",
		}),
		resolveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bunnylol",
			Name:      "resolve_errors_total",
			Help:      "Resolution errors by kind, before fallback is taken.",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bunnylol",
			Name:      "requests_total",
			Help:      "HTTP requests handled by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.pluginsLoaded, m.pluginLoadErrors, m.pluginShadows, m.resolveErrors, m.requests)
	return m
}

func (m *MetricsSink) PluginLoaded(PluginLoadedEvent) { m.pluginsLoaded.Inc() }

func (m *MetricsSink) PluginLoadError(PluginLoadErrorEvent) { m.pluginLoadErrors.Inc() }

func (m *MetricsSink) PluginShadowed(PluginShadowedEvent) { m.pluginShadows.Inc() }

func (m *MetricsSink) ResolveError(e ResolveErrorEvent) {
	m.resolveErrors.WithLabelValues(string(e.Err.Kind)).Inc()
}

func (m *MetricsSink) RequestTraced(e RequestTracedEvent) {
	m.requests.WithLabelValues(e.Outcome).Inc()
}
