// Package httpd is the HTTP Frontend (spec §4.D): a loopback-only gin
// server exposing the redirect endpoint, the bindings index, reload,
// health, and metrics routes.
package httpd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bunnylol/bunnylol/internal/eventsink"
	"github.com/bunnylol/bunnylol/internal/registry"
	"github.com/bunnylol/bunnylol/internal/resolver"
)

// Resolver is the subset of *resolver.Resolver the Server depends on.
type Resolver interface {
	Resolve(rawQuery string) resolver.Result
}

// Registry is the subset of *registry.Registry the bindings index needs.
type Registry interface {
	List() []*registry.Plugin
}

// Server wraps a *gin.Engine configured per spec §4.D.
type Server struct {
	engine   *gin.Engine
	resolver Resolver
	reg      Registry
	sink     eventsink.Sink
	logger   *slog.Logger
	reload   func() error
	ready    func() bool
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetricsGatherer points GET /metrics at a specific Prometheus
// registry instead of the global DefaultGatherer — each bunnylol
// instance registers its own MetricsSink collectors, so tests that build
// more than one Server in the same process don't collide on duplicate
// registration.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New builds a Server. reload is invoked by GET /reload; ready reports
// whether the registry has completed at least one build, for GET
// /healthz.
func New(res Resolver, reg Registry, sink eventsink.Sink, reload func() error, ready func() bool, opts ...Option) *Server {
	if sink == nil {
		sink = eventsink.Noop{}
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		resolver: res,
		reg:      reg,
		sink:     sink,
		logger:   slog.Default(),
		reload:   reload,
		ready:    ready,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestID())
	engine.Use(loopbackOnly())
	engine.HandleMethodNotAllowed = true

	engine.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed\n")
	})
	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found\n")
	})

	engine.GET("/", s.handleRoot)
	engine.GET("/reload", s.handleReload)
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	s.engine = engine
	return s
}

// Handler returns the underlying http.Handler, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving on addr (e.g. "127.0.0.1:8085") until ctx is
// cancelled, then gracefully shuts down.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// rawQueryValue extracts key's value from rawQuery without decoding it,
// leaving any percent-escapes or literal "+" characters intact. The
// Resolver (spec §4.C step 1) expects a still-encoded string and decodes
// it exactly once itself; decoding here too would mangle any value
// containing an escaped "+" by unescaping it twice.
func rawQueryValue(rawQuery, key string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(k); err == nil {
			k = decoded
		}
		if k == key {
			return v, true
		}
	}
	return "", false
}

func (s *Server) handleRoot(c *gin.Context) {
	start := time.Now()
	rawQuery := c.Request.URL.RawQuery

	if _, err := url.ParseQuery(rawQuery); err != nil {
		c.String(http.StatusBadRequest, "malformed query string\n")
		s.trace(c, "", "bad_request", "", start)
		return
	}

	cmd, has := rawQueryValue(rawQuery, "cmd")
	if !has || cmd == "" {
		s.renderIndex(c)
		s.trace(c, "", "index", "/", start)
		return
	}

	result := s.resolver.Resolve(cmd)
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, result.Location)
	s.trace(c, result.Binding, string(result.Outcome), result.Location, start)
}

func (s *Server) handleReload(c *gin.Context) {
	if s.reload == nil {
		c.String(http.StatusOK, "reload not configured\n")
		return
	}
	if err := s.reload(); err != nil {
		c.String(http.StatusOK, fmt.Sprintf("reload failed: %v\n", err))
		return
	}
	n := 0
	if s.reg != nil {
		n = len(s.reg.List())
	}
	c.String(http.StatusOK, fmt.Sprintf("reloaded: %d active plugin(s)\n", n))
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.ready != nil && !s.ready() {
		c.String(http.StatusServiceUnavailable, "not ready\n")
		return
	}
	c.String(http.StatusOK, "ok\n")
}

func (s *Server) trace(c *gin.Context, binding, outcome, location string, start time.Time) {
	s.sink.RequestTraced(eventsink.RequestTracedEvent{
		RequestID:  c.GetHeader("X-Request-Id"),
		Query:      c.Query("cmd"),
		Binding:    binding,
		Outcome:    outcome,
		Location:   location,
		DurationMS: time.Since(start).Milliseconds(),
		At:         time.Now(),
	})
}

// requestID assigns a fresh X-Request-Id to every request that doesn't
// already carry one, correlating logs, metrics, and traces for that
// request (see eventsink.RequestTracedEvent).
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Request-Id") == "" {
			c.Request.Header.Set("X-Request-Id", uuid.NewString())
		}
		c.Header("X-Request-Id", c.GetHeader("X-Request-Id"))
		c.Next()
	}
}
