// Package app wires together Configuration, the Plugin Registry, the
// Resolver, and the HTTP Frontend into one running instance (spec §2
// "Data flow"). It is the one place that owns the process lifetime, so
// both cmd/bunnylol (the cobra CLI) and cmd/libbunnylol (the C ABI entry
// point, spec §6) call into it rather than duplicating startup order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bunnylol/bunnylol/internal/config"
	"github.com/bunnylol/bunnylol/internal/eventsink"
	"github.com/bunnylol/bunnylol/internal/httpd"
	"github.com/bunnylol/bunnylol/internal/registry"
	"github.com/bunnylol/bunnylol/internal/resolver"
)

// Exit codes for Serve, mirroring spec §6 "Exit codes from serve".
const (
	ExitOK            = 0
	ExitBindError     = 1
	ExitConfigError   = 2
	ExitInternalError = 3
)

// Options configures a run. ConfigPath and Port are both optional; the
// zero value of Port leaves the configured/default port untouched.
type Options struct {
	ConfigPath string
	Port       uint16
	Logger     *slog.Logger
	// Watch and Schedule enable the fsnotify watch and the periodic cron
	// rescan described in SPEC_FULL's domain stack. Both are off in the
	// zero value; cmd/bunnylol's flags for them default to true and can
	// disable them for tests and for environments without inotify.
	Watch    bool
	Schedule bool
}

// instance holds everything Serve builds, so Reload (triggered by the
// cobra "reload" subcommand hitting the HTTP route, or by the watcher)
// has somewhere to reach.
type instance struct {
	cfg  *config.Config
	reg  *registry.Registry
	res  *resolver.Resolver
	srv  *httpd.Server
	sink eventsink.Sink

	ready atomic.Bool
}

// Serve builds an instance from opts and blocks until the process
// receives SIGINT/SIGTERM or the HTTP server fails to bind. It returns
// one of the Exit* codes above; it never calls os.Exit itself so callers
// (including the cgo-exported Serve) stay in control of process exit.
func Serve(opts Options) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ServeContext(ctx, opts)
}

// ServeContext is Serve with an explicit cancellation context, letting
// tests shut the instance down deterministically instead of relying on
// process signals.
func ServeContext(ctx context.Context, opts Options) int {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, warnings, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Error("configuration parse failed", "error", err)
		return ExitConfigError
	}
	for _, w := range warnings {
		logger.Warn(w)
	}
	if opts.Port != 0 {
		cfg.ServerPort = int(opts.Port)
	}

	reg := registry.New(cfg, nil) // sink wired below once inst exists
	inst := &instance{cfg: cfg, reg: reg}

	// Each instance gets its own Prometheus registry rather than the
	// process-global DefaultRegisterer: running more than one instance
	// in the same process (as the tests do) would otherwise panic on
	// duplicate collector registration.
	promReg := prometheus.NewRegistry()
	metrics := eventsink.NewMetricsSink(promReg)
	inst.sink = eventsink.Multi{eventsink.NewSlogSink(logger), metrics}
	reg.SetSink(inst.sink)

	if err := reg.Reload(); err != nil {
		logger.Error("initial plugin registry build failed", "error", err)
		return ExitInternalError
	}
	inst.ready.Store(true)

	inst.res = resolver.New(reg, cfg, inst.sink)
	inst.srv = httpd.New(inst.res, reg, inst.sink, reg.Reload, inst.ready.Load,
		httpd.WithLogger(logger), httpd.WithMetricsGatherer(promReg))

	if opts.Watch {
		watcher := registry.NewWatcher(reg, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("plugin directory watch unavailable", "error", err)
		} else {
			defer watcher.Stop()
		}
	}
	if opts.Schedule {
		sched, err := registry.NewScheduler(reg, registry.DefaultRescanSchedule, logger)
		if err != nil {
			logger.Warn("periodic rescan scheduler unavailable", "error", err)
		} else {
			sched.Start()
			defer sched.Stop()
		}
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.ServerPort)
	logger.Info("bunnylol listening", "addr", addr, "plugins", len(reg.List()), "config", cfg.Path)

	if err := inst.srv.Run(ctx, addr); err != nil {
		if isBindError(err) {
			logger.Error("bind/listen failed", "addr", addr, "error", err)
			return ExitBindError
		}
		logger.Error("server stopped with error", "error", err)
		return ExitInternalError
	}
	return ExitOK
}

func isBindError(err error) bool {
	var opErr *net.OpError
	return asNetOpError(err, &opErr)
}

func asNetOpError(err error, target **net.OpError) bool {
	for err != nil {
		if opErr, ok := err.(*net.OpError); ok {
			*target = opErr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
