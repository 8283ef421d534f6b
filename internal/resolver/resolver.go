// Package resolver maps a raw address-bar query to a destination URL by
// tokenizing it, expanding aliases, and dispatching to the Plugin
// Registry (spec §4.C).
package resolver

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/bunnylol/bunnylol/internal/config"
	"github.com/bunnylol/bunnylol/internal/eventsink"
	"github.com/bunnylol/bunnylol/internal/registry"
	"github.com/bunnylol/bunnylol/internal/resolveerr"
	"github.com/bunnylol/bunnylol/internal/scripthost"
)

// Outcome classifies how a Resolve call was satisfied, for the HTTP
// Frontend's request-traced event.
type Outcome string

const (
	OutcomeIndex    Outcome = "index"
	OutcomeRedirect Outcome = "redirect"
	OutcomeFallback Outcome = "fallback"
)

// Result is what Resolve returns: either a redirect to a plugin's
// output, a fallback search, or the bindings index.
type Result struct {
	Outcome  Outcome
	Location string
	Binding  string
}

// Registry is the subset of *registry.Registry the Resolver depends on.
type Registry interface {
	Resolve(binding string) (*registry.Plugin, bool)
	CheckoutTimeout() time.Duration
}

// Resolver implements spec §4.C's algorithm. It holds no mutable state of
// its own — Configuration and the Registry each manage their own
// snapshot discipline — so a single Resolver is safe to share across
// concurrent requests.
type Resolver struct {
	reg  Registry
	cfg  *config.Config
	sink eventsink.Sink
}

// New builds a Resolver over reg and cfg. sink may be nil.
func New(reg Registry, cfg *config.Config, sink eventsink.Sink) *Resolver {
	if sink == nil {
		sink = eventsink.Noop{}
	}
	return &Resolver{reg: reg, cfg: cfg, sink: sink}
}

// Resolve implements the full §4.C algorithm: URL-decode, trim, tokenize,
// expand at most one alias, look up the binding, invoke the plugin, and
// fall back to the configured search engine on any failure. An empty
// query yields the bindings index.
func (r *Resolver) Resolve(rawQuery string) Result {
	q, err := url.QueryUnescape(rawQuery)
	if err != nil {
		q = rawQuery
	}
	q = strings.Trim(q, " \t\r\n")

	if q == "" {
		return Result{Outcome: OutcomeIndex, Location: "/"}
	}

	q = r.expandAlias(q)
	binding := lowercaseFirstToken(q)

	plugin, ok := r.reg.Resolve(binding)
	if !ok {
		return r.fallback(q)
	}

	location, err := plugin.Process(q, r.reg.CheckoutTimeout())
	if err != nil {
		r.sink.ResolveError(eventsink.ResolveErrorEvent{
			Query: q,
			Err:   classifyErr(plugin.Path, binding, err),
			At:    time.Now(),
		})
		return r.fallback(q)
	}
	if !isValidDestination(location) {
		r.sink.ResolveError(eventsink.ResolveErrorEvent{
			Query: q,
			Err:   resolveerr.New(resolveerr.KindBadOutput, plugin.Path, binding, nil),
			At:    time.Now(),
		})
		return r.fallback(q)
	}

	return Result{Outcome: OutcomeRedirect, Location: location, Binding: binding}
}

// expandAlias replaces q's leading binding with its configured
// expansion, at most once, preserving the remainder's single leading
// space (spec §4.C step 4). An alias whose expansion begins with another
// alias is not re-expanded, preventing cycles.
func (r *Resolver) expandAlias(q string) string {
	if r.cfg == nil || len(r.cfg.Aliases) == 0 {
		return q
	}
	binding := lowercaseFirstToken(q)
	expansion, ok := r.cfg.Aliases[binding]
	if !ok {
		return q
	}
	remainder := remainderAfterFirstToken(q)
	if remainder != "" {
		return expansion + " " + remainder
	}
	return expansion
}

// fallback applies the default-search-engine redirect (spec §4.C step
// 7). It never fails — q is always encodable.
func (r *Resolver) fallback(q string) Result {
	encoded := url.QueryEscape(q)
	return Result{Outcome: OutcomeFallback, Location: r.cfg.SearchFallbackURL(encoded)}
}

func classifyErr(pluginPath, binding string, err error) *resolveerr.Error {
	if rerr, ok := err.(*resolveerr.Error); ok {
		return rerr
	}
	if errors.As(err, new(scripthost.ErrTimeout)) || errors.Is(err, registry.ErrPoolExhausted) {
		return resolveerr.New(resolveerr.KindTimeout, pluginPath, binding, err)
	}
	return resolveerr.New(resolveerr.KindProcess, pluginPath, binding, err)
}

// isValidDestination enforces spec §4.C step 6: the plugin's result must
// be an absolute URL (scheme + host) or a server-relative path starting
// with "/".
func isValidDestination(s string) bool {
	if strings.HasPrefix(s, "/") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

func lowercaseFirstToken(q string) string {
	return strings.ToLower(firstToken(q))
}

func firstToken(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// remainderAfterFirstToken returns q's argument tail with interior
// whitespace preserved verbatim (spec §3 "the remainder (including
// interior whitespace preserved verbatim) is the argument tail").
func remainderAfterFirstToken(q string) string {
	trimmed := strings.TrimLeft(q, " \t\r\n")
	idx := strings.IndexAny(trimmed, " \t\r\n")
	if idx < 0 {
		return ""
	}
	rest := trimmed[idx:]
	return strings.TrimLeft(rest, " \t\r\n")
}
