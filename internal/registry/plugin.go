package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/bunnylol/bunnylol/internal/scripthost"
)

// Plugin is an immutable value produced by loading a single script file
// (spec §3 "Plugin"). Its Process method checks out a pooled execution
// context, invokes the script, and returns the context — callers never
// see a scripthost.Host directly.
type Plugin struct {
	Path        string
	Bindings    []string
	Description string
	Example     string

	pool *hostPool
}

// newPlugin loads source once to validate it and capture metadata, then
// wraps it in a pool that lazily creates further execution contexts on
// demand (spec §5: "Plugin contexts are NOT thread-safe... created
// lazily up to a small cap").
func newPlugin(path, source string, timeout time.Duration, poolCap int) (*Plugin, error) {
	h, err := scripthost.Load(path, source, timeout)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	info, err := h.Info()
	if err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}

	factory := func() (*scripthost.Host, error) {
		return scripthost.Load(path, source, timeout)
	}

	p := &Plugin{
		Path:        path,
		Bindings:    info.Bindings,
		Description: info.Description,
		Example:     info.Example,
		pool:        newHostPool(poolCap, factory),
	}
	// The Host used to fetch info() becomes the pool's first idle member
	// instead of being discarded, so the load above isn't wasted work.
	p.pool.seed(h)
	return p, nil
}

// Process checks out a pooled execution context, invokes it with the
// full query string, and returns the context to the pool before
// returning. checkoutTimeout bounds how long to wait for a free context
// before giving up (spec §5, default 100ms).
func (p *Plugin) Process(fullArgs string, checkoutTimeout time.Duration) (string, error) {
	h, err := p.pool.checkout(checkoutTimeout)
	if err != nil {
		return "", err
	}
	defer p.pool.release(h)
	return h.Process(fullArgs)
}

// hostPool is a bounded, lazily-growing pool of scripthost.Host instances
// for one plugin. A goja.Runtime (wrapped by Host) is not safe for
// concurrent use, so every in-flight invocation needs its own.
type hostPool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*scripthost.Host
	created  int
	capacity int
	factory  func() (*scripthost.Host, error)
}

// ErrPoolExhausted is returned when no execution context became
// available before the checkout timeout elapsed.
var ErrPoolExhausted = fmt.Errorf("no plugin execution context available")

func newHostPool(capacity int, factory func() (*scripthost.Host, error)) *hostPool {
	if capacity < 1 {
		capacity = 1
	}
	p := &hostPool{capacity: capacity, factory: factory}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// seed installs an already-constructed Host as the first idle member,
// counting it against capacity.
func (p *hostPool) seed(h *scripthost.Host) {
	p.mu.Lock()
	p.idle = append(p.idle, h)
	p.created++
	p.mu.Unlock()
}

// checkout returns an idle context, creating a new one (up to capacity)
// if none is idle, or waiting up to timeout for one to be released.
func (p *hostPool) checkout(timeout time.Duration) (*scripthost.Host, error) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if n := len(p.idle); n > 0 {
			h := p.idle[n-1]
			p.idle = p.idle[:n-1]
			return h, nil
		}
		if p.created < p.capacity {
			p.created++
			p.mu.Unlock()
			h, err := p.factory()
			p.mu.Lock()
			if err != nil {
				p.created--
				return nil, fmt.Errorf("create execution context: %w", err)
			}
			return h, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrPoolExhausted
		}
		p.cond.Wait()
	}
}

// release returns h to the idle set and wakes every waiting checkout;
// the first to reacquire the lock takes h.
func (p *hostPool) release(h *scripthost.Host) {
	p.mu.Lock()
	p.idle = append(p.idle, h)
	p.mu.Unlock()
	p.cond.Broadcast()
}
