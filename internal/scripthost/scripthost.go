// Package scripthost runs bunnylol command plugins in isolated goja
// JavaScript runtimes. Each plugin gets its own Host, which owns a single
// *goja.Runtime — goja values are not safe to share across goroutines, so
// the registry pools Hosts per plugin rather than sharing one.
package scripthost

import (
	"fmt"
	"reflect"
	"time"

	"github.com/dop251/goja"
)

// Info is the metadata a plugin's info() function must return.
type Info struct {
	Bindings    []string
	Description string
	Example     string
}

// DefaultTimeout is the wall-clock budget for a single process() call
// before the Host interrupts the running script.
const DefaultTimeout = 200 * time.Millisecond

// Host wraps one goja.Runtime loaded with exactly one plugin script. It is
// not safe for concurrent use — callers needing concurrency pool Hosts,
// one per plugin, per registry.Plugin.
type Host struct {
	vm        *goja.Runtime
	path      string
	infoFn    goja.Callable
	processFn goja.Callable
	timeout   time.Duration
}

// Load compiles and runs source (the plugin's top-level script body),
// binding the sandboxed host API into its global scope, then resolves the
// info and process functions the script is required to define.
func Load(path string, source string, timeout time.Duration) (*Host, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if err := bindHostAPI(vm); err != nil {
		return nil, fmt.Errorf("bind host api: %w", err)
	}

	if _, err := vm.RunScript(path, source); err != nil {
		return nil, fmt.Errorf("run script: %w", err)
	}

	h := &Host{vm: vm, path: path, timeout: timeout}

	infoVal := vm.Get("info")
	infoFn, ok := goja.AssertFunction(infoVal)
	if !ok {
		return nil, fmt.Errorf("plugin does not define an info() function")
	}
	h.infoFn = infoFn

	processVal := vm.Get("process")
	processFn, ok := goja.AssertFunction(processVal)
	if !ok {
		return nil, fmt.Errorf("plugin does not define a process() function")
	}
	h.processFn = processFn

	return h, nil
}

// Path returns the source path this Host was loaded from.
func (h *Host) Path() string { return h.path }

// Info invokes the plugin's info() function and validates its shape.
func (h *Host) Info() (Info, error) {
	result, err := h.call(h.infoFn)
	if err != nil {
		return Info{}, err
	}

	obj := result.ToObject(h.vm)
	if obj == nil {
		return Info{}, fmt.Errorf("info() did not return an object")
	}

	bindingsVal := obj.Get("bindings")
	if bindingsVal == nil || goja.IsUndefined(bindingsVal) {
		return Info{}, fmt.Errorf("info() result missing \"bindings\"")
	}
	var rawBindings []string
	if err := h.vm.ExportTo(bindingsVal, &rawBindings); err != nil {
		return Info{}, fmt.Errorf("info() \"bindings\" must be an array of strings: %w", err)
	}
	if len(rawBindings) == 0 {
		return Info{}, fmt.Errorf("info() must return at least one binding")
	}

	info := Info{Bindings: rawBindings}
	if v := obj.Get("description"); v != nil && !goja.IsUndefined(v) {
		info.Description = v.String()
	}
	if v := obj.Get("example"); v != nil && !goja.IsUndefined(v) {
		info.Example = v.String()
	}
	return info, nil
}

// Process invokes the plugin's process(fullArgs) function with the full,
// post-alias-expansion query string — including the command token, so
// the plugin's own get_args(full_args, binding) call can recover its
// argument tail (spec §4.C step 6, §9 "the host must expose the full
// query string ... it must NOT pre-strip the binding"). Returns the
// plugin's string result: an absolute URL or a "/"-prefixed path.
func (h *Host) Process(fullArgs string) (string, error) {
	result, err := h.call(h.processFn, h.vm.ToValue(fullArgs))
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(result) || goja.IsNull(result) {
		return "", fmt.Errorf("process() returned no value")
	}
	if result.ExportType() == nil || result.ExportType().Kind() != reflect.String {
		return "", fmt.Errorf("process() must return a string, got %s", result.ExportType())
	}
	return result.String(), nil
}

// call runs fn under the Host's wall-clock timeout, interrupting the VM if
// it overruns (spec §4.A: "Scripts that run past the timeout are
// interrupted; the invocation is treated as a process error.").
func (h *Host) call(fn goja.Callable, args ...goja.Value) (goja.Value, error) {
	timer := time.AfterFunc(h.timeout, func() {
		h.vm.Interrupt("process timeout")
	})
	defer timer.Stop()

	result, err := fn(goja.Undefined(), args...)
	if err != nil {
		if ierr, ok := err.(*goja.InterruptedError); ok {
			return nil, fmt.Errorf("%w", ErrTimeout{Cause: ierr})
		}
		return nil, fmt.Errorf("script error: %w", err)
	}
	return result, nil
}

// ErrTimeout reports that a script call was interrupted for exceeding its
// wall-clock budget.
type ErrTimeout struct {
	Cause error
}

func (e ErrTimeout) Error() string { return fmt.Sprintf("script timed out: %v", e.Cause) }
func (e ErrTimeout) Unwrap() error { return e.Cause }
