// Package script runs a JavaScript hook for stable connector changes.
//
// The script is a CommonJS-style module exporting any of:
//
//	module.exports = {
//	    onChange(event) {},     // every change
//	    onConnect(event) {},    // changes to connected
//	    onDisconnect(event) {}, // changes to disconnected
//	};
//
// event carries controller, connector, id, state, previous, kind and
// initial. A thrown exception is returned to the Reconciler as a notify
// failure.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"github.com/zoobzio/hotplug"
)

// ErrNoHandlers is returned when a script exports none of the hook
// functions.
var ErrNoHandlers = errors.New("script exports no onChange, onConnect or onDisconnect function")

// program is one compiled load of the script.
type program struct {
	vm           *goja.Runtime
	onChange     goja.Callable
	onConnect    goja.Callable
	onDisconnect goja.Callable
}

// Hook is a hotplug.Notifier backed by a JavaScript file. It is safe for
// concurrent use; calls are serialized because a goja runtime is single
// threaded.
type Hook struct {
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	prog *program
}

// Option configures a Hook.
type Option func(*Hook)

// WithLogger routes console.log and console.error from the script to
// logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Hook) {
		h.logger = logger
	}
}

// Load reads and evaluates the script at path.
func Load(path string, opts ...Option) (*Hook, error) {
	h := &Hook{path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}

	prog, err := h.compile()
	if err != nil {
		return nil, err
	}
	h.prog = prog
	return h, nil
}

// Path returns the script path.
func (h *Hook) Path() string {
	return h.path
}

// Reload evaluates the script again. On failure the previous program
// stays active.
func (h *Hook) Reload() error {
	prog, err := h.compile()
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.prog = prog
	h.mu.Unlock()
	return nil
}

func (h *Hook) compile() (*program, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, fmt.Errorf("script: read %s: %w", h.path, err)
	}

	vm := goja.New()
	exports := vm.NewObject()
	module := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if err := vm.Set("module", module); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	if err := vm.Set("console", h.console()); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	if _, err := vm.RunScript(h.path, string(data)); err != nil {
		return nil, fmt.Errorf("script: execute %s: %w", h.path, err)
	}

	if v := module.Get("exports"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		exports = v.ToObject(vm)
	}

	prog := &program{vm: vm}
	for name, dst := range map[string]*goja.Callable{
		"onChange":     &prog.onChange,
		"onConnect":    &prog.onConnect,
		"onDisconnect": &prog.onDisconnect,
	} {
		v := exports.Get(name)
		if v == nil || goja.IsUndefined(v) {
			continue
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return nil, fmt.Errorf("script %s: %s must be a function", h.path, name)
		}
		*dst = fn
	}

	if prog.onChange == nil && prog.onConnect == nil && prog.onDisconnect == nil {
		return nil, fmt.Errorf("script %s: %w", h.path, ErrNoHandlers)
	}
	return prog, nil
}

func (h *Hook) console() map[string]any {
	write := func(ev *zerolog.Event) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, a := range call.Arguments {
				parts[i] = a.String()
			}
			ev.Str("script", h.path).Msg(strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	return map[string]any{
		"log": func(call goja.FunctionCall) goja.Value {
			return write(h.logger.Info())(call)
		},
		"error": func(call goja.FunctionCall) goja.Value {
			return write(h.logger.Error())(call)
		},
	}
}

// Notify calls the script's handlers for c. The call is interrupted when
// ctx is done.
func (h *Hook) Notify(ctx context.Context, c hotplug.Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	prog := h.prog
	vm := prog.vm

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer func() {
		stop()
		vm.ClearInterrupt()
	}()

	event := vm.ToValue(map[string]any{
		"controller": c.Controller,
		"connector":  c.Connector,
		"id":         c.Key.Connector,
		"state":      c.State.String(),
		"previous":   c.Previous.String(),
		"kind":       c.Kind.String(),
		"initial":    c.Kind == hotplug.ChangeInitial,
	})

	handlers := []goja.Callable{prog.onChange}
	switch c.State {
	case hotplug.StateConnected:
		handlers = append(handlers, prog.onConnect)
	case hotplug.StateDisconnected:
		handlers = append(handlers, prog.onDisconnect)
	}

	for _, fn := range handlers {
		if fn == nil {
			continue
		}
		if _, err := fn(goja.Undefined(), event); err != nil {
			return fmt.Errorf("script %s: %w", h.path, err)
		}
	}
	return nil
}
