// Package hooks provides extension points for the guarded-call lifecycle.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/victoralfred/gotrap/trap"
)

// Hook defines extension points for the guarded-call lifecycle.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// PreProtectHook is called before the guard scope is entered.
type PreProtectHook interface {
	Hook
	PreProtect(ctx context.Context, call *trap.Call) (*trap.Call, error)
}

// PostProtectHook is called after the call completed or faulted.
type PostProtectHook interface {
	Hook
	PostProtect(ctx context.Context, call *trap.Call, result *trap.Result, err error) error
}

// FaultHook is called only when a hardware fault was caught.
type FaultHook interface {
	Hook
	OnFault(ctx context.Context, call *trap.Call, ex *trap.Exception) error
}

// Registry manages hook registration and invocation. It implements
// trap.Hook itself, so a populated Registry can be handed directly to
// trap.NewBuilder().WithHooks.
type Registry struct {
	preProtect  []PreProtectHook
	postProtect []PostProtectHook
	faultHooks  []FaultHook
	mu          sync.RWMutex
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		preProtect:  make([]PreProtectHook, 0),
		postProtect: make([]PostProtectHook, 0),
		faultHooks:  make([]FaultHook, 0),
	}
}

// Register adds a hook to the registry.
func (r *Registry) Register(hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Register based on hook type (can implement multiple)
	if h, ok := hook.(PreProtectHook); ok {
		r.preProtect = append(r.preProtect, h)
		sort.Slice(r.preProtect, func(i, j int) bool {
			return r.preProtect[i].Priority() < r.preProtect[j].Priority()
		})
	}

	if h, ok := hook.(PostProtectHook); ok {
		r.postProtect = append(r.postProtect, h)
		sort.Slice(r.postProtect, func(i, j int) bool {
			return r.postProtect[i].Priority() < r.postProtect[j].Priority()
		})
	}

	if h, ok := hook.(FaultHook); ok {
		r.faultHooks = append(r.faultHooks, h)
		sort.Slice(r.faultHooks, func(i, j int) bool {
			return r.faultHooks[i].Priority() < r.faultHooks[j].Priority()
		})
	}

	return nil
}

// Unregister removes a hook by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preProtect = removeByNamePre(r.preProtect, name)
	r.postProtect = removeByNamePost(r.postProtect, name)
	r.faultHooks = removeByNameFault(r.faultHooks, name)
}

// PreProtect runs all pre-protect hooks in priority order.
func (r *Registry) PreProtect(ctx context.Context, call *trap.Call) (*trap.Call, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	current := call
	for _, hook := range r.preProtect {
		modified, err := hook.PreProtect(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
		current = modified
	}
	return current, nil
}

// PostProtect runs all post-protect hooks, then the fault hooks if a fault
// was caught.
func (r *Registry) PostProtect(ctx context.Context, call *trap.Call, result *trap.Result, callErr error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.postProtect {
		if err := hook.PostProtect(ctx, call, result, callErr); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}

	if result != nil && result.Faulted() {
		for _, hook := range r.faultHooks {
			if err := hook.OnFault(ctx, call, result.Exception); err != nil {
				return fmt.Errorf("hook %s: %w", hook.Name(), err)
			}
		}
	}
	return nil
}

// Helper functions for removing hooks by name
func removeByNamePre(hooks []PreProtectHook, name string) []PreProtectHook {
	result := make([]PreProtectHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNamePost(hooks []PostProtectHook, name string) []PostProtectHook {
	result := make([]PostProtectHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

func removeByNameFault(hooks []FaultHook, name string) []FaultHook {
	result := make([]FaultHook, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

// LoggingHook is a built-in hook that logs guarded calls.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

func (h *LoggingHook) PreProtect(ctx context.Context, call *trap.Call) (*trap.Call, error) {
	h.logger("Entering guarded scope: %s", call.Name)
	return call, nil
}

func (h *LoggingHook) PostProtect(ctx context.Context, call *trap.Call, result *trap.Result, err error) error {
	if result != nil && result.Faulted() {
		h.logger("Guarded call faulted: %s - %v", call.Name, result.Exception)
	} else if result != nil {
		h.logger("Guarded call completed: %s duration=%v", call.Name, result.Duration)
	}
	return nil
}
