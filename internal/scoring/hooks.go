package scoring

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dotcommander/clinscale/internal/scale"
)

// ErrUnknownHook is returned when a template names a custom hook that is not
// registered.
var ErrUnknownHook = errors.New("unknown custom scoring hook")

// HookResult is what a custom scoring hook returns: the same shape the
// built-in methods produce.
type HookResult struct {
	TotalScore     *float64
	SubscaleScores map[string]float64
}

// Hook implements scale-specific scoring for templates whose method is
// custom. The engine only guarantees the inputs; the logic is the hook's.
type Hook interface {
	Score(t *scale.Template, responses []scale.Response) (HookResult, error)
}

// HookFunc adapts a function to Hook.
type HookFunc func(t *scale.Template, responses []scale.Response) (HookResult, error)

func (f HookFunc) Score(t *scale.Template, responses []scale.Response) (HookResult, error) {
	return f(t, responses)
}

// HookRegistry maps hook names to implementations. Register hooks at startup;
// the registry is read-only once scoring begins.
type HookRegistry struct {
	hooks map[string]Hook
}

// NewHookRegistry creates an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: make(map[string]Hook)}
}

// Register adds a hook under name.
func (r *HookRegistry) Register(name string, h Hook) error {
	if name == "" {
		return errors.New("hook name is empty")
	}
	if h == nil {
		return fmt.Errorf("hook %q is nil", name)
	}
	if _, dup := r.hooks[name]; dup {
		return fmt.Errorf("hook %q already registered", name)
	}
	r.hooks[name] = h
	return nil
}

// Has reports whether name is registered. A nil registry has no hooks.
func (r *HookRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.hooks[name]
	return ok
}

// Get returns the hook registered under name.
func (r *HookRegistry) Get(name string) (Hook, error) {
	if r != nil {
		if h, ok := r.hooks[name]; ok {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownHook, name)
}

// Names lists registered hooks, sorted.
func (r *HookRegistry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.hooks))
	for n := range r.hooks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
