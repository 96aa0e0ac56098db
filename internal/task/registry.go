package task

import (
	"fmt"
	"slices"
	"sync"

	"github.com/slok/tierd/internal/model"
)

// Registry maps task type names to their types. It's filled at startup and
// frozen once the scheduler starts.
type Registry struct {
	types  map[string]Type
	frozen bool
	mu     sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[string]Type{}}
}

// Register registers a task type.
func (r *Registry) Register(t Type) error {
	if t == nil || t.TaskType() == "" {
		return fmt.Errorf("task type name is required: %w", model.ErrNotValid)
	}
	if len(t.StepNames()) == 0 {
		return fmt.Errorf("task type %q has no steps: %w", t.TaskType(), model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("registry is frozen, can't register %q: %w", t.TaskType(), model.ErrNotValid)
	}
	if _, ok := r.types[t.TaskType()]; ok {
		return fmt.Errorf("task type %q: %w", t.TaskType(), model.ErrAlreadyExists)
	}
	r.types[t.TaskType()] = t

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t Type) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the task type registered with the name.
func (r *Registry) Lookup(name string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("task type %q: %w", name, model.ErrNotFound)
	}

	return t, nil
}

// Names returns the sorted registered type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	slices.Sort(names)

	return names
}

// Freeze disallows new registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}
