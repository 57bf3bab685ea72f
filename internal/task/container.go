package task

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dusk-indust/buildgraph/internal/provider"
)

// Handle is a reference to a registered task that may not exist yet.
// It satisfies provider.Provider[T]: resolving it realizes the task, and its
// only producer is the task itself.
type Handle[T Task] struct {
	mu       sync.Mutex
	name     string
	typeName string
	newTask  func(name string) T
	actions  []func(T) error
	task     T
	realized bool
	err      error
	logger   *slog.Logger
}

var _ provider.Provider[Task] = (*Handle[Task])(nil)

// Name returns the registered task name.
func (h *Handle[T]) Name() string { return h.name }

// TypeName returns the Go type of the task, e.g. "*pipeline.FileProducer".
func (h *Handle[T]) TypeName() string { return h.typeName }

// Producers implements provider.Provider.
func (h *Handle[T]) Producers() []string { return []string{h.name} }

// Configure queues fn to run when the task is realized. If the task is
// already realized, fn runs immediately and its error is returned.
func (h *Handle[T]) Configure(fn func(T) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.realized {
		h.actions = append(h.actions, fn)
		return nil
	}
	if err := fn(h.task); err != nil {
		return fmt.Errorf("configure task %s: %w", h.name, err)
	}
	return nil
}

// Realized reports whether the task was created.
func (h *Handle[T]) Realized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.realized
}

// Get realizes the task on first call and returns it. A failed realization
// is remembered and returned on every later call. Configure actions must not
// resolve the handle they are attached to.
func (h *Handle[T]) Get() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var zero T
	if h.err != nil {
		return zero, h.err
	}
	if h.realized {
		return h.task, nil
	}
	t := h.newTask(h.name)
	for _, action := range h.actions {
		if err := action(t); err != nil {
			h.err = fmt.Errorf("configure task %s: %w", h.name, err)
			return zero, h.err
		}
	}
	h.actions = nil
	h.task = t
	h.realized = true
	if h.logger != nil {
		h.logger.Debug("task realized", "task", h.name, "type", h.typeName)
	}
	return t, nil
}

func (h *Handle[T]) realize() (Task, error) {
	t, err := h.Get()
	if err != nil {
		return nil, err
	}
	return t, nil
}

// registered is the type-erased view of a Handle the container keeps.
type registered interface {
	Name() string
	TypeName() string
	Realized() bool
	realize() (Task, error)
}

// Container owns every registered task of one build.
type Container struct {
	mu      sync.Mutex
	handles map[string]registered
	order   []string
	logger  *slog.Logger
}

// NewContainer returns an empty container. A nil logger discards output.
func NewContainer(logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Container{handles: make(map[string]registered), logger: logger}
}

// Register adds a task factory under name. The task is not created until
// something realizes it.
func Register[T Task](c *Container, name string, newTask func(name string) T) (*Handle[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handles[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, name)
	}
	var zero T
	h := &Handle[T]{
		name:     name,
		typeName: fmt.Sprintf("%T", zero),
		newTask:  newTask,
		logger:   c.logger,
	}
	c.handles[name] = h
	c.order = append(c.order, name)
	c.logger.Debug("task registered", "task", name, "type", h.typeName)
	return h, nil
}

// Names returns every registered task name in registration order.
func (c *Container) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Has reports whether a task was registered under name.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handles[name]
	return ok
}

// TypeName returns the registered Go type of a task without realizing it.
func (c *Container) TypeName(name string) (string, error) {
	h, err := c.lookup(name)
	if err != nil {
		return "", err
	}
	return h.TypeName(), nil
}

// Realize creates and configures the named task if needed.
func (c *Container) Realize(name string) (Task, error) {
	h, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return h.realize()
}

// Realized returns the names of tasks created so far, in registration order.
func (c *Container) Realized() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, name := range c.order {
		if c.handles[name].Realized() {
			out = append(out, name)
		}
	}
	return out
}

func (c *Container) lookup(name string) (registered, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return h, nil
}
