package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownHandler is recorded on fires whose schedule names a handler that
// is not registered
var ErrUnknownHandler = errors.New("runner: unknown handler")

// Fire describes one invocation passed to a Handler
type Fire struct {
	ScheduleID   string
	ScheduleName string
	Expression   string
	FireAt       time.Time
	// NextFireAt is the following instant, zero when the schedule is exhausted
	NextFireAt time.Time
}

// Handler is invoked once per fire. A returned error or a panic marks the
// fire failed but never stops the schedule.
type Handler func(ctx context.Context, fire Fire) error

// Registry maps handler names, as stored on schedules, to Handlers.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under name. Names are unique.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return errors.New("runner: handler name must not be empty")
	}
	if h == nil {
		return fmt.Errorf("runner: handler %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("runner: handler %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
