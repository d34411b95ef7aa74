package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/flowchain/pkg/value"
)

// ErrCommandNotFound is returned when running a name no command is registered under.
var ErrCommandNotFound = errors.New("command not found")

// Command is the implementation of a node. It receives the node's inputs and returns its
// outputs. Commands that submit a transaction do so through cc.Execute.
type Command func(ctx context.Context, cc *Context, inputs *value.Map) (*value.Map, error)

// Registry manages the available commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// Register adds a command to the registry.
// If a command with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = fn
}

// Names lists the registered commands in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Run looks up a command by name and runs it with inputs.
func (r *Registry) Run(ctx context.Context, name string, cc *Context, inputs *value.Map) (*value.Map, error) {
	r.mu.RLock()
	fn, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	if inputs == nil {
		inputs = value.NewMap()
	}
	return fn(ctx, cc, inputs)
}
