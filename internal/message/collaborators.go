package message

import (
	"fmt"
	"sync"

	"github.com/roach88/eventdoc/internal/ir"
)

// NoOpConverter reads the field map straight off messages that implement
// Provider. It performs no mapping of its own.
type NoOpConverter struct{}

// ConvertToData implements codec.MessageConverter.
func (NoOpConverter) ConvertToData(msg ir.Message) (ir.MessageData, error) {
	p, ok := msg.(Provider)
	if !ok {
		return ir.MessageData{}, fmt.Errorf("message %T does not expose its data", msg)
	}
	return p.Data(), nil
}

// GenericFactory rebuilds every stored record as an *Event, whatever its name.
type GenericFactory struct{}

// CreateMessage implements codec.MessageFactory.
func (GenericFactory) CreateMessage(name string, data ir.MessageData) (ir.Message, error) {
	data.MessageName = name
	return FromData(data), nil
}

// Constructor builds a concrete message from stored data.
type Constructor func(data ir.MessageData) (ir.Message, error)

// Registry is a factory that resolves message names to registered
// constructors. Unregistered names fail.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under name.
//
// Panics:
//   - If fn is nil.
//   - If name is empty or already registered.
func (r *Registry) Register(name string, fn Constructor) {
	if fn == nil {
		panic("cannot register nil constructor")
	}
	if name == "" {
		panic("cannot register empty message name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		panic(fmt.Sprintf("message already registered: %s", name))
	}
	r.constructors[name] = fn
}

// Names returns the registered message names in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for n := range r.constructors {
		names = append(names, n)
	}
	return names
}

// CreateMessage implements codec.MessageFactory.
func (r *Registry) CreateMessage(name string, data ir.MessageData) (ir.Message, error) {
	r.mu.RLock()
	fn, ok := r.constructors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("message not registered: %s", name)
	}
	msg, err := fn(data)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", name, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("constructor returned nil for message: %s", name)
	}
	return msg, nil
}
