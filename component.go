package aura

import (
	"sync"

	"github.com/google/uuid"
)

// BaseComponent is a minimal Component: a named attribute bag with a
// globally unique id.
//
// Hosts that already have a component tree implement Component on their
// own types; BaseComponent serves embedders, tools and tests.
//
//	cmp := aura.NewComponent("ui:counter")
//	cmp.Set("count", 0)
type BaseComponent struct {
	name     string
	globalID string

	mu    sync.RWMutex
	attrs map[string]any
}

// NewComponent creates a component with the given descriptor name.
func NewComponent(name string) *BaseComponent {
	return &BaseComponent{
		name:     name,
		globalID: uuid.NewString(),
		attrs:    make(map[string]any),
	}
}

// Name returns the component's descriptor name.
func (c *BaseComponent) Name() string {
	return c.name
}

// GlobalID returns the component's unique id.
func (c *BaseComponent) GlobalID() string {
	return c.globalID
}

// Get returns the attribute value, or nil when unset.
func (c *BaseComponent) Get(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attrs[key]
}

// Set sets an attribute value.
func (c *BaseComponent) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[key] = value
}

// Attributes returns a copy of all attributes.
func (c *BaseComponent) Attributes() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.attrs))
	for k, v := range c.attrs {
		out[k] = v
	}
	return out
}
