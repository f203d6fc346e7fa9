package aura

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds controller definitions and resolves action descriptors.
//
// Controllers are registered explicitly, typically once at startup after
// loading their definitions:
//
//	reg := aura.NewRegistry()
//	if err := reg.Add(ctrl); err != nil {
//	    return err
//	}
//	def, err := reg.ActionDef("c:Ctrl/ACTION$doThing")
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]*ControllerDef
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		controllers: make(map[string]*ControllerDef),
	}
}

// Add registers controllers. A descriptor already registered is rejected
// with ErrDuplicateController and nothing from the call is registered.
func (reg *Registry) Add(ctrls ...*ControllerDef) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	seen := make(map[string]bool, len(ctrls))
	for _, c := range ctrls {
		if _, exists := reg.controllers[c.Descriptor()]; exists || seen[c.Descriptor()] {
			return fmt.Errorf("%w: %q", ErrDuplicateController, c.Descriptor())
		}
		seen[c.Descriptor()] = true
	}
	for _, c := range ctrls {
		reg.controllers[c.Descriptor()] = c
	}
	return nil
}

// Controller returns the controller registered under descriptor.
func (reg *Registry) Controller(descriptor string) (*ControllerDef, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	c, ok := reg.controllers[descriptor]
	return c, ok
}

// Controllers returns all registered controllers sorted by descriptor.
func (reg *Registry) Controllers() []*ControllerDef {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*ControllerDef, 0, len(reg.controllers))
	for _, c := range reg.controllers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Descriptor() < out[j].Descriptor() })
	return out
}

// ActionDef resolves a full action descriptor.
func (reg *Registry) ActionDef(descriptor string) (*ActionDef, error) {
	ctrlDesc, name, err := ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	ctrl, ok := reg.Controller(ctrlDesc)
	if !ok {
		return nil, fmt.Errorf("%w: no controller %q", ErrUnknownAction, ctrlDesc)
	}
	def, ok := ctrl.ActionDef(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, descriptor)
	}
	return def, nil
}

// NewInstance resolves descriptor and creates an action bound to cmp.
func (reg *Registry) NewInstance(descriptor string, cmp Component) (*Action, error) {
	def, err := reg.ActionDef(descriptor)
	if err != nil {
		return nil, err
	}
	return def.NewInstance(cmp), nil
}
