package aura

import "context"

// Component is the component an action instance is bound to.
//
// The component tree lives outside this package; the dispatch core only
// needs an identity and attribute access so client actions can read and
// update state:
//
//	func toggle(ctx context.Context, cmp aura.Component, params map[string]any) (any, error) {
//	    open, _ := cmp.Get("open").(bool)
//	    cmp.Set("open", !open)
//	    return !open, nil
//	}
type Component interface {
	GlobalID() string
	Get(key string) any
	Set(key string, value any)
}

// Method is the executable body of a client action. It runs synchronously
// on the caller's goroutine and must not block on I/O.
type Method func(ctx context.Context, cmp Component, params map[string]any) (any, error)

// Compiler turns the serialized body of a client action into a Method.
//
// Compilation happens once, when the action definition is loaded. A Method
// returned by Compile may be called concurrently from multiple action
// instances.
type Compiler interface {
	Compile(source string) (Method, error)
}

// Enqueuer accepts server actions for later transport.
// Engine is the standard implementation.
type Enqueuer interface {
	Enqueue(a *Action) error
}

// Transport delivers a batch of server action requests and returns the
// server's correlated responses. Retry policy belongs to the transport.
type Transport interface {
	Send(ctx context.Context, batch *Batch) (*BatchResponse, error)
}
