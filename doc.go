// Package aura dispatches component actions: named operations that either
// run locally (client actions) or are queued and sent in batches to a
// remote controller (server actions).
//
// # Definitions
//
// An ActionDef is the immutable description of one action, identified by a
// descriptor of the form "<controller>/ACTION$<name>". Definitions are
// loaded once per controller and shared by every invocation:
//
//	loader := &aura.Loader{
//	    Compiler: aura.Compilers{Table: widgets.ClientActions, Script: script.NewCompiler()},
//	    Policy:   aura.SkipBroken,
//	}
//	ctrl, err := loader.Load(f)
//
// Client action code is compiled through a Compiler. A MethodTable resolves
// "go:<name>" sources to functions compiled into the binary ("aura generate"
// writes one per package from functions annotated with //aura:action); the
// lib/script package compiles Lua function literals.
//
// Server definitions declare their parameters. Parameters marked required
// must be supplied and undeclared parameters are rejected with an
// InvalidParameterError before anything is queued.
//
// # Invocation
//
// Each invocation gets its own Action, bound to a Component:
//
//	a := def.NewInstance(cmp)
//	a.Run(ctx, engine, map[string]any{"id": 7}, func(resp *aura.Response) {
//	    if !resp.IsSuccess() {
//	        log.Printf("%s: %s: %v", a.ID(), resp.Status, resp.Err)
//	    }
//	})
//
// Client actions run inline and their callback fires before Run returns.
// Server actions are handed to the Enqueuer, normally an Engine.
//
// # Batching
//
// Engine.Flush sends the queued foreground actions as one Batch through a
// Transport and delivers each response to its callback on the flushing
// goroutine. Background actions travel in their own batches. Caboose
// actions wait until a non-caboose action is queued, their maximum age
// (WithCabooseMaxAge) passes or FlushAll is called.
//
// HTTPTransport posts batches encoded by a Codec (msgpack, HMAC-signed or
// sealed with AES-GCM) and retries network errors and 5xx responses with
// exponential backoff.
//
// # Errors
//
// Errors carry a Severity. Broken client action code yields an
// ActionDefDecodeError with SeverityQuiet; callers may log it and carry on
// without the definition. Use SeverityOf to read the severity of any error.
//
// # Testing
//
// TestTransport answers batches in memory, NewTestHandler serves the HTTP
// wire format, and CallbackRecorder collects responses:
//
//	resp := aura.TestRun(def, aura.NewComponent("test"), params, nil)
//	if !resp.IsSuccess() { ... }
package aura
