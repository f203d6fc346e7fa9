package aura

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is one invocation of an ActionDef, bound to the component that
// requested it.
//
// An Action lives from Run until its callback has fired. It owns its
// params; the definition, method and parameter definitions are shared
// read-only with every other instance of the same ActionDef.
//
//	a := def.NewInstance(cmp)
//	a.Run(ctx, engine, map[string]any{"id": 42}, func(resp *aura.Response) {
//	    if resp.IsSuccess() {
//	        cmp.Set("item", resp.ReturnValue)
//	    }
//	})
type Action struct {
	id         string
	def        *ActionDef
	kind       string
	meth       Method
	paramDefs  map[string]ParamDef
	background bool
	caboose    bool
	cmp        Component

	// enqueuedAt is owned by the Engine holding the action.
	enqueuedAt time.Time

	mu       sync.Mutex
	params   map[string]any
	callback Callback
	state    Status
	queued   bool
	resp     *Response
}

func newAction(def *ActionDef, kind string, meth Method, paramDefs map[string]ParamDef, background bool, cmp Component, caboose bool) *Action {
	return &Action{
		id:         uuid.NewString() + ";" + kind,
		def:        def,
		kind:       kind,
		meth:       meth,
		paramDefs:  paramDefs,
		background: background,
		caboose:    caboose,
		cmp:        cmp,
		params:     map[string]any{},
		state:      StatusNew,
	}
}

// ID returns the unique id of this invocation, suffixed with its kind tag.
func (a *Action) ID() string { return a.id }

// Def returns the definition this action was created from.
func (a *Action) Def() *ActionDef { return a.def }

// Kind returns the invocation kind tag ("a" for ordinary actions).
func (a *Action) Kind() string { return a.kind }

// Component returns the component the action is bound to.
func (a *Action) Component() Component { return a.cmp }

// IsBackground reports whether the action is sent outside the main batch.
func (a *Action) IsBackground() bool { return a.background }

// IsCaboose reports whether the action may wait for a later batch.
func (a *Action) IsCaboose() bool { return a.caboose }

// SetParams replaces the action's params with a copy of params.
func (a *Action) SetParams(params map[string]any) {
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	a.mu.Lock()
	a.params = cp
	a.mu.Unlock()
}

// SetParam sets a single param.
func (a *Action) SetParam(name string, value any) {
	a.mu.Lock()
	a.params[name] = value
	a.mu.Unlock()
}

// Param returns a single param.
func (a *Action) Param(name string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.params[name]
	return v, ok
}

// Params returns a copy of the action's params.
func (a *Action) Params() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make(map[string]any, len(a.params))
	for k, v := range a.params {
		cp[k] = v
	}
	return cp
}

// State returns the current lifecycle state.
func (a *Action) State() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Response returns the final response, or nil while the action is pending.
func (a *Action) Response() *Response {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resp
}

// Run executes the action with params and reports the outcome to cb.
//
// Client actions execute their method synchronously and call cb before Run
// returns. Server actions are validated against their parameter
// definitions and handed to q; cb fires once the batch carrying the action
// has been answered. Errors never escape Run: they reach cb as an ERROR
// response. An Action can be run once.
func (a *Action) Run(ctx context.Context, q Enqueuer, params map[string]any, cb Callback) {
	a.mu.Lock()
	if a.state != StatusNew {
		a.mu.Unlock()
		if cb != nil {
			cb(&Response{ActionID: a.id, Status: StatusError, Err: ErrAlreadyRun})
		}
		return
	}
	a.state = StatusRunning
	a.callback = cb
	a.mu.Unlock()

	if params != nil {
		a.SetParams(params)
	}

	switch a.def.ActionType() {
	case ActionTypeClient:
		val, err := a.invoke(ctx)
		if err != nil {
			a.complete(StatusError, nil, err)
			return
		}
		a.complete(StatusSuccess, val, nil)

	case ActionTypeServer:
		if err := validateParams(a.def.Descriptor(), a.paramDefs, a.Params()); err != nil {
			a.complete(StatusError, nil, err)
			return
		}
		if q == nil {
			a.complete(StatusError, nil, ErrNoQueue)
			return
		}
		if err := q.Enqueue(a); err != nil {
			a.complete(StatusError, nil, err)
		}
	}
}

// invoke runs the client method, turning a panic into an error.
func (a *Action) invoke(ctx context.Context) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aura: client action %s panicked: %v", a.def.Descriptor(), r)
		}
	}()
	return a.meth(ctx, a.cmp, a.Params())
}

// request returns the wire form of a server action.
func (a *Action) request() Request {
	return Request{
		ID:         a.id,
		Descriptor: a.def.Descriptor(),
		Params:     a.Params(),
		Background: a.background,
		Caboose:    a.caboose,
	}
}

// complete records the terminal state and fires the callback. Only the
// first call has an effect.
func (a *Action) complete(status Status, val any, err error) {
	a.mu.Lock()
	if a.state.Terminal() {
		a.mu.Unlock()
		return
	}
	resp := &Response{ActionID: a.id, Status: status, ReturnValue: val, Err: err}
	a.state = status
	a.resp = resp
	cb := a.callback
	a.callback = nil
	a.mu.Unlock()

	if cb != nil {
		cb(resp)
	}
}
