package aura

// Status is the lifecycle state of an action instance. The terminal states
// are the ones reported to callbacks.
type Status string

const (
	StatusNew     Status = "NEW"
	StatusRunning Status = "RUNNING"

	// StatusSuccess is reported when the action completed normally.
	StatusSuccess Status = "SUCCESS"
	// StatusError is reported when the action itself failed: invalid
	// params, a failing client method or a server-side error.
	StatusError Status = "ERROR"
	// StatusIncomplete is reported when the server never answered for the
	// action, e.g. the transport failed.
	StatusIncomplete Status = "INCOMPLETE"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusIncomplete
}

// Response is delivered to an action's callback exactly once.
type Response struct {
	ActionID    string
	Status      Status
	ReturnValue any
	Err         error
}

// IsSuccess returns true if the action completed with StatusSuccess.
func (r *Response) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// Callback receives the outcome of an action. Client actions call it before
// Run returns; server actions call it from the goroutine that flushes the
// engine.
type Callback func(resp *Response)
