package aura

import (
	"context"
	"io"
	"net/http"
	"sync"
)

// TestTransport is an in-memory Transport for tests.
//
// Every batch is recorded. Requests are answered by Handler; when Handler
// is nil every action succeeds with a nil return value. Setting Fail makes
// Send fail without answering.
//
//	tr := &aura.TestTransport{Handler: func(req aura.Request) aura.ActionResponse {
//	    return aura.RespondSuccess(req, "done")
//	}}
//	engine := aura.NewEngine(tr)
type TestTransport struct {
	Handler func(req Request) ActionResponse
	Fail    error

	mu      sync.Mutex
	batches []*Batch
}

// Send implements Transport.
func (t *TestTransport) Send(ctx context.Context, batch *Batch) (*BatchResponse, error) {
	t.mu.Lock()
	t.batches = append(t.batches, batch)
	handler, fail := t.Handler, t.Fail
	t.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return answerBatch(batch, handler), nil
}

// Batches returns the batches sent so far.
func (t *TestTransport) Batches() []*Batch {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Batch, len(t.batches))
	copy(out, t.batches)
	return out
}

// Requests returns every request sent so far, in send order.
func (t *TestTransport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Request
	for _, b := range t.batches {
		out = append(out, b.Actions...)
	}
	return out
}

// Reset forgets recorded batches.
func (t *TestTransport) Reset() {
	t.mu.Lock()
	t.batches = nil
	t.mu.Unlock()
}

func answerBatch(batch *Batch, handler func(Request) ActionResponse) *BatchResponse {
	resp := &BatchResponse{Actions: make([]ActionResponse, 0, len(batch.Actions))}
	for _, req := range batch.Actions {
		if handler == nil {
			resp.Actions = append(resp.Actions, RespondSuccess(req, nil))
			continue
		}
		ar := handler(req)
		if ar.ID == "" {
			ar.ID = req.ID
		}
		resp.Actions = append(resp.Actions, ar)
	}
	return resp
}

// RespondSuccess answers req with SUCCESS and value.
func RespondSuccess(req Request, value any) ActionResponse {
	return ActionResponse{ID: req.ID, State: StatusSuccess, ReturnValue: value}
}

// RespondError answers req with ERROR and the given messages.
func RespondError(req Request, messages ...string) ActionResponse {
	errs := make([]WireError, 0, len(messages))
	for _, m := range messages {
		errs = append(errs, WireError{Message: m})
	}
	return ActionResponse{ID: req.ID, State: StatusError, Errors: errs}
}

// NewTestHandler returns an http.Handler speaking the HTTPTransport wire
// format, answering each request with handler. Use it with httptest to
// exercise an HTTPTransport end to end:
//
//	srv := httptest.NewServer(aura.NewTestHandler(codec, handler))
//	defer srv.Close()
//	tr := aura.NewHTTPTransport(srv.URL, codec)
func NewTestHandler(codec *Codec, handler func(req Request) ActionResponse) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Content-Type") != ContentTypeBatch {
			http.Error(w, "Unsupported media type", http.StatusUnsupportedMediaType)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		var batch Batch
		if err := codec.Decode(string(body), &batch); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		encoded, err := codec.Encode(answerBatch(&batch, handler))
		if err != nil {
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ContentTypeBatch)
		_, _ = io.WriteString(w, encoded)
	})
}

// CallbackRecorder collects the responses delivered to its callback.
type CallbackRecorder struct {
	mu        sync.Mutex
	responses []*Response
}

// Callback returns a Callback recording into r.
func (r *CallbackRecorder) Callback() Callback {
	return func(resp *Response) {
		r.mu.Lock()
		r.responses = append(r.responses, resp)
		r.mu.Unlock()
	}
}

// Responses returns the recorded responses in delivery order.
func (r *CallbackRecorder) Responses() []*Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Response, len(r.responses))
	copy(out, r.responses)
	return out
}

// Count returns the number of recorded responses.
func (r *CallbackRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.responses)
}

// Last returns the most recent response, or nil.
func (r *CallbackRecorder) Last() *Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return nil
	}
	return r.responses[len(r.responses)-1]
}

// HasStatus returns true if any recorded response has status.
func (r *CallbackRecorder) HasStatus(status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.responses {
		if resp.Status == status {
			return true
		}
	}
	return false
}

// TestRun runs one instance of def bound to cmp and returns its response.
//
// Server actions are answered by handler (nil succeeds with no value)
// through a TestTransport and flushed immediately, caboose included, so
// the response is always available when TestRun returns.
//
//	resp := aura.TestRun(def, cmp, map[string]any{"x": 1}, nil)
//	if !resp.IsSuccess() {
//	    t.Fatal(resp.Err)
//	}
func TestRun(def *ActionDef, cmp Component, params map[string]any, handler func(req Request) ActionResponse) *Response {
	ctx := context.Background()
	engine := NewEngine(&TestTransport{Handler: handler})

	var rec CallbackRecorder
	def.NewInstance(cmp).Run(ctx, engine, params, rec.Callback())
	_ = engine.FlushAll(ctx)
	return rec.Last()
}
