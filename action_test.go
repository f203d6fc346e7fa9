package aura

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	actions []*Action
	err     error
}

func (q *recordingQueue) Enqueue(a *Action) error {
	if q.err != nil {
		return q.err
	}
	q.actions = append(q.actions, a)
	return nil
}

func TestActionID(t *testing.T) {
	def := NewClientActionDef("echo", "c:C/ACTION$echo", echoMethod)
	a := def.NewInstance(NewComponent("c"))

	assert.True(t, strings.HasSuffix(a.ID(), ";a"), "ID() = %q", a.ID())
	assert.Equal(t, StatusNew, a.State())
	assert.Nil(t, a.Response(), "no response before Run")
}

func TestRun_ClientSuccess(t *testing.T) {
	cmp := NewComponent("counter")
	def := NewClientActionDef("incr", "c:C/ACTION$incr", func(ctx context.Context, cmp Component, params map[string]any) (any, error) {
		n, _ := cmp.Get("n").(int)
		n += params["by"].(int)
		cmp.Set("n", n)
		return n, nil
	})

	var rec CallbackRecorder
	def.NewInstance(cmp).Run(context.Background(), nil, map[string]any{"by": 3}, rec.Callback())

	// Client actions complete before Run returns.
	require.Equal(t, 1, rec.Count())
	resp := rec.Last()
	require.True(t, resp.IsSuccess(), "status %s, err %v", resp.Status, resp.Err)
	assert.Equal(t, 3, resp.ReturnValue)
	assert.Equal(t, 3, cmp.Get("n"))
}

func TestRun_ClientIgnoresQueue(t *testing.T) {
	q := &recordingQueue{}
	def := NewClientActionDef("echo", "c:C/ACTION$echo", echoMethod)

	var rec CallbackRecorder
	def.NewInstance(NewComponent("c")).Run(context.Background(), q, map[string]any{"x": "v"}, rec.Callback())

	assert.Empty(t, q.actions, "client action was enqueued")
	assert.Equal(t, "v", rec.Last().ReturnValue)
}

func TestRun_ClientError(t *testing.T) {
	boom := errors.New("boom")
	def := NewClientActionDef("fail", "c:C/ACTION$fail", func(ctx context.Context, cmp Component, params map[string]any) (any, error) {
		return nil, boom
	})

	a := def.NewInstance(NewComponent("c"))
	var rec CallbackRecorder
	a.Run(context.Background(), nil, nil, rec.Callback())

	resp := rec.Last()
	assert.Equal(t, StatusError, resp.Status)
	assert.ErrorIs(t, resp.Err, boom)
	assert.Equal(t, StatusError, a.State())
}

func TestRun_ClientPanic(t *testing.T) {
	def := NewClientActionDef("panic", "c:C/ACTION$panic", func(ctx context.Context, cmp Component, params map[string]any) (any, error) {
		panic("bad state")
	})

	var rec CallbackRecorder
	def.NewInstance(NewComponent("c")).Run(context.Background(), nil, nil, rec.Callback())

	resp := rec.Last()
	require.NotNil(t, resp)
	assert.Equal(t, StatusError, resp.Status)
	assert.ErrorContains(t, resp.Err, "bad state")
}

func TestRun_ServerEnqueues(t *testing.T) {
	q := &recordingQueue{}
	def := NewServerActionDef("save", "c:C/ACTION$save", ServerOptions{Params: []ParamDef{{Name: "id", Required: true}}})

	a := def.NewInstance(NewComponent("c"))
	var rec CallbackRecorder
	a.Run(context.Background(), q, map[string]any{"id": 1}, rec.Callback())

	require.Len(t, q.actions, 1)
	assert.Same(t, a, q.actions[0])
	assert.Zero(t, rec.Count(), "callback fired before the server answered")
	assert.Equal(t, StatusRunning, a.State())
}

func TestRun_ServerInvalidParams(t *testing.T) {
	q := &recordingQueue{}
	def := NewServerActionDef("save", "c:C/ACTION$save", ServerOptions{Params: []ParamDef{{Name: "id", Required: true}}})

	var rec CallbackRecorder
	def.NewInstance(NewComponent("c")).Run(context.Background(), q, map[string]any{"bogus": 1}, rec.Callback())

	assert.Empty(t, q.actions, "invalid action must not be enqueued")
	resp := rec.Last()
	require.NotNil(t, resp)
	assert.Equal(t, StatusError, resp.Status)

	var pe *InvalidParameterError
	require.ErrorAs(t, resp.Err, &pe)
	assert.Equal(t, []string{"bogus"}, pe.Unknown)
	assert.Equal(t, []string{"id"}, pe.Missing)
}

func TestRun_ServerWithoutQueue(t *testing.T) {
	def := NewServerActionDef("ping", "c:C/ACTION$ping", ServerOptions{})

	var rec CallbackRecorder
	def.NewInstance(NewComponent("c")).Run(context.Background(), nil, nil, rec.Callback())

	require.NotNil(t, rec.Last())
	assert.ErrorIs(t, rec.Last().Err, ErrNoQueue)
}

func TestRun_ServerEnqueueError(t *testing.T) {
	full := errors.New("queue full")
	def := NewServerActionDef("ping", "c:C/ACTION$ping", ServerOptions{})

	var rec CallbackRecorder
	def.NewInstance(NewComponent("c")).Run(context.Background(), &recordingQueue{err: full}, nil, rec.Callback())

	resp := rec.Last()
	require.NotNil(t, resp)
	assert.Equal(t, StatusError, resp.Status)
	assert.ErrorIs(t, resp.Err, full)
}

func TestRun_Twice(t *testing.T) {
	def := NewClientActionDef("echo", "c:C/ACTION$echo", echoMethod)
	a := def.NewInstance(NewComponent("c"))

	var first, second CallbackRecorder
	a.Run(context.Background(), nil, nil, first.Callback())
	a.Run(context.Background(), nil, nil, second.Callback())

	assert.Equal(t, 1, first.Count())
	assert.True(t, first.Last().IsSuccess())
	require.NotNil(t, second.Last())
	assert.ErrorIs(t, second.Last().Err, ErrAlreadyRun)
	assert.True(t, a.Response().IsSuccess(), "second run must not replace the first response")
}

func TestRun_NilCallback(t *testing.T) {
	def := NewClientActionDef("echo", "c:C/ACTION$echo", echoMethod)
	a := def.NewInstance(NewComponent("c"))

	a.Run(context.Background(), nil, map[string]any{"x": 1}, nil)

	resp := a.Response()
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 1, resp.ReturnValue)
}

func TestComplete_Once(t *testing.T) {
	def := NewServerActionDef("ping", "c:C/ACTION$ping", ServerOptions{})
	a := def.NewInstance(NewComponent("c"))

	var rec CallbackRecorder
	a.Run(context.Background(), &recordingQueue{}, nil, rec.Callback())
	a.complete(StatusSuccess, "first", nil)
	a.complete(StatusIncomplete, nil, errors.New("late"))

	require.Equal(t, 1, rec.Count())
	assert.Equal(t, StatusSuccess, a.State())
	assert.Equal(t, "first", a.Response().ReturnValue)
}

func TestRequest(t *testing.T) {
	def := NewServerActionDef("save", "c:C/ACTION$save", ServerOptions{
		Params:  []ParamDef{{Name: "id"}},
		Caboose: true,
	})
	a := def.NewInstance(NewComponent("c"))
	a.SetParams(map[string]any{"id": 9})

	req := a.request()
	assert.Equal(t, a.ID(), req.ID)
	assert.Equal(t, "c:C/ACTION$save", req.Descriptor)
	assert.True(t, req.Caboose)
	assert.False(t, req.Background)
	assert.Equal(t, 9, req.Params["id"])
}
