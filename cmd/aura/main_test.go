package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/aura"
)

func TestDispatch_FlushLoop(t *testing.T) {
	tr := &aura.TestTransport{Handler: func(req aura.Request) aura.ActionResponse {
		return aura.RespondSuccess(req, req.Params["id"])
	}}
	engine := aura.NewEngine(tr)
	def := aura.NewServerActionDef("get", "c:Todo/ACTION$get", aura.ServerOptions{
		Params: []aura.ParamDef{{Name: "id", Required: true}},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := dispatch(ctx, def.NewInstance(aura.NewComponent("cli")), engine, map[string]any{"id": 7}, time.Millisecond, 0)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 7, resp.ReturnValue)
	assert.Len(t, tr.Batches(), 1)
}

func TestDispatch_CabooseFlushedDirectly(t *testing.T) {
	tr := &aura.TestTransport{}
	engine := aura.NewEngine(tr)
	def := aura.NewServerActionDef("log", "c:Todo/ACTION$log", aura.ServerOptions{Caboose: true})

	// An hour-long interval shows the response does not come from the loop.
	resp, err := dispatch(context.Background(), def.NewInstance(aura.NewComponent("cli")), engine, nil, time.Hour, 0)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	require.Len(t, tr.Batches(), 1)
	assert.True(t, tr.Batches()[0].Actions[0].Caboose)
}

func TestDispatch_CabooseMaxAge(t *testing.T) {
	tr := &aura.TestTransport{}
	engine := aura.NewEngine(tr, aura.WithCabooseMaxAge(time.Millisecond))
	def := aura.NewServerActionDef("log", "c:Todo/ACTION$log", aura.ServerOptions{Caboose: true})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := dispatch(ctx, def.NewInstance(aura.NewComponent("cli")), engine, nil, time.Millisecond, time.Millisecond)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}

func TestDispatch_ClientAction(t *testing.T) {
	def := aura.NewClientActionDef("echo", "c:Todo/ACTION$echo", func(ctx context.Context, cmp aura.Component, params map[string]any) (any, error) {
		return params["x"], nil
	})

	resp, err := dispatch(context.Background(), def.NewInstance(aura.NewComponent("cli")), nil, map[string]any{"x": "hi"}, time.Millisecond, 0)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.ReturnValue)
}

func TestDispatch_Cancelled(t *testing.T) {
	// Nothing answers a caboose action held by the loop.
	engine := aura.NewEngine(&aura.TestTransport{})
	def := aura.NewServerActionDef("log", "c:Todo/ACTION$log", aura.ServerOptions{Caboose: true})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := dispatch(ctx, def.NewInstance(aura.NewComponent("cli")), engine, nil, time.Millisecond, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"id=7", `note="hi"`, "raw=plain", "tags=[1,2]"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":   float64(7),
		"note": "hi",
		"raw":  "plain",
		"tags": []any{float64(1), float64(2)},
	}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
}
