package aura

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestTransport_DefaultHandler(t *testing.T) {
	tr := &TestTransport{}
	batch := &Batch{ID: "b", Actions: []Request{{ID: "1;a"}, {ID: "2;a"}}}

	resp, err := tr.Send(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, resp.Actions, 2)
	for _, ar := range resp.Actions {
		assert.Equal(t, StatusSuccess, ar.State, ar.ID)
	}
	assert.Len(t, tr.Requests(), 2)

	tr.Reset()
	assert.Empty(t, tr.Batches(), "Reset() forgets batches")
}

func TestTestTransport_FillsResponseID(t *testing.T) {
	tr := &TestTransport{Handler: func(req Request) ActionResponse {
		return ActionResponse{State: StatusSuccess, ReturnValue: 1}
	}}
	resp, err := tr.Send(context.Background(), &Batch{Actions: []Request{{ID: "x;a"}}})
	require.NoError(t, err)
	_, ok := resp.Lookup("x;a")
	assert.True(t, ok, "responses without an id are correlated to their request")
}

func TestTestTransport_Fail(t *testing.T) {
	down := errors.New("down")
	tr := &TestTransport{Fail: down}
	_, err := tr.Send(context.Background(), &Batch{})
	assert.ErrorIs(t, err, down)
	assert.Len(t, tr.Batches(), 1, "failed batches are still recorded")
}

func TestRespondError(t *testing.T) {
	ar := RespondError(Request{ID: "1;a"}, "a", "b")
	assert.Equal(t, "1;a", ar.ID)
	assert.Equal(t, StatusError, ar.State)
	require.Len(t, ar.Errors, 2)
	assert.Equal(t, "b", ar.Errors[1].Message)
}

func TestCallbackRecorder(t *testing.T) {
	var rec CallbackRecorder
	require.Nil(t, rec.Last())
	require.Zero(t, rec.Count())

	cb := rec.Callback()
	cb(&Response{ActionID: "1", Status: StatusSuccess})
	cb(&Response{ActionID: "2", Status: StatusIncomplete})

	assert.Equal(t, 2, rec.Count())
	assert.Equal(t, "2", rec.Last().ActionID)
	assert.True(t, rec.HasStatus(StatusIncomplete))
	assert.False(t, rec.HasStatus(StatusError))
	assert.Equal(t, "1", rec.Responses()[0].ActionID)
}

func TestStatusTerminal(t *testing.T) {
	tests := map[Status]bool{
		StatusNew:        false,
		StatusRunning:    false,
		StatusSuccess:    true,
		StatusError:      true,
		StatusIncomplete: true,
	}
	for s, want := range tests {
		assert.Equal(t, want, s.Terminal(), "%s.Terminal()", s)
	}

	var nilResp *Response
	assert.False(t, nilResp.IsSuccess(), "nil response is not a success")
}
