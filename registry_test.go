package aura

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustController(t *testing.T, descriptor string, names ...string) *ControllerDef {
	t.Helper()
	var defs []*ActionDef
	for _, name := range names {
		defs = append(defs, NewServerActionDef(name, ActionDescriptor(descriptor, name), ServerOptions{}))
	}
	ctrl, err := NewControllerDef(descriptor, defs...)
	require.NoError(t, err)
	return ctrl
}

func TestRegistry_ActionDef(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(mustController(t, "c:Todo", "save", "list")))

	def, err := reg.ActionDef("c:Todo/ACTION$save")
	require.NoError(t, err)
	assert.Equal(t, "save", def.Name())

	tests := []struct {
		descriptor string
		wantErr    error
	}{
		{"c:Todo/ACTION$delete", ErrUnknownAction},
		{"c:Other/ACTION$save", ErrUnknownAction},
		{"c:Todo", ErrInvalidDescriptor},
	}
	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			_, err := reg.ActionDef(tt.descriptor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(mustController(t, "c:Todo", "save")))

	err := reg.Add(mustController(t, "c:Notes", "list"), mustController(t, "c:Todo", "other"))
	require.ErrorIs(t, err, ErrDuplicateController)
	_, ok := reg.Controller("c:Notes")
	assert.False(t, ok, "a failed Add must not register any controller")

	err = reg.Add(mustController(t, "c:A"), mustController(t, "c:A"))
	assert.ErrorIs(t, err, ErrDuplicateController, "duplicate within one call")
}

func TestRegistry_Controllers(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(mustController(t, "c:Zeta"), mustController(t, "c:Alpha")))

	ctrls := reg.Controllers()
	require.Len(t, ctrls, 2)
	assert.Equal(t, "c:Alpha", ctrls[0].Descriptor())
	assert.Equal(t, "c:Zeta", ctrls[1].Descriptor())
}

func TestRegistry_NewInstance(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(mustController(t, "c:Todo", "save")))
	cmp := NewComponent("c")

	a, err := reg.NewInstance("c:Todo/ACTION$save", cmp)
	require.NoError(t, err)
	assert.Equal(t, Component(cmp), a.Component())
	assert.Equal(t, "c:Todo/ACTION$save", a.Def().Descriptor())

	_, err = reg.NewInstance("c:Todo/ACTION$nope", cmp)
	assert.True(t, IsUnknownAction(err), "NewInstance() error = %v", err)
}
