package aura

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScript struct {
	sources []string
}

func (f *fakeScript) Compile(source string) (Method, error) {
	f.sources = append(f.sources, source)
	if source == "bad" {
		return nil, errors.New("syntax error")
	}
	return echoMethod, nil
}

func TestMethodTable_Compile(t *testing.T) {
	for _, src := range []string{"echo", "go:echo", "  go:echo  "} {
		m, err := testTable.Compile(src)
		assert.NoError(t, err, "Compile(%q)", src)
		assert.NotNil(t, m, "Compile(%q)", src)
	}

	_, err := testTable.Compile("go:missing")
	assert.Error(t, err, "unknown name")
	_, err = (MethodTable{"nil": nil}).Compile("nil")
	assert.Error(t, err, "nil entry")
}

func TestMethodTable_Merge(t *testing.T) {
	other := func(ctx context.Context, cmp Component, params map[string]any) (any, error) {
		return "other", nil
	}
	merged := testTable.Merge(MethodTable{"echo": other, "extra": other})

	require.Len(t, merged, 2)
	got, _ := merged["echo"](context.Background(), nil, nil)
	assert.Equal(t, "other", got, "later tables win")
	assert.Len(t, testTable, 1, "Merge must not modify the receiver")
}

func TestCompilers_Routing(t *testing.T) {
	script := &fakeScript{}
	c := Compilers{Table: testTable, Script: script}

	_, err := c.Compile("go:echo")
	assert.NoError(t, err)
	assert.Empty(t, script.sources, "table sources must not reach the script compiler")

	_, err = c.Compile("function(cmp, params) return 1 end")
	assert.NoError(t, err)
	_, err = c.Compile("bad")
	assert.Error(t, err, "script errors propagate")
	assert.Len(t, script.sources, 2)
}

func TestCompilers_Missing(t *testing.T) {
	_, err := (Compilers{}).Compile("go:echo")
	assert.Error(t, err, "no table configured")
	_, err = (Compilers{Table: testTable}).Compile("function() end")
	assert.Error(t, err, "no script compiler configured")
}

func TestComponent(t *testing.T) {
	a, b := NewComponent("ui:a"), NewComponent("ui:a")
	assert.NotEmpty(t, a.GlobalID())
	assert.NotEqual(t, a.GlobalID(), b.GlobalID(), "global ids are unique")
	assert.Equal(t, "ui:a", a.Name())

	assert.Nil(t, a.Get("x"))
	a.Set("x", 1)
	attrs := a.Attributes()
	attrs["x"] = 2
	assert.Equal(t, 1, a.Get("x"), "Attributes() returns a copy")
}
