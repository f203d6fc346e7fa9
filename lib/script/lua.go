// Package script compiles client action bodies written in Lua.
//
// A client action's code is a Lua function literal taking the bound
// component and the action params:
//
//	function(cmp, params)
//	  local n = (cmp:get("count") or 0) + (params.step or 1)
//	  cmp:set("count", n)
//	  return n
//	end
//
// The component is exposed with get, set and id methods. A function may
// signal failure by raising an error or by returning nil plus a message.
//
// Compile checks the source once. Each call runs in a fresh, sandboxed Lua
// state (no io, os, package or file loading), so a compiled method can be
// shared by concurrently running actions.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/pthm/aura"
)

const componentTypeName = "aura.component"

// maxTableDepth bounds how deeply nested a returned table may be. Tables
// that reference themselves hit it too.
const maxTableDepth = 32

var (
	// ErrNotFunction is returned when a source does not evaluate to a function.
	ErrNotFunction = errors.New("script: source is not a function")
	// ErrTableTooDeep is returned when a table handed back to Go nests
	// deeper than maxTableDepth, usually because it contains itself.
	ErrTableTooDeep = fmt.Errorf("script: table nested deeper than %d levels or self-referencing", maxTableDepth)
)

// Compiler compiles Lua client actions. The zero value is ready to use.
type Compiler struct{}

// NewCompiler creates a Lua compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile implements aura.Compiler.
func (c *Compiler) Compile(source string) (aura.Method, error) {
	chunk := strings.TrimSpace(source)
	if !strings.HasPrefix(chunk, "return") {
		chunk = "return " + chunk
	}

	l := newSandbox()
	if err := loadFunction(l, chunk); err != nil {
		return nil, err
	}

	return func(ctx context.Context, cmp aura.Component, params map[string]any) (any, error) {
		return call(chunk, cmp, params)
	}, nil
}

// newSandbox creates a state with only the base, string, table and math
// libraries, and without the file loading functions of the base library.
func newSandbox() *lua.State {
	l := lua.NewState()
	for _, lib := range []lua.RegistryFunction{
		{Name: "_G", Function: lua.BaseOpen},
		{Name: "string", Function: lua.StringOpen},
		{Name: "table", Function: lua.TableOpen},
		{Name: "math", Function: lua.MathOpen},
	} {
		lua.Require(l, lib.Name, lib.Function, true)
		l.Pop(1)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		l.PushNil()
		l.SetGlobal(name)
	}
	registerComponentType(l)
	return l
}

// loadFunction evaluates chunk and leaves the resulting function on the stack.
func loadFunction(l *lua.State, chunk string) error {
	if err := lua.LoadString(l, chunk); err != nil {
		return fmt.Errorf("script: compile: %w", err)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return fmt.Errorf("script: evaluate: %w", err)
	}
	if !l.IsFunction(-1) {
		l.Pop(1)
		return ErrNotFunction
	}
	return nil
}

func call(chunk string, cmp aura.Component, params map[string]any) (any, error) {
	l := newSandbox()
	if err := loadFunction(l, chunk); err != nil {
		return nil, err
	}

	pushComponent(l, cmp)
	pushValue(l, params)
	if err := l.ProtectedCall(2, 2, 0); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	if l.IsNil(-2) && !l.IsNoneOrNil(-1) {
		msg, _ := l.ToString(-1)
		return nil, fmt.Errorf("script: %s", msg)
	}
	return toGo(l, -2)
}

func registerComponentType(l *lua.State) {
	lua.NewMetaTable(l, componentTypeName)
	l.NewTable()
	lua.SetFunctions(l, componentMethods, 0)
	l.SetField(-2, "__index")
	l.Pop(1)
}

var componentMethods = []lua.RegistryFunction{
	{Name: "get", Function: componentGet},
	{Name: "set", Function: componentSet},
	{Name: "id", Function: componentID},
}

func checkComponent(l *lua.State) aura.Component {
	ud := lua.CheckUserData(l, 1, componentTypeName)
	if cmp, ok := ud.(aura.Component); ok && cmp != nil {
		return cmp
	}
	lua.ArgumentError(l, 1, "component expected")
	return nil
}

func componentGet(l *lua.State) int {
	cmp := checkComponent(l)
	key := lua.CheckString(l, 2)
	pushValue(l, cmp.Get(key))
	return 1
}

func componentSet(l *lua.State) int {
	cmp := checkComponent(l)
	key := lua.CheckString(l, 2)
	v, err := toGo(l, 3)
	if err != nil {
		lua.Errorf(l, "%s", err.Error())
	}
	cmp.Set(key, v)
	return 0
}

func componentID(l *lua.State) int {
	cmp := checkComponent(l)
	l.PushString(cmp.GlobalID())
	return 1
}

func pushComponent(l *lua.State, cmp aura.Component) {
	if cmp == nil {
		l.PushNil()
		return
	}
	l.PushUserData(cmp)
	lua.SetMetaTableNamed(l, componentTypeName)
}

// pushValue converts a Go value to Lua. Unsupported types are pushed as
// their string form.
func pushValue(l *lua.State, v any) {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case string:
		l.PushString(x)
	case int:
		l.PushInteger(x)
	case int8:
		l.PushInteger(int(x))
	case int16:
		l.PushInteger(int(x))
	case int32:
		l.PushInteger(int(x))
	case int64:
		l.PushNumber(float64(x))
	case uint8:
		l.PushInteger(int(x))
	case uint16:
		l.PushInteger(int(x))
	case uint32:
		l.PushNumber(float64(x))
	case uint64:
		l.PushNumber(float64(x))
	case float32:
		l.PushNumber(float64(x))
	case float64:
		l.PushNumber(x)
	case []any:
		l.CreateTable(len(x), 0)
		for i, item := range x {
			pushValue(l, item)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CreateTable(0, len(x))
		for k, item := range x {
			pushValue(l, item)
			l.SetField(-2, k)
		}
	case aura.Component:
		pushComponent(l, x)
	default:
		l.PushString(fmt.Sprint(x))
	}
}

// toGo converts the Lua value at index to Go. Tables with consecutive
// integer keys from 1 become []any, other tables map[string]any.
func toGo(l *lua.State, index int) (any, error) {
	return valueToGo(l, index, 0)
}

func valueToGo(l *lua.State, index, depth int) (any, error) {
	switch l.TypeOf(index) {
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s, nil
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		return normalizeNumber(n), nil
	case lua.TypeBoolean:
		return l.ToBoolean(index), nil
	case lua.TypeTable:
		return tableToGo(l, index, depth+1)
	case lua.TypeUserData:
		return l.ToUserData(index), nil
	default:
		return nil, nil
	}
}

func tableToGo(l *lua.State, index, depth int) (any, error) {
	if depth > maxTableDepth {
		return nil, ErrTableTooDeep
	}
	// Each level holds a key and a value on the stack.
	if !l.CheckStack(2) {
		return nil, ErrTableTooDeep
	}

	index = l.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	l.PushNil()
	for l.Next(index) {
		if isArray {
			if l.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := l.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(index, i)
			v, err := valueToGo(l, -1, depth)
			l.Pop(1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	out := map[string]any{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			v, err := valueToGo(l, -1, depth)
			if err != nil {
				l.Pop(2)
				return nil, err
			}
			out[key] = v
		}
		l.Pop(1)
	}
	return out, nil
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 && math.Abs(value) < 1<<53 {
		return int(value)
	}
	return value
}
