package aura

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionType selects where an action's logic runs.
type ActionType string

const (
	// ActionTypeClient actions run locally, with no server round-trip.
	ActionTypeClient ActionType = "CLIENT"
	// ActionTypeServer actions are queued and executed by the remote controller.
	ActionTypeServer ActionType = "SERVER"
)

// ParseActionType parses the wire form of an action type.
func ParseActionType(s string) (ActionType, bool) {
	switch t := ActionType(s); t {
	case ActionTypeClient, ActionTypeServer:
		return t, true
	default:
		return "", false
	}
}

// invocationKind tags ordinary action instances. It is the suffix of every
// action id.
const invocationKind = "a"

var (
	errNoCompiler  = errors.New("no compiler configured for client actions")
	errEmptySource = errors.New("empty source")
)

// ParamDef describes one declared parameter of a server action.
type ParamDef struct {
	Name     string `json:"name" msgpack:"name"`
	Type     string `json:"type,omitempty" msgpack:"type,omitempty"`
	Required bool   `json:"required,omitempty" msgpack:"required,omitempty"`
}

// ServerOptions carries the server-only parts of an action definition.
type ServerOptions struct {
	ReturnType string
	Params     []ParamDef
	Background bool
	Caboose    bool
}

// ActionDef is the immutable definition of one invocable action.
//
// Definitions are created once per controller when its definition is
// loaded and are shared by every action instance created from them. Only
// the constructors set fields, so a client definition never carries
// parameter definitions and a server definition never carries a method.
type ActionDef struct {
	name       string
	descriptor string
	actionType ActionType
	returnType string
	paramDefs  map[string]ParamDef
	meth       Method
	background bool
	caboose    bool
}

// NewClientActionDef creates a client action definition executing meth.
// Panics if meth is nil.
func NewClientActionDef(name, descriptor string, meth Method) *ActionDef {
	if meth == nil {
		panic(fmt.Sprintf("aura: nil method for client action %s", descriptor))
	}
	return &ActionDef{
		name:       name,
		descriptor: descriptor,
		actionType: ActionTypeClient,
		meth:       meth,
	}
}

// NewServerActionDef creates a server action definition. Duplicate
// parameter names are collapsed, the last definition winning.
func NewServerActionDef(name, descriptor string, opts ServerOptions) *ActionDef {
	params := make(map[string]ParamDef, len(opts.Params))
	for _, p := range opts.Params {
		params[p.Name] = p
	}
	return &ActionDef{
		name:       name,
		descriptor: descriptor,
		actionType: ActionTypeServer,
		returnType: opts.ReturnType,
		paramDefs:  params,
		background: opts.Background,
		caboose:    opts.Caboose,
	}
}

// DefConfig is the serialized form of an action definition as produced by
// the component-definition loader.
type DefConfig struct {
	Name       string          `json:"name"`
	Descriptor string          `json:"descriptor"`
	ActionType string          `json:"actionType"`
	ReturnType *TypeRef        `json:"returnType,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
	Background any             `json:"background,omitempty"`
	Caboose    any             `json:"caboose,omitempty"`
	Code       string          `json:"code,omitempty"`
}

// TypeRef names a type in a definition config.
type TypeRef struct {
	Name string `json:"name"`
}

// paramConfig is one entry of DefConfig.Params.
type paramConfig struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required any    `json:"required"`
}

// DecodeActionDef builds an ActionDef from its serialized config.
//
// Client actions have their code compiled through c; a compile failure
// returns an *ActionDefDecodeError and no definition. Action types other
// than CLIENT and SERVER return an *UnsupportedActionTypeError.
func DecodeActionDef(cfg DefConfig, c Compiler) (*ActionDef, error) {
	name := cfg.Name
	if name == "" {
		if _, n, err := ParseDescriptor(cfg.Descriptor); err == nil {
			name = n
		}
	}

	actionType, ok := ParseActionType(cfg.ActionType)
	if !ok {
		return nil, &UnsupportedActionTypeError{Descriptor: cfg.Descriptor, ActionType: cfg.ActionType}
	}

	switch actionType {
	case ActionTypeServer:
		opts := ServerOptions{
			Params:     decodeParams(cfg.Params),
			Background: truthy(cfg.Background),
			Caboose:    truthy(cfg.Caboose),
		}
		if cfg.ReturnType != nil {
			opts.ReturnType = cfg.ReturnType.Name
		}
		return NewServerActionDef(name, cfg.Descriptor, opts), nil

	case ActionTypeClient:
		meth, err := compileSource(cfg.Code, c)
		if err != nil {
			return nil, &ActionDefDecodeError{Descriptor: cfg.Descriptor, Source: cfg.Code, Cause: err}
		}
		return NewClientActionDef(name, cfg.Descriptor, meth), nil
	}

	panic("unreachable")
}

// compileSource unwraps a JSON-encoded source string if needed and
// compiles it.
func compileSource(code string, c Compiler) (Method, error) {
	if c == nil {
		return nil, errNoCompiler
	}
	src := strings.TrimSpace(code)
	if strings.HasPrefix(src, `"`) {
		var s string
		if err := json.Unmarshal([]byte(src), &s); err != nil {
			return nil, fmt.Errorf("decode source string: %w", err)
		}
		src = strings.TrimSpace(s)
	}
	if src == "" {
		return nil, errEmptySource
	}
	meth, err := c.Compile(src)
	if err != nil {
		return nil, err
	}
	if meth == nil {
		return nil, fmt.Errorf("compiler returned no method")
	}
	return meth, nil
}

// decodeParams reads the params list. Anything other than a JSON array is
// ignored, as are entries that are not objects or have no name.
func decodeParams(raw json.RawMessage) []ParamDef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	params := make([]ParamDef, 0, len(entries))
	for _, entry := range entries {
		var pc paramConfig
		if err := json.Unmarshal(entry, &pc); err != nil || pc.Name == "" {
			continue
		}
		params = append(params, ParamDef{Name: pc.Name, Type: pc.Type, Required: truthy(pc.Required)})
	}
	return params
}

// truthy reports whether a loosely typed config flag is set.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case string:
		return x != "" && x != "false"
	default:
		return true
	}
}

// Name returns the action name, unique within its controller.
func (d *ActionDef) Name() string { return d.name }

// Descriptor returns the fully qualified action descriptor.
func (d *ActionDef) Descriptor() string { return d.descriptor }

// ActionType returns CLIENT or SERVER.
func (d *ActionDef) ActionType() ActionType { return d.actionType }

// IsClientAction reports whether the action runs locally.
func (d *ActionDef) IsClientAction() bool { return d.actionType == ActionTypeClient }

// IsServerAction reports whether the action runs on the server.
func (d *ActionDef) IsServerAction() bool { return d.actionType == ActionTypeServer }

// IsBackground reports whether the server action may complete out of band.
func (d *ActionDef) IsBackground() bool { return d.background }

// IsCaboose reports whether the server action may wait for a later batch.
func (d *ActionDef) IsCaboose() bool { return d.caboose }

// ReturnType returns the declared return type name of a server action.
func (d *ActionDef) ReturnType() string { return d.returnType }

// Method returns the compiled body of a client action, or nil.
func (d *ActionDef) Method() Method { return d.meth }

// ParamDefs returns a copy of the parameter definitions. It is nil for
// client actions.
func (d *ActionDef) ParamDefs() map[string]ParamDef {
	if d.paramDefs == nil {
		return nil
	}
	out := make(map[string]ParamDef, len(d.paramDefs))
	for k, v := range d.paramDefs {
		out[k] = v
	}
	return out
}

// ParamDef returns the definition of the named parameter.
func (d *ActionDef) ParamDef(name string) (ParamDef, bool) {
	p, ok := d.paramDefs[name]
	return p, ok
}

func (d *ActionDef) String() string { return d.descriptor }

// NewInstance creates an action instance bound to cmp. It never modifies
// the definition and is safe to call concurrently.
func (d *ActionDef) NewInstance(cmp Component) *Action {
	return newAction(d, invocationKind, d.meth, d.paramDefs, d.background, cmp, d.caboose)
}
