package aura

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
)

// ControllerDef groups the action definitions of one controller.
type ControllerDef struct {
	descriptor string
	actions    map[string]*ActionDef
}

// NewControllerDef creates a controller definition. Action names must be
// unique within the controller.
func NewControllerDef(descriptor string, defs ...*ActionDef) (*ControllerDef, error) {
	c := &ControllerDef{
		descriptor: descriptor,
		actions:    make(map[string]*ActionDef, len(defs)),
	}
	for _, d := range defs {
		if _, exists := c.actions[d.Name()]; exists {
			return nil, fmt.Errorf("aura: duplicate action %q in controller %s", d.Name(), descriptor)
		}
		c.actions[d.Name()] = d
	}
	return c, nil
}

// Descriptor returns the controller descriptor.
func (c *ControllerDef) Descriptor() string { return c.descriptor }

// ActionDef returns the named action definition.
func (c *ControllerDef) ActionDef(name string) (*ActionDef, bool) {
	d, ok := c.actions[name]
	return d, ok
}

// ActionDefs returns all action definitions sorted by name.
func (c *ControllerDef) ActionDefs() []*ActionDef {
	out := make([]*ActionDef, 0, len(c.actions))
	for _, d := range c.actions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// ControllerConfig is the serialized form of a controller definition.
type ControllerConfig struct {
	Descriptor string      `json:"descriptor"`
	ActionDefs []DefConfig `json:"actionDefs"`
}

// LoadPolicy decides what a Loader does with definitions that fail to
// decode.
type LoadPolicy int

const (
	// FailFast aborts loading on the first broken definition.
	FailFast LoadPolicy = iota
	// SkipBroken logs broken definitions, leaves them out and keeps loading.
	SkipBroken
)

// Loader decodes controller definitions.
//
//	loader := &aura.Loader{Compiler: script.NewCompiler(), Policy: aura.SkipBroken}
//	ctrl, err := loader.Load(f)
type Loader struct {
	// Compiler compiles client action code. Client actions fail to decode
	// when it is nil.
	Compiler Compiler
	Policy   LoadPolicy
	// Logger receives broken definitions under SkipBroken. The zero value
	// discards, like zerolog.Nop().
	Logger zerolog.Logger
}

// Load reads a JSON controller definition from r.
func (l *Loader) Load(r io.Reader) (*ControllerDef, error) {
	var cfg ControllerConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("aura: parse controller definition: %w", err)
	}
	return l.Decode(cfg)
}

// Decode builds a controller from its config.
//
// Under FailFast the first decode error is returned with a nil controller.
// Under SkipBroken the controller holds every definition that decoded and
// the returned error joins the failures of the others.
func (l *Loader) Decode(cfg ControllerConfig) (*ControllerDef, error) {
	defs := make([]*ActionDef, 0, len(cfg.ActionDefs))
	var errs []error
	for _, dc := range cfg.ActionDefs {
		if dc.Descriptor == "" && dc.Name != "" {
			dc.Descriptor = ActionDescriptor(cfg.Descriptor, dc.Name)
		}
		def, err := DecodeActionDef(dc, l.Compiler)
		if err != nil {
			if l.Policy == FailFast {
				return nil, fmt.Errorf("aura: load controller %s: %w", cfg.Descriptor, err)
			}
			l.report(cfg.Descriptor, err)
			errs = append(errs, err)
			continue
		}
		defs = append(defs, def)
	}

	ctrl, err := NewControllerDef(cfg.Descriptor, defs...)
	if err != nil {
		return nil, err
	}
	return ctrl, errors.Join(errs...)
}

// report logs a skipped definition at a level matching its severity.
func (l *Loader) report(controller string, err error) {
	sev := SeverityOf(err)
	var ev *zerolog.Event
	switch sev {
	case SeverityQuiet:
		ev = l.Logger.Info()
	case SeverityWarning:
		ev = l.Logger.Warn()
	default:
		ev = l.Logger.Error()
	}
	ev.Err(err).
		Str("controller", controller).
		Str("severity", sev.String()).
		Msg("skipping action definition")
}
