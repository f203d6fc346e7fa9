package aura

import (
	"fmt"
	"strings"
)

// TablePrefix marks client action sources that name a method compiled into
// the binary rather than carrying a script.
const TablePrefix = "go:"

// MethodTable is a client action table resolved at build time.
// "aura generate" writes one per package from functions annotated with
// //aura:action.
//
//	table := aura.MethodTable{"toggle": toggle}
//	def, err := aura.DecodeActionDef(cfg, table) // cfg.Code == "go:toggle"
type MethodTable map[string]Method

// Compile resolves source, with or without the "go:" prefix, to a method
// in the table.
func (t MethodTable) Compile(source string) (Method, error) {
	name := strings.TrimPrefix(strings.TrimSpace(source), TablePrefix)
	m, ok := t[name]
	if !ok || m == nil {
		return nil, fmt.Errorf("no client action %q in method table", name)
	}
	return m, nil
}

// Merge returns a table holding the entries of t and others. Later tables
// win on duplicate names.
func (t MethodTable) Merge(others ...MethodTable) MethodTable {
	out := make(MethodTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Compilers routes "go:" sources to Table and everything else to Script.
// Either may be nil, in which case sources routed to it fail to compile.
type Compilers struct {
	Table  MethodTable
	Script Compiler
}

// Compile implements Compiler.
func (c Compilers) Compile(source string) (Method, error) {
	if strings.HasPrefix(strings.TrimSpace(source), TablePrefix) {
		if c.Table == nil {
			return nil, fmt.Errorf("no method table for %q", source)
		}
		return c.Table.Compile(source)
	}
	if c.Script == nil {
		return nil, errNoCompiler
	}
	return c.Script.Compile(source)
}
