package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"text/template"
)

// writeTable writes the client_actions_aura.go file for a package.
func (g *Generator) writeTable(pkgPath, pkgName string, actions []ActionInfo) error {
	outputFile := filepath.Join(pkgPath, outputName)

	fmt.Fprintf(g.opts.Out, "generating %s (%d actions)\n", outputFile, len(actions))

	if g.opts.DryRun {
		return nil
	}

	code, err := renderTable(pkgName, actions)
	if err != nil {
		return err
	}

	return os.WriteFile(outputFile, code, 0644)
}

// renderTable renders and formats the generated source.
func renderTable(pkgName string, actions []ActionInfo) ([]byte, error) {
	tmpl, err := template.New("aura").Parse(tableTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Package string
		Actions []ActionInfo
	}{
		Package: pkgName,
		Actions: actions,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

const tableTemplate = `// Code generated by aura generate. DO NOT EDIT.

package {{.Package}}

import "github.com/pthm/aura"

// ClientActions maps client action names to their methods. Pass it to
// aura.Compilers so "go:<name>" sources resolve to these functions.
var ClientActions = aura.MethodTable{
{{- range .Actions}}
	{{printf "%q" .Name}}: {{.Func}},
{{- end}}
}
`
