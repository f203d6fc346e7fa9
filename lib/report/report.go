// Package report renders loaded action definitions as HTML.
package report

import (
	"context"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/aura"
)

// Page renders a standalone HTML page listing every controller and the
// definitions that failed to load.
//
//	report.Page("Actions", reg.Controllers(), loadErrs).Render(ctx, w)
func Page(title string, ctrls []*aura.ControllerDef, failures []error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		sb.WriteString(html.EscapeString(title))
		sb.WriteString(`</title></head><body>`)
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}

		for _, err := range failures {
			if err := ErrorNotice(err).Render(ctx, w); err != nil {
				return err
			}
		}
		for _, c := range ctrls {
			if err := Controller(c).Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Controller renders one controller's action definitions as a table.
func Controller(c *aura.ControllerDef) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<section class="aura-controller"><h2>`)
		sb.WriteString(html.EscapeString(c.Descriptor()))
		sb.WriteString(`</h2><table><thead><tr>`)
		sb.WriteString(`<th>Action</th><th>Type</th><th>Params</th><th>Returns</th><th>Flags</th>`)
		sb.WriteString(`</tr></thead><tbody>`)

		for _, d := range c.ActionDefs() {
			sb.WriteString(`<tr data-descriptor="`)
			sb.WriteString(html.EscapeString(d.Descriptor()))
			sb.WriteString(`"><td>`)
			sb.WriteString(html.EscapeString(d.Name()))
			sb.WriteString(`</td><td>`)
			sb.WriteString(string(d.ActionType()))
			sb.WriteString(`</td><td>`)
			sb.WriteString(html.EscapeString(paramList(d)))
			sb.WriteString(`</td><td>`)
			sb.WriteString(html.EscapeString(d.ReturnType()))
			sb.WriteString(`</td><td>`)
			sb.WriteString(flags(d))
			sb.WriteString(`</td></tr>`)
		}

		sb.WriteString(`</tbody></table></section>`)
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

// ErrorNotice renders an error with a class naming its severity, e.g.
// class="aura-error aura-error-quiet".
func ErrorNotice(err error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		sev := aura.SeverityOf(err).String()
		_, werr := io.WriteString(w, `<div class="aura-error aura-error-`+sev+`">`+html.EscapeString(err.Error())+`</div>`)
		return werr
	})
}

func paramList(d *aura.ActionDef) string {
	defs := d.ParamDefs()
	names := make([]string, 0, len(defs))
	for name, p := range defs {
		s := name
		if p.Type != "" {
			s += ": " + p.Type
		}
		if p.Required {
			s += " (required)"
		}
		names = append(names, s)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func flags(d *aura.ActionDef) string {
	var out []string
	if d.IsBackground() {
		out = append(out, "background")
	}
	if d.IsCaboose() {
		out = append(out, "caboose")
	}
	return strings.Join(out, " ")
}
