package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// directive marks a function as a client action:
//
//	//aura:action toggle
//	func toggle(ctx context.Context, cmp aura.Component, params map[string]any) (any, error)
const directive = "//aura:action"

// generatedSuffix ends every file the generator writes.
const generatedSuffix = "_aura.go"

// outputName is the file written per package.
const outputName = "client_actions" + generatedSuffix

// Options configures the generator.
type Options struct {
	DryRun bool
	// Out receives progress messages. Defaults to os.Stdout.
	Out io.Writer
}

// Generator generates client action tables.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// ActionInfo describes an annotated client action function.
type ActionInfo struct {
	Name       string // Action name from the directive (e.g., "toggle")
	Func       string // Function name
	SourceFile string
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			// Skip hidden directories, vendor, testdata and underscore dirs
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

// generatePackage writes the action table of a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		name := info.Name()
		// Skip test files and generated files
		return !strings.HasSuffix(name, "_test.go") && !strings.HasSuffix(name, generatedSuffix)
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		actions, err := g.findActions(pkg)
		if err != nil {
			return err
		}
		if len(actions) == 0 {
			continue
		}
		if err := g.writeTable(pkgPath, pkgName, actions); err != nil {
			return err
		}
	}

	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), generatedSuffix) {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		fmt.Fprintf(g.opts.Out, "removing %s\n", path)
		if !g.opts.DryRun {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// findActions returns the annotated functions of a package, sorted by
// action name.
func (g *Generator) findActions(pkg *ast.Package) ([]ActionInfo, error) {
	var actions []ActionInfo
	seen := make(map[string]string)

	files := make([]string, 0, len(pkg.Files))
	for filename := range pkg.Files {
		files = append(files, filename)
	}
	sort.Strings(files)

	for _, filename := range files {
		file := pkg.Files[filename]
		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok {
				continue
			}
			name, ok := actionDirective(funcDecl.Doc)
			if !ok {
				continue
			}

			pos := g.fset.Position(funcDecl.Pos())
			if funcDecl.Recv != nil {
				return nil, fmt.Errorf("%s: %s: client actions must be plain functions", pos, funcDecl.Name.Name)
			}
			if !isMethodSignature(funcDecl.Type) {
				return nil, fmt.Errorf("%s: %s: want func(context.Context, aura.Component, map[string]any) (any, error)", pos, funcDecl.Name.Name)
			}
			if prev, dup := seen[name]; dup {
				return nil, fmt.Errorf("%s: action %q already declared by %s", pos, name, prev)
			}
			seen[name] = funcDecl.Name.Name

			actions = append(actions, ActionInfo{
				Name:       name,
				Func:       funcDecl.Name.Name,
				SourceFile: filename,
			})
		}
	}

	sort.Slice(actions, func(i, j int) bool { return actions[i].Name < actions[j].Name })
	return actions, nil
}

// actionDirective extracts the action name from a //aura:action line.
// A directive without a name is not recognized.
func actionDirective(doc *ast.CommentGroup) (string, bool) {
	if doc == nil {
		return "", false
	}
	for _, c := range doc.List {
		if !strings.HasPrefix(c.Text, directive) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(c.Text, directive))
		if len(fields) == 0 {
			return "", false
		}
		return fields[0], true
	}
	return "", false
}

// isMethodSignature checks the shape of an aura.Method: three params
// (context, component, params map) and two results. Only the result count
// and the param types' outer shape are checked; the compiler does the rest.
func isMethodSignature(ft *ast.FuncType) bool {
	var params []ast.Expr
	for _, field := range ft.Params.List {
		n := len(field.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			params = append(params, field.Type)
		}
	}
	if len(params) != 3 || ft.Results == nil || ft.Results.NumFields() != 2 {
		return false
	}
	if typeToString(params[0]) != "context.Context" {
		return false
	}
	if !strings.HasSuffix(typeToString(params[1]), "Component") {
		return false
	}
	switch typeToString(params[2]) {
	case "map[string]any", "map[string]interface{}":
		return true
	}
	return false
}

// typeToString converts an AST type to a string representation.
func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return "[...]" + typeToString(t.Elt)
	case *ast.MapType:
		return "map[" + typeToString(t.Key) + "]" + typeToString(t.Value)
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return "interface{}"
		}
		return "interface{...}"
	default:
		return fmt.Sprintf("%T", expr)
	}
}
