package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pthm/aura"
	"github.com/pthm/aura/lib/config"
	"github.com/pthm/aura/lib/generator"
	"github.com/pthm/aura/lib/logging"
	"github.com/pthm/aura/lib/report"
	"github.com/pthm/aura/lib/script"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "validate":
		err = runValidate(args)
	case "describe":
		err = runDescribe(args)
	case "call":
		err = runCall(args)
	case "generate":
		err = runGenerate(args)
	case "clean":
		err = runClean(args)
	case "version":
		fmt.Printf("aura version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`aura - action dispatch for Go

Usage:
  aura <command> [arguments]

Commands:
  validate <files>                  Decode controller definitions and report broken actions
  describe [--html] <files>         List the actions of controller definitions
  call <file> <descriptor> [k=v]    Run one action, sending server actions to AURA_ENDPOINT
  generate [packages]               Generate client action tables (e.g., ./... or ./actions)
  clean [packages]                  Remove generated files (*_aura.go)
  version                           Print version
  help                              Show this help

Options for generate and clean:
  --dry-run             Show what would change without writing files

Environment:
  AURA_ENDPOINT         Server action endpoint (default http://localhost:8080/aura)
  AURA_SIGNING_KEY      Key shared with the server, required by call
  AURA_SEALED           Encrypt payloads instead of signing them
  AURA_LOG_LEVEL        debug, info, warn or error (default info)
  AURA_FLUSH_INTERVAL   How often queued server actions are sent (default 50ms)
  AURA_CABOOSE_MAX_AGE  Oldest a caboose action may wait before it is sent
  AURA_MAX_RETRIES      Transport retries on network errors and 5xx (default 3)
  AURA_TIMEOUT          HTTP timeout (default 30s)

Examples:
  aura validate controllers/*.json
  aura describe --html controllers/*.json > actions.html
  aura call controllers/todo.json 'c:Todo/ACTION$save' id=7 note='"hi"'
  aura generate ./...`)
}

// setup loads the configuration and builds the logger every command shares.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.New(cfg.LogLevel, os.Stderr), nil
}

// loadControllers decodes every file, skipping broken definitions. The
// second return joins the per-definition failures.
func loadControllers(log zerolog.Logger, files []string) ([]*aura.ControllerDef, []error, error) {
	loader := &aura.Loader{
		Compiler: aura.Compilers{Script: script.NewCompiler()},
		Policy:   aura.SkipBroken,
		Logger:   log,
	}

	var ctrls []*aura.ControllerDef
	var failures []error
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return nil, nil, err
		}
		ctrl, err := loader.Load(f)
		f.Close()
		if ctrl == nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		if err != nil {
			failures = append(failures, unjoin(err)...)
		}
		ctrls = append(ctrls, ctrl)
	}
	return ctrls, failures, nil
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func runValidate(args []string) error {
	if len(args) == 0 {
		return errors.New("validate: no definition files given")
	}
	_, log, err := setup()
	if err != nil {
		return err
	}

	ctrls, failures, err := loadControllers(log, args)
	if err != nil {
		return err
	}

	for _, c := range ctrls {
		fmt.Printf("%s: %d actions\n", c.Descriptor(), len(c.ActionDefs()))
	}

	fatal := 0
	for _, f := range failures {
		sev := aura.SeverityOf(f)
		fmt.Printf("  %s: %v\n", sev, f)
		if sev != aura.SeverityQuiet {
			fatal++
		}
	}
	if fatal > 0 {
		return fmt.Errorf("%d broken action definitions", fatal)
	}
	return nil
}

func runDescribe(args []string) error {
	var asHTML bool
	var files []string
	for _, arg := range args {
		if arg == "--html" {
			asHTML = true
		} else {
			files = append(files, arg)
		}
	}
	if len(files) == 0 {
		return errors.New("describe: no definition files given")
	}

	_, log, err := setup()
	if err != nil {
		return err
	}
	ctrls, failures, err := loadControllers(log, files)
	if err != nil {
		return err
	}

	if asHTML {
		return report.Page("Aura actions", ctrls, failures).Render(context.Background(), os.Stdout)
	}

	for _, c := range ctrls {
		fmt.Println(c.Descriptor())
		for _, d := range c.ActionDefs() {
			line := fmt.Sprintf("  %-24s %s", d.Name(), d.ActionType())
			if d.IsServerAction() {
				var params []string
				for name, p := range d.ParamDefs() {
					if p.Required {
						name += "*"
					}
					params = append(params, name)
				}
				sort.Strings(params)
				line += fmt.Sprintf(" (%s)", strings.Join(params, ", "))
				if d.ReturnType() != "" {
					line += " -> " + d.ReturnType()
				}
				if d.IsBackground() {
					line += " [background]"
				}
				if d.IsCaboose() {
					line += " [caboose]"
				}
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runCall(args []string) error {
	if len(args) < 2 {
		return errors.New("call: usage: aura call <file> <descriptor> [key=value...]")
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	params, err := parseParams(args[2:])
	if err != nil {
		return err
	}

	ctrls, _, err := loadControllers(log, args[:1])
	if err != nil {
		return err
	}
	reg := aura.NewRegistry()
	if err := reg.Add(ctrls...); err != nil {
		return err
	}

	action, err := reg.NewInstance(args[1], aura.NewComponent("cli"))
	if err != nil {
		return err
	}

	var engine *aura.Engine
	if action.Def().IsServerAction() {
		if cfg.SigningKey == "" {
			return errors.New("call: AURA_SIGNING_KEY is required for server actions")
		}
		codec, err := aura.NewCodec([]byte(cfg.SigningKey), cfg.Sealed)
		if err != nil {
			return err
		}
		transport := aura.NewHTTPTransport(cfg.Endpoint, codec,
			aura.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			aura.WithMaxRetries(cfg.MaxRetries),
			aura.WithTransportLogger(log),
		)
		engine = aura.NewEngine(transport,
			aura.WithLogger(log),
			aura.WithCabooseMaxAge(cfg.CabooseMaxAge),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	resp, err := dispatch(ctx, action, engine, params, cfg.FlushInterval, cfg.CabooseMaxAge)
	if err != nil {
		return fmt.Errorf("call: %s: %w", args[1], err)
	}
	return printResponse(resp)
}

// dispatch runs a and waits for its response. Server actions are sent by
// the engine's flush loop every interval. A caboose action is flushed
// directly when no max age would ever release it.
func dispatch(ctx context.Context, a *aura.Action, engine *aura.Engine, params map[string]any, interval, cabooseMaxAge time.Duration) (*aura.Response, error) {
	done := make(chan *aura.Response, 1)
	cb := func(r *aura.Response) { done <- r }

	if engine == nil {
		a.Run(ctx, nil, params, cb)
	} else {
		loopCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		a.Run(ctx, engine, params, cb)
		if a.IsCaboose() && cabooseMaxAge == 0 {
			// Failures reach the action as INCOMPLETE.
			_ = engine.FlushAll(ctx)
		} else {
			go func() { _ = engine.Loop(loopCtx, interval) }()
		}
	}

	select {
	case resp := <-done:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// parseParams reads key=value pairs. Values that parse as JSON keep their
// JSON type; anything else is a string.
func parseParams(args []string) (map[string]any, error) {
	params := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("call: parameter %q is not key=value", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		params[key] = v
	}
	return params, nil
}

func printResponse(resp *aura.Response) error {
	out := struct {
		ActionID    string `json:"actionId"`
		Status      string `json:"status"`
		ReturnValue any    `json:"returnValue,omitempty"`
		Error       string `json:"error,omitempty"`
	}{
		ActionID:    resp.ActionID,
		Status:      string(resp.Status),
		ReturnValue: resp.ReturnValue,
	}
	if resp.Err != nil {
		out.Error = resp.Err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("action finished with status %s", resp.Status)
	}
	return nil
}

func runGenerate(args []string) error {
	dryRun, patterns := splitArgs(args)
	gen := generator.New(generator.Options{
		DryRun: dryRun,
	})
	return gen.Generate(patterns...)
}

func runClean(args []string) error {
	dryRun, patterns := splitArgs(args)
	gen := generator.New(generator.Options{
		DryRun: dryRun,
	})
	return gen.Clean(patterns...)
}

func splitArgs(args []string) (dryRun bool, patterns []string) {
	for _, arg := range args {
		if arg == "--dry-run" {
			dryRun = true
		} else {
			patterns = append(patterns, arg)
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	return dryRun, patterns
}
