// Command example runs a todo controller against an in-process server.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	"github.com/pthm/aura"
	"github.com/pthm/aura/lib/logging"
	"github.com/pthm/aura/lib/script"
)

//go:embed todo.json
var todoDef []byte

// store is the server side of the todo controller.
type store struct {
	mu    sync.Mutex
	items []string
}

func (s *store) handle(req aura.Request) aura.ActionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Descriptor {
	case "c:Todo/ACTION$add":
		title, _ := req.Params["title"].(string)
		if strings.TrimSpace(title) == "" {
			return aura.RespondError(req, "title must not be empty")
		}
		s.items = append(s.items, title)
		return aura.RespondSuccess(req, len(s.items))
	case "c:Todo/ACTION$list":
		return aura.RespondSuccess(req, append([]string(nil), s.items...))
	default:
		return aura.RespondSuccess(req, nil)
	}
}

//aura:action title
func title(ctx context.Context, cmp aura.Component, params map[string]any) (any, error) {
	s, _ := params["text"].(string)
	return strings.ToUpper(s), nil
}

func main() {
	log := logging.New("debug", os.Stderr)
	ctx := context.Background()

	codec, err := aura.NewCodec([]byte("example-key-must-be-32-bytes!!!!"), false)
	if err != nil {
		log.Fatal().Err(err).Msg("create codec")
	}

	srv := httptest.NewServer(aura.NewTestHandler(codec, (&store{}).handle))
	defer srv.Close()

	loader := &aura.Loader{
		Compiler: aura.Compilers{
			Table:  aura.MethodTable{"title": title},
			Script: script.NewCompiler(),
		},
		Policy: aura.SkipBroken,
		Logger: log,
	}
	ctrl, err := loader.Load(bytes.NewReader(todoDef))
	if err != nil {
		log.Fatal().Err(err).Msg("load controller")
	}

	reg := aura.NewRegistry()
	if err := reg.Add(ctrl); err != nil {
		log.Fatal().Err(err).Msg("register controller")
	}

	engine := aura.NewEngine(
		aura.NewHTTPTransport(srv.URL, codec, aura.WithTransportLogger(log)),
		aura.WithLogger(log),
	)
	cmp := aura.NewComponent("todo")

	run := func(descriptor string, params map[string]any) {
		a, err := reg.NewInstance(descriptor, cmp)
		if err != nil {
			log.Error().Err(err).Str("descriptor", descriptor).Msg("no such action")
			return
		}
		a.Run(ctx, engine, params, func(resp *aura.Response) {
			fmt.Printf("%-28s %-10s %v", descriptor, resp.Status, resp.ReturnValue)
			if resp.Err != nil {
				fmt.Printf(" (%v)", resp.Err)
			}
			fmt.Println()
		})
	}

	// Client actions answer immediately.
	run("c:Todo/ACTION$count", map[string]any{"by": 2})
	run("c:Todo/ACTION$count", nil)
	run("c:Todo/ACTION$title", map[string]any{"text": "groceries"})

	// The caboose waits for the next batch with a non-caboose action.
	run("c:Todo/ACTION$track", map[string]any{"event": "opened"})
	if err := engine.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("flush")
	}
	fg, _ := engine.Pending()
	fmt.Printf("after first flush: %d queued\n", fg)

	run("c:Todo/ACTION$add", map[string]any{"title": "milk"})
	run("c:Todo/ACTION$add", map[string]any{"title": "eggs", "done": true})
	run("c:Todo/ACTION$add", map[string]any{"title": " "})
	run("c:Todo/ACTION$add", map[string]any{"priority": 1})
	run("c:Todo/ACTION$list", nil)
	run("c:Todo/ACTION$export", nil)
	if err := engine.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("flush")
	}
}
