package aura

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/pthm/aura"

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(l zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTracer sets the tracer used for batch spans. Defaults to the global
// OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithCabooseMaxAge bounds how long caboose actions wait for a
// non-caboose action to ride along with. Zero waits indefinitely.
func WithCabooseMaxAge(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cabooseMaxAge = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine queues server actions and sends them in batches over a Transport.
//
// Run enqueues; Flush sends. Callbacks fire on the goroutine calling Flush,
// which makes the engine fit a cooperative event loop: call Flush at the
// end of each turn, or use Loop.
//
// Batching rules:
//   - non-background actions share one batch and are answered in enqueue
//     order;
//   - a batch holding only caboose actions is withheld until a
//     non-caboose action arrives, the oldest caboose exceeds the max age,
//     or FlushAll is called;
//   - every background action is sent in its own batch, concurrently with
//     the main one, and carries no ordering guarantee.
type Engine struct {
	transport     Transport
	logger        zerolog.Logger
	tracer        trace.Tracer
	cabooseMaxAge time.Duration
	now           func() time.Time

	mu         sync.Mutex
	foreground []*Action
	background []*Action
}

// NewEngine creates an engine sending batches over t.
func NewEngine(t Transport, opts ...EngineOption) *Engine {
	e := &Engine{
		transport: t,
		logger:    zerolog.Nop(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue queues a server action for the next flush. The action must be
// running and not queued before; anything else fails with ErrNotPending so
// that no action is sent twice.
func (e *Engine) Enqueue(a *Action) error {
	if !a.def.IsServerAction() {
		return fmt.Errorf("aura: cannot enqueue client action %s", a.def.Descriptor())
	}

	a.mu.Lock()
	if a.queued {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s already queued", ErrNotPending, a.id)
	}
	if a.state != StatusRunning {
		state := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrNotPending, a.id, state)
	}
	a.queued = true
	a.mu.Unlock()

	e.mu.Lock()
	a.enqueuedAt = e.now()
	if a.background {
		e.background = append(e.background, a)
	} else {
		e.foreground = append(e.foreground, a)
	}
	e.mu.Unlock()

	e.logger.Debug().
		Str("action", a.id).
		Str("descriptor", a.def.Descriptor()).
		Bool("background", a.background).
		Bool("caboose", a.caboose).
		Msg("action enqueued")
	return nil
}

// Pending returns the number of queued foreground and background actions.
func (e *Engine) Pending() (foreground, background int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.foreground), len(e.background)
}

// Flush sends the queued actions and delivers their responses. Caboose
// actions stay queued unless they can ride with a non-caboose action or
// have exceeded the max age.
//
// The returned error joins the transport failures of all batches; the
// affected actions have already been completed as INCOMPLETE.
func (e *Engine) Flush(ctx context.Context) error {
	return e.flush(ctx, false)
}

// FlushAll sends every queued action, caboose actions included.
func (e *Engine) FlushAll(ctx context.Context) error {
	return e.flush(ctx, true)
}

// Loop flushes every interval until ctx is done.
func (e *Engine) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Flush(ctx); err != nil {
				e.logger.Warn().Err(err).Msg("flush failed")
			}
		}
	}
}

// pendingBatch pairs a wire batch with the actions it carries.
type pendingBatch struct {
	batch   *Batch
	actions []*Action
}

func newPendingBatch(actions []*Action, background bool) *pendingBatch {
	b := &Batch{
		ID:         uuid.NewString(),
		Background: background,
		Actions:    make([]Request, 0, len(actions)),
	}
	for _, a := range actions {
		b.Actions = append(b.Actions, a.request())
	}
	return &pendingBatch{batch: b, actions: actions}
}

func (e *Engine) flush(ctx context.Context, force bool) error {
	e.mu.Lock()
	fg := e.takeForeground(force)
	bg := e.background
	e.background = nil
	e.mu.Unlock()

	var batches []*pendingBatch
	if len(fg) > 0 {
		batches = append(batches, newPendingBatch(fg, false))
	}
	for _, a := range bg {
		batches = append(batches, newPendingBatch([]*Action{a}, true))
	}
	if len(batches) == 0 {
		return nil
	}

	results := make([]*BatchResponse, len(batches))
	failures := make([]error, len(batches))
	var g errgroup.Group
	for i, pb := range batches {
		g.Go(func() error {
			results[i], failures[i] = e.send(ctx, pb.batch)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, pb := range batches {
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
		e.deliver(pb, results[i], failures[i])
	}
	return errors.Join(errs...)
}

// takeForeground removes and returns the foreground actions to send now.
// Callers must hold e.mu.
func (e *Engine) takeForeground(force bool) []*Action {
	if len(e.foreground) == 0 {
		return nil
	}
	send := force
	for _, a := range e.foreground {
		if send {
			break
		}
		send = !a.caboose
	}
	if !send && e.cabooseMaxAge > 0 {
		send = e.now().Sub(e.foreground[0].enqueuedAt) >= e.cabooseMaxAge
	}
	if !send {
		return nil
	}
	fg := e.foreground
	e.foreground = nil
	return fg
}

func (e *Engine) send(ctx context.Context, b *Batch) (*BatchResponse, error) {
	ctx, span := e.tracer.Start(ctx, "aura.flush", trace.WithAttributes(
		attribute.String("aura.batch.id", b.ID),
		attribute.Int("aura.batch.size", len(b.Actions)),
		attribute.Bool("aura.batch.background", b.Background),
	))
	defer span.End()

	e.logger.Debug().
		Str("batch", b.ID).
		Int("actions", len(b.Actions)).
		Bool("background", b.Background).
		Msg("sending batch")

	resp, err := e.transport.Send(ctx, b)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Warn().Err(err).Str("batch", b.ID).Msg("batch failed")
		return nil, fmt.Errorf("%w: batch %s: %w", ErrTransport, b.ID, err)
	}
	return resp, nil
}

// deliver completes every action of a batch, in batch order.
func (e *Engine) deliver(pb *pendingBatch, resp *BatchResponse, err error) {
	for _, a := range pb.actions {
		if err != nil {
			a.complete(StatusIncomplete, nil, err)
			continue
		}
		ar, ok := resp.Lookup(a.id)
		if !ok {
			a.complete(StatusIncomplete, nil, fmt.Errorf("%w: no response for action %s", ErrTransport, a.id))
			continue
		}
		switch ar.State {
		case StatusSuccess:
			a.complete(StatusSuccess, ar.ReturnValue, nil)
		case StatusError:
			msgs := make([]string, 0, len(ar.Errors))
			for _, we := range ar.Errors {
				msgs = append(msgs, we.Message)
			}
			a.complete(StatusError, ar.ReturnValue, &ServerError{Descriptor: a.def.Descriptor(), Messages: msgs})
		default:
			a.complete(StatusIncomplete, nil, fmt.Errorf("%w: action %s ended in state %q", ErrTransport, a.id, ar.State))
		}
	}
}
