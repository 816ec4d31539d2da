// Package execute walks a Plan against a Supergraph, dispatching batched
// sub-queries to each location, merging their responses into one result
// tree, and repathing errors to match the client's original query shape
// (spec.md §4.3).
package execute

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vektah/gqlparser/v2/gqlerror"

	gwerrors "github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/internal/introspect"
	"github.com/graphstitch/graphstitch/internal/plan"
	"github.com/graphstitch/graphstitch/internal/request"
	"github.com/graphstitch/graphstitch/internal/supergraph"
	"github.com/graphstitch/graphstitch/log"
	"github.com/graphstitch/graphstitch/trace"
)

// Options configures one Execute call.
type Options struct {
	Logger log.Logger
	Tracer trace.Tracer

	// ErrorHook maps an ExecutionError to the message the client sees
	// (spec.md §6 "Error hook"). Defaults to the error's own message.
	ErrorHook func(ctx context.Context, err error) string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = &log.DefaultLogger{}
	}
	if o.Tracer == nil {
		o.Tracer = trace.NoopTracer{}
	}
	if o.ErrorHook == nil {
		o.ErrorHook = func(_ context.Context, err error) string { return err.Error() }
	}
	return o
}

// Response is the client-visible result of executing a Plan: spec.md §6's
// `{data?, errors?}` shape.
type Response struct {
	Data   interface{}   `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

// Stats reports what one Execute call actually did, mainly for tests and
// the Gateway's debug extension (spec.md §5 "queryCount counter").
type Stats struct {
	QueryCount int64
}

// Execute runs pl against sg for req and returns the merged result. A
// LocationExecutor failure (ExecutionError) aborts the request: already
// dispatched Operations are awaited, partial data is discarded, and only
// {errors:[...]} is returned, per spec.md §5 "Cancellation" and §7's
// ExecutionError policy.
func Execute(ctx context.Context, sg *supergraph.Supergraph, req *request.Request, pl *plan.Plan, opts Options) (*Response, Stats) {
	opts = opts.withDefaults()

	ctx, finish := opts.Tracer.TraceExecute(ctx, req.OperationName)

	state := &execState{
		sg:   sg,
		req:  req,
		opts: opts,
		data: map[string]interface{}{},
	}

	err := state.run(ctx, pl.Operations)
	stats := Stats{QueryCount: atomic.LoadInt64(&state.queryCount)}

	if err != nil {
		finish(nil)
		return &Response{Errors: gqlerror.List{{Message: opts.ErrorHook(ctx, err)}}}, stats
	}

	stripStitchFields(state.data, sg.Options.ExportPrefix)
	finish(gwerrors.List(state.errs))
	return &Response{Data: state.data, Errors: state.errs}, stats
}

// execState is the mutable, single-request state the scheduler and every
// dispatch goroutine share. All reads and writes of data and errs are
// serialized by mu; only the network call itself runs outside the lock
// (spec.md §5 "the Executor itself is single-producer for the shared data
// tree").
type execState struct {
	sg   *supergraph.Supergraph
	req  *request.Request
	opts Options

	mu   sync.Mutex
	data map[string]interface{}
	errs gqlerror.List

	queryCount int64
}

// run drives the pending → ready → dispatched → merged → done state
// machine: each round dispatches every Operation whose `after` has
// completed, waits for the round, then advances (spec.md §4.3
// "Scheduling"). Mutations whose `after` chains form a linear sequence
// therefore run one round at a time, in order.
func (s *execState) run(ctx context.Context, ops []*plan.Operation) error {
	completed := map[int]bool{}
	remaining := append([]*plan.Operation{}, ops...)

	for len(remaining) > 0 {
		var ready, pending []*plan.Operation
		for _, op := range remaining {
			if op.After == 0 || completed[op.After] {
				ready = append(ready, op)
			} else {
				pending = append(pending, op)
			}
		}
		if len(ready) == 0 {
			break
		}
		remaining = pending

		if err := s.dispatchRound(ctx, ready); err != nil {
			return err
		}
		for _, op := range ready {
			completed[op.Step] = true
		}
	}
	return nil
}

// dispatchRound fans every batch in this round out concurrently and waits
// for all of them; a LocationExecutor error cancels gctx so in-flight
// sibling dispatches can stop early if their transport honors it.
func (s *execState) dispatchRound(ctx context.Context, ready []*plan.Operation) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range groupBatches(ready) {
		b := b
		g.Go(func() error {
			return s.dispatchBatch(gctx, b)
		})
	}
	return g.Wait()
}

func (s *execState) dispatchBatch(ctx context.Context, b *batch) error {
	if b.location == supergraph.IntrospectionLocation {
		return s.dispatchIntrospection(b)
	}

	s.mu.Lock()
	s.resolveOrigins(b)
	queryText, variables, err := buildDocument(b, s.req, s.sg.Options)
	s.mu.Unlock()
	if err != nil {
		return gwerrors.Execution(b.location, err)
	}
	if queryText == "" {
		return nil
	}

	exec, ok := s.sg.Executables[b.location]
	if !ok {
		return gwerrors.Execution(b.location, fmt.Errorf("no LocationExecutor registered for location %q", b.location))
	}

	finishers := make([]trace.OperationFinishFunc, len(b.items))
	for i, item := range b.items {
		var finish trace.OperationFinishFunc
		ctx, finish = s.opts.Tracer.TraceOperation(ctx, item.op.Step, b.location, string(item.op.OperationType))
		finishers[i] = finish
	}

	atomic.AddInt64(&s.queryCount, 1)
	result, err := s.invoke(ctx, exec, b.location, queryText, variables)
	for _, finish := range finishers {
		finish(err)
	}
	if err != nil {
		return gwerrors.Execution(b.location, err)
	}

	var respData map[string]interface{}
	if len(result.Data) > 0 {
		if jsonErr := json.Unmarshal(result.Data, &respData); jsonErr != nil {
			return gwerrors.Execution(b.location, jsonErr)
		}
	}

	s.mu.Lock()
	mergeBatchResult(s.data, b, respData)
	s.errs = append(s.errs, repathErrors(b, result.Errors)...)
	s.mu.Unlock()
	return nil
}

// invoke calls exec, recovering any panic into an error the way the
// teacher's Execution.HandlePanic does for resolver panics, logged via the
// same Logger interface before being converted to an ExecutionError by the
// caller.
func (s *execState) invoke(ctx context.Context, exec supergraph.LocationExecutor, location, query string, variables map[string]interface{}) (res *supergraph.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			s.opts.Logger.LogPanic(ctx, v)
			err = fmt.Errorf("panic dispatching to location %q: %v", location, v)
		}
	}()
	res, err = exec(ctx, location, query, variables)
	if err != nil {
		s.opts.Logger.LogLocationError(ctx, location, err)
	}
	return res, err
}

func (s *execState) dispatchIntrospection(b *batch) error {
	for _, item := range b.items {
		sel, err := parseOperationSelectionSet(item.op.SelectionSet)
		if err != nil {
			return gwerrors.WrapPlan(err, "failed to re-parse introspection selection set")
		}
		rootTypeName := s.sg.Schema.Query.Name
		if item.op.OperationType == plan.OpMutation && s.sg.Schema.Mutation != nil {
			rootTypeName = s.sg.Schema.Mutation.Name
		}
		result, err := introspect.Resolve(s.sg.Schema, rootTypeName, sel)
		if err != nil {
			return err
		}
		s.mu.Lock()
		mergeObjectInto(s.data, result)
		s.mu.Unlock()
	}
	return nil
}

// resolveOrigins populates origins for every boundary item in b by
// walking the shared data tree as it stands at the start of this round.
// Caller holds s.mu.
func (s *execState) resolveOrigins(b *batch) {
	typenameKey := s.sg.Options.ExportPrefix + "typename"
	for _, item := range b.items {
		if item.op.Boundary != nil {
			item.origins = collectOrigins(s.data, item.op.Path, item.op.IfType, typenameKey)
		}
	}
}

// mergeBatchResult folds one location's response into the shared data
// tree for every item in b (spec.md §4.3 "Result merging").
func mergeBatchResult(data map[string]interface{}, b *batch, respData map[string]interface{}) {
	if respData == nil {
		return
	}
	for i, item := range b.items {
		if item.op.Boundary == nil {
			mergeObjectInto(data, respData)
			continue
		}
		mergeBoundaryItem(i, item, respData)
	}
}

func mergeBoundaryItem(batchIdx int, item *batchItem, respData map[string]interface{}) {
	if item.op.Boundary.List {
		val, ok := respData[aliasFor(batchIdx, -1)]
		if !ok || val == nil {
			// spec.md §4.3 step 3: a null slot leaves already-present
			// origin fields intact.
			return
		}
		list, ok := asList(val)
		if !ok {
			return
		}
		for j, o := range item.origins {
			if j >= len(list) {
				break
			}
			if obj, ok := asObject(list[j]); ok {
				mergeObjectInto(o.obj, obj)
			}
		}
		return
	}

	for j, o := range item.origins {
		val, ok := respData[aliasFor(batchIdx, j)]
		if !ok || val == nil {
			continue
		}
		if obj, ok := asObject(val); ok {
			mergeObjectInto(o.obj, obj)
		}
	}
}
