// Package graphstitch is a GraphQL schema-stitching gateway: it composes
// several location schemas into one Supergraph, plans each incoming
// request against it, and executes that plan by dispatching batched
// sub-queries to the owning locations.
//
// Gateway is the single entry point, grounded on the shape of the
// teacher's own Engine/CreateEngine/Execute: one long-lived object built
// once from a Supergraph, exposing one Execute call per request.
package graphstitch

import (
	"context"
	"encoding/json"

	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/internal/execute"
	"github.com/graphstitch/graphstitch/internal/plan"
	"github.com/graphstitch/graphstitch/internal/request"
	"github.com/graphstitch/graphstitch/internal/supergraph"
	"github.com/graphstitch/graphstitch/log"
	"github.com/graphstitch/graphstitch/plancache"
	"github.com/graphstitch/graphstitch/trace"
)

// Gateway is a composed Supergraph plus the ambient collaborators spec.md
// §6 names: a PlanCache, a Logger, and a Tracer. It is safe for concurrent
// use by multiple requests; only the PlanCache and the Supergraph itself
// are shared state, and both are documented safe for that (spec.md §5).
type Gateway struct {
	Supergraph *supergraph.Supergraph
	PlanCache  plancache.PlanCache
	Logger     log.Logger
	Tracer     trace.Tracer
	ErrorHook  func(ctx context.Context, err error) string

	// Debug, when true, adds an `extensions.stitchGateway` block to every
	// Response whose request got as far as execution, reporting the request
	// digest, whether the plan came from the PlanCache, the plan's Operation
	// count and how many sub-queries were sent; the plan itself is not
	// included (SPEC_FULL.md "debug extensions").
	Debug bool
}

// New builds a Gateway around an already-composed Supergraph. Callers who
// need to build the Supergraph itself should use internal/compose.Compose
// directly and pass the result here — Gateway intentionally does not wrap
// composition, since that happens once at startup while Execute runs once
// per request.
func New(sg *supergraph.Supergraph) *Gateway {
	return &Gateway{
		Supergraph: sg,
		PlanCache:  plancache.NoopCache{},
		Logger:     &log.DefaultLogger{},
		Tracer:     trace.NoopTracer{},
	}
}

// Request is one call into the Gateway: the client's raw query text plus
// everything spec.md §6's `execute(query, variables?, operationName?,
// context?, validate?)` signature names.
type Request struct {
	Query         string
	Variables     map[string]interface{}
	OperationName string
	Context       context.Context

	// Validate runs the request against the merged schema with
	// gqlparser/v2/validator before planning, short-circuiting on failure
	// (spec.md §6 "validate=true").
	Validate bool
}

// Response is the client-visible `{data?, errors?}` shape, with an
// optional debug extensions block. spec.md §7 gives PlanError and
// ValidationError an explicit `"data": null` (nothing was ever executed)
// while an ExecutionError omits the key entirely (the Executor discards
// any partial data in that case); dataIsNull tells MarshalJSON
// which of the two this Response is.
type Response struct {
	Data       interface{}            `json:"data,omitempty"`
	Errors     gqlerror.List          `json:"errors,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`

	dataIsNull bool
}

// MarshalJSON renders Data as an explicit `null` when dataIsNull is set
// (the PlanError/ValidationError path built by errorResponse), and falls
// back to the `omitempty` struct tag's normal behavior otherwise.
func (r *Response) MarshalJSON() ([]byte, error) {
	type wire struct {
		Data       interface{}            `json:"data,omitempty"`
		Errors     gqlerror.List          `json:"errors,omitempty"`
		Extensions map[string]interface{} `json:"extensions,omitempty"`
	}
	if !r.dataIsNull {
		return json.Marshal(wire{Data: r.Data, Errors: r.Errors, Extensions: r.Extensions})
	}

	type wireWithNullData struct {
		Data       interface{}            `json:"data"`
		Errors     gqlerror.List          `json:"errors,omitempty"`
		Extensions map[string]interface{} `json:"extensions,omitempty"`
	}
	return json.Marshal(wireWithNullData{Data: nil, Errors: r.Errors, Extensions: r.Extensions})
}

// Execute runs req against g's Supergraph: parse, optionally validate,
// plan (consulting the PlanCache), then execute.
func (g *Gateway) Execute(ctx context.Context, req Request) *Response {
	if req.Context == nil {
		req.Context = ctx
	}

	parsed, err := request.Prepare(req.Context, req.Query, req.OperationName, req.Variables)
	if err != nil {
		return errorResponse(err)
	}

	if req.Validate {
		if errs := validator.Validate(g.Supergraph.Schema, parsed.Document); len(errs) > 0 {
			return errorResponse(errors.FromValidation(errs))
		}
	}

	pl, fromCache, err := g.resolvePlan(req.Context, parsed)
	if err != nil {
		return errorResponse(err)
	}

	result, stats := execute.Execute(req.Context, g.Supergraph, parsed, pl, execute.Options{
		Logger:    g.Logger,
		Tracer:    g.Tracer,
		ErrorHook: g.ErrorHook,
	})

	resp := &Response{Data: result.Data, Errors: result.Errors}
	if g.Debug {
		resp.Extensions = map[string]interface{}{
			"stitchGateway": map[string]interface{}{
				"digest":     parsed.Digest,
				"fromCache":  fromCache,
				"queryCount": stats.QueryCount,
				"operations": len(pl.Operations),
			},
		}
	}
	return resp
}

// resolvePlan reads the PlanCache before falling back to the Planner, and
// writes through on a miss (spec.md §6 "PlanCache hooks").
func (g *Gateway) resolvePlan(ctx context.Context, req *request.Request) (*plan.Plan, bool, error) {
	ctx, finish := g.Tracer.TracePlan(ctx, req.OperationName, req.QueryText)

	if planJSON, ok := g.PlanCache.OnCacheRead(ctx, req.Digest); ok {
		var pl plan.Plan
		if err := json.Unmarshal([]byte(planJSON), &pl); err == nil {
			finish(nil)
			return &pl, true, nil
		}
		// A corrupt cache entry falls through to a fresh Plan rather than
		// failing the request.
	}

	pl, err := plan.Build(g.Supergraph, req)
	finish(err)
	if err != nil {
		return nil, false, err
	}

	if planJSON, err := json.Marshal(pl); err == nil {
		g.PlanCache.OnCacheWrite(ctx, req.Digest, string(planJSON))
	}
	return pl, false, nil
}

// errorResponse builds the `{errors:[...], data:null}` shape spec.md §7
// mandates for PlanError and ValidationError: no partial data, since
// nothing was ever executed.
func errorResponse(err error) *Response {
	return &Response{Errors: errors.AsGQLList(err), dataIsNull: true}
}
