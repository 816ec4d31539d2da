// Package request turns raw client input (query text, variables, an
// operation name) into a normalized Request: a parsed document, the
// selected operation, and a stable digest used as a plan-cache key.
//
// Fragment inlining (spec.md §4.2 step 6) happens during planning, not
// here — the Planner is the only component that needs to know how a
// fragment's selections map onto concrete types, so flattening lives next
// to that logic in internal/plan. This package only parses and selects.
package request

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/graphstitch/graphstitch/errors"
)

// Request is one client call, normalized and ready for planning.
type Request struct {
	Document      *ast.QueryDocument
	Operation     *ast.OperationDefinition
	OperationName string
	Variables     map[string]interface{}
	Context       context.Context

	// Digest is a stable hash of (document text, operationName), used as
	// the PlanCache key.
	Digest string

	// OperationDirectives is the chosen operation's directive list,
	// forwarded verbatim to sub-queries.
	OperationDirectives ast.DirectiveList

	QueryText string
}

// Parse parses queryText and selects the operation named operationName
// (or the sole operation, if there is exactly one). It does not attach
// variables or compute the digest — callers needing those call Prepare.
func Parse(queryText string, operationName string) (*Request, error) {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: queryText, Name: "request"})
	if gqlErr != nil {
		return nil, errors.FromValidation(gqlerror.List{gqlerror.Wrap(gqlErr)})
	}

	op, err := SelectOperation(doc, operationName)
	if err != nil {
		return nil, err
	}

	return &Request{
		Document:            doc,
		Operation:           op,
		OperationName:       operationName,
		OperationDirectives: op.Directives,
		QueryText:           queryText,
	}, nil
}

// Prepare is the full entry point: parses, selects the operation, attaches
// variables and a caller context, and computes the plan-cache digest.
func Prepare(ctx context.Context, queryText, operationName string, variables map[string]interface{}) (*Request, error) {
	req, err := Parse(queryText, operationName)
	if err != nil {
		return nil, err
	}
	req.Context = ctx
	req.Variables = variables
	req.Digest = Digest(queryText, operationName)
	return req, nil
}

// SelectOperation picks the operation a request runs, per spec.md §4.2
// step 1: the named operation, or the sole operation when there is
// exactly one and no name was given.
func SelectOperation(doc *ast.QueryDocument, operationName string) (*ast.OperationDefinition, error) {
	if operationName == "" {
		if len(doc.Operations) != 1 {
			return nil, errors.Plan("operation name is required: document declares %d operations", len(doc.Operations))
		}
		return doc.Operations[0], nil
	}

	for _, op := range doc.Operations {
		if op.Name == operationName {
			return op, nil
		}
	}
	return nil, errors.Plan("no operation named %q in document", operationName)
}
