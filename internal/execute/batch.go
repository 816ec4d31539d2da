package execute

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/internal/plan"
	"github.com/graphstitch/graphstitch/internal/request"
	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// batchItem is one ready Operation being dispatched as part of a batch,
// together with the origin objects it will enrich (nil for root
// Operations, which have no origin set).
type batchItem struct {
	op      *plan.Operation
	origins []*origin
}

// batch is every ready Operation sharing a location and an `after` step,
// dispatched as a single outbound document (spec.md §4.3 "Boundary
// batching").
type batch struct {
	location string
	after    int
	items    []*batchItem
}

// groupBatches buckets ready Operations by (location, after). Within one
// Execute call every Operation shares the same operationName and
// operationDirectives (they belong to one request's chosen operation), so
// spec.md §4.3's full grouping key collapses to this pair.
func groupBatches(ready []*plan.Operation) []*batch {
	index := map[string]*batch{}
	var order []string

	for _, op := range ready {
		key := op.Location + "\x00" + strconv.Itoa(op.After)
		b, ok := index[key]
		if !ok {
			b = &batch{location: op.Location, after: op.After}
			index[key] = b
			order = append(order, key)
		}
		b.items = append(b.items, &batchItem{op: op})
	}

	out := make([]*batch, len(order))
	for i, key := range order {
		out[i] = index[key]
	}
	return out
}

// buildDocument renders the outbound GraphQL document for b. Boundary
// items must already have their origins populated.
func buildDocument(b *batch, req *request.Request, opts supergraph.Options) (string, map[string]interface{}, error) {
	var fieldsText []string
	varNames := map[string]bool{}
	var steps []string

	for i, item := range b.items {
		steps = append(steps, strconv.Itoa(item.op.Step))
		for _, v := range item.op.Variables {
			varNames[v] = true
		}

		if item.op.Boundary == nil {
			fieldsText = append(fieldsText, innerFields(item.op.SelectionSet))
			continue
		}

		text, err := boundaryFieldsText(i, item, opts)
		if err != nil {
			return "", nil, err
		}
		if text != "" {
			fieldsText = append(fieldsText, text)
		}
	}

	if len(fieldsText) == 0 {
		return "", nil, nil
	}

	opType := "query"
	if b.items[0].op.OperationType == plan.OpMutation {
		opType = "mutation"
	}

	name := req.OperationName
	if name == "" {
		name = "Op"
	}
	name = name + "_" + strings.Join(steps, "_")

	varDecls, variables := renderVariables(req, varNames)

	var doc strings.Builder
	doc.WriteString(opType)
	doc.WriteString(" ")
	doc.WriteString(name)
	if varDecls != "" {
		doc.WriteString("(")
		doc.WriteString(varDecls)
		doc.WriteString(")")
	}
	doc.WriteString(" { ")
	doc.WriteString(strings.Join(fieldsText, " "))
	doc.WriteString(" }")

	return doc.String(), variables, nil
}

// innerFields strips the outer "{ " / " }" that renderSelectionSet always
// wraps a rendered selection set in, since a root Operation's text is
// re-embedded directly inside the batched document's own braces.
func innerFields(selectionSet string) string {
	s := strings.TrimSpace(selectionSet)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	return strings.TrimSpace(s)
}

// boundaryFieldsText synthesizes the one or more aliased fields a
// boundary Operation contributes to a batch (spec.md §4.3 "Boundary
// batching"): one field with a list argument when the boundary query is
// list-shaped, otherwise one field per origin object.
func boundaryFieldsText(batchIdx int, item *batchItem, opts supergraph.Options) (string, error) {
	bq := item.op.Boundary
	if len(item.origins) == 0 {
		return "", nil
	}

	keyField := opts.ExportPrefix + bq.Key
	typenameField := opts.ExportPrefix + "typename"

	if bq.List {
		literals := make([]string, 0, len(item.origins))
		for _, o := range item.origins {
			lit, err := keyLiteral(o.obj[keyField], bq.Federation, o.obj[typenameField], bq.Key)
			if err != nil {
				return "", err
			}
			literals = append(literals, lit)
		}
		alias := aliasFor(batchIdx, -1)
		return fmt.Sprintf("%s: %s(%s: [%s]) %s", alias, bq.Field, bq.ArgName, strings.Join(literals, ", "), item.op.SelectionSet), nil
	}

	var parts []string
	for j, o := range item.origins {
		lit, err := keyLiteral(o.obj[keyField], bq.Federation, o.obj[typenameField], bq.Key)
		if err != nil {
			return "", err
		}
		alias := aliasFor(batchIdx, j)
		parts = append(parts, fmt.Sprintf("%s: %s(%s: %s) %s", alias, bq.Field, bq.ArgName, lit, item.op.SelectionSet))
	}
	return strings.Join(parts, " "), nil
}

// keyLiteral renders a boundary query's argument value as GraphQL literal
// text: a bare JSON-encoded scalar, or a federation-style
// {__typename: "T", key: value} object literal (spec.md §3, §4.3).
func keyLiteral(keyValue interface{}, federation bool, typename interface{}, keyField string) (string, error) {
	scalar, err := json.Marshal(keyValue)
	if err != nil {
		return "", fmt.Errorf("encoding boundary key value: %w", err)
	}
	if !federation {
		return string(scalar), nil
	}
	tn, err := json.Marshal(typename)
	if err != nil {
		return "", fmt.Errorf("encoding boundary key typename: %w", err)
	}
	return fmt.Sprintf("{__typename: %s, %s: %s}", tn, keyField, scalar), nil
}

// renderVariables returns the "$v: Type, ..." declaration text and the
// variables map restricted to names, for every name actually referenced
// by at least one Operation in the batch.
func renderVariables(req *request.Request, names map[string]bool) (string, map[string]interface{}) {
	if len(names) == 0 {
		return "", map[string]interface{}{}
	}

	defs := map[string]*ast.VariableDefinition{}
	for _, d := range req.Operation.VariableDefinitions {
		defs[d.Variable] = d
	}

	var decls []string
	variables := map[string]interface{}{}
	for name := range names {
		if d, ok := defs[name]; ok {
			decls = append(decls, fmt.Sprintf("$%s: %s", name, d.Type.String()))
		}
		if v, ok := req.Variables[name]; ok {
			variables[name] = v
		}
	}
	return strings.Join(decls, ", "), variables
}
