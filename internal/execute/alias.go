package execute

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// aliasFor produces the reserved batch aliases spec.md §6 sets aside for
// boundary dispatch: "_<batchIdx>_result" for a list-shaped boundary query
// (objIdx < 0), "_<batchIdx>_<objIdx>_result" for one field per origin
// object otherwise. parseAlias in errorpath.go is this function's inverse.
func aliasFor(batchIdx, objIdx int) string {
	if objIdx < 0 {
		return fmt.Sprintf("_%d_result", batchIdx)
	}
	return fmt.Sprintf("_%d_%d_result", batchIdx, objIdx)
}

// parseOperationSelectionSet re-parses an Operation's already-rendered
// selection set text back into an ast.SelectionSet, so the introspection
// resolver can walk it without the Planner needing to carry the original
// AST alongside the rendered string.
func parseOperationSelectionSet(selectionSet string) (ast.SelectionSet, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: "query Introspect " + selectionSet})
	if err != nil {
		return nil, err
	}
	return doc.Operations[0].SelectionSet, nil
}
