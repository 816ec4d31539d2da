package execute

import (
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// repathErrors rewrites every error a location returned so its Path is
// expressed in terms of the assembled result tree instead of the batched
// document (spec.md §4.3 "Error repathing", §8 "Error path correctness").
func repathErrors(b *batch, errs gqlerror.List) gqlerror.List {
	out := make(gqlerror.List, 0, len(errs))
	for _, e := range errs {
		out = append(out, repathOne(b, e))
	}
	return out
}

func repathOne(b *batch, e *gqlerror.Error) *gqlerror.Error {
	if len(e.Path) == 0 {
		return e
	}
	alias, ok := pathSegAsString(e.Path[0])
	if !ok {
		return e
	}

	batchIdx, objIdx, isList, matched := parseAlias(alias)
	if !matched || batchIdx >= len(b.items) {
		return e
	}
	item := b.items[batchIdx]
	rest := e.Path[1:]

	if item.op.Boundary == nil {
		// Root Operations keep their client-facing aliases verbatim; no
		// rewriting needed.
		return e
	}

	var origin *origin
	if isList {
		idx, ok := pathSegAsIndex(firstOrNil(rest))
		if !ok || idx < 0 || idx >= len(item.origins) {
			return e
		}
		origin = item.origins[idx]
		rest = rest[1:]
	} else {
		if objIdx < 0 || objIdx >= len(item.origins) {
			return e
		}
		origin = item.origins[objIdx]
	}

	newPath := make(ast.Path, 0, len(origin.path)+len(rest))
	newPath = append(newPath, origin.path...)
	newPath = append(newPath, rest...)

	out := *e
	out.Path = newPath
	return &out
}

func firstOrNil(p ast.Path) interface{} {
	if len(p) == 0 {
		return nil
	}
	return p[0]
}

// parseAlias recognizes the two batch alias shapes spec.md §6 reserves:
// "_<int>_result" (list boundary) and "_<int>_<int>_result" (one field
// per origin object).
func parseAlias(alias string) (batchIdx, objIdx int, isList, ok bool) {
	if !strings.HasPrefix(alias, "_") || !strings.HasSuffix(alias, "_result") {
		return 0, 0, false, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(alias, "_"), "_result")
	parts := strings.Split(body, "_")
	switch len(parts) {
	case 1:
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, false, false
		}
		return n, 0, true, true
	case 2:
		n, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, 0, false, false
		}
		return n, m, false, true
	default:
		return 0, 0, false, false
	}
}

func pathSegAsString(seg interface{}) (string, bool) {
	switch v := seg.(type) {
	case ast.PathName:
		return string(v), true
	case string:
		return v, true
	default:
		return "", false
	}
}

// pathSegAsIndex resolves the open question in spec.md §9 about the
// undefined-index branch: when the next path segment isn't itself a list
// index (e.g. it's a field name, because the remote location's error path
// skipped the list-index segment), we have no index to recover and the
// caller leaves the error path unrepathed rather than guessing.
func pathSegAsIndex(seg interface{}) (int, bool) {
	switch v := seg.(type) {
	case ast.PathIndex:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
