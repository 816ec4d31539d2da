package execute

import "github.com/vektah/gqlparser/v2/ast"

// This file walks the Executor's working result tree as a tagged value —
// object (map[string]interface{}) | list ([]interface{}) | scalar | null —
// with explicit recursion over each variant, per spec.md §9 "Dynamic field
// access on result trees". No reflection, no generic tree library: this is
// exactly the shape encoding/json already decodes into.

func asObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

// origin is one partially-populated object a boundary Operation will
// enrich, together with the path (rooted at the shared data tree, with
// list indices resolved) at which it actually lives — needed both to
// merge the boundary response back in and to repath any errors that
// response carries (spec.md §4.3 "Error repathing").
type origin struct {
	obj  map[string]interface{}
	path ast.Path
}

// collectOrigins walks root along path, flattening every list it meets
// along the way (whether or not path has been fully consumed), and
// returns the objects found at the end. When ifType is non-empty, objects
// whose typenameKey field does not equal it are dropped (spec.md §4.3
// "Resolve its origin set").
func collectOrigins(root interface{}, path []string, ifType, typenameKey string) []*origin {
	var out []*origin

	var walk func(v interface{}, p ast.Path, remaining []string)
	walk = func(v interface{}, p ast.Path, remaining []string) {
		if v == nil {
			return
		}
		if list, ok := asList(v); ok {
			for i, item := range list {
				walk(item, appendPath(p, ast.PathIndex(i)), remaining)
			}
			return
		}
		if len(remaining) == 0 {
			obj, ok := asObject(v)
			if !ok {
				return
			}
			if ifType != "" {
				tn, _ := obj[typenameKey].(string)
				if tn != ifType {
					return
				}
			}
			out = append(out, &origin{obj: obj, path: p})
			return
		}
		obj, ok := asObject(v)
		if !ok {
			return
		}
		child, exists := obj[remaining[0]]
		if !exists {
			return
		}
		walk(child, appendPath(p, ast.PathName(remaining[0])), remaining[1:])
	}

	walk(root, ast.Path{}, path)
	return out
}

func appendPath(p ast.Path, seg ast.PathElement) ast.Path {
	out := make(ast.Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// mergeObjectInto merges src's fields into dst by shallow field
// assignment, recursing when both sides hold an object for the same key
// (spec.md §4.3 "Result merging" step 2, and §9's note that unsolicited
// extra fields are merged too, not filtered).
func mergeObjectInto(dst, src map[string]interface{}) {
	for k, v := range src {
		if existingObj, ok := asObject(dst[k]); ok {
			if srcObj, ok := asObject(v); ok {
				mergeObjectInto(existingObj, srcObj)
				continue
			}
		}
		dst[k] = v
	}
}

// stripStitchFields removes every object field whose name begins with
// prefix, recursively, across the whole result tree (spec.md §4.3
// "Cleanup").
func stripStitchFields(v interface{}, prefix string) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k := range val {
			if len(prefix) > 0 && hasPrefix(k, prefix) {
				delete(val, k)
				continue
			}
			stripStitchFields(val[k], prefix)
		}
	case []interface{}:
		for _, item := range val {
			stripStitchFields(item, prefix)
		}
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
