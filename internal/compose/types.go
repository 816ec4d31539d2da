package compose

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// locatedDef pairs a type definition with the location it came from.
type locatedDef struct {
	location string
	def      *ast.Definition
}

func isBuiltinScalar(name string) bool {
	switch name {
	case "Int", "Float", "String", "Boolean", "ID":
		return true
	default:
		return false
	}
}

func isRootTypeName(name string) bool {
	return name == "Query" || name == "Mutation" || name == "Subscription"
}

// typesEqual reports whether two gqlparser types are structurally identical:
// the same named type with the same list/non-null wrapper structure.
func typesEqual(a, b *ast.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.NonNull != b.NonNull {
		return false
	}
	if (a.Elem == nil) != (b.Elem == nil) {
		return false
	}
	if a.Elem != nil {
		return typesEqual(a.Elem, b.Elem)
	}
	return a.NamedType == b.NamedType
}

// namedTypeOf strips every list/non-null wrapper and returns the bare
// named type at the core of t.
func namedTypeOf(t *ast.Type) string {
	for t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

// isListType reports whether t is, at any level of non-null wrapping, a
// list type (i.e. the field accepts/returns a list per spec.md §3).
func isListType(t *ast.Type) bool {
	return t.Elem != nil
}

// fieldSetOf returns the set of field names def declares.
func fieldSetOf(def *ast.Definition) supergraph.FieldSet {
	set := make(supergraph.FieldSet, len(def.Fields))
	for _, f := range def.Fields {
		set[f.Name] = struct{}{}
	}
	return set
}
