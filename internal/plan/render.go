package plan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// renderSelectionSet renders an already-planned, fragment-free
// SelectionSet as GraphQL text for one Operation.
func renderSelectionSet(sels ast.SelectionSet) string {
	var b strings.Builder
	b.WriteString("{ ")
	for i, s := range sels {
		if i > 0 {
			b.WriteString(" ")
		}
		renderSelection(&b, s)
	}
	b.WriteString(" }")
	return b.String()
}

func renderSelection(b *strings.Builder, sel ast.Selection) {
	switch s := sel.(type) {
	case *ast.Field:
		renderField(b, s)
	case *ast.InlineFragment:
		b.WriteString("... on ")
		b.WriteString(s.TypeCondition)
		b.WriteString(" ")
		b.WriteString(renderSelectionSet(s.SelectionSet))
	default:
		panic(fmt.Sprintf("plan: unexpected selection %T survived planning", sel))
	}
}

func renderField(b *strings.Builder, f *ast.Field) {
	if f.Alias != "" && f.Alias != f.Name {
		b.WriteString(f.Alias)
		b.WriteString(": ")
	}
	b.WriteString(f.Name)
	if len(f.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range f.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(arg.Name)
			b.WriteString(": ")
			b.WriteString(renderValue(arg.Value))
		}
		b.WriteString(")")
	}
	if len(f.SelectionSet) > 0 {
		b.WriteString(" ")
		b.WriteString(renderSelectionSet(f.SelectionSet))
	}
}

func renderValue(v *ast.Value) string {
	if v == nil {
		return "null"
	}
	switch v.Kind {
	case ast.Variable:
		return "$" + v.Raw
	case ast.StringValue, ast.BlockValue:
		return strconv.Quote(v.Raw)
	case ast.ListValue:
		parts := make([]string, len(v.Children))
		for i, c := range v.Children {
			parts[i] = renderValue(c.Value)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ast.ObjectValue:
		parts := make([]string, len(v.Children))
		for i, c := range v.Children {
			parts[i] = c.Name + ": " + renderValue(c.Value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.Raw
	}
}

// collectVariables returns the sorted, deduplicated set of variable names
// referenced anywhere in sels (spec.md §4.2 step 7).
func collectVariables(sels ast.SelectionSet) []string {
	seen := map[string]bool{}

	var walkValue func(*ast.Value)
	walkValue = func(v *ast.Value) {
		if v == nil {
			return
		}
		if v.Kind == ast.Variable {
			seen[v.Raw] = true
			return
		}
		for _, c := range v.Children {
			walkValue(c.Value)
		}
	}

	var walk func(ast.SelectionSet)
	walk = func(ss ast.SelectionSet) {
		for _, sel := range ss {
			switch s := sel.(type) {
			case *ast.Field:
				for _, a := range s.Arguments {
					walkValue(a.Value)
				}
				walk(s.SelectionSet)
			case *ast.InlineFragment:
				walk(s.SelectionSet)
			}
		}
	}
	walk(sels)

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func namedTypeOf(t *ast.Type) string {
	for t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

func isListType(t *ast.Type) bool {
	return t.Elem != nil
}

func fieldAlias(alias, name string) *ast.Field {
	return &ast.Field{Alias: alias, Name: name}
}
