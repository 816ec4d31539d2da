package plan

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/errors"
)

// entry is one field selection after one level of fragment expansion,
// tagged with the concrete type it requires. cond equals ownerType when
// the selection applies regardless of which concrete type the object
// turns out to be.
type entry struct {
	cond  string
	field *ast.Field
}

// inline expands the inline fragments and fragment spreads directly
// inside sels. It does not recurse into any field's own SelectionSet —
// that happens lazily as the planner descends into that field.
func inline(sels ast.SelectionSet, ownerType string, doc *ast.QueryDocument) ([]entry, error) {
	var out []entry
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			out = append(out, entry{cond: ownerType, field: s})

		case *ast.InlineFragment:
			cond := s.TypeCondition
			if cond == "" {
				cond = ownerType
			}
			nested, err := inline(s.SelectionSet, cond, doc)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)

		case *ast.FragmentSpread:
			frag := doc.Fragments.ForName(s.Name)
			if frag == nil {
				return nil, errors.Plan("unknown fragment %q", s.Name)
			}
			cond := frag.TypeCondition
			if cond == "" {
				cond = ownerType
			}
			nested, err := inline(frag.SelectionSet, cond, doc)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)

		default:
			return nil, errors.Plan("unsupported selection type %T", sel)
		}
	}
	return out, nil
}

// coalesce merges entries that share a response key (spec.md §4.2 step 6):
// duplicate sibling selections surviving fragment inlining are deduplicated,
// their sub-selections concatenated, in first-seen order.
func coalesce(entries []entry) []*ast.Field {
	var order []string
	byKey := map[string]*ast.Field{}
	for _, e := range entries {
		key := responseKey(e.field)
		if existing, ok := byKey[key]; ok {
			existing.SelectionSet = append(existing.SelectionSet, e.field.SelectionSet...)
			continue
		}
		byKey[key] = e.field
		order = append(order, key)
	}
	out := make([]*ast.Field, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}
