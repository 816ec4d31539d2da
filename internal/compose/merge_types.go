package compose

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// mergeNonRootType merges every location's definition of one non-root type
// into a single ast.Definition, per spec.md §4.1's merging rules, and
// returns the per-location field sets used both for routing and for the
// Composer's boundary-key invariant check.
func mergeNonRootType(name string, defs []locatedDef) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	kind := defs[0].def.Kind
	for _, d := range defs[1:] {
		if d.def.Kind != kind {
			return nil, nil, errors.Composition(
				"type %q is declared as %s in location %q but %s elsewhere",
				name, d.def.Kind, d.location, kind,
			)
		}
	}

	switch kind {
	case ast.Object, ast.Interface:
		return mergeFielded(name, kind, defs)
	case ast.Enum:
		return mergeEnum(name, defs)
	case ast.Union:
		return mergeUnion(name, defs)
	case ast.InputObject:
		return mergeInput(name, defs)
	case ast.Scalar:
		return mergeScalar(name, defs)
	default:
		return nil, nil, errors.Composition("type %q has unsupported kind %s", name, kind)
	}
}

func mergeFielded(name string, kind ast.DefinitionKind, defs []locatedDef) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	merged := &ast.Definition{Kind: kind, Name: name}

	byLocation := make(map[string]supergraph.FieldSet, len(defs))
	fieldOwner := map[string]*ast.FieldDefinition{}
	ifaceSeen := map[string]bool{}

	for _, d := range defs {
		byLocation[d.location] = fieldSetOf(d.def)

		for _, iface := range d.def.Interfaces {
			if !ifaceSeen[iface] {
				ifaceSeen[iface] = true
				merged.Interfaces = append(merged.Interfaces, iface)
			}
		}

		for _, f := range d.def.Fields {
			existing, ok := fieldOwner[f.Name]
			if !ok {
				fieldOwner[f.Name] = f
				merged.Fields = append(merged.Fields, f)
				continue
			}
			if !typesEqual(existing.Type, f.Type) {
				return nil, nil, errors.Composition(
					"field %s.%s has type %s in one location and %s in location %q",
					name, f.Name, existing.Type.String(), f.Type.String(), d.location,
				)
			}
		}
	}

	return merged, byLocation, nil
}

func mergeEnum(name string, defs []locatedDef) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	merged := &ast.Definition{Kind: ast.Enum, Name: name}
	seen := map[string]bool{}
	byLocation := make(map[string]supergraph.FieldSet, len(defs))

	for _, d := range defs {
		byLocation[d.location] = supergraph.FieldSet{}
		for _, ev := range d.def.EnumValues {
			if seen[ev.Name] {
				continue
			}
			seen[ev.Name] = true
			merged.EnumValues = append(merged.EnumValues, ev)
		}
	}
	return merged, byLocation, nil
}

func mergeUnion(name string, defs []locatedDef) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	merged := &ast.Definition{Kind: ast.Union, Name: name}
	seen := map[string]bool{}
	byLocation := make(map[string]supergraph.FieldSet, len(defs))

	for _, d := range defs {
		byLocation[d.location] = supergraph.FieldSet{}
		for _, member := range d.def.Types {
			if seen[member] {
				continue
			}
			seen[member] = true
			merged.Types = append(merged.Types, member)
		}
	}
	return merged, byLocation, nil
}

func mergeInput(name string, defs []locatedDef) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	first := defs[0].def
	for _, d := range defs[1:] {
		if len(d.def.Fields) != len(first.Fields) {
			return nil, nil, errors.Composition(
				"input type %q has a different argument set in location %q than in location %q",
				name, d.location, defs[0].location,
			)
		}
		for _, f := range first.Fields {
			other := d.def.Fields.ForName(f.Name)
			if other == nil || !typesEqual(other.Type, f.Type) {
				return nil, nil, errors.Composition(
					"input type %q field %q is not structurally identical between location %q and %q",
					name, f.Name, defs[0].location, d.location,
				)
			}
		}
	}

	merged := &ast.Definition{Kind: ast.InputObject, Name: name, Fields: first.Fields}
	byLocation := make(map[string]supergraph.FieldSet, len(defs))
	for _, d := range defs {
		byLocation[d.location] = supergraph.FieldSet{}
	}
	return merged, byLocation, nil
}

func mergeScalar(name string, defs []locatedDef) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	merged := &ast.Definition{Kind: ast.Scalar, Name: name}
	byLocation := make(map[string]supergraph.FieldSet, len(defs))
	for _, d := range defs {
		byLocation[d.location] = supergraph.FieldSet{}
	}
	return merged, byLocation, nil
}

// mergeRootFields unions a root operation type's (Query/Mutation) fields
// across locations. Duplicate field names are only allowed when their
// signature (return type and arguments) is identical or when the field is
// a stitch entry point in some location — the caller supplies the set of
// stitch field names, since it knows which fields carry the directive.
// The __schema/__type meta-fields gqlparser adds to a loaded Query root
// are not merged.
func mergeRootFields(rootKindName string, defs []locatedDef, stitchFields map[string]bool) (*ast.Definition, map[string]supergraph.FieldSet, error) {
	merged := &ast.Definition{Kind: ast.Object, Name: rootKindName}
	byLocation := make(map[string]supergraph.FieldSet, len(defs))
	fieldOwner := map[string]*ast.FieldDefinition{}

	for _, d := range defs {
		byLocation[d.location] = fieldSetOf(d.def)

		for _, f := range d.def.Fields {
			if len(f.Name) >= 2 && f.Name[:2] == "__" {
				continue // introspection meta-fields
			}
			existing, ok := fieldOwner[f.Name]
			if !ok {
				fieldOwner[f.Name] = f
				merged.Fields = append(merged.Fields, f)
				continue
			}
			if stitchFields[f.Name] {
				continue
			}
			sameArgs := len(existing.Arguments) == len(f.Arguments)
			for _, a := range existing.Arguments {
				if other := f.Arguments.ForName(a.Name); other == nil || !typesEqual(a.Type, other.Type) {
					sameArgs = false
				}
			}
			if !sameArgs || !typesEqual(existing.Type, f.Type) {
				return nil, nil, errors.Composition(
					"root field %s.%s is declared with incompatible signatures across locations (%s vs %s in %q)",
					rootKindName, f.Name, existing.Type.String(), f.Type.String(), d.location,
				)
			}
		}
	}
	return merged, byLocation, nil
}
