package compose

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// stitchDefinition returns the @stitch directive definition the Composer
// declares on the merged schema so that gqlparser's schema validator
// accepts its use on root field definitions. Grammar from spec.md §6:
// directive @stitch(key: String!) repeatable on FIELD_DEFINITION
func stitchDefinition(directiveName string) *ast.DirectiveDefinition {
	return &ast.DirectiveDefinition{
		Name: directiveName,
		Arguments: ast.ArgumentDefinitionList{
			{Name: "key", Type: ast.NonNullNamedType("String", nil)},
		},
		Locations:    []ast.DirectiveLocation{ast.LocationFieldDefinition},
		IsRepeatable: true,
	}
}

// parseStitchKey splits a stitch directive's key argument, "[argName:]
// fieldName", into its two parts. An empty argName means it must be
// inferred from the field's sole argument.
func parseStitchKey(raw string) (argName, keyField string) {
	if idx := strings.IndexByte(raw, ':'); idx >= 0 {
		return raw[:idx], raw[idx+1:]
	}
	return "", raw
}

// boundaryQueriesForField extracts every @stitch directive use on field
// (repeatable, so possibly more than one — a multi-key entry point) and
// turns each into a BoundaryQuery.
func boundaryQueriesForField(location string, field *ast.FieldDefinition, targetType *ast.Definition, directiveName string, locSchema *ast.Schema) ([]*supergraph.BoundaryQuery, error) {
	var out []*supergraph.BoundaryQuery

	for _, d := range field.Directives {
		if d.Name != directiveName {
			continue
		}
		keyArg := d.Arguments.ForName("key")
		if keyArg == nil {
			return nil, errors.Composition("@%s on field %q in location %q is missing its key argument", directiveName, field.Name, location)
		}
		rawKey := keyArg.Value.Raw

		argName, keyField := parseStitchKey(rawKey)
		if argName == "" {
			if len(field.Arguments) != 1 {
				return nil, errors.Composition(
					"@%s on field %q in location %q omits an argument name and the field does not have exactly one argument to infer it from",
					directiveName, field.Name, location,
				)
			}
			argName = field.Arguments[0].Name
		}

		arg := field.Arguments.ForName(argName)
		if arg == nil {
			return nil, errors.Composition(
				"@%s on field %q in location %q references argument %q, which is not declared on the field",
				directiveName, field.Name, location, argName,
			)
		}

		if targetType.Fields.ForName(keyField) == nil {
			return nil, errors.Composition(
				"@%s on field %q in location %q references key field %q, which is not present on type %q",
				directiveName, field.Name, location, keyField, targetType.Name,
			)
		}

		out = append(out, &supergraph.BoundaryQuery{
			Location:   location,
			Field:      field.Name,
			ArgName:    argName,
			Key:        keyField,
			List:       isListType(field.Type),
			Federation: argIsFederationShaped(arg, locSchema),
		})
	}

	return out, nil
}

// argIsFederationShaped decides the input shape a boundary query expects
// for its key argument: a bare scalar value, or a federation-style
// {__typename, key} object literal. Per spec.md §3, this is exactly what
// the Federation flag controls, and the natural signal for it is the
// argument's own declared type: an input object carries the
// {__typename, key} shape, a scalar (or list of scalar) carries bare
// values.
func argIsFederationShaped(arg *ast.ArgumentDefinition, locSchema *ast.Schema) bool {
	t := arg.Type
	for t.Elem != nil {
		t = t.Elem
	}
	if isBuiltinScalar(t.NamedType) {
		return false
	}
	if def, ok := locSchema.Types[t.NamedType]; ok && def.Kind == ast.Scalar {
		return false
	}
	return true
}
