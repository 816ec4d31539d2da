// Package compose merges the independent schemas of every location into a
// single Supergraph: a merged schema plus the routing tables the Planner
// and Executor need (spec.md §4.1).
package compose

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// Input names the merged schema's root operation types. Both default to
// the conventional "Query"/"Mutation".
type Input struct {
	QueryTypeName    string
	MutationTypeName string
}

func (i Input) withDefaults() Input {
	if i.QueryTypeName == "" {
		i.QueryTypeName = "Query"
	}
	if i.MutationTypeName == "" {
		i.MutationTypeName = "Mutation"
	}
	return i
}

func mergeOptions(o supergraph.Options) supergraph.Options {
	d := supergraph.DefaultOptions()
	if o.StitchDirectiveName == "" {
		o.StitchDirectiveName = d.StitchDirectiveName
	}
	if o.ExportPrefix == "" {
		o.ExportPrefix = d.ExportPrefix
	}
	if o.ReservedAliasPrefix == "" {
		o.ReservedAliasPrefix = d.ReservedAliasPrefix
	}
	return o
}

// Compose merges schemas (one per location) into a Supergraph. executables
// may be nil; it is stored on the resulting Supergraph as-is so the
// Executor has something to dispatch to.
func Compose(schemas map[string]*ast.Schema, executables map[string]supergraph.LocationExecutor, opts supergraph.Options, input Input) (*supergraph.Supergraph, error) {
	opts = mergeOptions(opts)
	input = input.withDefaults()

	locations := make([]string, 0, len(schemas))
	for loc := range schemas {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	for _, loc := range locations {
		if schemas[loc].Subscription != nil {
			return nil, errors.Composition("location %q declares a Subscription root, which is not supported", loc)
		}
	}

	typeDefs := collectNonRootTypeDefs(schemas, locations)

	mergedTypes := map[string]*ast.Definition{}
	fieldsByTypeAndLocation := map[string]map[string]supergraph.FieldSet{}

	typeNames := make([]string, 0, len(typeDefs))
	for name := range typeDefs {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		def, byLoc, err := mergeNonRootType(name, typeDefs[name])
		if err != nil {
			return nil, err
		}
		mergedTypes[name] = def
		fieldsByTypeAndLocation[name] = byLoc
	}

	if existing, ok := mergedTypes[input.QueryTypeName]; ok {
		return nil, errors.Composition("cannot name the merged query type %q: a type with that name already exists (kind %s)", input.QueryTypeName, existing.Kind)
	}
	if existing, ok := mergedTypes[input.MutationTypeName]; ok {
		return nil, errors.Composition("cannot name the merged mutation type %q: a type with that name already exists (kind %s)", input.MutationTypeName, existing.Kind)
	}

	stitchFields := map[string]bool{}
	for _, loc := range locations {
		for _, f := range rootFields(schemas[loc].Query) {
			if f.Directives.ForName(opts.StitchDirectiveName) != nil {
				stitchFields[f.Name] = true
			}
		}
	}

	queryDefs := locatedRootDefs(schemas, locations, func(s *ast.Schema) *ast.Definition { return s.Query })
	if len(queryDefs) == 0 {
		return nil, errors.Composition("no location declares a Query root")
	}
	mergedQuery, queryByLoc, err := mergeRootFields(input.QueryTypeName, queryDefs, stitchFields)
	if err != nil {
		return nil, err
	}
	mergedTypes[input.QueryTypeName] = mergedQuery
	fieldsByTypeAndLocation[input.QueryTypeName] = queryByLoc

	mutationDefs := locatedRootDefs(schemas, locations, func(s *ast.Schema) *ast.Definition { return s.Mutation })
	hasMutation := len(mutationDefs) > 0
	if hasMutation {
		mergedMutation, mutationByLoc, mErr := mergeRootFields(input.MutationTypeName, mutationDefs, stitchFields)
		if mErr != nil {
			return nil, mErr
		}
		mergedTypes[input.MutationTypeName] = mergedMutation
		fieldsByTypeAndLocation[input.MutationTypeName] = mutationByLoc
	}

	boundaries, err := discoverBoundaries(schemas, locations, mergedTypes, opts.StitchDirectiveName)
	if err != nil {
		return nil, err
	}

	if err := checkBoundaryInvariants(mergedTypes, fieldsByTypeAndLocation, boundaries, input); err != nil {
		return nil, err
	}

	schema, err := buildSchema(mergedTypes, hasMutation, input, opts)
	if err != nil {
		return nil, err
	}

	return &supergraph.Supergraph{
		Schema:                  schema,
		Locations:               locations,
		FieldsByTypeAndLocation: fieldsByTypeAndLocation,
		Boundaries:              boundaries,
		Executables:             executables,
		Options:                 opts,
	}, nil
}

func rootFields(def *ast.Definition) ast.FieldList {
	if def == nil {
		return nil
	}
	return def.Fields
}

func collectNonRootTypeDefs(schemas map[string]*ast.Schema, locations []string) map[string][]locatedDef {
	typeDefs := map[string][]locatedDef{}
	for _, loc := range locations {
		schema := schemas[loc]
		for name, def := range schema.Types {
			if isBuiltinScalar(name) || isRootTypeName(name) {
				continue
			}
			if len(name) >= 2 && name[0] == '_' && name[1] == '_' {
				continue // introspection meta-types
			}
			if def == schema.Query || def == schema.Mutation || def == schema.Subscription {
				continue
			}
			typeDefs[name] = append(typeDefs[name], locatedDef{location: loc, def: def})
		}
	}
	return typeDefs
}

func locatedRootDefs(schemas map[string]*ast.Schema, locations []string, pick func(*ast.Schema) *ast.Definition) []locatedDef {
	var out []locatedDef
	for _, loc := range locations {
		if def := pick(schemas[loc]); def != nil {
			out = append(out, locatedDef{location: loc, def: def})
		}
	}
	return out
}

func discoverBoundaries(schemas map[string]*ast.Schema, locations []string, mergedTypes map[string]*ast.Definition, directiveName string) (map[string][]*supergraph.BoundaryQuery, error) {
	boundaries := map[string][]*supergraph.BoundaryQuery{}
	seen := map[[3]string]bool{}

	for _, loc := range locations {
		schema := schemas[loc]
		for _, root := range []*ast.Definition{schema.Query, schema.Mutation} {
			if root == nil {
				continue
			}
			for _, field := range root.Fields {
				if field.Directives.ForName(directiveName) == nil {
					continue
				}
				targetTypeName := namedTypeOf(field.Type)
				targetType, ok := mergedTypes[targetTypeName]
				if !ok {
					return nil, errors.Composition("@%s on field %q in location %q targets unknown type %q", directiveName, field.Name, loc, targetTypeName)
				}

				bqs, err := boundaryQueriesForField(loc, field, targetType, directiveName, schema)
				if err != nil {
					return nil, err
				}

				for _, bq := range bqs {
					dedupeKey := [3]string{targetTypeName, bq.Location, bq.Key}
					if seen[dedupeKey] {
						return nil, errors.Composition("multiple stitch queries for type %q, location %q, key %q", targetTypeName, bq.Location, bq.Key)
					}
					seen[dedupeKey] = true
					boundaries[targetTypeName] = append(boundaries[targetTypeName], bq)
				}
			}
		}
	}

	return boundaries, nil
}

func checkBoundaryInvariants(mergedTypes map[string]*ast.Definition, fieldsByTypeAndLocation map[string]map[string]supergraph.FieldSet, boundaries map[string][]*supergraph.BoundaryQuery, input Input) error {
	for typeName, byLoc := range fieldsByTypeAndLocation {
		if len(byLoc) < 2 {
			continue
		}
		// Root fields are sent straight to a location that owns them; the
		// root object is never re-fetched through a boundary query.
		if typeName == input.QueryTypeName || typeName == input.MutationTypeName {
			continue
		}
		def := mergedTypes[typeName]
		if def.Kind != ast.Object && def.Kind != ast.Interface {
			continue
		}

		for _, bq := range boundaries[typeName] {
			for loc, fields := range byLoc {
				if !fields.Has(bq.Key) {
					return errors.Composition("boundary query for type %q uses key %q, which location %q does not expose on that type", typeName, bq.Key, loc)
				}
			}
		}

		union := supergraph.FieldSet{}
		for _, fields := range byLoc {
			for f := range fields {
				union[f] = struct{}{}
			}
		}

		locationsWithBoundary := map[string]bool{}
		for _, bq := range boundaries[typeName] {
			locationsWithBoundary[bq.Location] = true
		}

		for loc, fields := range byLoc {
			exclusive := false
			for f := range fields {
				ownedElsewhere := false
				for otherLoc, otherFields := range byLoc {
					if otherLoc == loc {
						continue
					}
					if otherFields.Has(f) {
						ownedElsewhere = true
						break
					}
				}
				if !ownedElsewhere {
					exclusive = true
					break
				}
			}
			if exclusive && !locationsWithBoundary[loc] {
				return errors.Composition("type %q has fields only location %q can resolve, but no boundary query routes to it", typeName, loc)
			}
		}
	}
	return nil
}

func buildSchema(mergedTypes map[string]*ast.Definition, hasMutation bool, input Input, opts supergraph.Options) (*ast.Schema, error) {
	doc := &ast.SchemaDocument{
		Directives: ast.DirectiveDefinitionList{stitchDefinition(opts.StitchDirectiveName)},
		Schema: ast.SchemaDefinitionList{{
			OperationTypes: ast.OperationTypeDefinitionList{
				{Operation: ast.Query, Type: input.QueryTypeName},
			},
		}},
	}
	if hasMutation {
		doc.Schema[0].OperationTypes = append(doc.Schema[0].OperationTypes, &ast.OperationTypeDefinition{
			Operation: ast.Mutation,
			Type:      input.MutationTypeName,
		})
	}

	for _, def := range mergedTypes {
		doc.Definitions = append(doc.Definitions, def)
	}

	// Built-in scalars and directives were skipped when collecting types;
	// the merged document takes them from gqlparser's prelude instead.
	prelude, perr := parser.ParseSchema(validator.Prelude)
	if perr != nil {
		return nil, errors.WrapComposition(perr, "built-in GraphQL definitions failed to parse")
	}
	doc.Merge(prelude)

	schema, err := validator.ValidateSchemaDocument(doc)
	if err != nil {
		return nil, errors.WrapComposition(err, "merged schema failed validation")
	}
	return schema, nil
}
