// Package introspect resolves __schema/__type/__typename selections
// against a merged supergraph schema locally, without ever dispatching a
// sub-query to a location (spec.md §4.2 step 8, §4.3 "introspection
// operations execute locally against the merged schema").
//
// It builds the standard GraphQL introspection response shape
// (__Schema/__Type/__Field/__InputValue/__Directive) by hand, walking the
// client's requested sub-selections directly into a map[string]interface{}
// result tree — the same tagged-value representation the Executor merges
// everything else into (spec.md §9).
package introspect

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/errors"
)

// Resolve evaluates rootFields (the top-level selections the Planner
// routed to the synthetic introspection location) against schema and
// returns the merged result keyed by response key (alias or name).
func Resolve(schema *ast.Schema, rootTypeName string, rootFields ast.SelectionSet) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, f := range fieldsOf(rootFields) {
		v, err := resolveRootField(schema, rootTypeName, f)
		if err != nil {
			return nil, err
		}
		out[responseKey(f)] = v
	}
	return out, nil
}

func resolveRootField(schema *ast.Schema, rootTypeName string, f *ast.Field) (interface{}, error) {
	switch f.Name {
	case "__schema":
		return schemaObject(schema, fieldsOf(f.SelectionSet)), nil
	case "__type":
		name, ok := stringArg(f, "name")
		if !ok {
			return nil, errors.Plan("__type requires a \"name\" argument")
		}
		def, ok := schema.Types[name]
		if !ok {
			return nil, nil
		}
		return typeObjectForDef(schema, def, fieldsOf(f.SelectionSet)), nil
	case "__typename":
		return rootTypeName, nil
	default:
		return nil, errors.Plan("field %q cannot be resolved at the introspection location", f.Name)
	}
}

// fieldsOf flattens inline fragments (type conditions never matter for
// fixed introspection meta-types) and drops anything else, returning the
// plain field selections.
func fieldsOf(sel ast.SelectionSet) []*ast.Field {
	var out []*ast.Field
	for _, s := range sel {
		switch v := s.(type) {
		case *ast.Field:
			out = append(out, v)
		case *ast.InlineFragment:
			out = append(out, fieldsOf(v.SelectionSet)...)
		}
	}
	return out
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func stringArg(f *ast.Field, name string) (string, bool) {
	arg := f.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return "", false
	}
	return arg.Value.Raw, true
}

func boolArg(f *ast.Field, name string, def bool) bool {
	arg := f.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return def
	}
	return arg.Value.Raw == "true"
}

// schemaObject resolves __Schema: queryType, mutationType,
// subscriptionType (always nil, per spec.md §3 invariant), types,
// directives.
func schemaObject(schema *ast.Schema, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "description":
			out[responseKey(f)] = schema.Description
		case "queryType":
			out[responseKey(f)] = typeObjectForDef(schema, schema.Query, fieldsOf(f.SelectionSet))
		case "mutationType":
			if schema.Mutation != nil {
				out[responseKey(f)] = typeObjectForDef(schema, schema.Mutation, fieldsOf(f.SelectionSet))
			} else {
				out[responseKey(f)] = nil
			}
		case "subscriptionType":
			out[responseKey(f)] = nil
		case "types":
			names := make([]string, 0, len(schema.Types))
			for name := range schema.Types {
				names = append(names, name)
			}
			sort.Strings(names)
			list := make([]interface{}, 0, len(names))
			for _, name := range names {
				list = append(list, typeObjectForDef(schema, schema.Types[name], fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		case "directives":
			names := make([]string, 0, len(schema.Directives))
			for name := range schema.Directives {
				names = append(names, name)
			}
			sort.Strings(names)
			list := make([]interface{}, 0, len(names))
			for _, name := range names {
				list = append(list, directiveObject(schema, schema.Directives[name], fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		}
	}
	return out
}

func mapKind(kind ast.DefinitionKind) string {
	switch kind {
	case ast.Object:
		return "OBJECT"
	case ast.Interface:
		return "INTERFACE"
	case ast.Union:
		return "UNION"
	case ast.Enum:
		return "ENUM"
	case ast.InputObject:
		return "INPUT_OBJECT"
	case ast.Scalar:
		return "SCALAR"
	default:
		return "SCALAR"
	}
}

// typeObjectForDef resolves a __Type value for a named type.
func typeObjectForDef(schema *ast.Schema, def *ast.Definition, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "kind":
			out[responseKey(f)] = mapKind(def.Kind)
		case "name":
			out[responseKey(f)] = def.Name
		case "description":
			out[responseKey(f)] = def.Description
		case "fields":
			if def.Kind != ast.Object && def.Kind != ast.Interface {
				out[responseKey(f)] = nil
				continue
			}
			includeDeprecated := boolArg(f, "includeDeprecated", false)
			list := make([]interface{}, 0, len(def.Fields))
			for _, fd := range def.Fields {
				if len(fd.Name) >= 2 && fd.Name[0] == '_' && fd.Name[1] == '_' {
					continue
				}
				if !includeDeprecated && isDeprecated(fd.Directives) {
					continue
				}
				list = append(list, fieldObject(schema, fd, fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		case "interfaces":
			if def.Kind != ast.Object {
				out[responseKey(f)] = nil
				continue
			}
			list := make([]interface{}, 0, len(def.Interfaces))
			for _, name := range def.Interfaces {
				if iface, ok := schema.Types[name]; ok {
					list = append(list, typeObjectForDef(schema, iface, fieldsOf(f.SelectionSet)))
				}
			}
			out[responseKey(f)] = list
		case "possibleTypes":
			if def.Kind != ast.Interface && def.Kind != ast.Union {
				out[responseKey(f)] = nil
				continue
			}
			out[responseKey(f)] = possibleTypes(schema, def, fieldsOf(f.SelectionSet))
		case "enumValues":
			if def.Kind != ast.Enum {
				out[responseKey(f)] = nil
				continue
			}
			includeDeprecated := boolArg(f, "includeDeprecated", false)
			list := make([]interface{}, 0, len(def.EnumValues))
			for _, ev := range def.EnumValues {
				if !includeDeprecated && isDeprecated(ev.Directives) {
					continue
				}
				list = append(list, enumValueObject(ev, fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		case "inputFields":
			if def.Kind != ast.InputObject {
				out[responseKey(f)] = nil
				continue
			}
			list := make([]interface{}, 0, len(def.Fields))
			for _, fd := range def.Fields {
				list = append(list, inputValueObjectForField(schema, fd, fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		case "ofType":
			out[responseKey(f)] = nil
		}
	}
	return out
}

func possibleTypes(schema *ast.Schema, def *ast.Definition, sel []*ast.Field) []interface{} {
	names := make([]string, 0, len(schema.Types))
	for name := range schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []interface{}
	for _, name := range names {
		candidate := schema.Types[name]
		if candidate.Kind != ast.Object {
			continue
		}
		if def.Kind == ast.Union {
			for _, member := range def.Types {
				if member == name {
					out = append(out, typeObjectForDef(schema, candidate, sel))
					break
				}
			}
			continue
		}
		for _, iface := range candidate.Interfaces {
			if iface == def.Name {
				out = append(out, typeObjectForDef(schema, candidate, sel))
				break
			}
		}
	}
	return out
}

// typeRefObject resolves a __Type value for a field/argument's *ast.Type,
// peeling exactly one NON_NULL or LIST wrapper per recursive call so that
// "ofType" chains match the standard introspection shape.
func typeRefObject(schema *ast.Schema, t *ast.Type, sel []*ast.Field) map[string]interface{} {
	if t.NonNull {
		inner := &ast.Type{NamedType: t.NamedType, Elem: t.Elem, NonNull: false}
		return wrapperObject(schema, "NON_NULL", inner, sel)
	}
	if t.Elem != nil {
		return wrapperObject(schema, "LIST", t.Elem, sel)
	}
	def, ok := schema.Types[t.NamedType]
	if !ok {
		return map[string]interface{}{"kind": "SCALAR", "name": t.NamedType}
	}
	return typeObjectForDef(schema, def, sel)
}

func wrapperObject(schema *ast.Schema, kind string, of *ast.Type, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "kind":
			out[responseKey(f)] = kind
		case "name", "description":
			out[responseKey(f)] = nil
		case "ofType":
			out[responseKey(f)] = typeRefObject(schema, of, fieldsOf(f.SelectionSet))
		default:
			out[responseKey(f)] = nil
		}
	}
	return out
}

func fieldObject(schema *ast.Schema, fd *ast.FieldDefinition, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "name":
			out[responseKey(f)] = fd.Name
		case "description":
			out[responseKey(f)] = fd.Description
		case "args":
			list := make([]interface{}, 0, len(fd.Arguments))
			for _, arg := range fd.Arguments {
				list = append(list, inputValueObjectForArg(schema, arg, fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		case "type":
			out[responseKey(f)] = typeRefObject(schema, fd.Type, fieldsOf(f.SelectionSet))
		case "isDeprecated":
			out[responseKey(f)] = isDeprecated(fd.Directives)
		case "deprecationReason":
			out[responseKey(f)] = deprecationReason(fd.Directives)
		}
	}
	return out
}

func inputValueObjectForArg(schema *ast.Schema, arg *ast.ArgumentDefinition, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "name":
			out[responseKey(f)] = arg.Name
		case "description":
			out[responseKey(f)] = arg.Description
		case "type":
			out[responseKey(f)] = typeRefObject(schema, arg.Type, fieldsOf(f.SelectionSet))
		case "defaultValue":
			if arg.DefaultValue != nil {
				out[responseKey(f)] = arg.DefaultValue.Raw
			} else {
				out[responseKey(f)] = nil
			}
		}
	}
	return out
}

func inputValueObjectForField(schema *ast.Schema, fd *ast.FieldDefinition, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "name":
			out[responseKey(f)] = fd.Name
		case "description":
			out[responseKey(f)] = fd.Description
		case "type":
			out[responseKey(f)] = typeRefObject(schema, fd.Type, fieldsOf(f.SelectionSet))
		case "defaultValue":
			if fd.DefaultValue != nil {
				out[responseKey(f)] = fd.DefaultValue.Raw
			} else {
				out[responseKey(f)] = nil
			}
		}
	}
	return out
}

func enumValueObject(ev *ast.EnumValueDefinition, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "name":
			out[responseKey(f)] = ev.Name
		case "description":
			out[responseKey(f)] = ev.Description
		case "isDeprecated":
			out[responseKey(f)] = isDeprecated(ev.Directives)
		case "deprecationReason":
			out[responseKey(f)] = deprecationReason(ev.Directives)
		}
	}
	return out
}

func directiveObject(schema *ast.Schema, d *ast.DirectiveDefinition, sel []*ast.Field) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range sel {
		switch f.Name {
		case "name":
			out[responseKey(f)] = d.Name
		case "description":
			out[responseKey(f)] = d.Description
		case "locations":
			locs := make([]interface{}, len(d.Locations))
			for i, l := range d.Locations {
				locs[i] = string(l)
			}
			out[responseKey(f)] = locs
		case "args":
			list := make([]interface{}, 0, len(d.Arguments))
			for _, arg := range d.Arguments {
				list = append(list, inputValueObjectForArg(schema, arg, fieldsOf(f.SelectionSet)))
			}
			out[responseKey(f)] = list
		case "isRepeatable":
			out[responseKey(f)] = d.IsRepeatable
		}
	}
	return out
}

func isDeprecated(directives ast.DirectiveList) bool {
	return directives.ForName("deprecated") != nil
}

func deprecationReason(directives ast.DirectiveList) interface{} {
	d := directives.ForName("deprecated")
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}
