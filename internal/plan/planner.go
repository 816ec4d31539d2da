package plan

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/internal/request"
	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// planner holds the mutable state of one Plan call: the next unused step
// number and the Operations produced so far. It is never reused across
// requests.
type planner struct {
	sg       *supergraph.Supergraph
	doc      *ast.QueryDocument
	opType   OperationType
	nextStep int
	ops      []*Operation
}

// Build produces a Plan for req against sg, per spec.md §4.2.
func Build(sg *supergraph.Supergraph, req *request.Request) (*Plan, error) {
	op := req.Operation

	var opType OperationType
	switch op.Operation {
	case ast.Query:
		opType = OpQuery
	case ast.Mutation:
		opType = OpMutation
	default:
		return nil, errors.Plan("%s operations are not supported", op.Operation)
	}

	p := &planner{sg: sg, doc: req.Document, opType: opType, nextStep: 1}

	if err := p.checkReservedAliases(op.SelectionSet); err != nil {
		return nil, err
	}

	rootDef := sg.Schema.Query
	if opType == OpMutation {
		rootDef = sg.Schema.Mutation
	}
	if rootDef == nil {
		return nil, errors.Plan("supergraph schema has no root for %s operations", op.Operation)
	}

	entries, err := inline(op.SelectionSet, rootDef.Name, p.doc)
	if err != nil {
		return nil, err
	}
	fields := coalesce(entries)
	if len(fields) == 0 {
		return nil, errors.Plan("operation has no selections")
	}

	if opType == OpQuery {
		if err := p.planQueryRoot(rootDef.Name, fields); err != nil {
			return nil, err
		}
	} else {
		if err := p.planMutationRoot(rootDef.Name, fields); err != nil {
			return nil, err
		}
	}

	return &Plan{Operations: p.ops}, nil
}

// checkReservedAliases rejects any client selection whose alias begins with
// the reserved export prefix (spec.md §4.2, §6).
func (p *planner) checkReservedAliases(sels ast.SelectionSet) error {
	reserved := p.sg.Options.ReservedAliasPrefix
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			if reserved != "" && strings.HasPrefix(s.Alias, reserved) {
				return errors.Plan("selection alias %q uses the reserved prefix %q", s.Alias, reserved)
			}
			if err := p.checkReservedAliases(s.SelectionSet); err != nil {
				return err
			}
		case *ast.InlineFragment:
			if err := p.checkReservedAliases(s.SelectionSet); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			frag := p.doc.Fragments.ForName(s.Name)
			if frag == nil {
				return errors.Plan("unknown fragment %q", s.Name)
			}
			if err := p.checkReservedAliases(frag.SelectionSet); err != nil {
				return err
			}
		}
	}
	return nil
}

// rootLocation picks the location that resolves root field f, per spec.md
// §4.2 step 2: __schema/__type/__typename go to the synthetic introspection
// location; otherwise the (normally unique) owning location. When a field
// legitimately exists identically in more than one location, prefer
// whichever location resolved the previous sibling selection, to maximize
// coalescing into one Operation; fall back to alphabetical order when
// there is no previous sibling, or it resolved to none of the candidates.
func (p *planner) rootLocation(rootTypeName string, f *ast.Field, preferred string) (string, error) {
	if rootTypeName == p.sg.Schema.Query.Name {
		switch f.Name {
		case "__schema", "__type":
			return supergraph.IntrospectionLocation, nil
		}
	}
	if f.Name == "__typename" {
		// Resolved locally against the merged schema rather than routed to
		// any one location: a real location's own root type name need not
		// match the merged supergraph's root type name (spec.md §4.2 step
		// 2, §4.2 step 8).
		return supergraph.IntrospectionLocation, nil
	}

	cands := p.sg.OwningLocations(rootTypeName, f.Name)
	if len(cands) == 0 {
		return "", errors.Plan("no location resolves root field %q", f.Name)
	}
	sort.Strings(cands)
	if preferred != "" {
		for _, c := range cands {
			if c == preferred {
				return preferred, nil
			}
		}
	}
	return cands[0], nil
}

// planQueryRoot groups every root selection by its resolving location
// (spec.md §4.2 step 3, query case): since independent groups run with
// after=0, selections group by location regardless of textual contiguity.
func (p *planner) planQueryRoot(rootTypeName string, fields []*ast.Field) error {
	type group struct {
		location string
		fields   []*ast.Field
	}
	groups := map[string]*group{}
	var order []string
	var preferred string

	for _, f := range fields {
		loc, err := p.rootLocation(rootTypeName, f, preferred)
		if err != nil {
			return err
		}
		preferred = loc
		g, ok := groups[loc]
		if !ok {
			g = &group{location: loc}
			groups[loc] = g
			order = append(order, loc)
		}
		g.fields = append(g.fields, f)
	}

	for _, loc := range order {
		g := groups[loc]
		step := p.nextStep
		p.nextStep++

		resolved, err := p.resolveRootGroup(rootTypeName, loc, step, g.fields)
		if err != nil {
			return err
		}
		p.emit(step, 0, loc, OpQuery, resolved, nil, "", nil)
	}
	return nil
}

// planMutationRoot preserves textual order: only contiguous same-location
// runs merge into one Operation, and each run's after chains to the
// previous run's step (spec.md §4.2 step 3, mutation case).
func (p *planner) planMutationRoot(rootTypeName string, fields []*ast.Field) error {
	type run struct {
		location string
		fields   []*ast.Field
	}
	var runs []*run
	var preferred string

	for _, f := range fields {
		loc, err := p.rootLocation(rootTypeName, f, preferred)
		if err != nil {
			return err
		}
		preferred = loc
		if n := len(runs); n > 0 && runs[n-1].location == loc {
			runs[n-1].fields = append(runs[n-1].fields, f)
			continue
		}
		runs = append(runs, &run{location: loc, fields: []*ast.Field{f}})
	}

	after := 0
	for _, r := range runs {
		step := p.nextStep
		p.nextStep++

		resolved, err := p.resolveRootGroup(rootTypeName, r.location, step, r.fields)
		if err != nil {
			return err
		}
		p.emit(step, after, r.location, OpMutation, resolved, nil, "", nil)
		after = step
	}
	return nil
}

func (p *planner) resolveRootGroup(rootTypeName, location string, step int, fields []*ast.Field) (ast.SelectionSet, error) {
	if location == supergraph.IntrospectionLocation {
		return toSelectionSet(fields), nil
	}
	return p.resolveFielded(rootTypeName, location, nil, step, "", false, fields)
}

// resolveChildren expands one level of fragments inside sels and dispatches
// to fielded or abstract-type resolution depending on typeName's kind
// (spec.md §4.2 steps 4-6).
func (p *planner) resolveChildren(typeName, location string, path []string, parentStep int, ifType string, listCtx bool, sels ast.SelectionSet) (ast.SelectionSet, error) {
	def := p.sg.Schema.Types[typeName]
	if def == nil {
		return nil, errors.Plan("unknown type %q", typeName)
	}

	entries, err := inline(sels, typeName, p.doc)
	if err != nil {
		return nil, err
	}

	switch def.Kind {
	case ast.Object, ast.Interface:
		var base []entry
		byConcrete := map[string][]entry{}
		for _, e := range entries {
			if e.cond == "" || e.cond == typeName {
				base = append(base, e)
			} else {
				byConcrete[e.cond] = append(byConcrete[e.cond], e)
			}
		}
		if len(byConcrete) == 0 {
			return p.resolveFielded(typeName, location, path, parentStep, ifType, listCtx, coalesce(base))
		}
		return p.resolveAbstract(typeName, location, path, parentStep, ifType, listCtx, base, byConcrete)

	case ast.Union:
		var base []entry
		byConcrete := map[string][]entry{}
		for _, e := range entries {
			if e.cond == "" || e.cond == typeName {
				base = append(base, e) // legal only for __typename
			} else {
				byConcrete[e.cond] = append(byConcrete[e.cond], e)
			}
		}
		return p.resolveAbstract(typeName, location, path, parentStep, ifType, listCtx, base, byConcrete)

	default:
		return nil, errors.Plan("type %q cannot carry a selection set", typeName)
	}
}

// resolveAbstract handles an interface/union selection (spec.md §4.2 step
// 5): the interface's own fields (if any) resolve as an ordinary fielded
// type, and each concrete type named by an inline fragment or spread gets
// its own branch, wrapped back into an inline fragment so the rendered
// selection remains valid GraphQL against the merged schema.
func (p *planner) resolveAbstract(typeName, location string, path []string, parentStep int, ifType string, listCtx bool, base []entry, byConcrete map[string][]entry) (ast.SelectionSet, error) {
	resolvedBase, err := p.resolveFielded(typeName, location, path, parentStep, ifType, listCtx, coalesce(base))
	if err != nil {
		return nil, err
	}

	out := append(ast.SelectionSet{}, resolvedBase...)

	concreteTypes := make([]string, 0, len(byConcrete))
	for t := range byConcrete {
		concreteTypes = append(concreteTypes, t)
	}
	sort.Strings(concreteTypes)

	for _, concreteType := range concreteTypes {
		fields := coalesce(byConcrete[concreteType])
		resolved, err := p.resolveFielded(concreteType, location, path, parentStep, concreteType, listCtx, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, &ast.InlineFragment{TypeCondition: concreteType, SelectionSet: resolved})
	}

	return out, nil
}

// resolveFielded resolves a coalesced, fragment-free list of sibling
// fields of typeName. Fields that location itself can resolve stay inline
// (and are recursed into); fields that cannot are grouped by destination
// location into dependent boundary Operations, with join-key and typename
// export selections injected into the returned set (spec.md §4.2 step 4).
func (p *planner) resolveFielded(typeName, location string, path []string, parentStep int, ifType string, listCtx bool, fields []*ast.Field) (ast.SelectionSet, error) {
	var inlineFields []*ast.Field
	var offLocation []*ast.Field

	for _, f := range fields {
		if f.Name == "__typename" {
			inlineFields = append(inlineFields, f)
			continue
		}
		owning := p.sg.OwningLocations(typeName, f.Name)
		if len(owning) == 0 {
			return nil, errors.Plan("no location resolves field %s.%s", typeName, f.Name)
		}
		if containsString(owning, location) {
			inlineFields = append(inlineFields, f)
			continue
		}
		offLocation = append(offLocation, f)
	}

	for _, f := range inlineFields {
		if f.Name == "__typename" || len(f.SelectionSet) == 0 {
			continue
		}
		typeDef := p.sg.Schema.Types[typeName]
		fieldDef := typeDef.Fields.ForName(f.Name)
		if fieldDef == nil {
			return nil, errors.Plan("unknown field %s.%s", typeName, f.Name)
		}
		// ifType does not carry into a child field's own recursion: it names
		// the concrete type of *this* typeName's object (valid only for
		// boundary ops emitted directly against the current path), not the
		// child field's object, which gets its own fresh typename at its own
		// path and re-derives any concrete-branch disambiguation itself via
		// resolveAbstract if its type is itself an interface or union
		// (spec.md §8 scenario 4).
		childPath := appendPath(path, responseKey(f))
		resolved, err := p.resolveChildren(namedTypeOf(fieldDef.Type), location, childPath, parentStep, "", isListType(fieldDef.Type), f.SelectionSet)
		if err != nil {
			return nil, err
		}
		f.SelectionSet = resolved
	}

	exportKeys := map[string]bool{}
	needsTypename := false

	if len(offLocation) > 0 {
		groups := partitionByDestination(p.sg, typeName, location, offLocation)

		destLocs := make([]string, 0, len(groups))
		for loc := range groups {
			destLocs = append(destLocs, loc)
		}
		sort.Strings(destLocs)

		if len(destLocs) == 0 {
			return nil, errors.Plan("no boundary query can reach the remaining fields of %q from location %q", typeName, location)
		}

		for _, destLoc := range destLocs {
			groupFields := groups[destLoc]
			bq := pickBoundary(p.sg, typeName, destLoc, listCtx)
			if bq == nil {
				return nil, errors.Plan("no boundary query reaches location %q for type %q", destLoc, typeName)
			}
			exportKeys[bq.Key] = true
			needsTypename = true

			depStep := p.nextStep
			p.nextStep++

			resolved, err := p.resolveChildren(typeName, destLoc, path, depStep, ifType, bq.List, toSelectionSet(groupFields))
			if err != nil {
				return nil, err
			}

			// A boundary op against a concrete object type only enriches
			// objects of that type, so it carries the type as its ifType.
			opIfType := ifType
			if def := p.sg.Schema.Types[typeName]; opIfType == "" && def != nil && def.Kind == ast.Object {
				opIfType = typeName
			}

			p.emit(depStep, parentStep, destLoc, OpQuery, resolved, path, opIfType, &Boundary{
				Location:   bq.Location,
				Field:      bq.Field,
				ArgName:    bq.ArgName,
				Key:        bq.Key,
				List:       bq.List,
				Federation: bq.Federation,
			})
		}
	}

	out := make([]*ast.Field, 0, len(inlineFields)+len(exportKeys)+1)
	out = append(out, inlineFields...)

	keys := make([]string, 0, len(exportKeys))
	for k := range exportKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exportPrefix := p.sg.Options.ExportPrefix
	for _, k := range keys {
		out = append(out, fieldAlias(exportPrefix+k, k))
	}
	if needsTypename {
		out = append(out, fieldAlias(exportPrefix+"typename", "__typename"))
	}

	return toSelectionSet(out), nil
}

func (p *planner) emit(step, after int, location string, opType OperationType, sels ast.SelectionSet, path []string, ifType string, boundary *Boundary) {
	p.ops = append(p.ops, &Operation{
		Step:          step,
		After:         after,
		Location:      location,
		OperationType: opType,
		SelectionSet:  renderSelectionSet(sels),
		Variables:     collectVariables(sels),
		Path:          path,
		IfType:        ifType,
		Boundary:      boundary,
	})
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

func toSelectionSet(fields []*ast.Field) ast.SelectionSet {
	out := make(ast.SelectionSet, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}
