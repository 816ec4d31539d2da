package plan

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// partitionByDestination buckets fields that cannot be resolved at
// location into destination location groups, greedily preferring the
// location that can resolve the most of the still-unassigned fields so
// that as many fields as possible end up in one dependent Operation
// (spec.md §4.2 tie-break (a)'s "greatest number of requested fields").
func partitionByDestination(owner *supergraph.Supergraph, typeName, location string, fields []*ast.Field) map[string][]*ast.Field {
	candidatesOf := map[string][]string{}
	for _, f := range fields {
		var cands []string
		for _, loc := range owner.OwningLocations(typeName, f.Name) {
			if loc != location {
				cands = append(cands, loc)
			}
		}
		candidatesOf[f.Name] = cands
	}

	groups := map[string][]*ast.Field{}
	pending := fields

	for len(pending) > 0 {
		counts := map[string]int{}
		for _, f := range pending {
			for _, loc := range candidatesOf[f.Name] {
				counts[loc]++
			}
		}
		best := bestLocation(counts)
		if best == "" {
			// No candidate anywhere for the remaining fields; leave them
			// out of any group so the caller can surface a PlanError.
			break
		}

		var rest []*ast.Field
		for _, f := range pending {
			if containsString(candidatesOf[f.Name], best) {
				groups[best] = append(groups[best], f)
			} else {
				rest = append(rest, f)
			}
		}
		pending = rest
	}

	return groups
}

func bestLocation(counts map[string]int) string {
	var best string
	bestCount := -1
	locs := make([]string, 0, len(counts))
	for loc := range counts {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	for _, loc := range locs {
		if counts[loc] > bestCount {
			best = loc
			bestCount = counts[loc]
		}
	}
	return best
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

// pickBoundary chooses the BoundaryQuery that re-fetches typeName from
// destLoc. When more than one matches (a multi-key entry point), prefer a
// list-boundary when the enclosing field is itself a list — spec.md §4.2
// tie-break (b).
func pickBoundary(sg *supergraph.Supergraph, typeName, destLoc string, preferList bool) *supergraph.BoundaryQuery {
	bqs := sg.BoundaryQueriesFor(typeName, destLoc)
	if len(bqs) == 0 {
		return nil
	}
	if preferList {
		for _, bq := range bqs {
			if bq.List {
				return bq
			}
		}
	}
	return bqs[0]
}
