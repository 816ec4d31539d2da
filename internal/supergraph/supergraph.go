// Package supergraph holds the data produced once by the Composer and
// consumed by every request the Planner and Executor handle afterwards: the
// merged schema plus the routing tables that say which location can
// resolve which field, and how to re-fetch a merged type by key.
package supergraph

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// IntrospectionLocation is the synthetic location that resolves
// __schema/__type against the merged schema locally, never over the wire.
const IntrospectionLocation = "__super"

// Result is what a LocationExecutor returns for a single sub-query.
type Result struct {
	Data   []byte
	Errors gqlerror.List
}

// LocationExecutor issues one GraphQL operation against a single location.
// Implementations must not mutate variables, and may run synchronously or
// launch their own goroutines internally; the Executor calls each one from
// its own goroutine and only ever reads the returned Result.
type LocationExecutor func(ctx context.Context, location, query string, variables map[string]interface{}) (*Result, error)

// BoundaryQuery records one root field a location exposes to re-fetch a
// merged type by key (spec.md §3).
type BoundaryQuery struct {
	Location   string
	Field      string
	ArgName    string
	Key        string
	List       bool
	Federation bool
}

// FieldSet is a set of field names, used as the value type of
// FieldsByTypeAndLocation.
type FieldSet map[string]struct{}

func (s FieldSet) Has(field string) bool {
	_, ok := s[field]
	return ok
}

// Options configures naming conventions that must never be process-wide
// state (spec.md §9): a test suite can build several Supergraphs with
// distinct conventions in one process.
type Options struct {
	// StitchDirectiveName is the name of the repeatable directive the
	// Composer scans root fields for. Defaults to "stitch".
	StitchDirectiveName string
	// ExportPrefix is the alias prefix the Planner injects for
	// Executor-correlation fields. Defaults to "_STITCH_".
	ExportPrefix string
	// ReservedAliasPrefix is forbidden in client-supplied selection
	// aliases. Defaults to "_export_".
	ReservedAliasPrefix string
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{
		StitchDirectiveName: "stitch",
		ExportPrefix:        "_STITCH_",
		ReservedAliasPrefix: "_export_",
	}
}

// Supergraph is the immutable output of composition: a merged schema plus
// the routing metadata the Planner and Executor need. It is built once and
// shared read-only across every request.
type Supergraph struct {
	Schema *ast.Schema

	// Locations is the set of non-synthetic location identifiers.
	Locations []string

	// FieldsByTypeAndLocation answers "which fields of this type can this
	// location resolve" — keyed typeName then location.
	FieldsByTypeAndLocation map[string]map[string]FieldSet

	// Boundaries answers "how do I re-fetch this merged type from a given
	// location" — keyed by typeName.
	Boundaries map[string][]*BoundaryQuery

	// Executables dispatches a prepared sub-query to a location.
	Executables map[string]LocationExecutor

	Options Options
}

// IsMergedType reports whether typeName is contributed to by more than one
// location and therefore requires boundary queries to fully resolve.
func (s *Supergraph) IsMergedType(typeName string) bool {
	return len(s.FieldsByTypeAndLocation[typeName]) > 1
}

// OwningLocations returns every location that can resolve fieldName on
// typeName.
func (s *Supergraph) OwningLocations(typeName, fieldName string) []string {
	var locs []string
	for loc, fields := range s.FieldsByTypeAndLocation[typeName] {
		if fields.Has(fieldName) {
			locs = append(locs, loc)
		}
	}
	return locs
}

// BoundaryQueriesFor returns the boundary queries that can re-fetch
// typeName from location, if any.
func (s *Supergraph) BoundaryQueriesFor(typeName, location string) []*BoundaryQuery {
	var out []*BoundaryQuery
	for _, bq := range s.Boundaries[typeName] {
		if bq.Location == location {
			out = append(out, bq)
		}
	}
	return out
}
