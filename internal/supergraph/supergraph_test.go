package supergraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphstitch/graphstitch/internal/supergraph"
)

func TestDefaultOptions(t *testing.T) {
	opts := supergraph.DefaultOptions()
	assert.Equal(t, "stitch", opts.StitchDirectiveName)
	assert.Equal(t, "_STITCH_", opts.ExportPrefix)
	assert.Equal(t, "_export_", opts.ReservedAliasPrefix)
}

func TestFieldSetHas(t *testing.T) {
	fs := supergraph.FieldSet{"id": struct{}{}, "name": struct{}{}}
	assert.True(t, fs.Has("id"))
	assert.False(t, fs.Has("missing"))
}

func newFixture() *supergraph.Supergraph {
	return &supergraph.Supergraph{
		Locations: []string{"accounts", "products"},
		FieldsByTypeAndLocation: map[string]map[string]supergraph.FieldSet{
			"User": {
				"accounts": {"id": struct{}{}, "name": struct{}{}},
				"products": {"id": struct{}{}, "reviews": struct{}{}},
			},
			"Product": {
				"products": {"id": struct{}{}, "price": struct{}{}},
			},
		},
		Boundaries: map[string][]*supergraph.BoundaryQuery{
			"User": {
				{Location: "products", Field: "_userById", ArgName: "id", Key: "id"},
			},
		},
	}
}

func TestIsMergedType(t *testing.T) {
	sg := newFixture()
	assert.True(t, sg.IsMergedType("User"))
	assert.False(t, sg.IsMergedType("Product"))
	assert.False(t, sg.IsMergedType("Unknown"))
}

func TestOwningLocations(t *testing.T) {
	sg := newFixture()
	assert.ElementsMatch(t, []string{"accounts"}, sg.OwningLocations("User", "name"))
	assert.ElementsMatch(t, []string{"accounts", "products"}, sg.OwningLocations("User", "id"))
	assert.Empty(t, sg.OwningLocations("User", "nope"))
}

func TestBoundaryQueriesFor(t *testing.T) {
	sg := newFixture()
	bqs := sg.BoundaryQueriesFor("User", "products")
	assert.Len(t, bqs, 1)
	assert.Equal(t, "_userById", bqs[0].Field)
	assert.Empty(t, sg.BoundaryQueriesFor("User", "accounts"))
}
