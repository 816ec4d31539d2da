package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/internal/compose"
	"github.com/graphstitch/graphstitch/internal/plan"
	"github.com/graphstitch/graphstitch/internal/request"
	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// stitchDirectiveSDL declares the stitch directive, which a location
// schema must do before its fields can carry it.
const stitchDirectiveSDL = "directive @stitch(key: String!) repeatable on FIELD_DEFINITION\n"

func mustLoad(t *testing.T, name, src string) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: stitchDirectiveSDL + src})
	require.Nil(t, err)
	return schema
}

const accountsSDL = `
type Query {
	me: User
	_userById(id: ID!): User @stitch(key: "id")
}
type Mutation {
	renameMe(name: String!): User
}
type User {
	id: ID!
	name: String!
}
`

const reviewsSDL = `
type Query {
	_userById(id: ID!): User @stitch(key: "id")
	reviews: [Review!]!
}
type Review {
	id: ID!
	body: String!
	author: User!
}
type User {
	id: ID!
	reviews: [Review!]!
}
`

func buildFixture(t *testing.T) *supergraph.Supergraph {
	t.Helper()
	schemas := map[string]*ast.Schema{
		"accounts": mustLoad(t, "accounts", accountsSDL),
		"reviews":  mustLoad(t, "reviews", reviewsSDL),
	}
	sg, err := compose.Compose(schemas, nil, supergraph.Options{}, compose.Input{})
	require.Nil(t, err)
	return sg
}

func buildPlan(t *testing.T, sg *supergraph.Supergraph, query string) *plan.Plan {
	t.Helper()
	req, err := request.Prepare(nil, query, "", nil)
	require.Nil(t, err)
	pl, err := plan.Build(sg, req)
	require.Nil(t, err)
	return pl
}

func TestPlanSplitsRootFieldsByLocation(t *testing.T) {
	sg := buildFixture(t)
	pl := buildPlan(t, sg, `{ me { name } reviews { body } }`)

	require.Len(t, pl.Operations, 2)
	locs := map[string]bool{}
	for _, op := range pl.Operations {
		assert.Equal(t, 0, op.After)
		assert.Nil(t, op.Boundary)
		locs[op.Location] = true
	}
	assert.True(t, locs["accounts"])
	assert.True(t, locs["reviews"])
}

func TestPlanGeneratesBoundaryOperationForMergedType(t *testing.T) {
	sg := buildFixture(t)
	pl := buildPlan(t, sg, `{ reviews { body author { name } } }`)

	require.Len(t, pl.Operations, 2)

	var root, boundary *plan.Operation
	for _, op := range pl.Operations {
		if op.Boundary == nil {
			root = op
		} else {
			boundary = op
		}
	}
	require.NotNil(t, root)
	require.NotNil(t, boundary)

	assert.Equal(t, "reviews", root.Location)
	assert.Equal(t, 0, root.After)

	assert.Equal(t, "accounts", boundary.Location)
	assert.Equal(t, root.Step, boundary.After)
	assert.Equal(t, "_userById", boundary.Boundary.Field)
	assert.Equal(t, "id", boundary.Boundary.Key)
	assert.Equal(t, []string{"reviews", "author"}, boundary.Path)
}

func TestPlanMutationRootSingleFieldHasNoPredecessor(t *testing.T) {
	sg := buildFixture(t)
	pl := buildPlan(t, sg, `mutation { renameMe(name: "Ada") { name } }`)

	require.Len(t, pl.Operations, 1)
	assert.Equal(t, "accounts", pl.Operations[0].Location)
	assert.Equal(t, 0, pl.Operations[0].After)
}

func TestPlanRejectsReservedAlias(t *testing.T) {
	sg := buildFixture(t)
	req, err := request.Prepare(nil, `{ _export_evil: me { name } }`, "", nil)
	require.Nil(t, err)
	_, err = plan.Build(sg, req)
	assert.NotNil(t, err)
}

func TestPlanRoutesTypenameToIntrospection(t *testing.T) {
	sg := buildFixture(t)
	pl := buildPlan(t, sg, `{ __typename }`)

	require.Len(t, pl.Operations, 1)
	assert.Equal(t, supergraph.IntrospectionLocation, pl.Operations[0].Location)
}

// Fixture for spec.md §4.2 step 2: a root field ("ping") resolvable
// identically by two locations, where the tie must be broken in favor of
// whichever location resolved the previous sibling selection rather than
// alphabetical order. "zzz" sorts after "accounts", so an alphabetical
// tie-break would pick "accounts" for "ping" and split the query into two
// Operations; sibling preference keeps "me"/"ping" coalesced in "zzz".
const zzzSDL = `
type Query {
	me: String
	ping: String
}
`

const pingOnlySDL = `
type Query {
	ping: String
}
`

func buildSiblingFixture(t *testing.T) *supergraph.Supergraph {
	t.Helper()
	schemas := map[string]*ast.Schema{
		"zzz":      mustLoad(t, "zzz", zzzSDL),
		"accounts": mustLoad(t, "accounts", pingOnlySDL),
	}
	sg, err := compose.Compose(schemas, nil, supergraph.Options{}, compose.Input{})
	require.Nil(t, err)
	return sg
}

func TestPlanRootFieldTieBreakPrefersPreviousSibling(t *testing.T) {
	sg := buildSiblingFixture(t)
	pl := buildPlan(t, sg, `{ me ping }`)

	require.Len(t, pl.Operations, 1)
	assert.Equal(t, "zzz", pl.Operations[0].Location)
}

func TestPlanRootFieldTieBreakFallsBackToAlphabeticalWithNoSibling(t *testing.T) {
	sg := buildSiblingFixture(t)
	pl := buildPlan(t, sg, `{ ping }`)

	require.Len(t, pl.Operations, 1)
	assert.Equal(t, "accounts", pl.Operations[0].Location)
}

// Fixture for spec.md §8 scenario 3: a list-shaped boundary query.
const productsSDL = `
type Query {
	product(id: ID!): Product @stitch(key: "id")
}
type Product {
	id: ID!
	name: String!
}
`

const shippingSDL = `
type Query {
	products(ids: [ID!]!): [Product]! @stitch(key: "id")
}
type Product {
	id: ID!
	weight: Int!
}
`

func buildShippingFixture(t *testing.T) *supergraph.Supergraph {
	t.Helper()
	schemas := map[string]*ast.Schema{
		"products": mustLoad(t, "products", productsSDL),
		"shipping": mustLoad(t, "shipping", shippingSDL),
	}
	sg, err := compose.Compose(schemas, nil, supergraph.Options{}, compose.Input{})
	require.Nil(t, err)
	return sg
}

func TestPlanPicksListShapedBoundaryQuery(t *testing.T) {
	sg := buildShippingFixture(t)
	pl := buildPlan(t, sg, `{ product(id: "1") { name weight } }`)

	require.Len(t, pl.Operations, 2)

	var root, boundary *plan.Operation
	for _, op := range pl.Operations {
		if op.Boundary == nil {
			root = op
		} else {
			boundary = op
		}
	}
	require.NotNil(t, root)
	require.NotNil(t, boundary)

	assert.Equal(t, "products", root.Location)
	assert.Equal(t, "shipping", boundary.Location)
	assert.Equal(t, "products", boundary.Boundary.Field)
	assert.Equal(t, "id", boundary.Boundary.Key)
	assert.True(t, boundary.Boundary.List)
	assert.Equal(t, []string{"product"}, boundary.Path)
}

// Fixture for spec.md §8 scenario 4: abstract branching, where each
// concrete branch's off-location field lives in its own location
// (exa/exb), and the boundary query re-fetches the *nested* merged type
// ("AppleExtension"/"BananaExtension"), not the outer "Apple"/"Banana".
const fruitsSDL = `
type Query {
	fruits(ids: [ID!]!): [Fruit!]!
}
interface Fruit {
	id: ID!
}
type Apple implements Fruit {
	id: ID!
	extensions: AppleExtension!
}
type Banana implements Fruit {
	id: ID!
	extensions: BananaExtension!
}
type AppleExtension {
	id: ID!
}
type BananaExtension {
	id: ID!
}
`

const exaSDL = `
type Query {
	_appleExtensionById(id: ID!): AppleExtension @stitch(key: "id")
}
type AppleExtension {
	id: ID!
	color: String!
}
`

const exbSDL = `
type Query {
	_bananaExtensionById(id: ID!): BananaExtension @stitch(key: "id")
}
type BananaExtension {
	id: ID!
	shape: String!
}
`

func buildFruitsFixture(t *testing.T) *supergraph.Supergraph {
	t.Helper()
	schemas := map[string]*ast.Schema{
		"fruits": mustLoad(t, "fruits", fruitsSDL),
		"exa":    mustLoad(t, "exa", exaSDL),
		"exb":    mustLoad(t, "exb", exbSDL),
	}
	sg, err := compose.Compose(schemas, nil, supergraph.Options{}, compose.Input{})
	require.Nil(t, err)
	return sg
}

func TestPlanAbstractBranchingUsesNestedConcreteIfType(t *testing.T) {
	sg := buildFruitsFixture(t)
	pl := buildPlan(t, sg, `{ fruits(ids: ["1","2"]) {
		id
		... on Apple { extensions { color } }
		... on Banana { extensions { shape } }
	} }`)

	require.Len(t, pl.Operations, 3)

	var root *plan.Operation
	byIfType := map[string]*plan.Operation{}
	for _, op := range pl.Operations {
		if op.Boundary == nil {
			root = op
			continue
		}
		byIfType[op.IfType] = op
	}
	require.NotNil(t, root)
	assert.Equal(t, "fruits", root.Location)

	appleOp, ok := byIfType["AppleExtension"]
	require.True(t, ok, "expected a boundary op with ifType=AppleExtension, got %v", byIfType)
	assert.Equal(t, "exa", appleOp.Location)
	assert.Equal(t, []string{"fruits", "extensions"}, appleOp.Path)
	assert.Equal(t, root.Step, appleOp.After)

	bananaOp, ok := byIfType["BananaExtension"]
	require.True(t, ok, "expected a boundary op with ifType=BananaExtension, got %v", byIfType)
	assert.Equal(t, "exb", bananaOp.Location)
	assert.Equal(t, []string{"fruits", "extensions"}, bananaOp.Path)
	assert.Equal(t, root.Step, bananaOp.After)
}
