package graphstitch_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch"
	"github.com/graphstitch/graphstitch/internal/compose"
	"github.com/graphstitch/graphstitch/internal/supergraph"
	"github.com/graphstitch/graphstitch/plancache"
)

const accountsSDL = `
type Query {
	me: User
}
type User {
	id: ID!
	name: String!
}
`

func mustLoad(t *testing.T, name, src string) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: src})
	require.Nil(t, err)
	return schema
}

func buildFixtureGateway(t *testing.T, executables map[string]supergraph.LocationExecutor) *graphstitch.Gateway {
	t.Helper()
	schemas := map[string]*ast.Schema{"accounts": mustLoad(t, "accounts", accountsSDL)}
	sg, err := compose.Compose(schemas, executables, supergraph.Options{}, compose.Input{})
	require.Nil(t, err)
	return graphstitch.New(sg)
}

func TestExecuteReturnsDataOnSuccess(t *testing.T) {
	gw := buildFixtureGateway(t, map[string]supergraph.LocationExecutor{
		"accounts": func(ctx context.Context, location, query string, variables map[string]interface{}) (*supergraph.Result, error) {
			return &supergraph.Result{Data: []byte(`{"me":{"name":"Ada"}}`)}, nil
		},
	})

	resp := gw.Execute(context.Background(), graphstitch.Request{Query: `{ me { name } }`})
	require.Empty(t, resp.Errors)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "Ada", data["me"].(map[string]interface{})["name"])
}

func TestExecuteReturnsErrorsOnMalformedQuery(t *testing.T) {
	gw := buildFixtureGateway(t, nil)

	resp := gw.Execute(context.Background(), graphstitch.Request{Query: `{ me {`})
	require.Len(t, resp.Errors, 1)
	assert.Nil(t, resp.Data)

	// spec.md §7: a PlanError/ValidationError (nothing was ever executed)
	// reports an explicit "data": null, not an omitted key.
	raw, err := json.Marshal(resp)
	require.Nil(t, err)
	var wire map[string]interface{}
	require.Nil(t, json.Unmarshal(raw, &wire))
	rawData, ok := wire["data"]
	require.True(t, ok, "expected an explicit \"data\" key, got %s", raw)
	assert.Nil(t, rawData)
}

func TestExecuteValidatesWhenRequested(t *testing.T) {
	gw := buildFixtureGateway(t, nil)

	resp := gw.Execute(context.Background(), graphstitch.Request{
		Query:    `{ doesNotExist }`,
		Validate: true,
	})
	require.NotEmpty(t, resp.Errors)
	assert.Nil(t, resp.Data)

	raw, err := json.Marshal(resp)
	require.Nil(t, err)
	var wire map[string]interface{}
	require.Nil(t, json.Unmarshal(raw, &wire))
	rawData, ok := wire["data"]
	require.True(t, ok, "expected an explicit \"data\" key, got %s", raw)
	assert.Nil(t, rawData)
}

func TestExecuteOmitsDataKeyOnExecutionError(t *testing.T) {
	gw := buildFixtureGateway(t, map[string]supergraph.LocationExecutor{
		"accounts": func(ctx context.Context, location, query string, variables map[string]interface{}) (*supergraph.Result, error) {
			return nil, assert.AnError
		},
	})
	gw.ErrorHook = func(ctx context.Context, err error) string { return "internal error" }

	resp := gw.Execute(context.Background(), graphstitch.Request{Query: `{ me { name } }`})
	require.Len(t, resp.Errors, 1)
	assert.Nil(t, resp.Data)

	raw, err := json.Marshal(resp)
	require.Nil(t, err)
	var wire map[string]interface{}
	require.Nil(t, json.Unmarshal(raw, &wire))
	_, ok := wire["data"]
	assert.False(t, ok, "expected no \"data\" key on an ExecutionError, got %s", raw)
}

func TestExecuteUsesPlanCacheOnSecondCall(t *testing.T) {
	cache, err := plancache.NewLRUCache(8)
	require.Nil(t, err)

	gw := buildFixtureGateway(t, map[string]supergraph.LocationExecutor{
		"accounts": func(ctx context.Context, location, query string, variables map[string]interface{}) (*supergraph.Result, error) {
			return &supergraph.Result{Data: []byte(`{"me":{"name":"Ada"}}`)}, nil
		},
	})
	gw.PlanCache = cache
	gw.Debug = true

	req := graphstitch.Request{Query: `{ me { name } }`}

	first := gw.Execute(context.Background(), req)
	require.Empty(t, first.Errors)
	firstExt := first.Extensions["stitchGateway"].(map[string]interface{})
	assert.False(t, firstExt["fromCache"].(bool))

	second := gw.Execute(context.Background(), req)
	require.Empty(t, second.Errors)
	secondExt := second.Extensions["stitchGateway"].(map[string]interface{})
	assert.True(t, secondExt["fromCache"].(bool))
}
