package request_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/graphstitch/graphstitch/internal/request"
)

func TestSelectOperationPicksSoleOperation(t *testing.T) {
	req, err := request.Parse(`{ hello }`, "")
	require.Nil(t, err)
	require.Len(t, req.Operation.SelectionSet, 1)
	field, ok := req.Operation.SelectionSet[0].(*ast.Field)
	require.True(t, ok)
	assert.Equal(t, "hello", field.Name)
}

func TestSelectOperationRequiresNameWhenAmbiguous(t *testing.T) {
	_, err := request.Parse(`
		query One { hello }
		query Two { goodbye }
	`, "")
	assert.NotNil(t, err)
}

func TestSelectOperationPicksNamedOperation(t *testing.T) {
	req, err := request.Parse(`
		query One { hello }
		query Two { goodbye }
	`, "Two")
	require.Nil(t, err)
	assert.Equal(t, "Two", req.Operation.Name)
}

func TestSelectOperationRejectsUnknownName(t *testing.T) {
	_, err := request.Parse(`query One { hello }`, "Missing")
	assert.NotNil(t, err)
}

func TestPrepareAttachesVariablesAndDigest(t *testing.T) {
	ctx := context.Background()
	req, err := request.Prepare(ctx, `query Q($id: ID!) { user(id: $id) { name } }`, "Q", map[string]interface{}{"id": "1"})
	require.Nil(t, err)
	assert.Equal(t, ctx, req.Context)
	assert.Equal(t, "1", req.Variables["id"])
	assert.NotEmpty(t, req.Digest)
}

func TestDigestIsStableAndDiscriminatesOperationName(t *testing.T) {
	d1 := request.Digest(`{ hello }`, "")
	d2 := request.Digest(`{ hello }`, "")
	assert.Equal(t, d1, d2)

	d3 := request.Digest(`{ hello }`, "Named")
	assert.NotEqual(t, d1, d3)
}
