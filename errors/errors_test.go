package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	gwerrors "github.com/graphstitch/graphstitch/errors"
)

func TestCompositionErrorFormatsWithAndWithoutCause(t *testing.T) {
	bare := gwerrors.Composition("schema %q is invalid", "accounts")
	assert.Equal(t, `composition error: schema "accounts" is invalid`, bare.Error())

	wrapped := gwerrors.WrapComposition(errors.New("parse failed"), "schema %q is invalid", "accounts")
	assert.Equal(t, `composition error: schema "accounts" is invalid: parse failed`, wrapped.Error())
	assert.Equal(t, "parse failed", wrapped.Unwrap().Error())
}

func TestPlanErrorGQLErrorCarriesPath(t *testing.T) {
	err := gwerrors.PlanAt(ast.Path{ast.PathName("me"), ast.PathName("name")}, "field %q not found", "name")

	gqlErr := err.GQLError()
	assert.Equal(t, `plan error: field "name" not found`, gqlErr.Message)
	assert.Equal(t, ast.Path{ast.PathName("me"), ast.PathName("name")}, gqlErr.Path)
}

func TestWrapPlanUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := gwerrors.WrapPlan(cause, "could not plan")
	assert.Same(t, cause, err.Unwrap())
}

func TestValidationErrorDelegatesToList(t *testing.T) {
	list := gqlerror.List{{Message: "first"}, {Message: "second"}}
	err := gwerrors.FromValidation(list)
	assert.Equal(t, list.Error(), err.Error())
}

func TestExecutionErrorMessageNamesLocation(t *testing.T) {
	err := gwerrors.Execution("accounts", errors.New("connection refused"))
	assert.Equal(t, `execution error at location "accounts": connection refused`, err.Error())
	assert.Equal(t, "connection refused", err.Unwrap().Error())
}

func TestRemoteGraphQLErrorExposesUnderlyingGQLError(t *testing.T) {
	inner := &gqlerror.Error{Message: "not found"}
	err := &gwerrors.RemoteGraphQLError{Location: "reviews", Err: inner}
	assert.Same(t, inner, err.GQLError())
	assert.Contains(t, err.Error(), "reviews")
	assert.Contains(t, err.Error(), "not found")
}

func TestListErrorReturnsFirstMessageOrEmpty(t *testing.T) {
	var empty gwerrors.List
	assert.Equal(t, "", empty.Error())

	list := gwerrors.List{{Message: "first"}, {Message: "second"}}
	assert.Equal(t, "first", list.Error())
}

func TestAsGQLListConvertsEachErrorKind(t *testing.T) {
	planErr := gwerrors.Plan("bad request")
	assert.Equal(t, gqlerror.List{planErr.GQLError()}, gwerrors.AsGQLList(planErr))

	validationList := gqlerror.List{{Message: "invalid"}}
	valErr := gwerrors.FromValidation(validationList)
	assert.Equal(t, validationList, gwerrors.AsGQLList(valErr))

	compErr := gwerrors.Composition("bad schema")
	assert.Equal(t, compErr.Error(), gwerrors.AsGQLList(compErr)[0].Message)

	execErr := gwerrors.Execution("accounts", errors.New("timeout"))
	assert.Equal(t, execErr.Error(), gwerrors.AsGQLList(execErr)[0].Message)

	remoteErr := &gwerrors.RemoteGraphQLError{Location: "reviews", Err: &gqlerror.Error{Message: "not found"}}
	assert.Equal(t, remoteErr.GQLError(), gwerrors.AsGQLList(remoteErr)[0])

	generic := errors.New("plain failure")
	assert.Equal(t, "plain failure", gwerrors.AsGQLList(generic)[0].Message)
}
