// Package errors defines the gateway's error taxonomy.
//
// Every error the gateway can produce ends up as one or more
// *gqlerror.Error values in the final response, but internally the
// different failure kinds are kept distinct so callers can tell a bad
// input schema (CompositionError) apart from a bad client request
// (PlanError, ValidationError) from a downstream failure
// (ExecutionError, RemoteGraphQLError).
package errors

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// CompositionError is raised by the Composer when a set of location schemas
// cannot be merged into a Supergraph. It never reaches the request path.
type CompositionError struct {
	Message string
	Cause   error
}

func (e *CompositionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("composition error: %s: %s", e.Message, e.Cause)
	}
	return fmt.Sprintf("composition error: %s", e.Message)
}

func (e *CompositionError) Unwrap() error { return e.Cause }

func Composition(format string, args ...interface{}) *CompositionError {
	return &CompositionError{Message: fmt.Sprintf(format, args...)}
}

func WrapComposition(cause error, format string, args ...interface{}) *CompositionError {
	return &CompositionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// PlanError is raised by the Planner when a request cannot be planned
// against a Supergraph.
type PlanError struct {
	Message string
	Path    ast.Path
	Cause   error
}

func (e *PlanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plan error: %s: %s", e.Message, e.Cause)
	}
	return fmt.Sprintf("plan error: %s", e.Message)
}

func (e *PlanError) Unwrap() error { return e.Cause }

func (e *PlanError) GQLError() *gqlerror.Error {
	return &gqlerror.Error{
		Message: e.Error(),
		Path:    e.Path,
	}
}

func Plan(format string, args ...interface{}) *PlanError {
	return &PlanError{Message: fmt.Sprintf(format, args...)}
}

func PlanAt(path ast.Path, format string, args ...interface{}) *PlanError {
	return &PlanError{Message: fmt.Sprintf(format, args...), Path: path}
}

func WrapPlan(cause error, format string, args ...interface{}) *PlanError {
	return &PlanError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ValidationError wraps the gqlparser validator's output for a request that
// fails GraphQL validation against the merged schema.
type ValidationError struct {
	Errors gqlerror.List
}

func (e *ValidationError) Error() string {
	return e.Errors.Error()
}

func FromValidation(errs gqlerror.List) *ValidationError {
	return &ValidationError{Errors: errs}
}

// ExecutionError represents a transport or parse failure talking to a
// location: the location could not be reached, or it returned something
// that wasn't a well-formed GraphQL response. The client sees the message
// the gateway's ErrorHook produces for it; without a hook, that is the
// error's own text (spec.md §7 policy).
type ExecutionError struct {
	Location string
	Cause    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error at location %q: %s", e.Location, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

func Execution(location string, cause error) *ExecutionError {
	return &ExecutionError{Location: location, Cause: cause}
}

// RemoteGraphQLError is a GraphQL error returned inside a location's
// response body. Unlike ExecutionError these are not internal failures:
// they are collected, repathed to their place in the merged result, and
// passed through to the client.
type RemoteGraphQLError struct {
	Location string
	Err      *gqlerror.Error
}

func (e *RemoteGraphQLError) Error() string {
	return fmt.Sprintf("remote error from %q: %s", e.Location, e.Err.Error())
}

// GQLError returns the underlying gqlerror.Error, already repathed by the
// Executor's error-repathing step.
func (e *RemoteGraphQLError) GQLError() *gqlerror.Error {
	return e.Err
}

// List collects remote and execution errors accumulated over a request.
type List []*gqlerror.Error

func (l List) Error() string {
	if len(l) == 0 {
		return ""
	}
	return l[0].Message
}

// AsGQLList converts any error the gateway can raise before execution ever
// starts (PlanError, ValidationError, or anything else) into the
// gqlerror.List shape the client-facing Response carries.
func AsGQLList(err error) gqlerror.List {
	switch e := err.(type) {
	case *PlanError:
		return gqlerror.List{e.GQLError()}
	case *ValidationError:
		return e.Errors
	case *CompositionError:
		return gqlerror.List{{Message: e.Error()}}
	case *ExecutionError:
		return gqlerror.List{{Message: e.Error()}}
	case *RemoteGraphQLError:
		return gqlerror.List{e.GQLError()}
	default:
		return gqlerror.List{{Message: err.Error()}}
	}
}
