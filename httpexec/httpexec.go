// Package httpexec provides a peripheral LocationExecutor that dispatches
// a sub-query as a plain HTTP POST to a GraphQL endpoint, retrying
// transient failures. It is intentionally thin (spec.md §1 scopes
// transport concerns out of the core gateway): the real contract a
// LocationExecutor must satisfy lives in internal/supergraph, not here.
package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/graphstitch/graphstitch/internal/supergraph"
)

// Executor issues a location's sub-queries as HTTP POSTs carrying a
// standard `{query, variables}` body, using retryablehttp for exponential
// backoff on transient network and 5xx failures.
type Executor struct {
	URL     string
	Headers http.Header
	client  *retryablehttp.Client
}

// New builds an Executor targeting url, retrying up to 3 times. The
// returned client keeps retryablehttp.Client.Logger as the library's own
// standard logger, which writes to standard error.
func New(url string, headers http.Header) *Executor {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	return &Executor{URL: url, Headers: headers, client: client}
}

// SetRetryMax overrides the number of retries issued on a transient
// failure (New sets 3).
func (e *Executor) SetRetryMax(n int) {
	e.client.RetryMax = n
}

type requestBody struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Execute implements supergraph.LocationExecutor.
func (e *Executor) Execute(ctx context.Context, location, query string, variables map[string]interface{}) (*supergraph.Result, error) {
	payload, err := json.Marshal(requestBody{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding request to location %q: %w", location, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request to location %q: %w", location, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range e.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatching to location %q: %w", location, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from location %q: %w", location, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("location %q returned status %d: %s", location, resp.StatusCode, body)
	}

	var parsed struct {
		Data   json.RawMessage `json:"data"`
		Errors gqlerror.List   `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response from location %q: %w", location, err)
	}

	return &supergraph.Result{Data: parsed.Data, Errors: parsed.Errors}, nil
}
