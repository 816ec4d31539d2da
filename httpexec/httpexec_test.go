package httpexec_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphstitch/graphstitch/httpexec"
)

func TestExecutePostsQueryAndDecodesData(t *testing.T) {
	var gotBody map[string]interface{}
	var gotHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test")
		require.Nil(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"me":{"name":"Ada"}}}`))
	}))
	defer server.Close()

	headers := http.Header{}
	headers.Set("X-Test", "yes")
	executor := httpexec.New(server.URL, headers)

	result, err := executor.Execute(context.Background(), "accounts", `{ me { name } }`, map[string]interface{}{"id": "1"})
	require.Nil(t, err)
	require.Empty(t, result.Errors)
	assert.JSONEq(t, `{"me":{"name":"Ada"}}`, string(result.Data))
	assert.Equal(t, "yes", gotHeader)
	assert.Equal(t, `{ me { name } }`, gotBody["query"])
}

func TestExecutePassesThroughRemoteErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"not found"}]}`))
	}))
	defer server.Close()

	executor := httpexec.New(server.URL, nil)
	result, err := executor.Execute(context.Background(), "accounts", `{ me { name } }`, nil)
	require.Nil(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "not found", result.Errors[0].Message)
}

func TestExecuteReturnsErrorOnNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	executor := httpexec.New(server.URL, nil)
	executor.SetRetryMax(0)
	_, err := executor.Execute(context.Background(), "accounts", `{ me { name } }`, nil)
	assert.NotNil(t, err)
}
