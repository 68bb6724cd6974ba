package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPDataSourceProcess(t *testing.T) {
	var gotBody httpRequestBody
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {"me": {"id": "1"}},
			"errors": [{"message": "partial", "path": ["me", "name"]}],
			"extensions": {"ftv1": "abc"}
		}`))
	}))
	defer srv.Close()

	source := NewHTTP(srv.URL,
		WithHeader("X-Static", "yes"),
		WithForwardHeaders("Authorization"),
	)

	incoming := http.Header{}
	incoming.Set("Authorization", "Bearer tok")
	incoming.Set("X-Do-Not-Forward", "nope")

	resp, err := source.Process(context.Background(), &ProcessOptions{
		Kind: KindLoadedOperation,
		Request: &Request{
			Query:         "{ me { id } }",
			OperationName: "Me",
			Variables:     map[string]any{"v": float64(1)},
			HTTP: &HTTPRequest{Headers: http.Header{
				HeaderIncludeTrace: []string{TraceFormatFTV1},
			}},
		},
		IncomingHeaders: incoming,
	})
	require.NoError(t, err)

	require.Equal(t, "{ me { id } }", gotBody.Query)
	require.Equal(t, "Me", gotBody.OperationName)
	require.Equal(t, map[string]any{"v": float64(1)}, gotBody.Variables)

	require.Equal(t, "yes", gotHeaders.Get("X-Static"))
	require.Equal(t, "Bearer tok", gotHeaders.Get("Authorization"))
	require.Empty(t, gotHeaders.Get("X-Do-Not-Forward"))
	require.Equal(t, TraceFormatFTV1, gotHeaders.Get(HeaderIncludeTrace))

	require.Equal(t, map[string]any{"me": map[string]any{"id": "1"}}, resp.Data)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "partial", resp.Errors[0].Message)
	require.Equal(t, []any{"me", "name"}, resp.Errors[0].Path)
	require.Equal(t, "abc", resp.Extensions["ftv1"])
}

func TestHTTPDataSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	source := NewHTTP(srv.URL)
	_, err := source.Process(context.Background(), &ProcessOptions{
		Kind:    KindLoadedOperation,
		Request: &Request{Query: "{ x }"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestHTTPDataSourceInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	source := NewHTTP(srv.URL)
	_, err := source.Process(context.Background(), &ProcessOptions{
		Kind:    KindLoadedOperation,
		Request: &Request{Query: "{ x }"},
	})
	require.Error(t, err)
}

func TestHTTPDataSourceContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := NewHTTP(srv.URL)
	_, err := source.Process(ctx, &ProcessOptions{
		Kind:    KindLoadedOperation,
		Request: &Request{Query: "{ x }"},
	})
	require.ErrorIs(t, err, context.Canceled)
}
