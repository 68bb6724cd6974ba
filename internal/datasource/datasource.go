// Package datasource defines the boundary between the executor and the
// backend subgraph services. The executor only ever talks to a
// SubgraphDataSource; transports (HTTP, in-process test doubles) live behind
// it.
package datasource

import (
	"context"
	"net/http"

	language "github.com/michael-watson/federation/internal/language"
)

// RequestKind tells the data source why it is being invoked.
type RequestKind string

const (
	// KindLoadedOperation is a planner-produced operation being executed as
	// part of a query plan.
	KindLoadedOperation RequestKind = "loaded-operation"
	// KindHealthCheck is a liveness probe issued outside any client request.
	KindHealthCheck RequestKind = "health-check"
)

// HeaderIncludeTrace is set on outgoing requests to ask the subgraph for a
// federated trace in its response extensions.
const (
	HeaderIncludeTrace = "apollo-federation-include-trace"
	TraceFormatFTV1    = "ftv1"
)

// Request is the GraphQL request handed to a subgraph.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	// HTTP carries transport-level details; data sources that are not HTTP
	// backed may ignore it.
	HTTP *HTTPRequest
}

// HTTPRequest holds the mutable HTTP surface of an outgoing request.
type HTTPRequest struct {
	Method  string
	URL     string
	Headers http.Header
}

// ProcessOptions is the full input to one Process call.
type ProcessOptions struct {
	Kind    RequestKind
	Request *Request
	// Document is the parsed form of Request.Query when the caller has it.
	Document *language.QueryDocument
	// IncomingHeaders are the client request headers, for data sources that
	// propagate them downstream.
	IncomingHeaders http.Header
}

// Location is a position in the operation source text.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Error is a GraphQL error as returned by a subgraph.
type Error struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Response is the subgraph's reply.
type Response struct {
	Data       map[string]any `json:"data"`
	Errors     []*Error       `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// SubgraphDataSource issues one GraphQL operation against a subgraph.
//
// Process returns an error only for transport-level failures (unreachable
// service, malformed payload, cancelled context); GraphQL-level failures
// travel in Response.Errors with Data possibly still partially populated.
// Implementations own their timeouts and pooling; the executor imposes
// neither.
type SubgraphDataSource interface {
	Process(ctx context.Context, opts *ProcessOptions) (*Response, error)
}

// ServiceMap names the data source for each subgraph service in a supergraph.
type ServiceMap map[string]SubgraphDataSource
