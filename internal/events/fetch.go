package events

import "time"

// FetchStart is emitted before a subgraph operation is dispatched. FetchID
// pairs it with the matching FetchFinish; a request may have many fetches in
// flight at once under a Parallel plan node.
type FetchStart struct {
	FetchID       string
	ServiceName   string
	OperationName string
}

// FetchFinish is emitted after a subgraph operation completes.
type FetchFinish struct {
	FetchID       string
	ServiceName   string
	OperationName string
	// Err is the transport-level failure, if any.
	Err error
	// ErrorCount is the number of GraphQL errors in the subgraph response.
	ErrorCount int
	Duration   time.Duration
}
