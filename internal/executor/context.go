package executor

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	datasource "github.com/michael-watson/federation/internal/datasource"
	language "github.com/michael-watson/federation/internal/language"
	schema "github.com/michael-watson/federation/internal/schema"
)

// OperationContext carries the parsed client operation.
type OperationContext struct {
	Document      *language.QueryDocument
	Operation     *language.OperationDefinition
	OperationName string
}

// NewOperationContext selects the operation from a parsed document, by name
// or by uniqueness when unnamed.
func NewOperationContext(doc *language.QueryDocument, operationName string) *OperationContext {
	op := doc.Operations.ForName(operationName)
	if op == nil && operationName == "" && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	return &OperationContext{Document: doc, Operation: op, OperationName: operationName}
}

// Fragment resolves a named fragment from the operation document.
func (c *OperationContext) Fragment(name string) *language.FragmentDefinition {
	if c.Document == nil {
		return nil
	}
	return c.Document.Fragments.ForName(name)
}

// OperationKind returns "query", "mutation" or "subscription".
func (c *OperationContext) OperationKind() string {
	if c.Operation == nil {
		return string(language.Query)
	}
	return string(c.Operation.Operation)
}

// MetricsSink receives fetch-level measurements. Implementations must be safe
// for concurrent use; Parallel plan nodes report from multiple goroutines.
type MetricsSink interface {
	// ObserveFetch records one completed subgraph call.
	ObserveFetch(serviceName string, duration time.Duration, errorCount int)
	// RecordDownstreamError records one relayed subgraph error. It is only
	// invoked when the subgraph response carried no FTv1 trace (traced
	// responses already account for their errors).
	RecordDownstreamError(serviceName, code string, path Path)
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) ObserveFetch(string, time.Duration, int) {}

func (NoopMetrics) RecordDownstreamError(string, string, Path) {}

// RequestContext is the per-request state threaded through execution.
type RequestContext struct {
	// Variables are the client operation's coerced variable values.
	Variables map[string]any
	// Headers are the incoming client request headers.
	Headers http.Header
	// Logger receives request-scoped diagnostics; nil disables logging.
	Logger *slog.Logger
	// Metrics receives fetch measurements; nil disables them.
	Metrics MetricsSink
	// CaptureTraces asks the executor to build a query-plan trace and to
	// request FTv1 traces from subgraphs.
	CaptureTraces bool
}

func (rc *RequestContext) logger() *slog.Logger {
	if rc != nil && rc.Logger != nil {
		return rc.Logger
	}
	return discardLogger
}

func (rc *RequestContext) metrics() MetricsSink {
	if rc != nil && rc.Metrics != nil {
		return rc.Metrics
	}
	return NoopMetrics{}
}

var discardLogger = slog.New(slog.DiscardHandler)

// executionContext holds the state for one plan interpretation run. It is
// created by Execute and discarded on return.
//
// Parallel plan nodes fan out into goroutines that share the response tree.
// The planner guarantees their writes target disjoint paths, but disjoint
// keys of the same Go map still race, so every tree read and write goes
// through treeMu. Subgraph I/O happens outside the lock; only the in-memory
// walk/merge sections serialize.
type executionContext struct {
	operationContext *OperationContext
	requestContext   *RequestContext
	serviceMap       datasource.ServiceMap
	supergraphSchema *schema.Schema
	startTime        time.Time

	treeMu sync.Mutex

	mu     sync.Mutex
	errors []GraphQLError
}

func (ec *executionContext) withTreeLock(f func()) {
	ec.treeMu.Lock()
	defer ec.treeMu.Unlock()
	f()
}

func (ec *executionContext) pushErrors(errs ...GraphQLError) {
	if len(errs) == 0 {
		return
	}
	ec.mu.Lock()
	ec.errors = append(ec.errors, errs...)
	ec.mu.Unlock()
}

func (ec *executionContext) collectedErrors() []GraphQLError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]GraphQLError(nil), ec.errors...)
}

func (ec *executionContext) variables() map[string]any {
	if ec.requestContext == nil {
		return nil
	}
	return ec.requestContext.Variables
}

func (ec *executionContext) captureTraces() bool {
	return ec.requestContext != nil && ec.requestContext.CaptureTraces
}
