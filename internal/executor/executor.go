package executor

import (
	"context"
	"time"

	datasource "github.com/michael-watson/federation/internal/datasource"
	eventbus "github.com/michael-watson/federation/internal/eventbus"
	events "github.com/michael-watson/federation/internal/events"
	ftv1 "github.com/michael-watson/federation/internal/ftv1"
	plan "github.com/michael-watson/federation/internal/plan"
	schema "github.com/michael-watson/federation/internal/schema"
)

// ExecutionResult is the final response envelope. Data is absent when
// post-processing could not produce any; Trace is populated only when the
// request asked for trace capture.
type ExecutionResult struct {
	Data   map[string]any      `json:"data,omitempty"`
	Errors []GraphQLError      `json:"errors,omitempty"`
	Trace  *ftv1.QueryPlanNode `json:"-"`
}

// Executor interprets pre-compiled query plans against a set of subgraph
// data sources. One Executor serves many concurrent requests; all mutable
// state is per-request.
type Executor struct {
	serviceMap       datasource.ServiceMap
	supergraphSchema *schema.Schema
	apiSchema        *schema.Schema
	opt              Options
}

type Options struct {
	// Introspection resolves __schema/__type selections during
	// post-processing. Nil disables introspection.
	Introspection IntrospectionHandler

	// SuppressPostProcessingErrors drops shaping errors whenever at least
	// one fetch error was recorded; shaping errors are then almost always
	// secondary effects of the fetch failures. On by default.
	SuppressPostProcessingErrors bool
}

type Option func(*Options)

func WithIntrospectionHandler(h IntrospectionHandler) Option {
	return func(o *Options) { o.Introspection = h }
}

func WithPostProcessingErrorSuppression(enabled bool) Option {
	return func(o *Options) { o.SuppressPostProcessingErrors = enabled }
}

// NewExecutor creates an executor over the given service map. The supergraph
// schema drives entity representation extraction; the API schema drives
// post-processing and introspection.
func NewExecutor(serviceMap datasource.ServiceMap, supergraphSchema, apiSchema *schema.Schema, opts ...Option) *Executor {
	opt := Options{SuppressPostProcessingErrors: true}
	for _, f := range opts {
		f(&opt)
	}
	return &Executor{
		serviceMap:       serviceMap,
		supergraphSchema: supergraphSchema,
		apiSchema:        apiSchema,
		opt:              opt,
	}
}

// Execute interprets queryPlan and returns the response envelope. Fetch
// errors accumulate and never abort interpretation; only an unsupported plan
// node is fatal, producing an envelope with that single error and no data.
func (e *Executor) Execute(ctx context.Context, queryPlan *plan.QueryPlan, opCtx *OperationContext, reqCtx *RequestContext) *ExecutionResult {
	start := time.Now()
	eventbus.Publish(ctx, events.ExecutionStart{
		OperationName: opCtx.OperationName,
		OperationType: opCtx.OperationKind(),
	})

	ec := &executionContext{
		operationContext: opCtx,
		requestContext:   reqCtx,
		serviceMap:       e.serviceMap,
		supergraphSchema: e.supergraphSchema,
		startTime:        start,
	}

	unfiltered := make(map[string]any)
	var trace *ftv1.QueryPlanNode
	if queryPlan != nil && queryPlan.Root != nil {
		var err error
		trace, err = ec.executeNode(ctx, queryPlan.Root, newRootCursor(unfiltered))
		if err != nil {
			fatal := GraphQLError{
				Message:    err.Error(),
				Extensions: map[string]any{"code": CodeUnsupportedPlanNode},
			}
			eventbus.Publish(ctx, events.ExecutionFinish{
				OperationName: opCtx.OperationName,
				OperationType: opCtx.OperationKind(),
				ErrorCount:    1,
				Duration:      time.Since(start),
			})
			return &ExecutionResult{Errors: []GraphQLError{fatal}}
		}
	}
	fetchErrors := ec.collectedErrors()
	eventbus.Publish(ctx, events.ExecutionFinish{
		OperationName: opCtx.OperationName,
		OperationType: opCtx.OperationKind(),
		ErrorCount:    len(fetchErrors),
		Duration:      time.Since(start),
	})

	data, postErrors := e.postProcess(ctx, opCtx, reqCtx, unfiltered)
	if len(fetchErrors) > 0 && e.opt.SuppressPostProcessingErrors {
		postErrors = nil
	}

	result := &ExecutionResult{Data: data, Trace: trace}
	result.Errors = append(result.Errors, fetchErrors...)
	result.Errors = append(result.Errors, postErrors...)
	return result
}

// postProcess shapes the merged unfiltered tree against the client
// operation. A panic escaping the shaper is contained here: it becomes a
// single generic error, keeping the original message only for the
// structured GraphQL-error family.
func (e *Executor) postProcess(ctx context.Context, opCtx *OperationContext, reqCtx *RequestContext, unfiltered map[string]any) (data map[string]any, errs []GraphQLError) {
	start := time.Now()
	eventbus.Publish(ctx, events.PostProcessStart{OperationName: opCtx.OperationName})
	defer func() {
		if r := recover(); r != nil {
			data = nil
			switch pe := r.(type) {
			case GraphQLError:
				errs = []GraphQLError{pe}
			case *GraphQLError:
				errs = []GraphQLError{*pe}
			default:
				reqCtx.logger().Error("post-processing panicked", "panic", pe)
				errs = []GraphQLError{{
					Message:    "an unexpected error occurred during post-processing",
					Extensions: map[string]any{"code": CodeInternalError},
				}}
			}
		}
		eventbus.Publish(ctx, events.PostProcessFinish{
			OperationName: opCtx.OperationName,
			ErrorCount:    len(errs),
			Duration:      time.Since(start),
		})
	}()

	if opCtx == nil || opCtx.Operation == nil {
		return unfiltered, nil
	}
	sh := &shaper{
		ctx:           ctx,
		opCtx:         opCtx,
		schema:        e.apiSchema,
		variables:     reqCtx.variablesOrEmpty(),
		introspection: e.opt.Introspection,
	}
	rootType := e.apiSchema.RootTypeName(opCtx.OperationKind())
	shaped := sh.shapeSelectionSet(opCtx.Operation.SelectionSet, rootType, unfiltered, nil)
	return shaped, sh.errors
}

func (rc *RequestContext) variablesOrEmpty() map[string]any {
	if rc == nil || rc.Variables == nil {
		return map[string]any{}
	}
	return rc.Variables
}
