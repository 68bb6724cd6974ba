package executor

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"

	datasource "github.com/michael-watson/federation/internal/datasource"
	eventbus "github.com/michael-watson/federation/internal/eventbus"
	events "github.com/michael-watson/federation/internal/events"
	ftv1 "github.com/michael-watson/federation/internal/ftv1"
	plan "github.com/michael-watson/federation/internal/plan"
)

// executeFetch runs one Fetch plan node against the cursor. Subgraph-level
// GraphQL errors are recorded on the execution context and do not abort the
// fetch; the returned error covers fetch-level failures only (missing
// service, malformed entities payload, transport errors).
func (ec *executionContext) executeFetch(ctx context.Context, fetch *plan.FetchNode, cur cursor, traceNode *ftv1.FetchNode) error {
	source, ok := ec.serviceMap[fetch.ServiceName]
	if !ok {
		return missingServiceError(fetch.ServiceName)
	}

	var entities []map[string]any
	ec.withTreeLock(func() {
		entities = cur.collectEntities()
	})
	if len(entities) == 0 {
		return nil
	}

	variables := make(map[string]any, len(fetch.VariableUsages)+1)
	for _, name := range fetch.VariableUsages {
		if value, ok := ec.variables()[name]; ok {
			variables[name] = value
		}
	}

	hydrator := newErrorPathHydrator(cur)

	if len(fetch.Requires) == 0 {
		data, err := ec.sendOperation(ctx, fetch, source, variables, hydrator, traceNode)
		if err != nil {
			return err
		}
		if data == nil {
			return nil
		}
		ec.withTreeLock(func() {
			applyOutputRewrites(data, fetch.OutputRewrites)
			for _, entity := range entities {
				deepMerge(entity, data)
			}
		})
		return nil
	}

	// Entity fetch: build one representation per usable entity. Entities
	// whose extraction came back nil or without __typename were nullified by
	// an earlier fetch and are dropped without a second error.
	representations := make([]any, 0, len(entities))
	representationToEntity := make([]int, 0, len(entities))
	ec.withTreeLock(func() {
		for i, entity := range entities {
			rep := executeSelectionSet(ec.supergraphSchema, entity, fetch.Requires, fetch.InputRewrites)
			if rep == nil || rep[typenameField] == nil {
				continue
			}
			representations = append(representations, rep)
			representationToEntity = append(representationToEntity, i)
		}
	})
	if len(representations) == 0 {
		return nil
	}
	if _, forbidden := variables["representations"]; forbidden {
		return errRepresentationsVar
	}
	variables["representations"] = representations
	hydrator.repToEntity = representationToEntity

	data, err := ec.sendOperation(ctx, fetch, source, variables, hydrator, traceNode)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	received, ok := data["_entities"].([]any)
	if !ok {
		return errExpectedEntitiesArray
	}
	if len(received) != len(representations) {
		return entityCountMismatchError(len(representations), len(received))
	}
	ec.withTreeLock(func() {
		for i, value := range received {
			node, ok := isObject(value)
			if !ok {
				continue
			}
			typename, _ := representations[i].(map[string]any)[typenameField].(string)
			applyOutputRewrites(node, filterOutputRewritesForType(fetch.OutputRewrites, typename))
			deepMerge(entities[representationToEntity[i]], node)
		}
	})
	return nil
}

// sendOperation dispatches one operation to the subgraph, records its
// GraphQL errors with hydrated paths, and captures trace data when asked.
func (ec *executionContext) sendOperation(ctx context.Context, fetch *plan.FetchNode, source datasource.SubgraphDataSource, variables map[string]any, hydrator *errorPathHydrator, traceNode *ftv1.FetchNode) (map[string]any, error) {
	httpReq := &datasource.HTTPRequest{Headers: http.Header{}}
	capture := ec.captureTraces() && traceNode != nil
	if capture {
		httpReq.Headers.Set(datasource.HeaderIncludeTrace, datasource.TraceFormatFTV1)
		traceNode.SentTimeOffset = uint64(time.Since(ec.startTime).Nanoseconds())
		traceNode.SentTime = timestamppb.Now()
	}

	var incomingHeaders http.Header
	if ec.requestContext != nil {
		incomingHeaders = ec.requestContext.Headers
	}

	fetchID := uuid.NewString()
	start := time.Now()
	eventbus.Publish(ctx, events.FetchStart{
		FetchID:       fetchID,
		ServiceName:   fetch.ServiceName,
		OperationName: fetch.OperationName,
	})

	response, err := source.Process(ctx, &datasource.ProcessOptions{
		Kind: datasource.KindLoadedOperation,
		Request: &datasource.Request{
			Query:         fetch.Operation,
			OperationName: fetch.OperationName,
			Variables:     variables,
			HTTP:          httpReq,
		},
		Document:        fetch.Document,
		IncomingHeaders: incomingHeaders,
	})

	duration := time.Since(start)
	errorCount := 0
	if response != nil {
		errorCount = len(response.Errors)
	}
	eventbus.Publish(ctx, events.FetchFinish{
		FetchID:       fetchID,
		ServiceName:   fetch.ServiceName,
		OperationName: fetch.OperationName,
		Err:           err,
		ErrorCount:    errorCount,
		Duration:      duration,
	})
	ec.requestContext.metrics().ObserveFetch(fetch.ServiceName, duration, errorCount)
	if capture {
		traceNode.ReceivedTime = timestamppb.Now()
	}
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, nil
	}

	if len(response.Errors) > 0 {
		mapped := make([]GraphQLError, 0, len(response.Errors))
		ec.withTreeLock(func() {
			// Hydration reads the live response tree.
			for _, dsErr := range response.Errors {
				mapped = append(mapped, downstreamServiceError(dsErr, fetch.ServiceName, hydrator.hydrate(dsErr.Path)))
			}
		})
		ec.pushErrors(mapped...)
		ec.requestContext.logger().Warn("subgraph returned errors",
			"service", fetch.ServiceName,
			"operation", fetch.OperationName,
			"count", len(mapped))
		if _, traced := response.Extensions[datasource.TraceFormatFTV1]; !traced {
			sink := ec.requestContext.metrics()
			for _, ge := range mapped {
				sink.RecordDownstreamError(fetch.ServiceName, ge.ErrorCode(), ge.Path)
			}
		}
	}

	if capture {
		ec.captureFetchTrace(traceNode, response)
	}
	return response.Data, nil
}

// captureFetchTrace decodes the subgraph's FTv1 payload into the fetch trace
// node. A payload that fails to decode is not a request error; the node is
// just marked accordingly.
func (ec *executionContext) captureFetchTrace(traceNode *ftv1.FetchNode, response *datasource.Response) {
	payload, ok := response.Extensions[datasource.TraceFormatFTV1].(string)
	if !ok || payload == "" {
		return
	}
	trace, err := ftv1.DecodeTrace(payload)
	if err != nil {
		traceNode.TraceParsingFailed = true
		ec.requestContext.logger().Warn("failed to parse subgraph trace",
			"service", traceNode.ServiceName, "error", err)
		return
	}
	trace.OverrideRootParentType(canonicalRootTypeName(ec.operationContext.OperationKind()))
	traceNode.Trace = trace
}

func canonicalRootTypeName(operationKind string) string {
	switch operationKind {
	case "mutation":
		return "Mutation"
	case "subscription":
		return "Subscription"
	default:
		return "Query"
	}
}
